package ai

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stemsi/eduadmin-backend/internal/config"
)

// Config is the provider configuration in effect.
type Config struct {
	Provider    string        `json:"provider"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	Timeout     time.Duration `json:"-"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// Enabled reports whether a provider can be called at all.
func (c Config) Enabled() bool {
	return c.APIKey != "" && c.BaseURL != ""
}

// ConfigPatch changes the fields that are non-nil.
type ConfigPatch struct {
	Provider       *string  `json:"provider" binding:"omitempty,oneof=openai openai-compatible"`
	BaseURL        *string  `json:"base_url" binding:"omitempty,url"`
	APIKey         *string  `json:"api_key"`
	Model          *string  `json:"model" binding:"omitempty,min=1,max=100"`
	TimeoutSeconds *int     `json:"timeout_seconds" binding:"omitempty,min=1,max=300"`
	MaxTokens      *int     `json:"max_tokens" binding:"omitempty,min=1,max=32000"`
	Temperature    *float64 `json:"temperature" binding:"omitempty,min=0,max=2"`
}

// MaskedConfig is safe to show to staff: the key is reduced to its last four characters.
type MaskedConfig struct {
	Provider       string  `json:"provider"`
	BaseURL        string  `json:"base_url"`
	APIKey         string  `json:"api_key"`
	Model          string  `json:"model"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	Enabled        bool    `json:"enabled"`
}

// ConfigService holds the live AI configuration. Construct one per process and inject it.
type ConfigService struct {
	mu  sync.RWMutex
	cfg Config
}

// NewConfigService seeds the service from environment configuration.
func NewConfigService(env config.AIConfig) *ConfigService {
	cfg := Config{
		Provider:    env.Provider,
		BaseURL:     strings.TrimRight(env.BaseURL, "/"),
		APIKey:      env.APIKey,
		Model:       env.Model,
		Timeout:     env.Timeout,
		MaxTokens:   env.MaxTokens,
		Temperature: env.Temperature,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ConfigService{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *ConfigService) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies p and returns the resulting configuration.
func (s *ConfigService) Update(p ConfigPatch) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if p.Provider != nil {
		next.Provider = *p.Provider
	}
	if p.BaseURL != nil {
		next.BaseURL = strings.TrimRight(strings.TrimSpace(*p.BaseURL), "/")
	}
	if p.APIKey != nil {
		next.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.Model != nil {
		next.Model = strings.TrimSpace(*p.Model)
	}
	if p.TimeoutSeconds != nil {
		next.Timeout = time.Duration(*p.TimeoutSeconds) * time.Second
	}
	if p.MaxTokens != nil {
		next.MaxTokens = *p.MaxTokens
	}
	if p.Temperature != nil {
		next.Temperature = *p.Temperature
	}

	if next.Model == "" {
		return s.cfg, fmt.Errorf("model must not be empty")
	}
	if next.Timeout <= 0 || next.MaxTokens <= 0 {
		return s.cfg, fmt.Errorf("timeout and max tokens must be positive")
	}

	s.cfg = next
	return next, nil
}

// Masked returns the current configuration with the key hidden.
func (s *ConfigService) Masked() MaskedConfig {
	c := s.Get()
	return MaskedConfig{
		Provider:       c.Provider,
		BaseURL:        c.BaseURL,
		APIKey:         maskKey(c.APIKey),
		Model:          c.Model,
		TimeoutSeconds: int(c.Timeout / time.Second),
		MaxTokens:      c.MaxTokens,
		Temperature:    c.Temperature,
		Enabled:        c.Enabled(),
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
