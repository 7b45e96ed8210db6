package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrProvider wraps any failure returned by the upstream model API.
var ErrProvider = errors.New("ai provider error")

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
}

// Provider turns a prompt into text.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// HTTPProvider calls an OpenAI-compatible chat completions endpoint.
// It reads the live configuration on every call so updates apply immediately.
type HTTPProvider struct {
	cfg  *ConfigService
	http *http.Client
}

// NewHTTPProvider creates a provider. A nil client uses a default one;
// per-request timeouts come from the configuration.
func NewHTTPProvider(cfg *ConfigService, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProvider{cfg: cfg, http: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends prompt and returns the first choice's content.
func (p *HTTPProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	cfg := p.cfg.Get()
	if !cfg.Enabled() {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req := chatRequest{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if opts.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: status %d: decode body: %v", ErrProvider, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
