package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled    = errors.New("ai provider is not configured")
	ErrUnknownKind = errors.New("unknown generation kind")
	ErrEmptyInput  = errors.New("input must not be empty")
)

// Kind selects the prompt template.
type Kind string

const (
	KindGradingFeedback   Kind = "grading_feedback"
	KindCurriculumGap     Kind = "curriculum_gap"
	KindAttendanceAnomaly Kind = "attendance_anomaly"
)

var systemPrompts = map[Kind]string{
	KindGradingFeedback: "You are a teaching assistant. Write constructive, specific feedback on the student's work " +
		"in at most five sentences. Do not assign a numeric score.",
	KindCurriculumGap: "You are a curriculum advisor. Compare the syllabus with the learning outcomes and list " +
		"topics that are missing or under-covered, one per line.",
	KindAttendanceAnomaly: "You are an academic advisor. Review the attendance summary and point out students or " +
		"sessions with unusual patterns, citing the figures you rely on.",
}

// GenerateRequest is the payload for a generation call.
type GenerateRequest struct {
	Kind  Kind   `json:"kind" binding:"required,oneof=grading_feedback curriculum_gap attendance_anomaly"`
	Input string `json:"input" binding:"required,max=20000"`
}

// Service builds prompts and forwards them to the provider.
type Service struct {
	cfg      *ConfigService
	provider Provider
	log      zerolog.Logger
}

// NewService creates a new Service.
func NewService(cfg *ConfigService, provider Provider, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		log:      log.With().Str("component", "ai_service").Logger(),
	}
}

// Generate returns model text for input under the template for kind.
func (s *Service) Generate(ctx context.Context, kind Kind, input string) (string, error) {
	system, ok := systemPrompts[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	if !s.cfg.Get().Enabled() {
		return "", ErrDisabled
	}

	text, err := s.provider.Generate(ctx, input, GenerateOptions{System: system})
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("AI generation failed")
		return "", err
	}

	s.log.Debug().Str("kind", string(kind)).Int("chars", len(text)).Msg("AI generation completed")
	return text, nil
}
