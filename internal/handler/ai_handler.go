package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/ai"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

// AIHandler exposes text generation and the runtime provider settings.
type AIHandler struct {
	aiService *ai.Service
	aiConfig  *ai.ConfigService
	log       zerolog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(aiService *ai.Service, aiConfig *ai.ConfigService, log zerolog.Logger) *AIHandler {
	return &AIHandler{
		aiService: aiService,
		aiConfig:  aiConfig,
		log:       log.With().Str("component", "ai_handler").Logger(),
	}
}

// Generate godoc
// POST /api/v1/teacher/ai/generate
func (h *AIHandler) Generate(c *gin.Context) {
	var req ai.GenerateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	text, err := h.aiService.Generate(c.Request.Context(), req.Kind, req.Input)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrDisabled):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrAIDisabled)
		case errors.Is(err, ai.ErrUnknownKind), errors.Is(err, ai.ErrEmptyInput):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"detail": err.Error(),
			})
		case errors.Is(err, ai.ErrProvider), errors.Is(err, context.DeadlineExceeded):
			response.Fail(c, http.StatusBadGateway, response.ErrAIUnavailable)
		default:
			h.log.Error().Err(err).Msg("AI generate failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"kind": req.Kind,
		"text": text,
	})
}

// GetConfig godoc
// GET /api/v1/teacher/ai/config
// The API key is masked.
func (h *AIHandler) GetConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"config": h.aiConfig.Masked()})
}

// UpdateConfig godoc
// PUT /api/v1/teacher/ai/config
// Applies the non-null fields. Changes last until restart.
func (h *AIHandler) UpdateConfig(c *gin.Context) {
	var req ai.ConfigPatch
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.aiConfig.Update(req); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"detail": err.Error(),
		})
		return
	}

	h.log.Info().Msg("AI configuration updated")
	response.Success(c, http.StatusOK, gin.H{"config": h.aiConfig.Masked()})
}
