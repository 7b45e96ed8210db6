package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

type SubjectHandler struct {
	subjectService *service.SubjectService
	log            zerolog.Logger
}

func NewSubjectHandler(subjectService *service.SubjectService, log zerolog.Logger) *SubjectHandler {
	return &SubjectHandler{
		subjectService: subjectService,
		log:            log.With().Str("component", "subject_handler").Logger(),
	}
}

// GetAll godoc
// GET /api/v1/teacher/subjects
func (h *SubjectHandler) GetAll(c *gin.Context) {
	subjects, err := h.subjectService.GetAll(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	if subjects == nil {
		subjects = []model.Subject{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// GetByID godoc
// GET /api/v1/teacher/subjects/:id
func (h *SubjectHandler) GetByID(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	sub, err := h.subjectService.GetByID(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": sub})
}

// Create godoc
// POST /api/v1/teacher/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req model.SubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub := &model.Subject{Name: req.Name, Code: req.Code}
	if err := h.subjectService.Create(c.Request.Context(), sub); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"subject": sub})
}

// Update godoc
// PUT /api/v1/teacher/subjects/:id
func (h *SubjectHandler) Update(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var req model.SubjectRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub := &model.Subject{ID: id, Name: req.Name, Code: req.Code}
	if err := h.subjectService.Update(c.Request.Context(), sub); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": sub})
}

// Delete godoc
// DELETE /api/v1/teacher/subjects/:id
func (h *SubjectHandler) Delete(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if err := h.subjectService.Delete(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "subject deleted successfully"})
}
