package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

// EnrollmentHandler handles enrollment checks and CRUD.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
	log               zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		log:               log.With().Str("component", "enrollment_handler").Logger(),
	}
}

// CheckConflicts godoc
// POST /api/v1/teacher/enrollments/check
// Reports every rule the candidate would violate without creating anything.
func (h *EnrollmentHandler) CheckConflicts(c *gin.Context) {
	var req model.EnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	conflicts, err := h.enrollmentService.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"conflicts":  conflicts,
		"can_enroll": len(conflicts) == 0,
	})
}

// CreateEnrollment godoc
// POST /api/v1/teacher/enrollments
// Creates the enrollment, or answers 409 with the itemized conflicts.
func (h *EnrollmentHandler) CreateEnrollment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrollment, err := h.enrollmentService.CreateEnrollment(c.Request.Context(), claims.UserID, req)
	if err != nil {
		var conflictErr *service.ConflictError
		if errors.As(err, &conflictErr) {
			response.FailWithData(c, http.StatusConflict, response.ErrEnrollmentConflict, gin.H{
				"conflicts": conflictErr.Conflicts,
			})
			return
		}
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"enrollment": enrollment})
}

// ListEnrollments godoc
// GET /api/v1/teacher/enrollments?subject_id=&student_id=&room_id=
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	var filter model.EnrollmentFilter
	var ok bool
	if filter.SubjectID, ok = queryInt(c, "subject_id"); !ok {
		return
	}
	if filter.StudentID, ok = queryInt(c, "student_id"); !ok {
		return
	}
	if filter.RoomID, ok = queryInt(c, "room_id"); !ok {
		return
	}

	enrollments, err := h.enrollmentService.ListEnrollments(c.Request.Context(), filter)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollments": enrollments})
}

// GetEnrollment godoc
// GET /api/v1/teacher/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.GetEnrollment(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

// DeleteEnrollment godoc
// DELETE /api/v1/teacher/enrollments/:id
func (h *EnrollmentHandler) DeleteEnrollment(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.enrollmentService.DeleteEnrollment(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "enrollment deleted"})
}
