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

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	studentService *service.StudentService
	teacherService *service.TeacherService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	studentService *service.StudentService,
	teacherService *service.TeacherService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		studentService: studentService,
		teacherService: teacherService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates student number + password, rejects a second concurrent login, returns JWT.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Authenticate(c.Request.Context(), req.StudentNumber, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failService(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"student": student,
	})
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Clears the student's single-device session.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.UserID); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// TeacherLogin godoc
// POST /api/v1/auth/teacher/login
// Validates email + password, returns JWT carrying the role's permissions.
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req model.TeacherLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.teacherService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failService(c, h.log, err)
		return
	}

	token, err := h.authService.GenerateTeacherToken(teacher.ID, teacher.Role)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":       token,
		"teacher":     teacher,
		"permissions": model.PermissionCodes(teacher.Role),
	})
}

// GetTeacherProfile godoc
// GET /api/v1/auth/teacher/me
func (h *AuthHandler) GetTeacherProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	teacher, err := h.teacherService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"teacher":     teacher,
		"permissions": claims.Permissions,
	})
}
