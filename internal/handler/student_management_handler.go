package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

// StudentManagementHandler handles staff-facing student management (CRUD, session reset).
type StudentManagementHandler struct {
	studentService *service.StudentService
	authService    *service.AuthService
	log            zerolog.Logger
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(
	studentService *service.StudentService,
	authService *service.AuthService,
	log zerolog.Logger,
) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService: studentService,
		authService:    authService,
		log:            log.With().Str("component", "student_management_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/teacher/students?search=&page=&per_page=
// Lists students with pagination, optionally filtered by name or student number.
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), c.Query("search"), page, perPage)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/teacher/students/:id
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// ResetStudentSession godoc
// POST /api/v1/teacher/students/:id/reset-session
// Clears a student's active Redis session, allowing them to log in on a new device.
func (h *StudentManagementHandler) ResetStudentSession(c *gin.Context) {
	studentID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student session reset successfully"})
}

// CreateStudent godoc
// POST /api/v1/teacher/students
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		StudentNumber: req.StudentNumber,
		Name:          req.Name,
		Email:         req.Email,
	}

	if err := h.studentService.Create(c.Request.Context(), student, req.Password); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/teacher/students/:id
// Updates an existing student's details, and optionally their password.
func (h *StudentManagementHandler) UpdateStudent(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		ID:            id,
		StudentNumber: req.StudentNumber,
		Name:          req.Name,
		Email:         req.Email,
	}

	if err := h.studentService.Update(c.Request.Context(), student, req.Password); err != nil {
		failService(c, h.log, err)
		return
	}

	updated, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": updated})
}

// DeleteStudent godoc
// DELETE /api/v1/teacher/students/:id
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}
