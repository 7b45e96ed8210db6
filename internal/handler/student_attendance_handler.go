package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

// StudentAttendanceHandler handles the student side of PIN attendance.
type StudentAttendanceHandler struct {
	attendanceService *service.AttendanceService
	log               zerolog.Logger
}

// NewStudentAttendanceHandler creates a new StudentAttendanceHandler.
func NewStudentAttendanceHandler(attendanceService *service.AttendanceService, log zerolog.Logger) *StudentAttendanceHandler {
	return &StudentAttendanceHandler{
		attendanceService: attendanceService,
		log:               log.With().Str("component", "student_attendance_handler").Logger(),
	}
}

// SubmitPin godoc
// POST /api/v1/student/attendance/submit
// Marks the caller present. A repeat submission answers 200 with already_marked=true.
func (h *StudentAttendanceHandler) SubmitPin(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitPinRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attendanceService.SubmitPin(c.Request.Context(), claims.UserID, req.Pin)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyMarked {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// ListMyAttendance godoc
// GET /api/v1/student/attendance
func (h *StudentAttendanceHandler) ListMyAttendance(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	history, err := h.attendanceService.ListStudentAttendance(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": history})
}
