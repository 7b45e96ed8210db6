package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	"github.com/stemsi/eduadmin-backend/internal/validator"
)

const historyDateLayout = "2006-01-02"

// AttendanceSessionHandler exposes the teacher side of PIN attendance.
type AttendanceSessionHandler struct {
	sessionService    *service.AttendanceSessionService
	attendanceService *service.AttendanceService
	cfg               config.AttendanceConfig
	log               zerolog.Logger
}

// NewAttendanceSessionHandler creates a new AttendanceSessionHandler.
func NewAttendanceSessionHandler(
	sessionService *service.AttendanceSessionService,
	attendanceService *service.AttendanceService,
	cfg config.AttendanceConfig,
	log zerolog.Logger,
) *AttendanceSessionHandler {
	return &AttendanceSessionHandler{
		sessionService:    sessionService,
		attendanceService: attendanceService,
		cfg:               cfg,
		log:               log.With().Str("component", "attendance_session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/teacher/attendance/sessions
// Opens a PIN session for the calling teacher. duration_minutes defaults from config.
func (h *AttendanceSessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	duration := h.cfg.DefaultDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), claims.UserID, service.StartSessionInput{
		CourseName:      req.CourseName,
		Location:        req.Location,
		DurationMinutes: duration,
	})
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": model.NewSessionView(session, h.sessionService.Now()),
	})
}

// GetActiveSession godoc
// GET /api/v1/teacher/attendance/sessions/active
// Returns the teacher's active session, or null when there is none.
func (h *AttendanceSessionHandler) GetActiveSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	session, err := h.sessionService.GetActiveSession(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if session == nil {
		response.Success(c, http.StatusOK, gin.H{"session": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": model.NewSessionView(session, h.sessionService.Now()),
	})
}

// GetSessionHistory godoc
// GET /api/v1/teacher/attendance/sessions?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (h *AttendanceSessionHandler) GetSessionHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var filter service.HistoryFilter
	fields := map[string]string{}
	if raw := c.Query("start_date"); raw != "" {
		if d, err := time.Parse(historyDateLayout, raw); err == nil {
			filter.From = &d
		} else {
			fields["start_date"] = "must be a date in YYYY-MM-DD format"
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if d, err := time.Parse(historyDateLayout, raw); err == nil {
			filter.To = &d
		} else {
			fields["end_date"] = "must be a date in YYYY-MM-DD format"
		}
	}
	if len(fields) > 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessions, err := h.sessionService.GetSessionHistory(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// RegeneratePin godoc
// POST /api/v1/teacher/attendance/sessions/:id/regenerate-pin
func (h *AttendanceSessionHandler) RegeneratePin(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.RegeneratePin(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": model.NewSessionView(session, h.sessionService.Now()),
	})
}

// EndSession godoc
// POST /api/v1/teacher/attendance/sessions/:id/end
// Ends the session now. Ending a closed session returns it unchanged.
func (h *AttendanceSessionHandler) EndSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.EndSession(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": model.NewSessionView(session, h.sessionService.Now()),
	})
}

// GetAttendees godoc
// GET /api/v1/teacher/attendance/sessions/:id/attendees
// Returns the roster ordered by marking time. Works for closed sessions too.
func (h *AttendanceSessionHandler) GetAttendees(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if _, err := h.sessionService.GetOwnedSession(c.Request.Context(), claims.UserID, sessionID); err != nil {
		failService(c, h.log, err)
		return
	}

	attendees, err := h.attendanceService.GetAttendees(c.Request.Context(), sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attendees": attendees,
		"count":     len(attendees),
	})
}

// GetPinQR godoc
// GET /api/v1/teacher/attendance/sessions/:id/qr
// Serves the current PIN as a PNG QR code for projection.
func (h *AttendanceSessionHandler) GetPinQR(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	png, err := h.sessionService.RenderPinQR(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
