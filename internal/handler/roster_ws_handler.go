package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/middleware"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
	ws "github.com/stemsi/eduadmin-backend/internal/websocket"
)

const (
	rosterPingInterval        = 25 * time.Second
	defaultRosterPollInterval = 5 * time.Second

	// actionMalformed stands in for a client frame that carried no usable action.
	actionMalformed ws.Action = ""
)

// RosterSubscriber delivers one session's events to a roster stream.
// The returned func ends the subscription and closes the channel.
type RosterSubscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan model.SessionEvent, func() error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// RosterWSHandler pushes a session's live roster to its owner.
type RosterWSHandler struct {
	broker            RosterSubscriber
	sessionService    *service.AttendanceSessionService
	attendanceService *service.AttendanceService
	pollInterval      time.Duration
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewRosterWSHandler creates a new RosterWSHandler.
func NewRosterWSHandler(
	broker RosterSubscriber,
	sessionService *service.AttendanceSessionService,
	attendanceService *service.AttendanceService,
	pollInterval time.Duration,
	log zerolog.Logger,
	allowedOrigins []string,
) *RosterWSHandler {
	if pollInterval <= 0 {
		pollInterval = defaultRosterPollInterval
	}
	return &RosterWSHandler{
		broker:            broker,
		sessionService:    sessionService,
		attendanceService: attendanceService,
		pollInterval:      pollInterval,
		log:               log.With().Str("component", "roster_ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// RosterStream godoc
// WS /ws/v1/teacher/attendance/sessions/:id/roster?token=<jwt>
// Sends a snapshot on connect, forwards session events as they happen, and
// re-sends the full roster every poll interval so a missed event heals itself.
// The stream closes once the session is no longer active.
func (h *RosterWSHandler) RosterStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	teacherID := claims.UserID

	// Ownership is checked before upgrading so the client gets a plain HTTP error.
	if _, err := h.sessionService.GetOwnedSession(c.Request.Context(), teacherID, sessionID); err != nil {
		failService(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.RosterStreams.Inc()
	defer metrics.RosterStreams.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().
		Int("teacher_id", teacherID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Teacher connected to roster stream")
	defer wsLog.Info().Msg("Teacher disconnected from roster stream")

	events, unsubscribe := h.broker.Subscribe(ctx, sessionID)
	defer unsubscribe()

	actions := make(chan ws.Action, 4)
	go h.readLoop(conn, cancel, actions, wsLog)

	if open := h.writeRoster(ctx, conn, ws.EventSnapshot, teacherID, sessionID, wsLog); !open {
		h.closeStream(conn)
		return
	}

	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(rosterPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			out := ws.NewSessionEventResponse(evt)
			if err := ws.WriteTyped(conn, out); err != nil {
				return
			}
			if out.Closing() {
				h.writeRoster(ctx, conn, ws.EventRefresh, teacherID, sessionID, wsLog)
				h.closeStream(conn)
				return
			}

		case <-poll.C:
			if open := h.writeRoster(ctx, conn, ws.EventRefresh, teacherID, sessionID, wsLog); !open {
				h.closeStream(conn)
				return
			}

		case action := <-actions:
			switch action {
			case ws.ActionPing:
				if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
					return
				}
			case ws.ActionRefresh:
				if open := h.writeRoster(ctx, conn, ws.EventRefresh, teacherID, sessionID, wsLog); !open {
					h.closeStream(conn)
					return
				}
			case actionMalformed:
				ws.WriteError(conn, "invalid message")
			default:
				ws.WriteError(conn, "unknown action: "+string(action))
			}

		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readLoop owns all reads on conn. It cancels the stream when the client goes away.
// A frame that is not a valid request is reported back and the stream stays open.
func (h *RosterWSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, actions chan<- ws.Action, wsLog zerolog.Logger) {
	defer cancel()
	ws.KeepAliveOnPong(conn)
	for {
		var msg ws.RequestEnvelope
		err := ws.ReadJSON(conn, &msg)
		switch {
		case err == nil:
		case malformedFrame(err):
			msg.Action = actionMalformed
		default:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case actions <- msg.Action:
		default:
			// Writer is busy; a later poll re-sends the roster anyway.
		}
	}
}

func malformedFrame(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// writeRoster sends the current session state and attendee list.
// It returns false when the session is no longer active or the write failed.
func (h *RosterWSHandler) writeRoster(
	ctx context.Context,
	conn *websocket.Conn,
	event ws.Event,
	teacherID int,
	sessionID uuid.UUID,
	wsLog zerolog.Logger,
) bool {
	session, err := h.sessionService.GetOwnedSession(ctx, teacherID, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Failed to load session for roster")
		ws.WriteError(conn, "failed to load session")
		return false
	}
	attendees, err := h.attendanceService.GetAttendees(ctx, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Failed to load roster")
		ws.WriteError(conn, "failed to load roster")
		return false
	}

	now := h.sessionService.Now()
	view := model.NewSessionView(session, now)
	err = ws.WriteTyped(conn, ws.RosterResponse{
		Event:     event,
		Session:   view,
		Attendees: attendees,
		Count:     len(attendees),
		SentAt:    now,
	})
	return err == nil && view.Status == model.SessionStatusActive
}

func (h *RosterWSHandler) closeStream(conn *websocket.Conn) {
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
		time.Now().Add(time.Second),
	)
}
