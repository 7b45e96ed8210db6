package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is used to peek at the action of a client frame.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventRefresh  Event = "refresh"
	EventPong     Event = "pong"
	EventError    Event = "error"

	// Session events are forwarded under their own type names.
	EventAttendeeMarked Event = Event(model.EventAttendeeMarked)
	EventPinRegenerated Event = Event(model.EventPinRegenerated)
	EventSessionEnded   Event = Event(model.EventSessionEnded)
	EventSessionExpired Event = Event(model.EventSessionExpired)
)

// RosterResponse carries the session state and full attendee list.
// It is sent on connect (snapshot) and on every poll or client refresh.
type RosterResponse struct {
	Event     Event             `json:"event"`
	Session   model.SessionView `json:"session"`
	Attendees []model.Attendee  `json:"attendees"`
	Count     int               `json:"count"`
	SentAt    time.Time         `json:"sent_at"`
}

// SessionEventResponse forwards a published session change.
type SessionEventResponse struct {
	Event     Event           `json:"event"`
	SessionID uuid.UUID       `json:"session_id"`
	At        time.Time       `json:"at"`
	Attendee  *model.Attendee `json:"attendee,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
}

// NewSessionEventResponse maps a broker event onto the wire shape.
func NewSessionEventResponse(evt model.SessionEvent) SessionEventResponse {
	return SessionEventResponse{
		Event:     Event(evt.Type),
		SessionID: evt.SessionID,
		At:        evt.At,
		Attendee:  evt.Attendee,
		EndTime:   evt.EndTime,
	}
}

// Closing reports whether the event ends the roster stream.
func (r SessionEventResponse) Closing() bool {
	return r.Event == EventSessionEnded || r.Event == EventSessionExpired
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
