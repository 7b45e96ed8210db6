package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a change pushed to a session's roster subscribers.
type SessionEventType string

const (
	EventAttendeeMarked SessionEventType = "attendee_marked"
	EventPinRegenerated SessionEventType = "pin_regenerated"
	EventSessionEnded   SessionEventType = "session_ended"
	EventSessionExpired SessionEventType = "session_expired"
)

// SessionEvent is published on the session's Redis channel. The PIN is never included.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID uuid.UUID        `json:"session_id"`
	At        time.Time        `json:"at"`
	Attendee  *Attendee        `json:"attendee,omitempty"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
}
