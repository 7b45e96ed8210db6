package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is derived from the wall clock at read time, never stored.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusEnded   SessionStatus = "ENDED"
	SessionStatusExpired SessionStatus = "EXPIRED"
)

// AttendanceSession is a time-boxed, PIN-protected attendance window owned by a teacher.
type AttendanceSession struct {
	ID            uuid.UUID `json:"id"`
	TeacherID     int       `json:"teacher_id"`
	CourseName    string    `json:"course_name"`
	Location      *string   `json:"location,omitempty"`
	Pin           string    `json:"pin"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	EndedManually bool      `json:"ended_manually"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsActive reports whether t falls before the session's end time.
func (s *AttendanceSession) IsActive(t time.Time) bool {
	return t.Before(s.EndTime)
}

// Status returns the session state as observed at t.
func (s *AttendanceSession) Status(t time.Time) SessionStatus {
	switch {
	case s.IsActive(t):
		return SessionStatusActive
	case s.EndedManually:
		return SessionStatusEnded
	default:
		return SessionStatusExpired
	}
}

// SessionView is the owner-facing representation of a session with its derived status.
type SessionView struct {
	AttendanceSession
	Status           SessionStatus `json:"status"`
	RemainingSeconds int64         `json:"remaining_seconds"`
}

// NewSessionView snapshots s at t.
func NewSessionView(s *AttendanceSession, t time.Time) SessionView {
	v := SessionView{AttendanceSession: *s, Status: s.Status(t)}
	if v.Status == SessionStatusActive {
		v.RemainingSeconds = int64(s.EndTime.Sub(t).Seconds())
	}
	return v
}

// SessionHistoryEntry is a session annotated with its attendee count.
type SessionHistoryEntry struct {
	AttendanceSession
	Status        SessionStatus `json:"status"`
	AttendeeCount int           `json:"attendee_count"`
}

// StartSessionRequest is the payload for starting an attendance session.
type StartSessionRequest struct {
	CourseName      string  `json:"course_name" binding:"required,max=150"`
	Location        *string `json:"location" binding:"omitempty,max=150"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1"`
}
