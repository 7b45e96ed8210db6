package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// The attendance and enrollment services depend on these narrow interfaces so they
// can run against the pgx repositories in production and in-memory fixtures in tests.
// Not-found is reported as pgx.ErrNoRows, as the repositories do.

// AttendanceSessionStore persists attendance sessions.
type AttendanceSessionStore interface {
	Create(ctx context.Context, s *model.AttendanceSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AttendanceSession, error)
	GetActiveByTeacher(ctx context.Context, teacherID int, now time.Time) (*model.AttendanceSession, error)
	FindActiveByPin(ctx context.Context, pin string, now time.Time) (*model.AttendanceSession, error)
	ActivePinExists(ctx context.Context, pin string, now time.Time) (bool, error)
	UpdatePin(ctx context.Context, id uuid.UUID, pin string, now time.Time) (bool, error)
	EndNow(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListByTeacher(ctx context.Context, teacherID int, from, to *time.Time) ([]model.SessionHistoryEntry, error)
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]model.AttendanceSession, error)
}

// AttendanceRecordStore persists attendance records.
type AttendanceRecordStore interface {
	Insert(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	GetBySessionAndStudent(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.AttendanceRecord, error)
	GetAttendee(ctx context.Context, sessionID uuid.UUID, studentID int) (*model.Attendee, error)
	ListAttendees(ctx context.Context, sessionID uuid.UUID) ([]model.Attendee, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.StudentAttendance, error)
}

// EnrollmentStore persists enrollments and runs the locked check-and-insert.
type EnrollmentStore interface {
	Snapshot(ctx context.Context, subjectID, studentID int, roomID *int) (*model.ConflictSnapshot, error)
	CreateChecked(ctx context.Context, e *model.Enrollment, check func(*model.ConflictSnapshot) []model.Conflict) ([]model.Conflict, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error)
	List(ctx context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// PinIndex is the cache from live PIN to session ID.
type PinIndex interface {
	Put(ctx context.Context, pin string, sessionID uuid.UUID, ttl time.Duration) error
	Lookup(ctx context.Context, pin string) (uuid.UUID, bool, error)
	Remove(ctx context.Context, pin string, sessionID uuid.UUID) error
}

// SessionNotifier pushes session events to roster subscribers.
type SessionNotifier interface {
	Publish(ctx context.Context, evt model.SessionEvent) error
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
