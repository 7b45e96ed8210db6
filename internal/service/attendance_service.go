package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/repository"
)

// AttendanceService collects student PIN submissions and serves rosters.
type AttendanceService struct {
	sessions AttendanceSessionStore
	records  AttendanceRecordStore
	pins     PinIndex
	notifier SessionNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewAttendanceService creates a new AttendanceService. A nil now uses time.Now.
func NewAttendanceService(
	sessions AttendanceSessionStore,
	records AttendanceRecordStore,
	pins PinIndex,
	notifier SessionNotifier,
	log zerolog.Logger,
	now func() time.Time,
) *AttendanceService {
	return &AttendanceService{
		sessions: sessions,
		records:  records,
		pins:     pins,
		notifier: notifier,
		log:      log.With().Str("component", "attendance_service").Logger(),
		now:      clockOrDefault(now),
	}
}

// SubmitPin marks the student present in the active session holding pin.
// Submitting again for the same session returns the existing record with AlreadyMarked set.
func (s *AttendanceService) SubmitPin(ctx context.Context, studentID int, pin string) (*model.SubmitPinResult, error) {
	pin = strings.TrimSpace(pin)
	if studentID <= 0 {
		return nil, fmt.Errorf("%w: student identity is required", ErrValidation)
	}
	if pin == "" {
		return nil, fmt.Errorf("%w: pin is required", ErrValidation)
	}

	now := s.now()

	session, err := s.resolvePin(ctx, pin, now)
	if err != nil {
		if errors.Is(err, ErrInvalidPin) {
			metrics.PinSubmissions.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	// The stored row is authoritative whichever path found it.
	if session.Pin != pin || !session.IsActive(now) {
		metrics.PinSubmissions.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidPin
	}

	rec := &model.AttendanceRecord{SessionID: session.ID, StudentID: studentID, MarkedAt: now}
	created, err := s.records.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return nil, ErrReferenceNotFound
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if !created {
		existing, err := s.records.GetBySessionAndStudent(ctx, session.ID, studentID)
		if err != nil {
			return nil, fmt.Errorf("load existing record: %w", err)
		}
		metrics.PinSubmissions.WithLabelValues("already_marked").Inc()
		return &model.SubmitPinResult{Record: *existing, CourseName: session.CourseName, AlreadyMarked: true}, nil
	}

	metrics.PinSubmissions.WithLabelValues("marked").Inc()
	s.notifyMarked(ctx, session.ID, studentID, now)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("student_id", studentID).
		Msg("Attendance marked")

	return &model.SubmitPinResult{Record: *rec, CourseName: session.CourseName}, nil
}

// resolvePin finds the candidate session for pin: the Redis index first, then the database.
func (s *AttendanceService) resolvePin(ctx context.Context, pin string, now time.Time) (*model.AttendanceSession, error) {
	id, ok, err := s.pins.Lookup(ctx, pin)
	switch {
	case err != nil:
		metrics.PinIndexLookups.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("Pin index unavailable, falling back to database")
	case ok:
		metrics.PinIndexLookups.WithLabelValues("hit").Inc()
		session, err := s.sessions.GetByID(ctx, id)
		if err == nil && session.Pin == pin && session.IsActive(now) {
			return session, nil
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session: %w", err)
		}
		// Stale entry (regenerated, ended or deleted); the database decides.
	default:
		metrics.PinIndexLookups.WithLabelValues("miss").Inc()
	}

	session, err := s.sessions.FindActiveByPin(ctx, pin, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidPin
		}
		return nil, fmt.Errorf("find session by pin: %w", err)
	}

	if err := s.pins.Put(ctx, pin, session.ID, session.EndTime.Sub(now)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to re-index pin")
	}
	return session, nil
}

func (s *AttendanceService) notifyMarked(ctx context.Context, sessionID uuid.UUID, studentID int, now time.Time) {
	attendee, err := s.records.GetAttendee(ctx, sessionID, studentID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to load attendee for event")
		return
	}
	evt := model.SessionEvent{Type: model.EventAttendeeMarked, SessionID: sessionID, At: now, Attendee: attendee}
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to publish attendee event")
	}
}

// GetAttendees returns the session's roster ordered by marked_at, then student ID.
func (s *AttendanceService) GetAttendees(ctx context.Context, sessionID uuid.UUID) ([]model.Attendee, error) {
	attendees, err := s.records.ListAttendees(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if attendees == nil {
		attendees = []model.Attendee{}
	}
	return attendees, nil
}

// ListStudentAttendance returns the sessions a student has been marked present in.
func (s *AttendanceService) ListStudentAttendance(ctx context.Context, studentID int) ([]model.StudentAttendance, error) {
	list, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	if list == nil {
		list = []model.StudentAttendance{}
	}
	return list, nil
}
