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
	"github.com/skip2/go-qrcode"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

const (
	qrImageSize = 256

	// maxSessionMinutes caps a session at one week whatever the configured limit.
	maxSessionMinutes = 7 * 24 * 60
)

// StartSessionInput carries the validated parameters of a new session.
type StartSessionInput struct {
	CourseName      string
	Location        *string
	DurationMinutes int
}

// HistoryFilter bounds a session history listing by calendar date, both ends inclusive.
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

// AttendanceSessionService manages the lifecycle of PIN attendance sessions.
type AttendanceSessionService struct {
	sessions AttendanceSessionStore
	pins     PinIndex
	notifier SessionNotifier
	cfg      config.AttendanceConfig
	log      zerolog.Logger
	now      func() time.Time
	genPin   func(length int) (string, error)
}

// NewAttendanceSessionService creates a new AttendanceSessionService.
// A nil now uses time.Now.
func NewAttendanceSessionService(
	sessions AttendanceSessionStore,
	pins PinIndex,
	notifier SessionNotifier,
	cfg config.AttendanceConfig,
	log zerolog.Logger,
	now func() time.Time,
) *AttendanceSessionService {
	return &AttendanceSessionService{
		sessions: sessions,
		pins:     pins,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "attendance_session_service").Logger(),
		now:      clockOrDefault(now),
		genPin:   GeneratePin,
	}
}

// Now exposes the service clock so handlers derive status from the same time source.
func (s *AttendanceSessionService) Now() time.Time {
	return s.now()
}

// maxDurationMinutes is the configured limit, or the hard cap when the limit is off or above it.
func (s *AttendanceSessionService) maxDurationMinutes() int {
	if m := s.cfg.MaxDurationMinutes; m > 0 && m < maxSessionMinutes {
		return m
	}
	return maxSessionMinutes
}

// StartSession opens a new session for the teacher. A teacher may hold only one active session.
func (s *AttendanceSessionService) StartSession(ctx context.Context, teacherID int, in StartSessionInput) (*model.AttendanceSession, error) {
	courseName := strings.TrimSpace(in.CourseName)
	switch {
	case teacherID <= 0:
		return nil, fmt.Errorf("%w: teacher identity is required", ErrValidation)
	case courseName == "":
		return nil, fmt.Errorf("%w: course name is required", ErrValidation)
	case in.DurationMinutes <= 0:
		return nil, fmt.Errorf("%w: duration must be a positive number of minutes", ErrValidation)
	case in.DurationMinutes > s.maxDurationMinutes():
		return nil, fmt.Errorf("%w: duration must not exceed %d minutes", ErrValidation, s.maxDurationMinutes())
	}

	var location *string
	if in.Location != nil {
		if trimmed := strings.TrimSpace(*in.Location); trimmed != "" {
			location = &trimmed
		}
	}

	now := s.now()

	active, err := s.sessions.GetActiveByTeacher(ctx, teacherID, now)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active != nil {
		return nil, ErrActiveSessionExists
	}

	pin, err := s.uniquePin(ctx, now, "")
	if err != nil {
		return nil, err
	}

	session := &model.AttendanceSession{
		ID:         uuid.New(),
		TeacherID:  teacherID,
		CourseName: courseName,
		Location:   location,
		Pin:        pin,
		StartTime:  now,
		EndTime:    now.Add(time.Duration(in.DurationMinutes) * time.Minute),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.indexPin(ctx, session, now)
	metrics.SessionsStarted.Inc()

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("teacher_id", teacherID).
		Time("end_time", session.EndTime).
		Msg("Attendance session started")

	return session, nil
}

// GetOwnedSession loads a session and checks that teacherID owns it.
func (s *AttendanceSessionService) GetOwnedSession(ctx context.Context, teacherID int, sessionID uuid.UUID) (*model.AttendanceSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.TeacherID != teacherID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// RegeneratePin replaces the PIN of an active session. The window is unchanged.
func (s *AttendanceSessionService) RegeneratePin(ctx context.Context, teacherID int, sessionID uuid.UUID) (*model.AttendanceSession, error) {
	session, err := s.GetOwnedSession(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.IsActive(now) {
		return nil, ErrSessionNotActive
	}

	pin, err := s.uniquePin(ctx, now, session.Pin)
	if err != nil {
		return nil, err
	}

	updated, err := s.sessions.UpdatePin(ctx, session.ID, pin, now)
	if err != nil {
		return nil, fmt.Errorf("update pin: %w", err)
	}
	if !updated {
		return nil, ErrSessionNotActive
	}

	previous := session.Pin
	session.Pin = pin

	if err := s.pins.Remove(ctx, previous, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to drop previous pin from index")
	}
	s.indexPin(ctx, session, now)

	s.publish(ctx, model.SessionEvent{Type: model.EventPinRegenerated, SessionID: session.ID, At: now})

	s.log.Info().Str("session_id", session.ID.String()).Msg("Attendance pin regenerated")
	return session, nil
}

// EndSession closes the session now. Ending a session that is no longer active is a no-op.
func (s *AttendanceSessionService) EndSession(ctx context.Context, teacherID int, sessionID uuid.UUID) (*model.AttendanceSession, error) {
	session, err := s.GetOwnedSession(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.IsActive(now) {
		return session, nil
	}

	ended, err := s.sessions.EndNow(ctx, session.ID, now)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if !ended {
		// Closed concurrently; report whatever is stored now.
		return s.GetOwnedSession(ctx, teacherID, sessionID)
	}

	session.EndTime = now
	session.EndedManually = true

	if err := s.pins.Remove(ctx, session.Pin, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to drop pin from index")
	}
	endTime := now
	s.publish(ctx, model.SessionEvent{Type: model.EventSessionEnded, SessionID: session.ID, At: now, EndTime: &endTime})
	metrics.SessionsClosed.WithLabelValues("ended").Inc()

	s.log.Info().Str("session_id", session.ID.String()).Int("teacher_id", teacherID).Msg("Attendance session ended")
	return session, nil
}

// GetActiveSession returns the teacher's active session, or nil when there is none.
func (s *AttendanceSessionService) GetActiveSession(ctx context.Context, teacherID int) (*model.AttendanceSession, error) {
	session, err := s.sessions.GetActiveByTeacher(ctx, teacherID, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return session, nil
}

// GetSessionHistory lists the teacher's sessions, newest first, with attendee counts.
func (s *AttendanceSessionService) GetSessionHistory(ctx context.Context, teacherID int, f HistoryFilter) ([]model.SessionHistoryEntry, error) {
	var from, to *time.Time
	if f.From != nil {
		d := startOfDay(*f.From)
		from = &d
	}
	if f.To != nil {
		d := startOfDay(*f.To).AddDate(0, 0, 1)
		to = &d
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrValidation)
	}

	entries, err := s.sessions.ListByTeacher(ctx, teacherID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now()
	for i := range entries {
		entries[i].Status = entries[i].AttendanceSession.Status(now)
	}
	if entries == nil {
		entries = []model.SessionHistoryEntry{}
	}
	return entries, nil
}

// RenderPinQR encodes the current PIN of an active session as a PNG QR code.
func (s *AttendanceSessionService) RenderPinQR(ctx context.Context, teacherID int, sessionID uuid.UUID) ([]byte, error) {
	session, err := s.GetOwnedSession(ctx, teacherID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive(s.now()) {
		return nil, ErrSessionNotActive
	}
	png, err := qrcode.Encode(session.Pin, qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// uniquePin draws PINs until one is not held by another active session and differs from previous.
func (s *AttendanceSessionService) uniquePin(ctx context.Context, now time.Time, previous string) (string, error) {
	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin, err := s.genPin(s.cfg.PinLength)
		if err != nil {
			return "", err
		}
		if pin == previous {
			continue
		}
		taken, err := s.sessions.ActivePinExists(ctx, pin, now)
		if err != nil {
			return "", fmt.Errorf("check pin: %w", err)
		}
		if !taken {
			return pin, nil
		}
		s.log.Debug().Int("attempt", attempt+1).Msg("Pin collision, drawing again")
	}
	return "", ErrPinUnavailable
}

func (s *AttendanceSessionService) indexPin(ctx context.Context, session *model.AttendanceSession, now time.Time) {
	if err := s.pins.Put(ctx, session.Pin, session.ID, session.EndTime.Sub(now)); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to index pin")
	}
}

// publish is best effort: subscribers that miss an event catch up on the next refresh.
func (s *AttendanceSessionService) publish(ctx context.Context, evt model.SessionEvent) {
	if err := s.notifier.Publish(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("type", string(evt.Type)).Msg("Failed to publish session event")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
