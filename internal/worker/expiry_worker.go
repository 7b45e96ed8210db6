package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/metrics"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// initialLookback bounds the first sweep window when no cursor has been stored.
const initialLookback = 5 * time.Minute

// ExpiredSessionSource lists sessions that ran out on their own.
type ExpiredSessionSource interface {
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]model.AttendanceSession, error)
}

// PinRemover drops a PIN from the lookup index.
type PinRemover interface {
	Remove(ctx context.Context, pin string, sessionID uuid.UUID) error
}

// EventPublisher fans session events out to roster subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, evt model.SessionEvent) error
}

// Cursor persists the end of the last sweep window. A nil Cursor keeps it in memory only.
type Cursor interface {
	Load(ctx context.Context) (time.Time, bool, error)
	Save(ctx context.Context, t time.Time) error
}

// ExpiryWorker announces sessions that reached their end time without being ended.
// Status is always derived from the clock; the sweep only tells push subscribers.
type ExpiryWorker struct {
	sessions ExpiredSessionSource
	pins     PinRemover
	events   EventPublisher
	cursor   Cursor
	schedule string
	log      zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
	cron *cron.Cron
}

// NewExpiryWorker creates a new ExpiryWorker. A nil now uses time.Now.
func NewExpiryWorker(
	sessions ExpiredSessionSource,
	pins PinRemover,
	events EventPublisher,
	cursor Cursor,
	schedule string,
	log zerolog.Logger,
	now func() time.Time,
) *ExpiryWorker {
	if now == nil {
		now = time.Now
	}
	return &ExpiryWorker{
		sessions: sessions,
		pins:     pins,
		events:   events,
		cursor:   cursor,
		schedule: schedule,
		log:      log.With().Str("component", "expiry_worker").Logger(),
		now:      now,
	}
}

// Start schedules the sweep. Overlapping runs are skipped. The schedule stops when ctx is done.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{w.log}),
		cron.SkipIfStillRunning(cronLogger{w.log}),
	))

	_, err := c.AddFunc(w.schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := w.Sweep(runCtx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Expiry sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", w.schedule, err)
	}

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()

	c.Start()
	w.log.Info().Str("schedule", w.schedule).Msg("ExpiryWorker started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		w.log.Info().Msg("ExpiryWorker stopped")
	}()
	return nil
}

// Sweep announces every session whose end_time fell after the previous sweep and
// at or before now. It returns the number of sessions announced.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int, error) {
	now := w.now()
	from, err := w.windowStart(ctx, now)
	if err != nil {
		return 0, err
	}
	if !from.Before(now) {
		return 0, nil
	}

	expired, err := w.sessions.ListExpiredBetween(ctx, from, now)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	for i := range expired {
		s := &expired[i]
		if err := w.pins.Remove(ctx, s.Pin, s.ID); err != nil {
			w.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("Failed to drop expired pin")
		}

		endTime := s.EndTime
		evt := model.SessionEvent{
			Type:      model.EventSessionExpired,
			SessionID: s.ID,
			At:        now,
			EndTime:   &endTime,
		}
		if err := w.events.Publish(ctx, evt); err != nil {
			w.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("Failed to publish expiry")
		}
		metrics.SessionsClosed.WithLabelValues("expired").Inc()
	}

	w.advance(ctx, now)

	if len(expired) > 0 {
		w.log.Info().Int("sessions", len(expired)).Msg("Expired sessions announced")
	}
	return len(expired), nil
}

func (w *ExpiryWorker) windowStart(ctx context.Context, now time.Time) (time.Time, error) {
	w.mu.Lock()
	last := w.last
	w.mu.Unlock()
	if !last.IsZero() {
		return last, nil
	}

	if w.cursor != nil {
		t, ok, err := w.cursor.Load(ctx)
		if err != nil {
			// The cursor only narrows the window; fall back to the lookback.
			w.log.Warn().Err(err).Msg("Sweep cursor unavailable")
		} else if ok {
			return t, nil
		}
	}
	return now.Add(-initialLookback), nil
}

func (w *ExpiryWorker) advance(ctx context.Context, now time.Time) {
	w.mu.Lock()
	w.last = now
	w.mu.Unlock()

	if w.cursor != nil {
		if err := w.cursor.Save(ctx, now); err != nil {
			w.log.Warn().Err(err).Msg("Failed to save sweep cursor")
		}
	}
}

// cronLogger routes robfig/cron diagnostics through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
