package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduadmin-backend/internal/config"
)

const sweepCursorTTL = 24 * time.Hour

// SweepCursor remembers where the last expiry sweep stopped, so a restart
// resumes the window instead of re-announcing or skipping expiries.
type SweepCursor struct {
	rdb *redis.Client
}

// NewSweepCursor creates a new SweepCursor.
func NewSweepCursor(rdb *redis.Client) *SweepCursor {
	return &SweepCursor{rdb: rdb}
}

// Load returns the stored cursor. ok is false when none has been saved yet.
func (s *SweepCursor) Load(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExpirySweepCursorKey()).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load sweep cursor: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse sweep cursor %q: %w", raw, err)
	}
	return t, true, nil
}

// Save stores t as the upper bound of the last completed sweep.
func (s *SweepCursor) Save(ctx context.Context, t time.Time) error {
	err := s.rdb.Set(ctx, config.CacheKey.ExpirySweepCursorKey(), t.UTC().Format(time.RFC3339Nano), sweepCursorTTL).Err()
	if err != nil {
		return fmt.Errorf("save sweep cursor: %w", err)
	}
	return nil
}
