package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/eduadmin-backend/internal/config"
)

// compareAndDelete removes KEYS[1] only while it still points at ARGV[1],
// so a PIN re-issued to another session is never dropped by a stale owner.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PinIndex maps live PINs to session IDs in Redis. It is a lookup accelerator only:
// the database row stays the authority on whether a PIN is valid.
type PinIndex struct {
	rdb *redis.Client
}

// NewPinIndex creates a new PinIndex.
func NewPinIndex(rdb *redis.Client) *PinIndex {
	return &PinIndex{rdb: rdb}
}

// Put indexes pin for sessionID until ttl elapses.
func (p *PinIndex) Put(ctx context.Context, pin string, sessionID uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := p.rdb.Set(ctx, config.CacheKey.AttendancePinKey(pin), sessionID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("index pin: %w", err)
	}
	return nil
}

// Lookup returns the session indexed under pin. ok is false on a cache miss.
func (p *PinIndex) Lookup(ctx context.Context, pin string) (uuid.UUID, bool, error) {
	raw, err := p.rdb.Get(ctx, config.CacheKey.AttendancePinKey(pin)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("lookup pin: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		// Corrupt entry; treat as a miss so the caller falls back to the database.
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Remove drops the pin entry if it still belongs to sessionID.
func (p *PinIndex) Remove(ctx context.Context, pin string, sessionID uuid.UUID) error {
	err := compareAndDelete.Run(ctx, p.rdb, []string{config.CacheKey.AttendancePinKey(pin)}, sessionID.String()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("remove pin: %w", err)
	}
	return nil
}
