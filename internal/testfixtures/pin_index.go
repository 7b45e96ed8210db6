package testfixtures

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pinEntry struct {
	session uuid.UUID
	expires time.Time
}

// PinIndex is an in-memory PIN index whose TTLs follow a Clock.
type PinIndex struct {
	mu      sync.Mutex
	clock   *Clock
	entries map[string]pinEntry
	// Err, when set, makes every operation fail as an unreachable cache would.
	Err error
}

// NewPinIndex creates an index that expires entries against clock.
func NewPinIndex(clock *Clock) *PinIndex {
	return &PinIndex{clock: clock, entries: make(map[string]pinEntry)}
}

func (p *PinIndex) Put(_ context.Context, pin string, sessionID uuid.UUID, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	if ttl <= 0 {
		return nil
	}
	p.entries[pin] = pinEntry{session: sessionID, expires: p.clock.Now().Add(ttl)}
	return nil
}

func (p *PinIndex) Lookup(_ context.Context, pin string) (uuid.UUID, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return uuid.Nil, false, p.Err
	}
	e, ok := p.entries[pin]
	if !ok || !p.clock.Now().Before(e.expires) {
		return uuid.Nil, false, nil
	}
	return e.session, true, nil
}

func (p *PinIndex) Remove(_ context.Context, pin string, sessionID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	if e, ok := p.entries[pin]; ok && e.session == sessionID {
		delete(p.entries, pin)
	}
	return nil
}

// Has reports whether pin is indexed and unexpired.
func (p *PinIndex) Has(pin string) bool {
	_, ok, _ := p.Lookup(context.Background(), pin)
	return ok
}
