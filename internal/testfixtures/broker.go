package testfixtures

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

// Broker is an in-memory pub/sub. Published events are recorded like
// Notifier and fanned out to every open subscription of the session.
type Broker struct {
	Notifier

	subMu sync.Mutex
	subs  map[uuid.UUID]map[chan model.SessionEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uuid.UUID]map[chan model.SessionEvent]struct{})}
}

func (b *Broker) Publish(ctx context.Context, evt model.SessionEvent) error {
	err := b.Notifier.Publish(ctx, evt)

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for ch := range b.subs[evt.SessionID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return err
}

func (b *Broker) Subscribe(_ context.Context, sessionID uuid.UUID) (<-chan model.SessionEvent, func() error) {
	ch := make(chan model.SessionEvent, 16)

	b.subMu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan model.SessionEvent]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() error {
		once.Do(func() {
			b.subMu.Lock()
			defer b.subMu.Unlock()
			delete(b.subs[sessionID], ch)
			close(ch)
		})
		return nil
	}
}

// Subscribers counts the open subscriptions of a session.
func (b *Broker) Subscribers(sessionID uuid.UUID) int {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return len(b.subs[sessionID])
}
