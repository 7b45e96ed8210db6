package testfixtures

import (
	"context"
	"sync"

	"github.com/stemsi/eduadmin-backend/internal/model"
)

// Notifier records published session events.
type Notifier struct {
	mu     sync.Mutex
	events []model.SessionEvent
	// Err, when set, is returned from every Publish after recording the event.
	Err error
}

func (n *Notifier) Publish(_ context.Context, evt model.SessionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.Err
}

// Events returns a copy of everything published so far.
func (n *Notifier) Events() []model.SessionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.SessionEvent(nil), n.events...)
}

// Types lists the published event types in order.
func (n *Notifier) Types() []model.SessionEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]model.SessionEventType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}
