package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
	"github.com/stemsi/eduadmin-backend/internal/model"
)

const subscriberBuffer = 16

// Broker fans session events out over Redis pub/sub, one channel per session.
// Any API instance can publish; whichever instance holds the teacher's roster
// socket receives the event.
type Broker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewBroker creates a new Broker.
func NewBroker(rdb *redis.Client, log zerolog.Logger) *Broker {
	return &Broker{
		rdb: rdb,
		log: log.With().Str("component", "realtime_broker").Logger(),
	}
}

// Publish sends evt to the session's channel.
func (b *Broker) Publish(ctx context.Context, evt model.SessionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := config.CacheKey.AttendanceSessionChannel(evt.SessionID.String())
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	b.log.Debug().
		Str("session_id", evt.SessionID.String()).
		Str("type", string(evt.Type)).
		Msg("Session event published")
	return nil
}

// Subscribe opens a subscription to the session's channel and decodes its
// payloads. The channel closes once the returned func is called or ctx ends.
func (b *Broker) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan model.SessionEvent, func() error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.AttendanceSessionChannel(sessionID.String()))
	out := make(chan model.SessionEvent, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			evt, err := Decode(msg.Payload)
			if err != nil {
				b.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Dropping undecodable session event")
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}

// Decode parses a pub/sub payload back into an event.
func Decode(payload string) (model.SessionEvent, error) {
	var evt model.SessionEvent
	err := json.Unmarshal([]byte(payload), &evt)
	return evt, err
}
