package realtime

import (
	"context"
	"encoding/json"

	"grievancedesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventPublisher writes an event to a named broker channel.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, ev models.Event) error
}

// RedisPublisher sends events through Redis so that every API instance's hub
// receives them.
type RedisPublisher struct {
	store EventPublisher
}

var _ Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(store EventPublisher) *RedisPublisher {
	return &RedisPublisher{store: store}
}

func (p *RedisPublisher) PublishToUser(ctx context.Context, externalID string, ev models.Event) error {
	return p.store.PublishEvent(ctx, UserChannel(externalID), ev)
}

func (p *RedisPublisher) Broadcast(ctx context.Context, grievanceID uint, ev models.Event) error {
	return p.store.PublishEvent(ctx, TopicChannel(grievanceID), ev)
}

// Listen forwards messages from a pattern subscription into the hub until
// ctx is cancelled or the subscription closes.
func (h *Hub) Listen(ctx context.Context, ps *redis.PubSub) {
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.WithError(err).WithField("channel", msg.Channel).Warn("discarding malformed event")
				continue
			}
			if err := h.Deliver(ctx, msg.Channel, ev); err != nil {
				return
			}
		}
	}
}
