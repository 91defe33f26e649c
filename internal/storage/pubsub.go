package storage

import (
	"context"
	"encoding/json"
	"errors"

	"grievancedesk/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

var errNoRedis = errors.New("redis is not configured")

// PublishEvent publishes the event as JSON on a Redis Pub/Sub channel.
func (s *Service) PublishEvent(ctx context.Context, channel string, ev models.Event) error {
	if s.Redis == nil {
		return errNoRedis
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, channel, payload).Err()
}

// SubscribeEvents pattern-subscribes to event channels.
func (s *Service) SubscribeEvents(ctx context.Context, pattern string) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, pattern)
}
