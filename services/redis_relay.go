package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChangeChannel is the Redis channel committed writes are relayed on
const ChangeChannel = "customs:changes"

// RedisRelay shares change events between API instances. Publish sends to
// Redis and Run delivers everything received from Redis to the local feed,
// so every instance's subscribers see writes made by any instance.
type RedisRelay struct {
	client *redis.Client
	feed   *ChangeFeed
}

// NewRedisClient connects to the server at redisURL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, feed *ChangeFeed) *RedisRelay {
	if client == nil {
		return nil
	}
	return &RedisRelay{client: client, feed: feed}
}

// Publish sends event to every instance. A failed send is logged and the event stays local.
func (r *RedisRelay) Publish(ctx context.Context, event ChangeEvent) {
	payload, err := encodeChangeEvent(event)
	if err != nil {
		zap.L().Error("failed to encode change event", zap.Error(err), zap.String("id", event.ID))
		r.feed.Publish(ctx, event)
		return
	}
	if err := r.client.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		zap.L().Warn("failed to relay change event, delivering locally",
			zap.Error(err),
			zap.String("id", event.ID),
		)
		r.feed.Publish(ctx, event)
	}
}

// Run forwards relayed events to the local feed until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("redis relay not configured")
	}
	pubsub := r.client.Subscribe(ctx, ChangeChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", ChangeChannel, err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := decodeChangeEvent(msg.Payload)
			if err != nil {
				zap.L().Warn("dropping malformed change event", zap.Error(err))
				continue
			}
			r.feed.Publish(ctx, event)
		}
	}
}

func encodeChangeEvent(event ChangeEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeChangeEvent(payload string) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ChangeEvent{}, err
	}
	if event.Collection == "" || event.ID == "" {
		return ChangeEvent{}, errors.New("change event is missing collection or id")
	}
	return event, nil
}
