package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"clicker-quiz-service/internal/pkg/logger"
)

// Bus fans events out across server instances over Redis pub/sub. Every
// instance publishes mutations here and forwards received messages to its own
// connected sessions.
type Bus struct {
	client *redis.Client
	log    *logger.Logger
}

func NewBus(client *redis.Client, log *logger.Logger) *Bus {
	return &Bus{client: client, log: log.With("component", "bus")}
}

// Publish marshals payload and publishes it on channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// StartForwarder subscribes to the given channels and invokes onMsg for every
// message until ctx is canceled. It returns after the subscription is
// confirmed, so publishes that follow are not missed.
func (b *Bus) StartForwarder(ctx context.Context, channels []string, onMsg func(channel string, payload []byte)) error {
	sub := b.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				onMsg(m.Channel, []byte(m.Payload))
			}
		}
	}()
	return nil
}
