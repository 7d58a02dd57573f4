package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"clicker-quiz-service/internal/domain"
	redisinfra "clicker-quiz-service/internal/infra/redis"
	"clicker-quiz-service/internal/pkg/logger"
)

func TestBusForwardsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	bus := redisinfra.NewBus(client, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type received struct {
		channel string
		payload []byte
	}
	got := make(chan received, 1)
	err := bus.StartForwarder(ctx, domain.Channels(), func(channel string, payload []byte) {
		got <- received{channel: channel, payload: payload}
	})
	if err != nil {
		t.Fatalf("start forwarder: %v", err)
	}

	event := domain.ClickerEvent{ClickerID: "c1", Name: "Ana", Timestamp: time.Now().UTC()}
	if err := bus.Publish(ctx, domain.ChannelClickerConnected, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-got:
		if msg.channel != domain.ChannelClickerConnected {
			t.Fatalf("expected clicker channel, got %s", msg.channel)
		}
		var decoded domain.ClickerEvent
		if err := json.Unmarshal(msg.payload, &decoded); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if decoded.ClickerID != "c1" || decoded.Name != "Ana" {
			t.Fatalf("payload mismatch: %+v", decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for forwarded event")
	}
}

func TestBusForwarderStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	bus := redisinfra.NewBus(client, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan struct{}, 8)
	if err := bus.StartForwarder(ctx, []string{"test:channel"}, func(string, []byte) {
		got <- struct{}{}
	}); err != nil {
		t.Fatalf("start forwarder: %v", err)
	}
	cancel()

	// Give the forwarder time to observe cancellation, then verify new
	// publishes no longer arrive.
	time.Sleep(50 * time.Millisecond)
	if err := bus.Publish(context.Background(), "test:channel", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-got:
		t.Fatalf("forwarder should have stopped")
	case <-time.After(200 * time.Millisecond):
	}
}
