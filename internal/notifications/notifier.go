// Package notifications delivers board events to live websocket clients,
// fanning out across server instances through Redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"schoolboard/internal/events"
	"schoolboard/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// BoardChannel is the Redis channel carrying board events.
const BoardChannel = "board:events"

// Notifier publishes board events into Redis and subscribes to them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client makes every call a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// Publish sends the event to every subscribed server instance.
func (n *Notifier) Publish(ctx context.Context, event events.BoardEvent) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, BoardChannel, payload).Err()
}

// StartBoardSubscriber subscribes to BoardChannel and calls onMessage for each
// payload until ctx is cancelled.
func (n *Notifier) StartBoardSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BoardChannel)
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", BoardChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("PANIC in BoardSubscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
