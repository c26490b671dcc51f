package redis

import (
	"context"
	"fmt"
	"strings"

	"flyerxpress/internal/logger"

	"github.com/go-redis/redis/v8"
)

// ExpiryWatcher logs checkouts whose snapshot expired before reaching a
// terminal state. Redis must have keyspace notifications for expired keys.
type ExpiryWatcher struct {
	Client    *redis.Client
	Logger    *logger.Logger
	OnAbandon func(sessionID string)
}

// EnableNotifications asks Redis to publish expired key events. Managed
// Redis often forbids CONFIG SET, in which case expiry logging stays silent.
func (w *ExpiryWatcher) EnableNotifications(ctx context.Context) {
	if err := w.Client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		w.Logger.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
		return
	}
	w.Logger.Info("REDIS", "Keyspace notifications enabled for expired events")
}

// Run blocks until ctx is done.
func (w *ExpiryWatcher) Run(ctx context.Context) {
	channel := fmt.Sprintf("__keyevent@%d__:expired", w.Client.Options().DB)
	pubsub := w.Client.PSubscribe(ctx, channel)
	defer pubsub.Close()
	w.Logger.Info("REDIS", fmt.Sprintf("Subscribed to %s", channel))

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.handle(msg.Payload)
		}
	}
}

func (w *ExpiryWatcher) handle(key string) {
	id, ok := abandonedSession(key)
	if !ok {
		return
	}
	w.Logger.LogCheckout("EXPIRED", id, "Checkout abandoned, snapshot expired")
	if w.OnAbandon != nil {
		w.OnAbandon(id)
	}
}

// abandonedSession extracts the session ID from an expired open-session key.
// Finished snapshots and lock keys expire routinely and are ignored.
func abandonedSession(key string) (string, bool) {
	if !strings.HasPrefix(key, sessionPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, sessionPrefix)
	return id, id != ""
}
