package display

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// eventChannel carries attach/detach notifications from the display agent.
const eventChannel = "display:events"

const (
	eventAttached = "attached"
	eventDetached = "detached"
)

type displayEvent struct {
	Event string `json:"event"`
}

// Watcher listens for external-display attach and detach events and invokes
// the session manager's callbacks.
type Watcher struct {
	rdb      *redis.Client
	onAttach func(ctx context.Context)
	onDetach func(ctx context.Context)
}

// NewWatcher creates a Watcher. onAttach and onDetach are invoked on the
// watcher goroutine, one event at a time.
func NewWatcher(rdb *redis.Client, onAttach, onDetach func(ctx context.Context)) *Watcher {
	return &Watcher{rdb: rdb, onAttach: onAttach, onDetach: onDetach}
}

// Run consumes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	sub := w.rdb.Subscribe(ctx, eventChannel)
	defer func() { _ = sub.Close() }()

	msgCh := sub.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			var event displayEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("failed to unmarshal display event", "error", err)
				continue
			}
			switch event.Event {
			case eventAttached:
				w.onAttach(ctx)
			case eventDetached:
				w.onDetach(ctx)
			default:
				slog.Warn("unknown display event", "event", event.Event)
			}
		case <-ctx.Done():
			return
		}
	}
}
