package display

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/aap01152/hymnboard/internal/domain"
)

// snapshotChannel carries service snapshots to the external renderer.
const snapshotChannel = "display:snapshot"

// Publisher implements domain.DisplayPublisher over Redis Pub/Sub.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher on the shared Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish hands a snapshot to the renderer. A blank snapshot clears the
// display.
func (p *Publisher) Publish(ctx context.Context, snapshot domain.DisplaySnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := p.rdb.Publish(ctx, snapshotChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Subscription represents an active snapshot subscription for a renderer.
type Subscription struct {
	sub    *redis.PubSub
	Ch     <-chan domain.DisplaySnapshot
	cancel context.CancelFunc
}

// Close unsubscribes and closes the subscription.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// SubscribeSnapshots subscribes to display snapshots. Returns a Subscription
// with a channel that receives them. Call subscription.Close() when done.
func (p *Publisher) SubscribeSnapshots(ctx context.Context) *Subscription {
	sub := p.rdb.Subscribe(ctx, snapshotChannel)

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan domain.DisplaySnapshot, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				var snapshot domain.DisplaySnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
					slog.Warn("failed to unmarshal snapshot message", "error", err)
					continue
				}
				select {
				case ch <- snapshot:
				default:
					// Drop if receiver is slow
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{
		sub:    sub,
		Ch:     ch,
		cancel: cancel,
	}
}
