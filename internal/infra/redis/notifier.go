package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"trivia-room-service/internal/domain"
)

// Notifier fans room events out through Redis pub/sub so clients connected to
// any instance get the refresh hint. Delivery is fire-and-forget; clients that
// miss an event catch up on their next poll.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, event domain.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, channelKey(event.RoomCode), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (n *Notifier) Subscribe(ctx context.Context, roomCode string) (<-chan domain.RoomEvent, func(), error) {
	sub := n.client.Subscribe(ctx, channelKey(roomCode))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", roomCode, err)
	}

	ch := make(chan domain.RoomEvent, 8)
	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event domain.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("notifier %s: bad event payload: %v", roomCode, err)
				continue
			}
			select {
			case ch <- event:
			default:
				// Drop the stale event so a slow client cannot stall the reader.
				select {
				case <-ch:
				default:
				}
				ch <- event
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return ch, cancel, nil
}

func channelKey(roomCode string) string {
	return "room:" + roomCode + ":events"
}
