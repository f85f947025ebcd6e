package memory

import (
	"context"
	"sync"

	"trivia-room-service/internal/domain"
)

// Broadcaster is an in-process implementation of app.Notifier. Events are
// fanned out per room code to subscriber channels; slow subscribers lose the
// oldest buffered event rather than blocking the publisher.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.RoomEvent]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[chan domain.RoomEvent]struct{}),
	}
}

// Publish holds the lock exclusively: the pop-then-send below assumes no other
// sender can fill the freed slot, so concurrent publishers must serialize.
func (b *Broadcaster) Publish(_ context.Context, event domain.RoomEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[event.RoomCode] {
		select {
		case ch <- event:
		default:
			// Drop the stale event so a slow client cannot block broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

func (b *Broadcaster) Subscribe(_ context.Context, roomCode string) (<-chan domain.RoomEvent, func(), error) {
	ch := make(chan domain.RoomEvent, 8)

	b.mu.Lock()
	if b.subs[roomCode] == nil {
		b.subs[roomCode] = make(map[chan domain.RoomEvent]struct{})
	}
	b.subs[roomCode][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if subs, ok := b.subs[roomCode]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subs, roomCode)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}
