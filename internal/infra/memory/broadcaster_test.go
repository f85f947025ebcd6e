package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"trivia-room-service/internal/domain"
)

func TestBroadcasterFansOutPerRoom(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster()

	events, cancel, err := b.Subscribe(ctx, "AB12")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()
	other, otherCancel, err := b.Subscribe(ctx, "CD34")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer otherCancel()

	if err := b.Publish(ctx, domain.RoomEvent{Type: domain.EventGameStarted, RoomCode: "AB12"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != domain.EventGameStarted {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case got := <-other:
		t.Fatalf("event leaked to another room: %+v", got)
	default:
	}
}

func TestBroadcasterDropsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster()

	events, cancel, err := b.Subscribe(ctx, "AB12")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	// Overflow the buffer without a reader; the publisher must never block.
	for i := 0; i < 20; i++ {
		if err := b.Publish(ctx, domain.RoomEvent{Type: domain.EventAnswerSubmitted, RoomCode: "AB12", CurrentQuestion: i}); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	var last domain.RoomEvent
	for {
		select {
		case got := <-events:
			last = got
			continue
		default:
		}
		break
	}
	if last.CurrentQuestion != 19 {
		t.Fatalf("expected the newest event to survive, got %d", last.CurrentQuestion)
	}
}

func TestBroadcasterConcurrentPublishersNeverWedge(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster()

	// A subscriber that never reads keeps the buffer full, forcing every
	// publisher through the pop-then-send path.
	_, cancel, err := b.Subscribe(ctx, "AB12")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if err := b.Publish(ctx, domain.RoomEvent{Type: domain.EventAnswerSubmitted, RoomCode: "AB12", CurrentQuestion: i}); err != nil {
					t.Errorf("publish failed: %v", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishers blocked on a full subscriber buffer")
	}

	// The lock must still be acquirable afterward.
	cancel()
	if err := b.Publish(ctx, domain.RoomEvent{Type: domain.EventGameFinished, RoomCode: "AB12"}); err != nil {
		t.Fatalf("publish after cancel failed: %v", err)
	}
}

func TestBroadcasterCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster()

	_, cancel, err := b.Subscribe(ctx, "AB12")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()
	cancel()

	// Publishing to a room with no subscribers is a no-op.
	if err := b.Publish(ctx, domain.RoomEvent{Type: domain.EventPlayerJoined, RoomCode: "AB12"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}
