package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"trivia-room-service/internal/domain"
)

type countingLoader struct {
	calls int32
	err   error
}

func (l *countingLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	atomic.AddInt32(&l.calls, 1)
	if l.err != nil {
		return nil, l.err
	}
	return []domain.Question{
		{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
	}, nil
}

func TestQuestionBankCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{}
	bank := NewQuestionBank(loader, time.Minute)

	for i := 0; i < 3; i++ {
		questions, err := bank.Questions(ctx)
		if err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
		if len(questions) != 1 {
			t.Fatalf("load %d: expected 1 question, got %d", i, len(questions))
		}
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Fatalf("expected a single backing load, got %d", got)
	}
}

func TestQuestionBankReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{}
	bank := NewQuestionBank(loader, time.Minute)

	now := time.Now()
	bank.clock = func() time.Time { return now }
	if _, err := bank.Questions(ctx); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	// Jitter stretches the TTL by at most 10%, so doubling it is past expiry.
	now = now.Add(2 * time.Minute)
	if _, err := bank.Questions(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", got)
	}
}

func TestQuestionBankPropagatesLoaderError(t *testing.T) {
	loadErr := errors.New("backing store down")
	bank := NewQuestionBank(&countingLoader{err: loadErr}, time.Minute)

	if _, err := bank.Questions(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}
