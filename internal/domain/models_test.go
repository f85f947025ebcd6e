package domain

import (
	"testing"
	"time"
)

func TestTimeLeftClamped(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := TimeLeft(start, nil, 15); got != 15 {
		t.Fatalf("nil start: expected full duration, got %d", got)
	}
	if got := TimeLeft(start.Add(5*time.Second), &start, 15); got != 10 {
		t.Fatalf("expected 10s left, got %d", got)
	}
	if got := TimeLeft(start.Add(time.Hour), &start, 15); got != 0 {
		t.Fatalf("late sample: expected 0, got %d", got)
	}
	if got := TimeLeft(start.Add(-time.Minute), &start, 15); got != 15 {
		t.Fatalf("clock skew: expected clamp to 15, got %d", got)
	}
}

func TestWinnerTieBreakFavorsEarliestJoiner(t *testing.T) {
	game := &Game{
		Players: []Player{
			{ID: "a", Name: "Alice", Score: 3},
			{ID: "b", Name: "Bob", Score: 3},
			{ID: "c", Name: "Carol", Score: 2},
		},
	}
	if got := game.WinnerName(); got != "Alice" {
		t.Fatalf("expected Alice to win the tie, got %q", got)
	}
}

func TestWinnerEmptyGame(t *testing.T) {
	game := &Game{}
	if got := game.WinnerName(); got != "" {
		t.Fatalf("expected empty winner, got %q", got)
	}
}

func TestAllAnswered(t *testing.T) {
	game := &Game{CurrentQuestion: 1}
	if game.AllAnswered() {
		t.Fatal("empty room must not count as all-answered")
	}

	game.Players = []Player{
		{ID: "a", AnsweredQuestions: []int{0, 1}},
		{ID: "b", AnsweredQuestions: []int{0}},
	}
	if game.AllAnswered() {
		t.Fatal("expected pending answer from b")
	}

	game.Players[1].AnsweredQuestions = append(game.Players[1].AnsweredQuestions, 1)
	if !game.AllAnswered() {
		t.Fatal("expected all answered")
	}
}
