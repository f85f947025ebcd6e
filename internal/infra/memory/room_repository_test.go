package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trivia-room-service/internal/domain"
)

func newGame(code string, createdAt time.Time) *domain.Game {
	return &domain.Game{
		RoomCode: code,
		Players: []domain.Player{
			{ID: "u1", Name: "Alice"},
		},
		Questions: []domain.Question{
			{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
			{ID: 2, Text: "Capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, CorrectOption: 2},
		},
		IsActive:  true,
		State:     domain.GameState{Phase: domain.PhaseLobby},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()

	game := newGame("AB12", time.Now())
	if err := repo.Create(ctx, game); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, newGame("AB12", time.Now())); err == nil {
		t.Fatal("expected duplicate room code to be rejected")
	}

	found, err := repo.FindActiveByCode(ctx, "AB12")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.RoomCode != "AB12" || len(found.Players) != 1 || len(found.Questions) != 2 {
		t.Fatalf("unexpected game: %+v", found)
	}

	if _, err := repo.FindActiveByCode(ctx, "ZZZZ"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestFindActiveExcludesFinished(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()

	game := newGame("AB12", time.Now())
	game.IsActive = false
	if err := repo.Create(ctx, game); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repo.FindActiveByCode(ctx, "AB12"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound for inactive game, got %v", err)
	}
	if _, err := repo.FindByCode(ctx, "AB12"); err != nil {
		t.Fatalf("FindByCode must still see inactive games: %v", err)
	}
}

func TestAddPlayerDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()
	if err := repo.Create(ctx, newGame("AB12", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	added, err := repo.AddPlayer(ctx, "AB12", domain.Player{ID: "u2", Name: "Bob"})
	if err != nil || !added {
		t.Fatalf("first join: added=%v err=%v", added, err)
	}
	added, err = repo.AddPlayer(ctx, "AB12", domain.Player{ID: "u2", Name: "Bob"})
	if err != nil || added {
		t.Fatalf("repeat join must be a no-op: added=%v err=%v", added, err)
	}

	game, _ := repo.FindByCode(ctx, "AB12")
	if len(game.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(game.Players))
	}
}

func TestRecordAnswerScoresOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()
	if err := repo.Create(ctx, newGame("AB12", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.RecordAnswer(ctx, "AB12", "u1", 0, true); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := repo.RecordAnswer(ctx, "AB12", "u1", 0, true); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	if err := repo.RecordAnswer(ctx, "AB12", "u1", 1, false); err != nil {
		t.Fatalf("wrong answer must still be recorded: %v", err)
	}
	if err := repo.RecordAnswer(ctx, "AB12", "ghost", 0, true); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}

	game, _ := repo.FindByCode(ctx, "AB12")
	player := game.PlayerByID("u1")
	if player.Score != 1 {
		t.Fatalf("expected score 1, got %d", player.Score)
	}
	if !player.HasAnswered(0) || !player.HasAnswered(1) {
		t.Fatalf("expected both questions marked answered, got %v", player.AnsweredQuestions)
	}
}

func TestTransitionPhaseCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()
	game := newGame("AB12", time.Now())
	game.State.Phase = domain.PhaseQuestion
	if err := repo.Create(ctx, game); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	at := time.Now()
	ok, err := repo.TransitionPhase(ctx, "AB12", domain.PhaseQuestion, domain.PhaseAnswerReveal, at)
	if err != nil || !ok {
		t.Fatalf("transition: ok=%v err=%v", ok, err)
	}
	// Losing racer sees the phase already moved.
	ok, err = repo.TransitionPhase(ctx, "AB12", domain.PhaseQuestion, domain.PhaseAnswerReveal, at)
	if err != nil || ok {
		t.Fatalf("repeat transition must fail the compare: ok=%v err=%v", ok, err)
	}

	found, _ := repo.FindByCode(ctx, "AB12")
	if found.State.Phase != domain.PhaseAnswerReveal {
		t.Fatalf("expected answer_reveal, got %s", found.State.Phase)
	}
	if found.State.AnswerRevealedAt == nil || found.State.TimeLeft != 0 {
		t.Fatalf("reveal transition must stamp and zero the countdown: %+v", found.State)
	}
}

func TestFindHistoryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()

	base := time.Now()
	for i := 0; i < 4; i++ {
		game := newGame(fmt.Sprintf("GM0%d", i), base.Add(time.Duration(i)*time.Minute))
		game.IsActive = false
		game.Winner = "Alice"
		if err := repo.Create(ctx, game); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	// Active games and games without the player never appear.
	if err := repo.Create(ctx, newGame("LIVE", base)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other := newGame("OTHR", base)
	other.IsActive = false
	other.Players = []domain.Player{{ID: "u9", Name: "Zoe"}}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	history, err := repo.FindHistory(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected limit 3, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.After(history[i-1].CreatedAt) {
			t.Fatal("history must be newest first")
		}
	}
	if history[0].RoomCode != "GM03" {
		t.Fatalf("expected newest game first, got %s", history[0].RoomCode)
	}
}

func TestClonesIsolateCallers(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()
	if err := repo.Create(ctx, newGame("AB12", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	game, _ := repo.FindByCode(ctx, "AB12")
	game.Players[0].Score = 99
	game.Questions[0].Options[0] = "tampered"

	fresh, _ := repo.FindByCode(ctx, "AB12")
	if fresh.Players[0].Score != 0 {
		t.Fatal("mutating a returned game must not touch repository state")
	}
	if fresh.Questions[0].Options[0] != "3" {
		t.Fatal("mutating returned options must not touch repository state")
	}
}
