package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

// RoomRepository is an in-memory implementation of app.RoomRepository. Field
// mutators run under the repository lock, which gives the same lost-update
// guarantees the Redis implementation gets from per-key atomic commands.
type RoomRepository struct {
	mu    sync.RWMutex
	games map[string]*domain.Game
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		games: make(map[string]*domain.Game),
	}
}

func (r *RoomRepository) Create(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.RoomCode]; ok {
		return fmt.Errorf("room code %s already in use", game.RoomCode)
	}
	r.games[game.RoomCode] = cloneGame(game)
	return nil
}

func (r *RoomRepository) FindActiveByCode(_ context.Context, code string) (*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[code]
	if !ok || !game.IsActive {
		return nil, domain.ErrGameNotFound
	}
	return cloneGame(game), nil
}

func (r *RoomRepository) FindByCode(_ context.Context, code string) (*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[code]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return cloneGame(game), nil
}

func (r *RoomRepository) Save(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[game.RoomCode] = cloneGame(game)
	return nil
}

func (r *RoomRepository) AddPlayer(_ context.Context, code string, player domain.Player) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok || !game.IsActive {
		return false, domain.ErrGameNotFound
	}
	if game.PlayerByID(player.ID) != nil {
		return false, nil
	}
	game.Players = append(game.Players, clonePlayer(player))
	game.UpdatedAt = time.Now()
	return true, nil
}

func (r *RoomRepository) RecordAnswer(_ context.Context, code, playerID string, questionIndex int, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok || !game.IsActive {
		return domain.ErrGameNotFound
	}
	player := game.PlayerByID(playerID)
	if player == nil {
		return domain.ErrPlayerNotFound
	}
	if player.HasAnswered(questionIndex) {
		return domain.ErrAlreadyAnswered
	}
	player.AnsweredQuestions = append(player.AnsweredQuestions, questionIndex)
	if correct {
		player.Score++
	}
	game.UpdatedAt = time.Now()
	return nil
}

func (r *RoomRepository) TransitionPhase(_ context.Context, code string, from, to domain.GamePhase, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok {
		return false, domain.ErrGameNotFound
	}
	if game.State.Phase != from {
		return false, nil
	}
	game.State.Phase = to
	if to == domain.PhaseAnswerReveal {
		revealedAt := at
		game.State.AnswerRevealedAt = &revealedAt
		game.State.TimeLeft = 0
	}
	game.UpdatedAt = at
	return true, nil
}

func (r *RoomRepository) UpdateTimeLeft(_ context.Context, code string, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[code]
	if !ok {
		return domain.ErrGameNotFound
	}
	game.State.TimeLeft = seconds
	game.UpdatedAt = time.Now()
	return nil
}

func (r *RoomRepository) FindHistory(_ context.Context, playerID string, limit int) ([]*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := make([]*domain.Game, 0)
	for _, game := range r.games {
		if game.IsActive {
			continue
		}
		if game.PlayerByID(playerID) == nil {
			continue
		}
		history = append(history, cloneGame(game))
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// cloneGame deep-copies a game so callers never alias repository state.
func cloneGame(g *domain.Game) *domain.Game {
	c := *g
	c.Players = make([]domain.Player, len(g.Players))
	for i, p := range g.Players {
		c.Players[i] = clonePlayer(p)
	}
	c.Questions = make([]domain.Question, len(g.Questions))
	for i, q := range g.Questions {
		c.Questions[i] = q
		c.Questions[i].Options = append([]string(nil), q.Options...)
	}
	if g.State.QuestionStartedAt != nil {
		t := *g.State.QuestionStartedAt
		c.State.QuestionStartedAt = &t
	}
	if g.State.AnswerRevealedAt != nil {
		t := *g.State.AnswerRevealedAt
		c.State.AnswerRevealedAt = &t
	}
	return &c
}

func clonePlayer(p domain.Player) domain.Player {
	p.AnsweredQuestions = append([]int(nil), p.AnsweredQuestions...)
	return p
}
