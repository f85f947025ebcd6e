package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"trivia-room-service/internal/domain"
)

const (
	roomCodeChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength  = 4
	roomCodeRetries = 5
	historyLimit    = 50
)

// RoomRepository abstracts how games are stored (in-memory, Redis, etc).
// Save persists the whole record last-writer-wins; the remaining mutators are
// atomic per-field operations so concurrent joins, answers and loop ticks
// against the same room cannot lose updates.
type RoomRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	FindActiveByCode(ctx context.Context, code string) (*domain.Game, error)
	FindByCode(ctx context.Context, code string) (*domain.Game, error)
	Save(ctx context.Context, game *domain.Game) error

	// AddPlayer appends the player unless the id is already present.
	// Returns false on an idempotent rejoin.
	AddPlayer(ctx context.Context, code string, player domain.Player) (bool, error)
	// RecordAnswer marks questionIndex answered for the player and increments
	// the score when correct. Returns domain.ErrAlreadyAnswered on a duplicate.
	RecordAnswer(ctx context.Context, code, playerID string, questionIndex int, correct bool) error
	// TransitionPhase flips the phase only if it still equals from. A false
	// result means a concurrent transition won; callers must treat it as done.
	TransitionPhase(ctx context.Context, code string, from, to domain.GamePhase, at time.Time) (bool, error)
	// UpdateTimeLeft refreshes the cached countdown without touching anything else.
	UpdateTimeLeft(ctx context.Context, code string, seconds int) error

	FindHistory(ctx context.Context, playerID string, limit int) ([]*domain.Game, error)
}

// QuestionBank loads the static question collection (from cache/backing store).
type QuestionBank interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Notifier is the best-effort fan-out to connected clients. Missed events are
// fine; clients re-sync on a fixed polling interval.
type Notifier interface {
	Publish(ctx context.Context, event domain.RoomEvent) error
	Subscribe(ctx context.Context, roomCode string) (<-chan domain.RoomEvent, func(), error)
}

// GameService contains the room/game session use cases.
type GameService struct {
	repo            RoomRepository
	bank            QuestionBank
	notifier        Notifier
	loop            *Advancer
	clock           clockwork.Clock
	questionSeconds int
}

func NewGameService(repo RoomRepository, bank QuestionBank, notifier Notifier, loop *Advancer, clock clockwork.Clock, questionSeconds int) *GameService {
	return &GameService{
		repo:            repo,
		bank:            bank,
		notifier:        notifier,
		loop:            loop,
		clock:           clock,
		questionSeconds: questionSeconds,
	}
}

// Create builds a new room with the host as its only player and a fresh
// shuffled permutation of the question bank, fixed for the game's lifetime.
func (s *GameService) Create(ctx context.Context, hostName, hostID string) (string, error) {
	if hostName == "" {
		return "", domain.ErrNameRequired
	}
	if hostID == "" {
		return "", domain.ErrPlayerIDRequired
	}

	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return "", fmt.Errorf("load questions: %w", err)
	}
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	code, err := s.newRoomCode(ctx)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	game := &domain.Game{
		RoomCode: code,
		Players: []domain.Player{{
			ID:                hostID,
			Name:              hostName,
			Score:             0,
			AnsweredQuestions: []int{},
		}},
		CurrentQuestion: 0,
		Questions:       shuffled,
		IsActive:        true,
		State: domain.GameState{
			Phase:    domain.PhaseLobby,
			TimeLeft: s.questionSeconds,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return "", fmt.Errorf("create game: %w", err)
	}
	return code, nil
}

// newRoomCode generates a 4-char uppercase alphanumeric code. Uniqueness is
// not guaranteed by construction, so collide-and-retry a few times before
// accepting the residual risk.
func (s *GameService) newRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < roomCodeRetries; attempt++ {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.Intn(len(roomCodeChars))]
		}
		_, err := s.repo.FindByCode(ctx, string(code))
		if err == domain.ErrGameNotFound {
			return string(code), nil
		}
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
	}
	return "", fmt.Errorf("could not find a free room code after %d attempts", roomCodeRetries)
}

// Join adds the player to an active room. Rejoining with a known player id is
// a no-op: no duplicate entry, score and answers untouched. The phase is not
// checked here; see the mid-game join note in DESIGN.md.
func (s *GameService) Join(ctx context.Context, code, playerName, playerID string) error {
	if playerName == "" {
		return domain.ErrNameRequired
	}
	if playerID == "" {
		return domain.ErrPlayerIDRequired
	}

	game, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return err
	}

	added, err := s.repo.AddPlayer(ctx, code, domain.Player{
		ID:                playerID,
		Name:              playerName,
		Score:             0,
		AnsweredQuestions: []int{},
	})
	if err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	if added {
		s.publish(ctx, domain.RoomEvent{
			Type:            domain.EventPlayerJoined,
			RoomCode:        code,
			Phase:           game.State.Phase,
			CurrentQuestion: game.CurrentQuestion,
			PlayerID:        playerID,
			At:              s.clock.Now(),
		})
	}
	return nil
}

// Start moves the room into its first question window and arms the
// advancement loop. Calling it again on a running game restarts the current
// question's countdown, matching the permissive start semantics.
func (s *GameService) Start(ctx context.Context, code string) error {
	game, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	game.State = questionState(now, s.questionSeconds)
	game.UpdatedAt = now
	if err := s.repo.Save(ctx, game); err != nil {
		return fmt.Errorf("save game: %w", err)
	}

	s.loop.Arm(code)
	s.publish(ctx, domain.RoomEvent{
		Type:            domain.EventGameStarted,
		RoomCode:        code,
		Phase:           domain.PhaseQuestion,
		CurrentQuestion: game.CurrentQuestion,
		At:              now,
	})
	return nil
}

// SubmitAnswer records the player's answer for questionIndex exactly once and
// scores it. Duplicates are rejected in every phase so a retry can never
// double-score; late answers after the reveal are still accepted.
func (s *GameService) SubmitAnswer(ctx context.Context, code, playerID string, questionIndex, option int) (bool, error) {
	game, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if game.PlayerByID(playerID) == nil {
		return false, domain.ErrPlayerNotFound
	}
	if questionIndex < 0 || questionIndex >= len(game.Questions) {
		return false, domain.ErrQuestionOutOfRange
	}
	question := game.Questions[questionIndex]
	if option < 0 || option >= len(question.Options) {
		return false, domain.ErrOptionOutOfRange
	}

	correct := option == question.CorrectOption
	if err := s.repo.RecordAnswer(ctx, code, playerID, questionIndex, correct); err != nil {
		return false, err
	}

	s.publish(ctx, domain.RoomEvent{
		Type:            domain.EventAnswerSubmitted,
		RoomCode:        code,
		Phase:           game.State.Phase,
		CurrentQuestion: game.CurrentQuestion,
		PlayerID:        playerID,
		At:              s.clock.Now(),
	})
	return correct, nil
}

// State returns a live snapshot of the room, active or finished. The cached
// countdown is recomputed from the question start timestamp; the stored value
// is never authoritative.
func (s *GameService) State(ctx context.Context, code string) (*domain.Game, error) {
	game, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.State.Phase == domain.PhaseQuestion && game.State.QuestionStartedAt != nil {
		game.State.TimeLeft = domain.TimeLeft(s.clock.Now(), game.State.QuestionStartedAt, s.questionSeconds)
	}
	return game, nil
}

// History lists the finished games the player took part in, newest first,
// capped at 50. A player with no history gets an empty slice, not an error.
func (s *GameService) History(ctx context.Context, playerID string) ([]*domain.Game, error) {
	if playerID == "" {
		return nil, domain.ErrPlayerIDRequired
	}
	return s.repo.FindHistory(ctx, playerID, historyLimit)
}

// AdvanceOrFinish moves the room past the current question: either on to the
// next question window or, when none remain, to the finished phase with the
// winner recorded. Exposed for the post-reveal continuation and for callers
// that drive rooms manually.
func (s *GameService) AdvanceOrFinish(ctx context.Context, code string) error {
	return s.loop.AdvanceOrFinish(ctx, code)
}

// Subscribe returns a channel of best-effort room events. Callers must invoke
// the cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, code string) (<-chan domain.RoomEvent, func(), error) {
	return s.notifier.Subscribe(ctx, code)
}

func (s *GameService) publish(ctx context.Context, event domain.RoomEvent) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Printf("game %s: publish %s: %v", event.RoomCode, event.Type, err)
	}
}

// questionState builds a fresh question-phase state with a full countdown.
func questionState(now time.Time, questionSeconds int) domain.GameState {
	startedAt := now
	return domain.GameState{
		Phase:             domain.PhaseQuestion,
		TimeLeft:          questionSeconds,
		QuestionStartedAt: &startedAt,
		AnswerRevealedAt:  nil,
	}
}
