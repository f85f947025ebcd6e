package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"trivia-room-service/internal/domain"
)

const repoTimeout = 5 * time.Second

// Advancer drives the timed phase transitions of running rooms. Each armed
// room gets a goroutine that polls once per tick and either refreshes the
// countdown, flips question -> answer_reveal, or stops because another path
// already moved the room on.
//
// The loop is advisory, not authoritative: the question start timestamp is the
// source of truth and every read path recomputes the countdown from it, so a
// delayed or missed tick only delays the persisted transition, never corrupts
// it. Ticks re-check the phase before acting and no-op when superseded.
type Advancer struct {
	repo            RoomRepository
	notifier        Notifier
	clock           clockwork.Clock
	questionSeconds int
	revealDelay     time.Duration
	tick            time.Duration

	mu      sync.Mutex
	running map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAdvancer(repo RoomRepository, notifier Notifier, clock clockwork.Clock, questionSeconds int, revealDelay, tick time.Duration) *Advancer {
	return &Advancer{
		repo:            repo,
		notifier:        notifier,
		clock:           clock,
		questionSeconds: questionSeconds,
		revealDelay:     revealDelay,
		tick:            tick,
		running:         make(map[string]struct{}),
		done:            make(chan struct{}),
	}
}

// Arm starts the tick loop for a room. Arming an already-armed room is a
// no-op, so duplicate starts never stack timers. A room that is never started
// is never armed and leaks nothing.
func (a *Advancer) Arm(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	select {
	case <-a.done:
		return
	default:
	}
	if _, ok := a.running[code]; ok {
		return
	}
	a.running[code] = struct{}{}
	a.wg.Add(1)
	go a.run(code)
}

// Stop terminates all loops and waits for them to exit.
func (a *Advancer) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
}

func (a *Advancer) run(code string) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.running, code)
		a.mu.Unlock()
	}()

	for {
		select {
		case <-a.clock.After(a.tick):
		case <-a.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
		again := a.tickOnce(ctx, code)
		cancel()
		if !again {
			return
		}
	}
}

// tickOnce performs one poll of the room and reports whether the loop should
// keep ticking. Repository failures are swallowed; the next tick self-heals.
func (a *Advancer) tickOnce(ctx context.Context, code string) bool {
	game, err := a.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrGameNotFound) {
			return false
		}
		log.Printf("advancer %s: fetch game: %v", code, err)
		return true
	}
	if game.State.Phase != domain.PhaseQuestion {
		// Another path owns the next step (reveal continuation or finish).
		return false
	}

	now := a.clock.Now()
	timeLeft := domain.TimeLeft(now, game.State.QuestionStartedAt, a.questionSeconds)

	if game.AllAnswered() || timeLeft <= 0 {
		ok, err := a.repo.TransitionPhase(ctx, code, domain.PhaseQuestion, domain.PhaseAnswerReveal, now)
		if err != nil {
			log.Printf("advancer %s: transition to reveal: %v", code, err)
			return true
		}
		if !ok {
			// A concurrent transition already flipped the phase.
			return false
		}
		a.publish(ctx, domain.RoomEvent{
			Type:            domain.EventAnswerReveal,
			RoomCode:        code,
			Phase:           domain.PhaseAnswerReveal,
			CurrentQuestion: game.CurrentQuestion,
			At:              now,
		})
		a.wg.Add(1)
		go a.revealThenAdvance(code, game.CurrentQuestion)
		return false
	}

	if err := a.repo.UpdateTimeLeft(ctx, code, timeLeft); err != nil {
		log.Printf("advancer %s: update time left: %v", code, err)
	}
	return true
}

// revealThenAdvance waits out the reveal window and then moves the room on.
// questionIndex is the question the reveal belongs to: a restart during the
// window puts the room back into a question phase, and this continuation must
// not advance past a question that is being replayed.
func (a *Advancer) revealThenAdvance(code string, questionIndex int) {
	defer a.wg.Done()

	select {
	case <-a.clock.After(a.revealDelay):
	case <-a.done:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()

	game, err := a.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrGameNotFound) {
			log.Printf("advancer %s: fetch game: %v", code, err)
		}
		return
	}
	if game.State.Phase != domain.PhaseAnswerReveal || game.CurrentQuestion != questionIndex {
		// Superseded: the room was restarted or moved on by another path.
		return
	}

	if err := a.AdvanceOrFinish(ctx, code); err != nil {
		log.Printf("advancer %s: advance: %v", code, err)
	}
}

// AdvanceOrFinish moves an active room past its current question. A missing or
// already-finished room is treated as handled. When questions remain the room
// gets a fresh question window and the loop is re-armed; otherwise the winner
// is computed (earliest joiner wins ties) and the room becomes inactive.
func (a *Advancer) AdvanceOrFinish(ctx context.Context, code string) error {
	game, err := a.repo.FindActiveByCode(ctx, code)
	if errors.Is(err, domain.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := a.clock.Now()
	if game.CurrentQuestion+1 >= len(game.Questions) {
		game.IsActive = false
		game.Winner = game.WinnerName()
		game.State.Phase = domain.PhaseFinished
		game.State.TimeLeft = 0
		game.UpdatedAt = now
		if err := a.repo.Save(ctx, game); err != nil {
			return err
		}
		a.publish(ctx, domain.RoomEvent{
			Type:            domain.EventGameFinished,
			RoomCode:        code,
			Phase:           domain.PhaseFinished,
			CurrentQuestion: game.CurrentQuestion,
			Winner:          game.Winner,
			At:              now,
		})
		return nil
	}

	game.CurrentQuestion++
	game.State = questionState(now, a.questionSeconds)
	game.UpdatedAt = now
	if err := a.repo.Save(ctx, game); err != nil {
		return err
	}
	a.publish(ctx, domain.RoomEvent{
		Type:            domain.EventNextQuestion,
		RoomCode:        code,
		Phase:           domain.PhaseQuestion,
		CurrentQuestion: game.CurrentQuestion,
		At:              now,
	})
	a.Arm(code)
	return nil
}

func (a *Advancer) publish(ctx context.Context, event domain.RoomEvent) {
	if err := a.notifier.Publish(ctx, event); err != nil {
		log.Printf("advancer %s: publish %s: %v", event.RoomCode, event.Type, err)
	}
}
