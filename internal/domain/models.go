package domain

import "time"

// GamePhase is the lifecycle phase of a room.
type GamePhase string

const (
	PhaseLobby        GamePhase = "lobby"
	PhaseQuestion     GamePhase = "question"
	PhaseAnswerReveal GamePhase = "answer_reveal"
	PhaseFinished     GamePhase = "finished"
)

// Question is an MCQ record from the question bank. Immutable once loaded.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctAnswer"`
	Category      string   `json:"category"`
}

// Player is a participant in a room. Players are never removed mid-game.
type Player struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Score             int    `json:"score"`
	AnsweredQuestions []int  `json:"answeredQuestions"`
}

// HasAnswered reports whether the player already submitted questionIndex.
func (p Player) HasAnswered(questionIndex int) bool {
	for _, q := range p.AnsweredQuestions {
		if q == questionIndex {
			return true
		}
	}
	return false
}

// GameState is the phase/timer sub-record of a game. TimeLeft is a cached
// derivation of QuestionStartedAt; readers recompute it rather than trust
// the stored value.
type GameState struct {
	Phase             GamePhase  `json:"phase"`
	TimeLeft          int        `json:"timeLeft"`
	QuestionStartedAt *time.Time `json:"questionStartTime,omitempty"`
	AnswerRevealedAt  *time.Time `json:"answerRevealTime,omitempty"`
}

// Game is the aggregate root of a trivia room, keyed by RoomCode.
// Players[0] is the host; order is join order.
type Game struct {
	RoomCode        string     `json:"roomCode"`
	Players         []Player   `json:"players"`
	CurrentQuestion int        `json:"currentQuestion"`
	Questions       []Question `json:"questions"`
	IsActive        bool       `json:"isActive"`
	Winner          string     `json:"winner,omitempty"`
	State           GameState  `json:"gameState"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PlayerByID returns the player with the given id, or nil.
func (g *Game) PlayerByID(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// AllAnswered reports whether every player answered the current question.
// An empty room never counts as all-answered.
func (g *Game) AllAnswered() bool {
	if len(g.Players) == 0 {
		return false
	}
	for _, p := range g.Players {
		if !p.HasAnswered(g.CurrentQuestion) {
			return false
		}
	}
	return true
}

// WinnerName returns the name of the highest-scoring player. Ties go to the
// earliest joiner, so the host wins an all-zero game.
func (g *Game) WinnerName() string {
	if len(g.Players) == 0 {
		return ""
	}
	best := g.Players[0]
	for _, p := range g.Players[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best.Name
}

// TimeLeft computes the remaining seconds of a question window from its start
// timestamp, clamped to [0, durationSeconds].
func TimeLeft(now time.Time, startedAt *time.Time, durationSeconds int) int {
	if startedAt == nil {
		return durationSeconds
	}
	elapsed := int(now.Sub(*startedAt) / time.Second)
	left := durationSeconds - elapsed
	if left < 0 {
		return 0
	}
	if left > durationSeconds {
		return durationSeconds
	}
	return left
}
