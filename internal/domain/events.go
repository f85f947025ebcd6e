package domain

import "time"

// RoomEventType names the state changes broadcast to connected clients.
type RoomEventType string

const (
	EventPlayerJoined    RoomEventType = "player_joined"
	EventGameStarted     RoomEventType = "game_started"
	EventAnswerSubmitted RoomEventType = "answer_submitted"
	EventAnswerReveal    RoomEventType = "answer_reveal"
	EventNextQuestion    RoomEventType = "next_question"
	EventGameFinished    RoomEventType = "game_finished"
)

// RoomEvent is a best-effort hint that room state changed and clients should
// re-fetch. Delivery is not guaranteed; polling remains the fallback.
type RoomEvent struct {
	Type            RoomEventType `json:"type"`
	RoomCode        string        `json:"roomCode"`
	Phase           GamePhase     `json:"phase,omitempty"`
	CurrentQuestion int           `json:"currentQuestion"`
	PlayerID        string        `json:"playerId,omitempty"`
	Winner          string        `json:"winner,omitempty"`
	At              time.Time     `json:"at"`
}
