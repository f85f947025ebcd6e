package domain

import "errors"

var (
	// ErrGameNotFound is returned when a room code does not resolve to a game.
	ErrGameNotFound = errors.New("game not found or already ended")
	// ErrPlayerNotFound is returned when a player acts in a room they never joined.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("already answered this question")
	// ErrNameRequired rejects create/join requests with an empty player name.
	ErrNameRequired = errors.New("player name is required")
	// ErrPlayerIDRequired rejects create/join requests with an empty player id.
	ErrPlayerIDRequired = errors.New("player id is required")
	// ErrQuestionOutOfRange indicates a submitted question index is invalid.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrOptionOutOfRange indicates a submitted option index is invalid.
	ErrOptionOutOfRange = errors.New("option index out of range")
)

// IsValidation reports whether err is a malformed-input rejection, as opposed
// to a missing game/player or an infrastructure failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrPlayerIDRequired) ||
		errors.Is(err, ErrQuestionOutOfRange) ||
		errors.Is(err, ErrOptionOutOfRange) ||
		errors.Is(err, ErrAlreadyAnswered)
}
