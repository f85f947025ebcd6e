package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-room-service/internal/domain"
)

// RoomRepository is a Redis-backed implementation of app.RoomRepository.
//
// A room is stored as a small key family rather than one JSON blob so the
// contended mutations stay atomic per-command:
//
//	room:{code}           hash  phase, current_question, is_active, winner, timers, questions JSON
//	room:{code}:players   list  player ids in join order
//	room:{code}:playerids set   join dedupe gate (SADD)
//	room:{code}:player:{id} hash name, score (HINCRBY)
//	room:{code}:answers:{id} set answered question indexes (SADD)
//	history:{playerId}    zset  finished room codes scored by creation time
//
// SADD on the answers set is the idempotency gate for SubmitAnswer: a
// duplicate submission never reaches the score increment, so concurrent
// retries cannot double-score. Phase transitions go through a Lua
// compare-and-set so a stale loop tick loses cleanly.
type RoomRepository struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) *RoomRepository {
	return &RoomRepository{client: client}
}

// transitionScript flips the phase only when it still matches ARGV[1].
// Moving into answer_reveal also stamps the reveal time and zeroes the
// cached countdown.
var transitionScript = redis.NewScript(`
local phase = redis.call('HGET', KEYS[1], 'phase')
if phase ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'phase', ARGV[2], 'updated_at', ARGV[3])
if ARGV[2] == 'answer_reveal' then
  redis.call('HSET', KEYS[1], 'answer_revealed_at', ARGV[3], 'time_left', '0')
end
return 1
`)

func (r *RoomRepository) Create(ctx context.Context, game *domain.Game) error {
	exists, err := r.client.Exists(ctx, roomKey(game.RoomCode)).Result()
	if err != nil {
		return fmt.Errorf("check room exists: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("room code %s already in use", game.RoomCode)
	}
	return r.writeGame(ctx, game)
}

func (r *RoomRepository) Save(ctx context.Context, game *domain.Game) error {
	if err := r.writeGame(ctx, game); err != nil {
		return err
	}
	if game.IsActive {
		return nil
	}
	// Index the finished game for each participant's history, newest first.
	pipe := r.client.Pipeline()
	for _, p := range game.Players {
		pipe.ZAdd(ctx, historyKey(p.ID), redis.Z{
			Score:  float64(game.CreatedAt.UnixMilli()),
			Member: game.RoomCode,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index history: %w", err)
	}
	return nil
}

// writeGame persists the whole record, last writer wins.
func (r *RoomRepository) writeGame(ctx context.Context, game *domain.Game) error {
	questions, err := json.Marshal(game.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, roomKey(game.RoomCode), map[string]interface{}{
		"phase":               string(game.State.Phase),
		"current_question":    game.CurrentQuestion,
		"is_active":           boolField(game.IsActive),
		"winner":              game.Winner,
		"time_left":           game.State.TimeLeft,
		"question_started_at": milliField(game.State.QuestionStartedAt),
		"answer_revealed_at":  milliField(game.State.AnswerRevealedAt),
		"created_at":          game.CreatedAt.UnixMilli(),
		"updated_at":          game.UpdatedAt.UnixMilli(),
		"questions":           questions,
	})
	pipe.Del(ctx, playersKey(game.RoomCode))
	for _, p := range game.Players {
		pipe.RPush(ctx, playersKey(game.RoomCode), p.ID)
		pipe.SAdd(ctx, playerIDsKey(game.RoomCode), p.ID)
		pipe.HSet(ctx, playerKey(game.RoomCode, p.ID), "name", p.Name, "score", p.Score)
		if len(p.AnsweredQuestions) > 0 {
			answered := make([]interface{}, len(p.AnsweredQuestions))
			for i, q := range p.AnsweredQuestions {
				answered[i] = q
			}
			pipe.SAdd(ctx, answersKey(game.RoomCode, p.ID), answered...)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write game %s: %w", game.RoomCode, err)
	}
	return nil
}

func (r *RoomRepository) FindByCode(ctx context.Context, code string) (*domain.Game, error) {
	fields, err := r.client.HGetAll(ctx, roomKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("read room %s: %w", code, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrGameNotFound
	}

	game := &domain.Game{
		RoomCode:        code,
		CurrentQuestion: atoi(fields["current_question"]),
		IsActive:        fields["is_active"] == "1",
		Winner:          fields["winner"],
		State: domain.GameState{
			Phase:             domain.GamePhase(fields["phase"]),
			TimeLeft:          atoi(fields["time_left"]),
			QuestionStartedAt: milliTime(fields["question_started_at"]),
			AnswerRevealedAt:  milliTime(fields["answer_revealed_at"]),
		},
		CreatedAt: time.UnixMilli(atoi64(fields["created_at"])),
		UpdatedAt: time.UnixMilli(atoi64(fields["updated_at"])),
	}
	if err := json.Unmarshal([]byte(fields["questions"]), &game.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions for %s: %w", code, err)
	}

	ids, err := r.client.LRange(ctx, playersKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read players for %s: %w", code, err)
	}
	game.Players = make([]domain.Player, 0, len(ids))
	for _, id := range ids {
		player, err := r.readPlayer(ctx, code, id)
		if err != nil {
			return nil, err
		}
		game.Players = append(game.Players, player)
	}
	return game, nil
}

func (r *RoomRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Game, error) {
	game, err := r.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !game.IsActive {
		return nil, domain.ErrGameNotFound
	}
	return game, nil
}

func (r *RoomRepository) readPlayer(ctx context.Context, code, id string) (domain.Player, error) {
	fields, err := r.client.HGetAll(ctx, playerKey(code, id)).Result()
	if err != nil {
		return domain.Player{}, fmt.Errorf("read player %s in %s: %w", id, code, err)
	}
	answered, err := r.client.SMembers(ctx, answersKey(code, id)).Result()
	if err != nil {
		return domain.Player{}, fmt.Errorf("read answers for %s in %s: %w", id, code, err)
	}
	player := domain.Player{
		ID:                id,
		Name:              fields["name"],
		Score:             atoi(fields["score"]),
		AnsweredQuestions: make([]int, 0, len(answered)),
	}
	for _, q := range answered {
		player.AnsweredQuestions = append(player.AnsweredQuestions, atoi(q))
	}
	return player, nil
}

func (r *RoomRepository) AddPlayer(ctx context.Context, code string, player domain.Player) (bool, error) {
	exists, err := r.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("check room exists: %w", err)
	}
	if exists == 0 {
		return false, domain.ErrGameNotFound
	}

	added, err := r.client.SAdd(ctx, playerIDsKey(code), player.ID).Result()
	if err != nil {
		return false, fmt.Errorf("add player id: %w", err)
	}
	if added == 0 {
		// Idempotent rejoin: entry, score and answers stay untouched.
		return false, nil
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, playersKey(code), player.ID)
	pipe.HSet(ctx, playerKey(code, player.ID), "name", player.Name, "score", player.Score)
	pipe.HSet(ctx, roomKey(code), "updated_at", time.Now().UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("append player: %w", err)
	}
	return true, nil
}

func (r *RoomRepository) RecordAnswer(ctx context.Context, code, playerID string, questionIndex int, correct bool) error {
	isMember, err := r.client.SIsMember(ctx, playerIDsKey(code), playerID).Result()
	if err != nil {
		return fmt.Errorf("check player: %w", err)
	}
	if !isMember {
		return domain.ErrPlayerNotFound
	}

	added, err := r.client.SAdd(ctx, answersKey(code, playerID), questionIndex).Result()
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if added == 0 {
		return domain.ErrAlreadyAnswered
	}
	if correct {
		if err := r.client.HIncrBy(ctx, playerKey(code, playerID), "score", 1).Err(); err != nil {
			return fmt.Errorf("increment score: %w", err)
		}
	}
	if err := r.client.HSet(ctx, roomKey(code), "updated_at", time.Now().UnixMilli()).Err(); err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	return nil
}

func (r *RoomRepository) TransitionPhase(ctx context.Context, code string, from, to domain.GamePhase, at time.Time) (bool, error) {
	res, err := transitionScript.Run(ctx, r.client,
		[]string{roomKey(code)},
		string(from), string(to), at.UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("transition phase for %s: %w", code, err)
	}
	return res == 1, nil
}

func (r *RoomRepository) UpdateTimeLeft(ctx context.Context, code string, seconds int) error {
	err := r.client.HSet(ctx, roomKey(code),
		"time_left", seconds,
		"updated_at", time.Now().UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("update time left for %s: %w", code, err)
	}
	return nil
}

func (r *RoomRepository) FindHistory(ctx context.Context, playerID string, limit int) ([]*domain.Game, error) {
	codes, err := r.client.ZRevRange(ctx, historyKey(playerID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", playerID, err)
	}
	history := make([]*domain.Game, 0, len(codes))
	for _, code := range codes {
		game, err := r.FindByCode(ctx, code)
		if err == domain.ErrGameNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		history = append(history, game)
	}
	return history, nil
}

func roomKey(code string) string             { return "room:" + code }
func playersKey(code string) string          { return "room:" + code + ":players" }
func playerIDsKey(code string) string        { return "room:" + code + ":playerids" }
func playerKey(code, playerID string) string { return "room:" + code + ":player:" + playerID }
func answersKey(code, playerID string) string {
	return "room:" + code + ":answers:" + playerID
}
func historyKey(playerID string) string { return "history:" + playerID }

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// atoi64 parses millisecond epochs, which overflow int on 32-bit platforms.
func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func milliField(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func milliTime(s string) *time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}
