package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// Handler exposes the room operations as a JSON API. Clients poll GET state on
// a fixed interval; the websocket stream only shortens perceived latency.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register mounts all REST routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", h.createGame)
	mux.HandleFunc("POST /api/games/{code}/join", h.joinGame)
	mux.HandleFunc("POST /api/games/{code}/start", h.startGame)
	mux.HandleFunc("POST /api/games/{code}/answer", h.submitAnswer)
	mux.HandleFunc("GET /api/games/{code}", h.getState)
	mux.HandleFunc("GET /api/history", h.getHistory)
}

type createGameRequest struct {
	PlayerName string `json:"playerName"`
	UserID     string `json:"userId"`
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := h.service.Create(r.Context(), req.PlayerName, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"roomCode": code})
}

type joinGameRequest struct {
	PlayerName string `json:"playerName"`
	UserID     string `json:"userId"`
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.service.Join(r.Context(), r.PathValue("code"), req.PlayerName, req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context(), r.PathValue("code")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type submitAnswerRequest struct {
	UserID     string `json:"userId"`
	QuestionID *int   `json:"questionId"`
	Answer     *int   `json:"answer"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.QuestionID == nil || req.Answer == nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	correct, err := h.service.SubmitAnswer(r.Context(), r.PathValue("code"), req.UserID, *req.QuestionID, *req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "correct": correct})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.State(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("http: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("http: write response: %v", err)
	}
}
