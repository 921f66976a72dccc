// Package api provides HTTP API handlers for the game engine
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/auth"
	"github.com/alexbotov/casino-engine/internal/cards"
	"github.com/alexbotov/casino-engine/internal/control"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/game"
	"github.com/alexbotov/casino-engine/internal/limits"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

// Option configures the handler
type Option func(*Handler)

// WithBalances exposes the balance of the wallet on /wallet/balance
func WithBalances(b wallet.BalanceReader) Option {
	return func(h *Handler) {
		h.balances = b
	}
}

// WithLimits exposes player limits on /limits
func WithLimits(g *limits.Guard) Option {
	return func(h *Handler) {
		h.limits = g
	}
}

// WithOperatorKey enables the /admin routes for requests carrying key
func WithOperatorKey(key string) Option {
	return func(h *Handler) {
		h.operatorKey = key
	}
}

// WithCurrency sets the currency used when a request names none
func WithCurrency(currency string) Option {
	return func(h *Handler) {
		h.currency = currency
	}
}

// WithJackpotInterval sets how often /ws/jackpots pushes pool totals
func WithJackpotInterval(d time.Duration) Option {
	return func(h *Handler) {
		h.tick = d
	}
}

// Handler contains all HTTP handlers
type Handler struct {
	auth     *auth.Service
	engine   *game.Engine
	rng      *rng.Service
	balances wallet.BalanceReader
	limits   *limits.Guard
	log      *zap.Logger
	currency string
	tick     time.Duration

	operatorKey string
}

// New creates a new API handler
func New(authSvc *auth.Service, engine *game.Engine, rngSvc *rng.Service, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		auth:     authSvc,
		engine:   engine,
		rng:      rngSvc,
		log:      log.Named("api"),
		currency: "USD",
		tick:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// errorCode maps an engine error to its API code and HTTP status
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrInvalidBet):
		return "INVALID_BET", http.StatusBadRequest
	case errors.Is(err, domain.ErrIllegalAction):
		return "ILLEGAL_ACTION", http.StatusBadRequest
	case errors.Is(err, wallet.ErrInvalidAmount):
		return "INVALID_AMOUNT", http.StatusBadRequest
	case errors.Is(err, limits.ErrInvalidLimit), errors.Is(err, control.ErrNoReason):
		return "INVALID_REQUEST", http.StatusBadRequest
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS", http.StatusPaymentRequired
	case errors.Is(err, domain.ErrGameNotFound):
		return "GAME_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, domain.ErrSessionNotFound):
		return "SESSION_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, domain.ErrGameDisabled):
		return "GAME_DISABLED", http.StatusForbidden
	case errors.Is(err, limits.ErrLimitReached):
		return "LIMIT_REACHED", http.StatusForbidden
	case errors.Is(err, cards.ErrShoeExhausted):
		return "SHOE_EXHAUSTED", http.StatusConflict
	default:
		return "INTERNAL_ERROR", http.StatusInternalServerError
	}
}

// respondFailure writes the error envelope for an engine error. Internal
// errors are logged and their text is not returned.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	code, status := errorCode(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, status, code, "Internal server error")
		return
	}
	respondError(w, status, code, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) currencyOr(c string) string {
	if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
		return c
	}
	return h.currency
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Check RNG health (GLI-19 §3.3.3)
	rngHealth, _ := h.rng.HealthCheck()

	status := "healthy"
	if rngHealth == nil || !rngHealth.Healthy {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"rng_status": rngHealth,
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "casino-engine",
		"version":     "1.0.0",
		"description": "Game outcome and payout engine - GLI-19 Compliant",
	})
}

// === Wallet ===

// GetBalance handles GET /api/v1/wallet/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		respondError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "Balance is held by the operator")
		return
	}

	currency := h.currencyOr(r.URL.Query().Get("currency"))
	balance, err := h.balances.GetBalance(r.Context(), playerID(r), currency)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

// === Games ===

// GetGames handles GET /api/v1/games
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Games())
}

// GetGame handles GET /api/v1/games/{id}
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Game(mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

// StartGameSession handles POST /api/v1/games/{id}/session
func (h *Handler) StartGameSession(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.engine.StartSession(r.Context(), playerID(r), mux.Vars(r)["id"], h.currencyOr(req.Currency))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// GetGameSession handles GET /api/v1/sessions/{id}
func (h *Handler) GetGameSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.Session(r.Context(), playerID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// EndGameSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) EndGameSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.engine.EndSession(r.Context(), playerID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    session.ID,
		"rounds_played": session.RoundsPlayed,
		"total_bet":     session.TotalBet,
		"total_win":     session.TotalWin,
		"rtp":           session.RTP(),
		"ended_at":      session.EndedAt,
	})
}

// GetGameHistory handles GET /api/v1/history
func (h *Handler) GetGameHistory(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	history, err := h.engine.History(r.Context(), playerID(r), limit)
	if err != nil {
		if errors.Is(err, game.ErrNoHistory) {
			respondError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "History is not kept")
			return
		}
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// GetJackpots handles GET /api/v1/jackpots
func (h *Handler) GetJackpots(w http.ResponseWriter, r *http.Request) {
	pools, err := h.engine.Jackpots(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pools)
}
