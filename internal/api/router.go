// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(CORSMiddleware)
	r.Use(h.LoggingMiddleware)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/ws/jackpots", h.HandleJackpotSocket).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.AuthMiddleware)

	// Wallet and limits
	api.HandleFunc("/wallet/balance", h.GetBalance).Methods("GET")
	api.HandleFunc("/limits", h.GetLimits).Methods("GET")
	api.HandleFunc("/limits", h.SetLimits).Methods("PUT")

	// Catalog and sessions
	api.HandleFunc("/games", h.GetGames).Methods("GET")
	api.HandleFunc("/games/{id}", h.GetGame).Methods("GET")
	api.HandleFunc("/games/{id}/session", h.StartGameSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", h.GetGameSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.EndGameSession).Methods("DELETE")
	api.HandleFunc("/history", h.GetGameHistory).Methods("GET")
	api.HandleFunc("/jackpots", h.GetJackpots).Methods("GET")

	// Slots
	api.HandleFunc("/slots/{id}/spin", h.Spin).Methods("POST")
	api.HandleFunc("/slots/{id}/simulate", h.Simulate).Methods("GET")

	// Blackjack
	api.HandleFunc("/blackjack/{id}/games", h.StartBlackjack).Methods("POST")
	api.HandleFunc("/blackjack/games/{gid}", h.GetBlackjack).Methods("GET")
	api.HandleFunc("/blackjack/games/{gid}/bet", h.BlackjackBet).Methods("POST")
	api.HandleFunc("/blackjack/games/{gid}/action", h.BlackjackAction).Methods("POST")

	// Roulette
	api.HandleFunc("/roulette/{id}/games", h.StartRoulette).Methods("POST")
	api.HandleFunc("/roulette/games/{gid}", h.GetRoulette).Methods("GET")
	api.HandleFunc("/roulette/games/{gid}/bet", h.RouletteBet).Methods("POST")
	api.HandleFunc("/roulette/games/{gid}/bets", h.ClearRouletteBets).Methods("DELETE")
	api.HandleFunc("/roulette/games/{gid}/spin", h.RouletteSpin).Methods("POST")

	// Baccarat
	api.HandleFunc("/baccarat/{id}/games", h.StartBaccarat).Methods("POST")
	api.HandleFunc("/baccarat/games/{gid}", h.GetBaccarat).Methods("GET")
	api.HandleFunc("/baccarat/games/{gid}/bet", h.BaccaratBet).Methods("POST")
	api.HandleFunc("/baccarat/games/{gid}/deal", h.BaccaratDeal).Methods("POST")

	// WebSocket for slot sessions
	api.HandleFunc("/ws/sessions/{id}", h.HandleSessionSocket).Methods("GET")

	// Operator routes, only with an operator key and a control service
	if h.operatorKey != "" && h.engine.Control() != nil {
		admin := r.PathPrefix("/admin").Subrouter()
		admin.Use(h.OperatorMiddleware)
		admin.HandleFunc("/status", h.GetControlStatus).Methods("GET")
		admin.HandleFunc("/gaming", h.SetGaming).Methods("POST")
		admin.HandleFunc("/games/{id}", h.SetGame).Methods("POST")
	}

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
