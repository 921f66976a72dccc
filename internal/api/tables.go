package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/alexbotov/casino-engine/internal/baccarat"
	"github.com/alexbotov/casino-engine/internal/blackjack"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/roulette"
	"github.com/alexbotov/casino-engine/internal/slots"
)

// amountRequest carries a stake in minor units. The currency defaults to
// the game's currency.
type amountRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

func (a amountRequest) money(currency string) domain.Money {
	if a.Currency != "" {
		currency = a.Currency
	}
	return domain.Cents(a.Amount, currency)
}

// === Slots ===

type spinRequest struct {
	amountRequest
	Paylines []int `json:"paylines,omitempty"`
}

// Spin handles POST /api/v1/slots/{id}/spin
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.CheckGame(mux.Vars(r)["id"]); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	var req spinRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.Slots().Spin(r.Context(), slots.SpinRequest{
		PlayerID: playerID(r),
		GameID:   mux.Vars(r)["id"],
		Bet:      req.money(h.currency),
		Paylines: req.Paylines,
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Simulate handles GET /api/v1/slots/{id}/simulate?bet=&currency=&rounds=
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bet, err := strconv.ParseInt(q.Get("bet"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "bet must be an integer")
		return
	}
	rounds := int64(10000)
	if v := q.Get("rounds"); v != "" {
		if rounds, err = strconv.ParseInt(v, 10, 64); err != nil || rounds > 1000000 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "rounds must be an integer up to 1000000")
			return
		}
	}

	rep, err := h.engine.Simulate(mux.Vars(r)["id"], domain.Cents(bet, h.currencyOr(q.Get("currency"))), rounds)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// === Blackjack ===

// StartBlackjack handles POST /api/v1/blackjack/{id}/games
func (h *Handler) StartBlackjack(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.CheckGame(mux.Vars(r)["id"]); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	var req currencyRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.engine.Blackjack().StartGame(r.Context(), playerID(r), mux.Vars(r)["id"], h.currencyOr(req.Currency))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// GetBlackjack handles GET /api/v1/blackjack/games/{gid}
func (h *Handler) GetBlackjack(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Blackjack().Get(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// BlackjackBet handles POST /api/v1/blackjack/games/{gid}/bet
func (h *Handler) BlackjackBet(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}

	svc, gameID := h.engine.Blackjack(), mux.Vars(r)["gid"]
	g, err := svc.Get(r.Context(), playerID(r), gameID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if g, err = svc.PlaceBet(r.Context(), playerID(r), gameID, req.money(g.Currency)); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type actionRequest struct {
	Action blackjack.Action `json:"action"`
	amountRequest
}

// BlackjackAction handles POST /api/v1/blackjack/games/{gid}/action
func (h *Handler) BlackjackAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}

	svc, gameID := h.engine.Blackjack(), mux.Vars(r)["gid"]
	g, err := svc.Get(r.Context(), playerID(r), gameID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	g, err = svc.Action(r.Context(), playerID(r), gameID, blackjack.ActionRequest{
		Action: req.Action,
		Amount: req.money(g.Currency),
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// === Roulette ===

// StartRoulette handles POST /api/v1/roulette/{id}/games
func (h *Handler) StartRoulette(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.CheckGame(mux.Vars(r)["id"]); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	var req currencyRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.engine.Roulette().StartGame(r.Context(), playerID(r), mux.Vars(r)["id"], h.currencyOr(req.Currency))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// GetRoulette handles GET /api/v1/roulette/games/{gid}
func (h *Handler) GetRoulette(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Roulette().Get(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type rouletteBetRequest struct {
	Type    roulette.BetType `json:"type"`
	Numbers []int            `json:"numbers,omitempty"`
	amountRequest
}

// RouletteBet handles POST /api/v1/roulette/games/{gid}/bet
func (h *Handler) RouletteBet(w http.ResponseWriter, r *http.Request) {
	var req rouletteBetRequest
	if !decode(w, r, &req) {
		return
	}

	svc, gameID := h.engine.Roulette(), mux.Vars(r)["gid"]
	g, err := svc.Get(r.Context(), playerID(r), gameID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	g, err = svc.PlaceBet(r.Context(), playerID(r), gameID, roulette.BetRequest{
		Type:    req.Type,
		Numbers: req.Numbers,
		Amount:  req.money(g.Currency),
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// ClearRouletteBets handles DELETE /api/v1/roulette/games/{gid}/bets
func (h *Handler) ClearRouletteBets(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Roulette().ClearBets(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// RouletteSpin handles POST /api/v1/roulette/games/{gid}/spin
func (h *Handler) RouletteSpin(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Roulette().Spin(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// === Baccarat ===

// StartBaccarat handles POST /api/v1/baccarat/{id}/games
func (h *Handler) StartBaccarat(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.CheckGame(mux.Vars(r)["id"]); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	var req currencyRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.engine.Baccarat().StartGame(r.Context(), playerID(r), mux.Vars(r)["id"], h.currencyOr(req.Currency))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// GetBaccarat handles GET /api/v1/baccarat/games/{gid}
func (h *Handler) GetBaccarat(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Baccarat().Get(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type baccaratBetRequest struct {
	Type baccarat.BetType `json:"type"`
	amountRequest
}

// BaccaratBet handles POST /api/v1/baccarat/games/{gid}/bet
func (h *Handler) BaccaratBet(w http.ResponseWriter, r *http.Request) {
	var req baccaratBetRequest
	if !decode(w, r, &req) {
		return
	}

	svc, gameID := h.engine.Baccarat(), mux.Vars(r)["gid"]
	g, err := svc.Get(r.Context(), playerID(r), gameID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	g, err = svc.PlaceBet(r.Context(), playerID(r), gameID, baccarat.BetRequest{
		Type:   req.Type,
		Amount: req.money(g.Currency),
	})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// BaccaratDeal handles POST /api/v1/baccarat/games/{gid}/deal
func (h *Handler) BaccaratDeal(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.Baccarat().Deal(r.Context(), playerID(r), mux.Vars(r)["gid"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}
