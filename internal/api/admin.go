// Package api - Player limits and operator controls
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexbotov/casino-engine/internal/limits"
)

// GetLimits handles GET /api/v1/limits
// GLI-19 §2.5.5 - Player must be able to view their limits
func (h *Handler) GetLimits(w http.ResponseWriter, r *http.Request) {
	if h.limits == nil {
		respondError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "Player limits are not enabled")
		return
	}
	view, err := h.limits.GetLimits(r.Context(), playerID(r))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// SetLimits handles PUT /api/v1/limits
func (h *Handler) SetLimits(w http.ResponseWriter, r *http.Request) {
	if h.limits == nil {
		respondError(w, http.StatusNotImplemented, "NOT_SUPPORTED", "Player limits are not enabled")
		return
	}

	var req limits.Limits
	if !decode(w, r, &req) {
		return
	}

	view, err := h.limits.SetLimits(r.Context(), playerID(r), req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// OperatorMiddleware admits requests carrying the operator key
func (h *Handler) OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Operator-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.operatorKey)) != 1 {
			respondError(w, http.StatusUnauthorized, "NOT_AUTHORIZED", "Operator key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type switchRequest struct {
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason"`
	By      string `json:"by"`
}

func (req *switchRequest) operator() string {
	if req.By == "" {
		return "operator"
	}
	return req.By
}

// GetControlStatus handles GET /admin/status
// GLI-19 §2.4 - System status must be available
func (h *Handler) GetControlStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Control().GetSystemStatus())
}

// SetGaming handles POST /admin/gaming
// GLI-19 §2.4.1 - Ability to disable on demand
func (h *Handler) SetGaming(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !decode(w, r, &req) {
		return
	}

	ctl := h.engine.Control()
	var err error
	if req.Enabled {
		err = ctl.EnableAllGaming(r.Context(), req.operator())
	} else {
		err = ctl.DisableAllGaming(r.Context(), req.Reason, req.operator())
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ctl.GetSystemStatus())
}

// SetGame handles POST /admin/games/{id}
func (h *Handler) SetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]
	if _, err := h.engine.Game(gameID); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	var req switchRequest
	if !decode(w, r, &req) {
		return
	}

	ctl := h.engine.Control()
	var err error
	if req.Enabled {
		err = ctl.EnableGame(r.Context(), gameID, req.operator())
	} else {
		err = ctl.DisableGame(r.Context(), gameID, req.Reason, req.operator())
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ctl.GetSystemStatus())
}
