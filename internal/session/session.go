// Package session aggregates per-player, per-game play statistics
// GLI-19 §4.3: Game Session
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
)

// Store persists session aggregates
type Store interface {
	Create(ctx context.Context, s *domain.GameSession) error
	Get(ctx context.Context, id string) (*domain.GameSession, error)
	// FindOpen returns the active session of a player on a game, or
	// domain.ErrSessionNotFound
	FindOpen(ctx context.Context, playerID, gameID string) (*domain.GameSession, error)
	Update(ctx context.Context, s *domain.GameSession) error
}

// Tracker maintains session aggregates. Updates are serialized per tracker.
type Tracker struct {
	mu    sync.Mutex
	store Store
	audit audit.Recorder
	log   *zap.Logger
}

// NewTracker creates a tracker over store
func NewTracker(store Store, auditRec audit.Recorder, log *zap.Logger) *Tracker {
	return &Tracker{store: store, audit: auditRec, log: log.Named("session")}
}

// Start returns the open session of the player on the game, creating one if needed
func (t *Tracker) Start(ctx context.Context, playerID, gameID, currency string) (*domain.GameSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openLocked(ctx, playerID, gameID, currency)
}

func (t *Tracker) openLocked(ctx context.Context, playerID, gameID, currency string) (*domain.GameSession, error) {
	s, err := t.store.FindOpen(ctx, playerID, gameID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	s = &domain.GameSession{
		ID:             uuid.New().String(),
		PlayerID:       playerID,
		GameID:         gameID,
		Currency:       currency,
		StartedAt:      now,
		LastActivityAt: now,
		Status:         domain.GameSessionActive,
	}
	if err := t.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}

	t.audit.Log(ctx, audit.EventGameSessionStart, domain.SeverityInfo,
		fmt.Sprintf("Game session started: %s", gameID),
		map[string]string{"session_id": s.ID, "game_id": gameID},
		audit.WithPlayer(playerID), audit.WithSession(s.ID), audit.WithGame(gameID))

	return s, nil
}

// Record folds one resolved outcome into the open session of the pair.
// A session is opened implicitly when none is active.
func (t *Tracker) Record(ctx context.Context, playerID, gameID string, bet, win domain.Money) (*domain.GameSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.openLocked(ctx, playerID, gameID, bet.Currency)
	if err != nil {
		return nil, err
	}

	Apply(s, bet.Amount, win.Amount, time.Now().UTC())
	if err := t.store.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update game session: %w", err)
	}
	return s, nil
}

// Apply updates the counters of s with one round
func Apply(s *domain.GameSession, bet, win int64, at time.Time) {
	s.RoundsPlayed++
	s.TotalBet += bet
	s.TotalWin += win
	s.LastActivityAt = at
	if win > s.BiggestWin {
		s.BiggestWin = win
	}

	switch {
	case win > bet:
		s.WinStreak++
		s.LossStreak = 0
		if s.WinStreak > s.LongestWinStreak {
			s.LongestWinStreak = s.WinStreak
		}
	case win < bet:
		s.LossStreak++
		s.WinStreak = 0
		if s.LossStreak > s.LongestLossStreak {
			s.LongestLossStreak = s.LossStreak
		}
	}
}

// End closes a session. Ending a closed session returns it unchanged.
func (t *Tracker) End(ctx context.Context, id string) (*domain.GameSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status == domain.GameSessionCompleted {
		return s, nil
	}

	now := time.Now().UTC()
	s.EndedAt = &now
	s.Status = domain.GameSessionCompleted
	if err := t.store.Update(ctx, s); err != nil {
		return nil, err
	}

	t.log.Debug("session ended",
		zap.String("session_id", s.ID),
		zap.Int64("rounds", s.RoundsPlayed),
		zap.Float64("rtp", s.RTP()))

	t.audit.Log(ctx, audit.EventGameSessionEnd, domain.SeverityInfo,
		fmt.Sprintf("Game session ended: %d rounds played", s.RoundsPlayed),
		map[string]interface{}{
			"session_id":    s.ID,
			"rounds_played": s.RoundsPlayed,
			"total_bet":     s.TotalBet,
			"total_win":     s.TotalWin,
			"rtp":           s.RTP(),
		},
		audit.WithPlayer(s.PlayerID), audit.WithSession(s.ID), audit.WithGame(s.GameID))

	return s, nil
}

// Get returns a session by id
func (t *Tracker) Get(ctx context.Context, id string) (*domain.GameSession, error) {
	return t.store.Get(ctx, id)
}
