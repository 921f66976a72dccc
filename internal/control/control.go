// Package control provides the operator switches over gaming
// Compliant with GLI-19 §2.4: Gaming Management
//
// Key Requirements:
//   - Operator must be able to disable all gaming on demand
//   - Individual games can be disabled
//   - All state changes must be logged
package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
)

// GlobalScope is the scope of the system-wide switch
const GlobalScope = "*"

var (
	ErrGamingDisabled = fmt.Errorf("%w: gaming is currently suspended", domain.ErrGameDisabled)
	ErrNoReason       = errors.New("a reason is required to disable gaming")
)

// Setting is one persisted switch
type Setting struct {
	Scope     string    `json:"scope"`
	Enabled   bool      `json:"enabled"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the current state of the switches
type Status struct {
	GamingEnabled  bool       `json:"gaming_enabled"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty"`
	DisabledBy     string     `json:"disabled_by,omitempty"`
	DisabledReason string     `json:"disabled_reason,omitempty"`
	DisabledGames  []string   `json:"disabled_games"`
}

// Store persists switches across restarts
type Store interface {
	Save(ctx context.Context, s *Setting) error
	Load(ctx context.Context) ([]*Setting, error)
}

// Service holds the switches in memory; the store is written through
type Service struct {
	store Store
	audit audit.Recorder
	now   func() time.Time

	mu       sync.RWMutex
	global   *Setting
	disabled map[string]*Setting
}

// New creates a control service. A nil store keeps state in memory only.
func New(store Store, rec audit.Recorder) *Service {
	return &Service{
		store:    store,
		audit:    rec,
		now:      func() time.Time { return time.Now().UTC() },
		disabled: make(map[string]*Setting),
	}
}

// LoadState restores persisted switches on startup
func (s *Service) LoadState(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	settings, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gaming controls: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range settings {
		s.applyLocked(st)
	}
	return nil
}

// DisableAllGaming stops all gaming activity
// GLI-19 §2.4.1 - Gaming Management: Ability to disable on demand
func (s *Service) DisableAllGaming(ctx context.Context, reason, authorizedBy string) error {
	if reason == "" {
		return ErrNoReason
	}
	if err := s.set(ctx, &Setting{Scope: GlobalScope, Reason: reason, UpdatedBy: authorizedBy}); err != nil {
		return err
	}
	s.log(ctx, "gaming_disabled", domain.SeverityCritical, "All gaming disabled: "+reason, "",
		map[string]interface{}{"authorized_by": authorizedBy, "reason": reason})
	return nil
}

// EnableAllGaming resumes gaming operations
func (s *Service) EnableAllGaming(ctx context.Context, authorizedBy string) error {
	if err := s.set(ctx, &Setting{Scope: GlobalScope, Enabled: true, UpdatedBy: authorizedBy}); err != nil {
		return err
	}
	s.log(ctx, "gaming_enabled", domain.SeverityInfo, "All gaming enabled", "",
		map[string]interface{}{"authorized_by": authorizedBy})
	return nil
}

// DisableGame disables a specific game
func (s *Service) DisableGame(ctx context.Context, gameID, reason, authorizedBy string) error {
	if reason == "" {
		return ErrNoReason
	}
	if err := s.set(ctx, &Setting{Scope: gameID, Reason: reason, UpdatedBy: authorizedBy}); err != nil {
		return err
	}
	s.log(ctx, "game_disabled", domain.SeverityWarning, fmt.Sprintf("Game disabled: %s - %s", gameID, reason), gameID,
		map[string]interface{}{"authorized_by": authorizedBy, "reason": reason})
	return nil
}

// EnableGame enables a specific game
func (s *Service) EnableGame(ctx context.Context, gameID, authorizedBy string) error {
	if err := s.set(ctx, &Setting{Scope: gameID, Enabled: true, UpdatedBy: authorizedBy}); err != nil {
		return err
	}
	s.log(ctx, "game_enabled", domain.SeverityInfo, "Game enabled: "+gameID, gameID,
		map[string]interface{}{"authorized_by": authorizedBy})
	return nil
}

func (s *Service) set(ctx context.Context, st *Setting) error {
	st.UpdatedAt = s.now()
	if s.store != nil {
		if err := s.store.Save(ctx, st); err != nil {
			return fmt.Errorf("failed to persist gaming state: %w", err)
		}
	}

	s.mu.Lock()
	s.applyLocked(st)
	s.mu.Unlock()
	return nil
}

func (s *Service) applyLocked(st *Setting) {
	if st.Scope == GlobalScope {
		if st.Enabled {
			s.global = nil
		} else {
			s.global = st
		}
		return
	}
	if st.Enabled {
		delete(s.disabled, st.Scope)
	} else {
		s.disabled[st.Scope] = st
	}
}

func (s *Service) log(ctx context.Context, eventType string, severity domain.EventSeverity, description, gameID string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	opts := []audit.EventOption{audit.WithComponent("control")}
	if gameID != "" {
		opts = append(opts, audit.WithGame(gameID))
	}
	s.audit.Log(ctx, eventType, severity, description, data, opts...)
}

// IsGamingEnabled checks if gaming is currently enabled
func (s *Service) IsGamingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global == nil
}

// IsGameEnabled checks if a specific game is enabled
func (s *Service) IsGameEnabled(gameID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled[gameID] == nil
}

// CheckGame returns an error wrapping domain.ErrGameDisabled when play on
// gameID is suspended
func (s *Service) CheckGame(gameID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global != nil {
		return ErrGamingDisabled
	}
	if st := s.disabled[gameID]; st != nil {
		return fmt.Errorf("%w: %s (%s)", domain.ErrGameDisabled, gameID, st.Reason)
	}
	return nil
}

// GetSystemStatus returns current gaming system status
func (s *Service) GetSystemStatus() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{GamingEnabled: s.global == nil, DisabledGames: []string{}}
	if s.global != nil {
		at := s.global.UpdatedAt
		status.DisabledAt = &at
		status.DisabledBy = s.global.UpdatedBy
		status.DisabledReason = s.global.Reason
	}
	for id := range s.disabled {
		status.DisabledGames = append(status.DisabledGames, id)
	}
	sort.Strings(status.DisabledGames)
	return status
}
