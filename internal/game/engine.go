// Package game bundles the game catalog and the per-category services
// Compliant with GLI-19 Chapter 4: Game Requirements
package game

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/baccarat"
	"github.com/alexbotov/casino-engine/internal/blackjack"
	"github.com/alexbotov/casino-engine/internal/config"
	"github.com/alexbotov/casino-engine/internal/control"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/jackpot"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/roulette"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/slots"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

var (
	ErrDuplicateGame = errors.New("duplicate game id")
	ErrRTPTooLow     = errors.New("theoretical RTP below minimum")
	ErrNoHistory     = errors.New("recorder does not keep history")
)

// Deps are the collaborators shared by every game service
type Deps struct {
	RNG      *rng.Service
	Wallet   wallet.Wallet
	Jackpots jackpot.Store
	Audit    audit.Recorder
	Sessions session.Store
	Logger   *zap.Logger
	// Control holds the operator switches; nil leaves every game open
	Control *control.Service

	// LargeWin is the slot win, in minor units, that raises an audit event
	LargeWin int64
	// MinRTP rejects games configured below it (GLI-19 §4.7.1)
	MinRTP float64

	BlackjackOptions []blackjack.Option
	BaccaratOptions  []baccarat.Option
}

// Engine is the entry point of the game services
type Engine struct {
	slots     *slots.Service
	blackjack *blackjack.Service
	roulette  *roulette.Service
	baccarat  *baccarat.Service
	sessions  *session.Tracker
	audit     audit.Recorder
	rng       *rng.Service
	registry  *paytable.Registry
	control   *control.Service
	log       *zap.Logger

	games map[string]*domain.Game
	order []string
}

// New builds every service of the catalog and seeds the progressive pools
func New(ctx context.Context, cat *config.Catalog, deps Deps) (*Engine, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	registry, err := paytable.NewRegistry(cat.Slots...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		sessions: session.NewTracker(deps.Sessions, deps.Audit, log),
		audit:    deps.Audit,
		rng:      deps.RNG,
		registry: registry,
		control:  deps.Control,
		log:      log.Named("engine"),
		games:    make(map[string]*domain.Game),
	}

	var slotOpts []slots.Option
	if deps.LargeWin > 0 {
		slotOpts = append(slotOpts, slots.WithLargeWin(deps.LargeWin))
	}
	e.slots = slots.NewService(registry, deps.RNG, deps.Wallet, deps.Jackpots, deps.Audit, e.sessions, log, slotOpts...)
	if err := e.slots.EnsurePools(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed jackpot pools: %w", err)
	}

	if e.blackjack, err = blackjack.NewService(cat.Blackjack, deps.RNG, deps.Wallet, deps.Audit, e.sessions, log, deps.BlackjackOptions...); err != nil {
		return nil, err
	}
	if e.roulette, err = roulette.NewService(cat.Roulette, deps.RNG, deps.Wallet, deps.Audit, e.sessions, log); err != nil {
		return nil, err
	}
	if e.baccarat, err = baccarat.NewService(cat.Baccarat, deps.RNG, deps.Wallet, deps.Audit, e.sessions, log, deps.BaccaratOptions...); err != nil {
		return nil, err
	}

	for _, p := range cat.Slots {
		if err := e.register(p.Game(), deps.MinRTP); err != nil {
			return nil, err
		}
	}
	for _, t := range cat.Blackjack {
		if err := e.register(t.Game(), deps.MinRTP); err != nil {
			return nil, err
		}
	}
	for _, t := range cat.Roulette {
		if err := e.register(t.Game(), deps.MinRTP); err != nil {
			return nil, err
		}
	}
	for _, t := range cat.Baccarat {
		if err := e.register(t.Game(), deps.MinRTP); err != nil {
			return nil, err
		}
	}

	e.log.Info("game engine ready", zap.Int("games", len(e.order)))
	return e, nil
}

func (e *Engine) register(g *domain.Game, minRTP float64) error {
	if _, exists := e.games[g.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, g.ID)
	}
	// GLI-19 §4.7.1
	if minRTP > 0 && g.TheoreticalRTP > 0 && g.TheoreticalRTP < minRTP {
		return fmt.Errorf("%w: %s has %.4f", ErrRTPTooLow, g.ID, g.TheoreticalRTP)
	}
	e.games[g.ID] = g
	e.order = append(e.order, g.ID)
	return nil
}

// Slots returns the slot service
func (e *Engine) Slots() *slots.Service { return e.slots }

// Blackjack returns the blackjack service
func (e *Engine) Blackjack() *blackjack.Service { return e.blackjack }

// Roulette returns the roulette service
func (e *Engine) Roulette() *roulette.Service { return e.roulette }

// Baccarat returns the baccarat service
func (e *Engine) Baccarat() *baccarat.Service { return e.baccarat }

// Games returns every game in catalog order
func (e *Engine) Games() []*domain.Game {
	out := make([]*domain.Game, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.games[id])
	}
	return out
}

// Game returns a game by id
func (e *Engine) Game(id string) (*domain.Game, error) {
	g, ok := e.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
	}
	return g, nil
}

// Control returns the operator switches, nil when none are configured
func (e *Engine) Control() *control.Service { return e.control }

// CheckGame returns the game when it is open for play (GLI-19 §2.4)
func (e *Engine) CheckGame(gameID string) (*domain.Game, error) {
	g, err := e.Game(gameID)
	if err != nil {
		return nil, err
	}
	if !g.Enabled {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameDisabled, gameID)
	}
	if e.control != nil {
		if err := e.control.CheckGame(gameID); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// StartSession opens, or returns the already open, session of a player on a game (GLI-19 §4.3)
func (e *Engine) StartSession(ctx context.Context, playerID, gameID, currency string) (*domain.GameSession, error) {
	g, err := e.CheckGame(gameID)
	if err != nil {
		return nil, err
	}
	if _, ok := g.MinBet[currency]; !ok {
		return nil, fmt.Errorf("%w: %s is not offered in %s", domain.ErrInvalidBet, gameID, currency)
	}
	return e.sessions.Start(ctx, playerID, gameID, currency)
}

// Session returns a session of the player
func (e *Engine) Session(ctx context.Context, playerID, sessionID string) (*domain.GameSession, error) {
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.PlayerID != playerID {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// EndSession closes a session of the player (GLI-19 §4.3)
func (e *Engine) EndSession(ctx context.Context, playerID, sessionID string) (*domain.GameSession, error) {
	if _, err := e.Session(ctx, playerID, sessionID); err != nil {
		return nil, err
	}
	return e.sessions.End(ctx, sessionID)
}

// History returns the latest outcomes of a player (GLI-19 §4.14)
func (e *Engine) History(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	h, ok := e.audit.(audit.History)
	if !ok {
		return nil, ErrNoHistory
	}
	if limit <= 0 {
		limit = 10
	}
	return h.GetRecords(ctx, audit.RecordFilter{PlayerID: playerID, Limit: limit})
}

// Jackpots returns every progressive pool total in minor units
func (e *Engine) Jackpots(ctx context.Context) (map[string]int64, error) {
	pools, err := e.slots.Pools(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(pools))
	for id, amount := range pools {
		out[id] = amount.Truncate(0).IntPart()
	}
	return out, nil
}

// Simulate plays rounds of a slot off the books and reports the realized RTP
func (e *Engine) Simulate(gameID string, bet domain.Money, rounds int64) (*slots.SimulationReport, error) {
	p, err := e.registry.Get(gameID)
	if err != nil {
		return nil, err
	}
	return slots.Simulate(p, e.rng, bet, rounds)
}
