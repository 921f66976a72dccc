// Package limits provides player limit management
// Compliant with GLI-19 §2.5.5: Limitations and Exclusions
//
// Key Requirements:
//   - Players can set wager and loss limits
//   - Limit decreases take effect immediately
//   - Limit increases require a 24-hour cooling-off period
package limits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

var (
	ErrLimitReached = errors.New("player limit reached")
	ErrWagerLimit   = fmt.Errorf("%w: daily wager", ErrLimitReached)
	ErrLossLimit    = fmt.Errorf("%w: daily loss", ErrLimitReached)
	ErrInvalidLimit = errors.New("invalid limit value")
	ErrNoBalances   = errors.New("wallet does not report balances")
)

// CoolingOffPeriod is the required waiting period for limit increases
// GLI-19 §2.5.5.b - Limit increases require waiting period
const CoolingOffPeriod = 24 * time.Hour

// Window is the rolling period the daily limits are measured over
const Window = 24 * time.Hour

// Limits are amounts in minor units of the bet currency, zero means no limit
type Limits struct {
	DailyWager int64 `json:"daily_wager"`
	DailyLoss  int64 `json:"daily_loss"`
}

// PlayerLimits is the view of a player's limits
type PlayerLimits struct {
	PlayerID    string     `json:"player_id"`
	Current     Limits     `json:"current"`
	Pending     *Limits    `json:"pending,omitempty"`
	EffectiveAt *time.Time `json:"pending_effective_at,omitempty"`
}

// Record is a player's stored limits
type Record struct {
	Current   Limits
	Pending   *Limits
	PendingAt time.Time
}

// Activity is one wager or win counted against the window
type Activity struct {
	At       time.Time
	Currency string
	Bet      int64
	Win      int64
}

// Store persists limits and the activity they are measured against
type Store interface {
	// Load returns nil when the player never set limits
	Load(ctx context.Context, playerID string) (*Record, error)
	Save(ctx context.Context, playerID string, rec *Record) error
	AddActivity(ctx context.Context, playerID string, a Activity) error
	// Totals sums activity in currency strictly after since
	Totals(ctx context.Context, playerID, currency string, since time.Time) (wagered, won int64, err error)
}

// Option configures the guard
type Option func(*Guard)

// WithStore replaces the in-memory store
func WithStore(s Store) Option {
	return func(g *Guard) {
		g.store = s
	}
}

// Guard is a wallet that refuses bets breaching a player's limits
type Guard struct {
	inner    wallet.Wallet
	defaults Limits
	audit    audit.Recorder
	store    Store
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps inner. Defaults apply to players who never set their own limits.
func New(inner wallet.Wallet, defaults Limits, rec audit.Recorder, opts ...Option) *Guard {
	g := &Guard{
		inner:    inner,
		defaults: defaults,
		audit:    rec,
		store:    NewMemoryStore(),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// lock serialises the check and debit of one player within this process
func (g *Guard) lock(playerID string) func() {
	g.mu.Lock()
	l, ok := g.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[playerID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// record loads a player's limits and promotes a pending increase whose
// cooling-off has passed
func (g *Guard) record(ctx context.Context, playerID string, now time.Time) (*Record, error) {
	rec, err := g.store.Load(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load limits: %w", err)
	}
	if rec == nil {
		return &Record{Current: g.defaults}, nil
	}
	if rec.Pending != nil && !now.Before(rec.PendingAt) {
		rec.Current = *rec.Pending
		rec.Pending = nil
		rec.PendingAt = time.Time{}
		if err := g.store.Save(ctx, playerID, rec); err != nil {
			return nil, fmt.Errorf("failed to save limits: %w", err)
		}
	}
	return rec, nil
}

func view(playerID string, rec *Record) *PlayerLimits {
	v := &PlayerLimits{PlayerID: playerID, Current: rec.Current}
	if rec.Pending != nil {
		p := *rec.Pending
		at := rec.PendingAt
		v.Pending = &p
		v.EffectiveAt = &at
	}
	return v
}

// GetLimits retrieves a player's current limits
// GLI-19 §2.5.5 - Player must be able to view their limits
func (g *Guard) GetLimits(ctx context.Context, playerID string) (*PlayerLimits, error) {
	unlock := g.lock(playerID)
	defer unlock()

	rec, err := g.record(ctx, playerID, g.now())
	if err != nil {
		return nil, err
	}
	return view(playerID, rec), nil
}

// tighter returns the more restrictive of two limits where zero is unlimited
func tighter(cur, next int64) int64 {
	switch {
	case next == 0:
		return cur
	case cur == 0:
		return next
	case next < cur:
		return next
	default:
		return cur
	}
}

// SetLimits updates a player's limits
// GLI-19 §2.5.5.b - Decreases immediate, increases require cooling-off
func (g *Guard) SetLimits(ctx context.Context, playerID string, next Limits) (*PlayerLimits, error) {
	if next.DailyWager < 0 || next.DailyLoss < 0 {
		return nil, ErrInvalidLimit
	}

	unlock := g.lock(playerID)
	now := g.now()
	rec, err := g.record(ctx, playerID, now)
	if err != nil {
		unlock()
		return nil, err
	}

	rec.Current = Limits{
		DailyWager: tighter(rec.Current.DailyWager, next.DailyWager),
		DailyLoss:  tighter(rec.Current.DailyLoss, next.DailyLoss),
	}
	rec.Pending = nil
	rec.PendingAt = time.Time{}
	if rec.Current != next {
		p := next
		rec.Pending = &p
		rec.PendingAt = now.Add(CoolingOffPeriod)
	}
	err = g.store.Save(ctx, playerID, rec)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to save limits: %w", err)
	}

	v := view(playerID, rec)
	if g.audit != nil {
		g.audit.Log(ctx, "limits_changed", domain.SeverityInfo, "Player limits updated", v,
			audit.WithPlayer(playerID), audit.WithComponent("limits"))
	}
	return v, nil
}

// PlaceBet debits the inner wallet when the bet keeps the player within limits
// GLI-19 §2.5.5 - Limits must be enforced
func (g *Guard) PlaceBet(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	unlock := g.lock(playerID)
	defer unlock()

	now := g.now()
	rec, err := g.record(ctx, playerID, now)
	if err != nil {
		return domain.Money{}, err
	}

	var wagered, won int64
	if rec.Current.DailyWager > 0 || rec.Current.DailyLoss > 0 {
		wagered, won, err = g.store.Totals(ctx, playerID, amount.Currency, now.Add(-Window))
		if err != nil {
			return domain.Money{}, fmt.Errorf("failed to total limit window: %w", err)
		}
	}

	var breach error
	switch {
	case rec.Current.DailyWager > 0 && wagered+amount.Amount > rec.Current.DailyWager:
		breach = ErrWagerLimit
	case rec.Current.DailyLoss > 0 && wagered-won+amount.Amount > rec.Current.DailyLoss:
		breach = ErrLossLimit
	}
	if breach != nil {
		if g.audit != nil {
			g.audit.Log(ctx, "limit_reached", domain.SeverityWarning, breach.Error(),
				map[string]interface{}{"amount": amount.Amount, "currency": amount.Currency, "wagered": wagered, "won": won},
				audit.WithPlayer(playerID), audit.WithGame(gameID), audit.WithComponent("limits"))
		}
		return domain.Money{}, breach
	}

	bal, err := g.inner.PlaceBet(ctx, playerID, amount, gameID, category)
	if err != nil {
		return bal, err
	}
	g.track(ctx, playerID, Activity{At: now, Currency: amount.Currency, Bet: amount.Amount})
	return bal, nil
}

// RecordWin credits the inner wallet and counts the win against losses
func (g *Guard) RecordWin(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	bal, err := g.inner.RecordWin(ctx, playerID, amount, gameID, category)
	if err != nil {
		return bal, err
	}
	g.track(ctx, playerID, Activity{At: g.now(), Currency: amount.Currency, Win: amount.Amount})
	return bal, nil
}

// track records settled money movement. The wallet has already moved the
// money, so a store failure is audited instead of failing the bet.
func (g *Guard) track(ctx context.Context, playerID string, a Activity) {
	if err := g.store.AddActivity(ctx, playerID, a); err != nil && g.audit != nil {
		g.audit.Log(ctx, audit.EventSystemError, domain.SeverityError, "Failed to record limit activity",
			map[string]interface{}{"error": err.Error(), "bet": a.Bet, "win": a.Win, "currency": a.Currency},
			audit.WithPlayer(playerID), audit.WithComponent("limits"))
	}
}

// GetBalance reports the inner wallet's balance
func (g *Guard) GetBalance(ctx context.Context, playerID, currency string) (domain.Money, error) {
	br, ok := g.inner.(wallet.BalanceReader)
	if !ok {
		return domain.Money{}, ErrNoBalances
	}
	return br.GetBalance(ctx, playerID, currency)
}
