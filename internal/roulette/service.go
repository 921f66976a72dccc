package roulette

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

// Table is a roulette table definition. TableLimit caps the sum of all
// bets of one spin.
type Table struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	MinBet     map[string]int64 `json:"min_bet" yaml:"min_bet"`
	MaxBet     map[string]int64 `json:"max_bet" yaml:"max_bet"`
	TableLimit map[string]int64 `json:"table_limit" yaml:"table_limit"`
}

// DefaultTables returns the built-in roulette tables
func DefaultTables() []*Table {
	return []*Table{{
		ID:         "roulette-european",
		Name:       "European Roulette",
		MinBet:     map[string]int64{"USD": 10, "EUR": 10},
		MaxBet:     map[string]int64{"USD": 50000, "EUR": 50000},
		TableLimit: map[string]int64{"USD": 200000, "EUR": 200000},
	}}
}

// Validate checks the table definition
func (t *Table) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("roulette table missing id")
	}
	if len(t.MinBet) == 0 {
		return fmt.Errorf("roulette table %s has no bet limits", t.ID)
	}
	for cur, min := range t.MinBet {
		max, ok := t.MaxBet[cur]
		if !ok || min <= 0 || max < min || t.TableLimit[cur] < max {
			return fmt.Errorf("roulette table %s has bad %s limits", t.ID, cur)
		}
	}
	return nil
}

// Game returns the catalog view of the table
func (t *Table) Game() *domain.Game {
	return &domain.Game{
		ID:             t.ID,
		Name:           t.Name,
		Category:       domain.CategoryRoulette,
		TheoreticalRTP: 36.0 / 37.0,
		MinBet:         t.MinBet,
		MaxBet:         t.MaxBet,
		Enabled:        true,
	}
}

// Phase of a roulette game
type Phase string

const (
	PhaseBetting  Phase = "betting"
	PhaseSpinning Phase = "spinning"
	PhaseFinished Phase = "finished"
)

// BetRequest places one bet
type BetRequest struct {
	Type    BetType      `json:"type"`
	Numbers []int        `json:"numbers,omitempty"`
	Amount  domain.Money `json:"amount"`
}

// Bet is a placed bet
type Bet struct {
	ID      string       `json:"id"`
	Type    BetType      `json:"type"`
	Numbers []int        `json:"numbers,omitempty"`
	Amount  domain.Money `json:"amount"`
	Odds    int64        `json:"odds"`
	Won     bool         `json:"won"`
	Payout  domain.Money `json:"payout"`
}

// Outcome is the drawn pocket
type Outcome struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
}

// Game is one roulette round
type Game struct {
	ID        string       `json:"id"`
	PlayerID  string       `json:"player_id"`
	TableID   string       `json:"table_id"`
	Currency  string       `json:"currency"`
	Phase     Phase        `json:"phase"`
	Bets      []*Bet       `json:"bets"`
	Result    *Outcome     `json:"result,omitempty"`
	TotalBet  domain.Money `json:"total_bet"`
	TotalWin  domain.Money `json:"total_win"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	mu sync.Mutex
}

// Settle marks every winning bet and returns the total to credit
func Settle(bets []*Bet, n int, currency string) domain.Money {
	total := domain.Cents(0, currency)
	for _, b := range bets {
		b.Won = IsBetWinning(b.Type, b.Numbers, n)
		b.Payout = b.Amount.Zero()
		if b.Won {
			b.Payout = Payout(b.Type, b.Amount)
			total = total.Add(b.Payout)
		}
	}
	return total
}

// Option configures the service
type Option func(*Service)

// Retention is how long a finished game stays readable before it is evicted
const Retention = 10 * time.Minute

// WithRetention overrides Retention
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		s.retain = d
	}
}

// Service runs roulette games
type Service struct {
	tables   map[string]*Table
	order    []string
	rng      *rng.Service
	wallet   wallet.Wallet
	audit    audit.Recorder
	sessions *session.Tracker
	log      *zap.Logger

	retain time.Duration

	mu       sync.RWMutex
	games    map[string]*Game
	finished map[string]time.Time
}

// NewService creates a roulette service over the given tables
func NewService(tables []*Table, rngSvc *rng.Service, w wallet.Wallet, rec audit.Recorder,
	sessions *session.Tracker, log *zap.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		tables:   make(map[string]*Table),
		rng:      rngSvc,
		wallet:   w,
		audit:    rec,
		sessions: sessions,
		log:      log.Named("roulette"),
		games:    make(map[string]*Game),
		finished: make(map[string]time.Time),
		retain:   Retention,
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.tables[t.ID]; dup {
			return nil, fmt.Errorf("duplicate roulette table %s", t.ID)
		}
		s.tables[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tables returns the tables in configuration order
func (s *Service) Tables() []*Table {
	out := make([]*Table, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tables[id])
	}
	return out
}

// Table returns a table by id
func (s *Service) Table(id string) (*Table, error) {
	t, ok := s.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
	}
	return t, nil
}

// StartGame opens a new round in the betting phase
func (s *Service) StartGame(_ context.Context, playerID, tableID, currency string) (*Game, error) {
	t, err := s.Table(tableID)
	if err != nil {
		return nil, err
	}
	if _, ok := t.MinBet[currency]; !ok {
		return nil, fmt.Errorf("%w: currency %s not offered on %s", domain.ErrInvalidBet, currency, t.ID)
	}

	now := time.Now().UTC()
	g := &Game{
		ID:        fmt.Sprintf("roulette-%d-%s", now.UnixMilli(), uuid.New().String()[:8]),
		PlayerID:  playerID,
		TableID:   t.ID,
		Currency:  currency,
		Phase:     PhaseBetting,
		TotalBet:  domain.Cents(0, currency),
		TotalWin:  domain.Cents(0, currency),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.evictLocked(now)
	s.games[g.ID] = g
	s.mu.Unlock()
	return g.snapshot(), nil
}

func (s *Service) lookup(playerID, gameID string) (*Game, error) {
	s.mu.RLock()
	g, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok || g.PlayerID != playerID {
		return nil, fmt.Errorf("%w: roulette game %s", domain.ErrGameNotFound, gameID)
	}
	return g, nil
}

// Get returns the current state of a game
func (s *Service) Get(_ context.Context, playerID, gameID string) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(), nil
}

// PlaceBet validates a bet against its shape, the bet limits and the table
// limit, then debits it
func (s *Service) PlaceBet(ctx context.Context, playerID, gameID string, req BetRequest) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: bets are closed in phase %s", domain.ErrIllegalAction, g.Phase)
	}
	numbers, err := Normalize(req.Type, req.Numbers)
	if err != nil {
		return nil, err
	}

	t, err := s.Table(g.TableID)
	if err != nil {
		return nil, err
	}
	amt := req.Amount
	if amt.Currency != g.Currency {
		return nil, fmt.Errorf("%w: game plays in %s", domain.ErrInvalidBet, g.Currency)
	}
	if amt.Amount < t.MinBet[amt.Currency] || amt.Amount > t.MaxBet[amt.Currency] {
		return nil, fmt.Errorf("%w: %d outside [%d, %d] %s", domain.ErrInvalidBet,
			amt.Amount, t.MinBet[amt.Currency], t.MaxBet[amt.Currency], amt.Currency)
	}
	if limit := t.TableLimit[amt.Currency]; g.TotalBet.Amount+amt.Amount > limit {
		return nil, fmt.Errorf("%w: table limit %d %s reached", domain.ErrInvalidBet, limit, amt.Currency)
	}

	if _, err := s.wallet.PlaceBet(ctx, playerID, amt, g.TableID, domain.CategoryRoulette); err != nil {
		return nil, err
	}

	g.Bets = append(g.Bets, &Bet{
		ID:      uuid.New().String(),
		Type:    req.Type,
		Numbers: numbers,
		Amount:  amt,
		Odds:    Odds[req.Type],
		Payout:  amt.Zero(),
	})
	g.TotalBet = g.TotalBet.Add(amt)
	g.UpdatedAt = time.Now().UTC()
	return g.snapshot(), nil
}

// ClearBets takes back every bet of the round and refunds them
func (s *Service) ClearBets(ctx context.Context, playerID, gameID string) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: bets are closed in phase %s", domain.ErrIllegalAction, g.Phase)
	}
	if g.TotalBet.Amount > 0 {
		if _, err := s.wallet.RecordWin(ctx, playerID, g.TotalBet, g.TableID, domain.CategoryRoulette); err != nil {
			return nil, fmt.Errorf("failed to refund bets: %w", err)
		}
	}
	g.Bets = nil
	g.TotalBet = g.TotalBet.Zero()
	g.UpdatedAt = time.Now().UTC()
	return g.snapshot(), nil
}

// Spin draws the winning pocket, settles every bet and credits the total.
// The round moves from betting to finished within the call.
func (s *Service) Spin(ctx context.Context, playerID, gameID string) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: cannot spin in phase %s", domain.ErrIllegalAction, g.Phase)
	}
	if len(g.Bets) == 0 {
		return nil, fmt.Errorf("%w: no bets placed", domain.ErrIllegalAction)
	}

	// GLI-19 §4.5.2.a: Making calls to RNG
	idx, err := s.rng.Intn(Pockets)
	if err != nil {
		return nil, fmt.Errorf("failed to spin: %w", err)
	}
	g.Phase = PhaseSpinning
	n := WheelOrder[idx]
	g.Result = &Outcome{Number: n, Color: ColorOf(n)}
	g.TotalWin = Settle(g.Bets, n, g.Currency)
	g.Phase = PhaseFinished
	g.UpdatedAt = time.Now().UTC()

	if g.TotalWin.Amount > 0 {
		if _, err := s.wallet.RecordWin(ctx, playerID, g.TotalWin, g.TableID, domain.CategoryRoulette); err != nil {
			s.audit.Log(ctx, audit.EventWalletFailure, domain.SeverityCritical,
				fmt.Sprintf("Failed to credit %d %s for %s", g.TotalWin.Amount, g.Currency, g.ID),
				map[string]interface{}{"game_id": g.ID, "amount": g.TotalWin.Amount},
				audit.WithPlayer(playerID), audit.WithGame(g.TableID), audit.WithComponent("roulette"))
			return nil, fmt.Errorf("failed to credit win: %w", err)
		}
	}

	snap := g.snapshot()
	s.finish(ctx, snap)
	return snap, nil
}

func (s *Service) finish(ctx context.Context, g *Game) {
	payload, err := json.Marshal(g)
	if err != nil {
		s.log.Error("failed to encode game", zap.String("game_id", g.ID), zap.Error(err))
	}
	rec := &domain.GameRecord{
		ID:        g.ID,
		Kind:      domain.CategoryRoulette,
		PlayerID:  g.PlayerID,
		GameID:    g.TableID,
		Bet:       g.TotalBet,
		Win:       g.TotalWin,
		Payload:   payload,
		CreatedAt: g.UpdatedAt,
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		s.log.Error("failed to record game", zap.String("game_id", g.ID), zap.Error(err))
	}
	if _, err := s.sessions.Record(ctx, g.PlayerID, g.TableID, g.TotalBet, g.TotalWin); err != nil {
		s.log.Error("failed to update session", zap.String("game_id", g.ID), zap.Error(err))
	}

	s.log.Debug("wheel spun",
		zap.String("game_id", g.ID),
		zap.Int("number", g.Result.Number),
		zap.Int("bets", len(g.Bets)),
		zap.Int64("bet", g.TotalBet.Amount),
		zap.Int64("win", g.TotalWin.Amount))
	s.retire(g.ID)
}

// retire marks a settled game for eviction once Retention has passed
func (s *Service) retire(gameID string) {
	s.mu.Lock()
	s.finished[gameID] = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Service) evictLocked(now time.Time) {
	for id, at := range s.finished {
		if now.Sub(at) >= s.retain {
			delete(s.games, id)
			delete(s.finished, id)
		}
	}
}

func (g *Game) snapshot() *Game {
	cp := &Game{
		ID:        g.ID,
		PlayerID:  g.PlayerID,
		TableID:   g.TableID,
		Currency:  g.Currency,
		Phase:     g.Phase,
		TotalBet:  g.TotalBet,
		TotalWin:  g.TotalWin,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	for _, b := range g.Bets {
		bc := *b
		bc.Numbers = append([]int(nil), b.Numbers...)
		cp.Bets = append(cp.Bets, &bc)
	}
	if g.Result != nil {
		r := *g.Result
		cp.Result = &r
	}
	return cp
}
