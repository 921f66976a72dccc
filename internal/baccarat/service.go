package baccarat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/cards"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

// BetType names a baccarat bet
type BetType string

const (
	BetPlayer      BetType = "player"
	BetBanker      BetType = "banker"
	BetTie         BetType = "tie"
	BetPlayerPair  BetType = "player_pair"
	BetBankerPair  BetType = "banker_pair"
	BetPerfectPair BetType = "perfect_pair"
)

// Odds are the winnings per unit staked, before commission
var Odds = map[BetType]int64{
	BetPlayer:      1,
	BetBanker:      1,
	BetTie:         8,
	BetPlayerPair:  11,
	BetBankerPair:  11,
	BetPerfectPair: 25,
}

// Table is a baccarat table definition
type Table struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	Decks      int              `json:"decks" yaml:"decks"`
	Commission float64          `json:"commission" yaml:"commission"`
	MinBet     map[string]int64 `json:"min_bet" yaml:"min_bet"`
	MaxBet     map[string]int64 `json:"max_bet" yaml:"max_bet"`
}

// DefaultTables returns the built-in baccarat tables
func DefaultTables() []*Table {
	return []*Table{{
		ID:         "baccarat-punto-banco",
		Name:       "Punto Banco",
		Decks:      8,
		Commission: 0.05,
		MinBet:     map[string]int64{"USD": 100, "EUR": 100},
		MaxBet:     map[string]int64{"USD": 100000, "EUR": 100000},
	}}
}

// Validate checks the table definition
func (t *Table) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("baccarat table missing id")
	}
	if t.Decks <= 0 {
		return fmt.Errorf("baccarat table %s needs at least one deck", t.ID)
	}
	if t.Commission < 0 || t.Commission >= 1 {
		return fmt.Errorf("baccarat table %s: commission %f out of range", t.ID, t.Commission)
	}
	if len(t.MinBet) == 0 {
		return fmt.Errorf("baccarat table %s has no bet limits", t.ID)
	}
	for cur, min := range t.MinBet {
		if max, ok := t.MaxBet[cur]; !ok || min <= 0 || max < min {
			return fmt.Errorf("baccarat table %s has bad %s limits", t.ID, cur)
		}
	}
	return nil
}

// Game returns the catalog view of the table
func (t *Table) Game() *domain.Game {
	return &domain.Game{
		ID:       t.ID,
		Name:     t.Name,
		Category: domain.CategoryBaccarat,
		MinBet:   t.MinBet,
		MaxBet:   t.MaxBet,
		Enabled:  true,
	}
}

// Phase of a baccarat game
type Phase string

const (
	PhaseBetting  Phase = "betting"
	PhaseDealing  Phase = "dealing"
	PhaseFinished Phase = "finished"
)

// BetRequest places one bet
type BetRequest struct {
	Type   BetType      `json:"type"`
	Amount domain.Money `json:"amount"`
}

// Bet is a placed bet
type Bet struct {
	ID     string       `json:"id"`
	Type   BetType      `json:"type"`
	Amount domain.Money `json:"amount"`
	Won    bool         `json:"won"`
	Push   bool         `json:"push,omitempty"`
	Payout domain.Money `json:"payout"`
}

// Game is one baccarat round
type Game struct {
	ID         string       `json:"id"`
	PlayerID   string       `json:"player_id"`
	TableID    string       `json:"table_id"`
	Currency   string       `json:"currency"`
	Commission float64      `json:"commission"`
	Phase      Phase        `json:"phase"`
	Bets       []*Bet       `json:"bets"`
	Coup       *Coup        `json:"coup,omitempty"`
	TotalBet   domain.Money `json:"total_bet"`
	TotalWin   domain.Money `json:"total_win"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	mu   sync.Mutex
	shoe *cards.Shoe
}

// Settle decides every bet against the coup and returns the total to
// credit. Player and banker bets push on a tie. Banker wins pay less the
// commission, truncated to the minor unit.
func Settle(bets []*Bet, c *Coup, commission decimal.Decimal) domain.Money {
	var total domain.Money
	for i, b := range bets {
		if i == 0 {
			total = b.Amount.Zero()
		}
		b.Won, b.Push = false, false
		b.Payout = b.Amount.Zero()

		switch b.Type {
		case BetPlayer, BetBanker:
			switch {
			case c.Winner == Tie:
				b.Push = true
				b.Payout = b.Amount
			case b.Type == BetPlayer && c.Winner == Player:
				b.Won = true
				b.Payout = b.Amount.Times(2)
			case b.Type == BetBanker && c.Winner == Banker:
				b.Won = true
				b.Payout = b.Amount.Mul(decimal.NewFromInt(2).Sub(commission))
			}
		case BetTie:
			b.Won = c.Winner == Tie
		case BetPlayerPair:
			b.Won = c.Player.Pair()
		case BetBankerPair:
			b.Won = c.Banker.Pair()
		case BetPerfectPair:
			b.Won = c.Player.PerfectPair() || c.Banker.PerfectPair()
		}

		if b.Won && b.Type != BetPlayer && b.Type != BetBanker {
			b.Payout = b.Amount.Times(Odds[b.Type] + 1)
		}
		total = total.Add(b.Payout)
	}
	return total
}

// ShoeFactory builds the shoe of a new game
type ShoeFactory func(decks int) (*cards.Shoe, error)

// Option configures the service
type Option func(*Service)

// WithShoeFactory replaces the shuffled shoe of new games
func WithShoeFactory(f ShoeFactory) Option {
	return func(s *Service) {
		s.newShoe = f
	}
}

// Retention is how long a finished game stays readable before it is evicted
const Retention = 10 * time.Minute

// WithRetention overrides Retention
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		s.retain = d
	}
}

// Service runs baccarat games
type Service struct {
	tables   map[string]*Table
	order    []string
	wallet   wallet.Wallet
	audit    audit.Recorder
	sessions *session.Tracker
	log      *zap.Logger
	newShoe  ShoeFactory

	retain time.Duration

	mu       sync.RWMutex
	games    map[string]*Game
	finished map[string]time.Time
}

// NewService creates a baccarat service over the given tables
func NewService(tables []*Table, rngSvc *rng.Service, w wallet.Wallet, rec audit.Recorder,
	sessions *session.Tracker, log *zap.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		tables:   make(map[string]*Table),
		wallet:   w,
		audit:    rec,
		sessions: sessions,
		log:      log.Named("baccarat"),
		games:    make(map[string]*Game),
		finished: make(map[string]time.Time),
		retain:   Retention,
		newShoe: func(decks int) (*cards.Shoe, error) {
			return cards.NewShuffledShoe(decks, rngSvc)
		},
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.tables[t.ID]; dup {
			return nil, fmt.Errorf("duplicate baccarat table %s", t.ID)
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

// StartGame opens a new round with a fresh shoe
func (s *Service) StartGame(_ context.Context, playerID, tableID, currency string) (*Game, error) {
	t, err := s.Table(tableID)
	if err != nil {
		return nil, err
	}
	if _, ok := t.MinBet[currency]; !ok {
		return nil, fmt.Errorf("%w: currency %s not offered on %s", domain.ErrInvalidBet, currency, t.ID)
	}
	shoe, err := s.newShoe(t.Decks)
	if err != nil {
		return nil, fmt.Errorf("failed to build shoe: %w", err)
	}

	now := time.Now().UTC()
	g := &Game{
		ID:         fmt.Sprintf("baccarat-%d-%s", now.UnixMilli(), uuid.New().String()[:8]),
		PlayerID:   playerID,
		TableID:    t.ID,
		Currency:   currency,
		Commission: t.Commission,
		Phase:      PhaseBetting,
		TotalBet:   domain.Cents(0, currency),
		TotalWin:   domain.Cents(0, currency),
		CreatedAt:  now,
		UpdatedAt:  now,
		shoe:       shoe,
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
		return nil, fmt.Errorf("%w: baccarat game %s", domain.ErrGameNotFound, gameID)
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

// PlaceBet validates and debits one bet
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
	if _, ok := Odds[req.Type]; !ok {
		return nil, fmt.Errorf("%w: unknown bet type %q", domain.ErrInvalidBet, req.Type)
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

	if _, err := s.wallet.PlaceBet(ctx, playerID, amt, g.TableID, domain.CategoryBaccarat); err != nil {
		return nil, err
	}
	g.Bets = append(g.Bets, &Bet{ID: uuid.New().String(), Type: req.Type, Amount: amt, Payout: amt.Zero()})
	g.TotalBet = g.TotalBet.Add(amt)
	g.UpdatedAt = time.Now().UTC()
	return g.snapshot(), nil
}

// Deal plays the coup, settles every bet and credits the total
func (s *Service) Deal(ctx context.Context, playerID, gameID string) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: cannot deal in phase %s", domain.ErrIllegalAction, g.Phase)
	}
	if len(g.Bets) == 0 {
		return nil, fmt.Errorf("%w: no bets placed", domain.ErrIllegalAction)
	}

	coup, err := Play(g.shoe)
	if err != nil {
		return nil, err
	}
	g.Phase = PhaseDealing
	g.Coup = coup
	g.TotalWin = Settle(g.Bets, coup, decimal.NewFromFloat(g.Commission))
	g.Phase = PhaseFinished
	g.UpdatedAt = time.Now().UTC()

	if g.TotalWin.Amount > 0 {
		if _, err := s.wallet.RecordWin(ctx, playerID, g.TotalWin, g.TableID, domain.CategoryBaccarat); err != nil {
			s.audit.Log(ctx, audit.EventWalletFailure, domain.SeverityCritical,
				fmt.Sprintf("Failed to credit %d %s for %s", g.TotalWin.Amount, g.Currency, g.ID),
				map[string]interface{}{"game_id": g.ID, "amount": g.TotalWin.Amount},
				audit.WithPlayer(playerID), audit.WithGame(g.TableID), audit.WithComponent("baccarat"))
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
		Kind:      domain.CategoryBaccarat,
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

	s.log.Debug("coup dealt",
		zap.String("game_id", g.ID),
		zap.Int("player", g.Coup.Player.Value),
		zap.Int("banker", g.Coup.Banker.Value),
		zap.String("winner", string(g.Coup.Winner)),
		zap.Bool("natural", g.Coup.Natural),
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
		ID:         g.ID,
		PlayerID:   g.PlayerID,
		TableID:    g.TableID,
		Currency:   g.Currency,
		Commission: g.Commission,
		Phase:      g.Phase,
		TotalBet:   g.TotalBet,
		TotalWin:   g.TotalWin,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
	for _, b := range g.Bets {
		bc := *b
		cp.Bets = append(cp.Bets, &bc)
	}
	if g.Coup != nil {
		c := *g.Coup
		c.Player.Cards = append([]cards.Card(nil), g.Coup.Player.Cards...)
		c.Banker.Cards = append([]cards.Card(nil), g.Coup.Banker.Cards...)
		cp.Coup = &c
	}
	return cp
}
