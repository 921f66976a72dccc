package blackjack

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

// Phase of a blackjack game
type Phase string

const (
	PhaseBetting    Phase = "betting"
	PhaseDealing    Phase = "dealing"
	PhasePlaying    Phase = "playing"
	PhaseDealerPlay Phase = "dealer_play"
	PhaseFinished   Phase = "finished"
)

// Action is a player decision on the active hand
type Action string

const (
	ActionHit       Action = "hit"
	ActionStand     Action = "stand"
	ActionDouble    Action = "double"
	ActionSplit     Action = "split"
	ActionSurrender Action = "surrender"
	ActionInsurance Action = "insurance"
)

// ActionRequest carries a player decision. Amount is only read for insurance.
type ActionRequest struct {
	Action Action       `json:"action"`
	Amount domain.Money `json:"amount"`
}

// Game is one blackjack round at a table
type Game struct {
	ID               string       `json:"id"`
	PlayerID         string       `json:"player_id"`
	TableID          string       `json:"table_id"`
	Currency         string       `json:"currency"`
	Phase            Phase        `json:"phase"`
	Rules            Rules        `json:"rules"`
	Hands            []*Hand      `json:"hands"`
	Dealer           *Hand        `json:"dealer,omitempty"`
	HoleCardHidden   bool         `json:"hole_card_hidden,omitempty"`
	Active           int          `json:"active_hand"`
	Actions          []Action     `json:"actions,omitempty"`
	Insurance        domain.Money `json:"insurance"`
	InsurancePayout  domain.Money `json:"insurance_payout"`
	InsuranceSettled bool         `json:"insurance_settled,omitempty"`
	TotalBet         domain.Money `json:"total_bet"`
	TotalWin         domain.Money `json:"total_win"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	mu       sync.Mutex
	shoe     *cards.Shoe
	credited domain.Money
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

// Service runs blackjack games. Actions on one game are serialized by the
// game's own lock; different games proceed in parallel.
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

// NewService creates a blackjack service over the given tables
func NewService(tables []*Table, rngSvc *rng.Service, w wallet.Wallet, rec audit.Recorder,
	sessions *session.Tracker, log *zap.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		tables:   make(map[string]*Table),
		wallet:   w,
		audit:    rec,
		sessions: sessions,
		log:      log.Named("blackjack"),
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
			return nil, fmt.Errorf("duplicate blackjack table %s", t.ID)
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

// StartGame opens a new game in the betting phase with a fresh shoe
func (s *Service) StartGame(ctx context.Context, playerID, tableID, currency string) (*Game, error) {
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
		ID:        fmt.Sprintf("blackjack-%d-%s", now.UnixMilli(), uuid.New().String()[:8]),
		PlayerID:  playerID,
		TableID:   t.ID,
		Currency:  currency,
		Phase:     PhaseBetting,
		Rules:     t.Rules,
		CreatedAt: now,
		UpdatedAt: now,
		shoe:      shoe,
	}
	g.Insurance = domain.Cents(0, currency)
	g.InsurancePayout = g.Insurance
	g.TotalBet = g.Insurance
	g.TotalWin = g.Insurance
	g.credited = g.Insurance

	s.mu.Lock()
	s.evictLocked(now)
	s.games[g.ID] = g
	s.mu.Unlock()

	s.log.Debug("game started", zap.String("game_id", g.ID), zap.String("player_id", playerID), zap.String("table_id", t.ID))
	return g.snapshot(), nil
}

func (s *Service) lookup(playerID, gameID string) (*Game, error) {
	s.mu.RLock()
	g, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok || g.PlayerID != playerID {
		return nil, fmt.Errorf("%w: blackjack game %s", domain.ErrGameNotFound, gameID)
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

// PlaceBet validates and debits the bet, then deals two cards to the player
// and two to the dealer. Naturals settle the round immediately.
func (s *Service) PlaceBet(ctx context.Context, playerID, gameID string, amount domain.Money) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: bets are closed in phase %s", domain.ErrIllegalAction, g.Phase)
	}
	if amount.Currency != g.Currency {
		return nil, fmt.Errorf("%w: game plays in %s", domain.ErrInvalidBet, g.Currency)
	}
	t, err := s.Table(g.TableID)
	if err != nil {
		return nil, err
	}
	if err := t.CheckBet(amount); err != nil {
		return nil, err
	}
	if g.shoe.Remaining() < 4 {
		return nil, cards.ErrShoeExhausted
	}

	if _, err := s.wallet.PlaceBet(ctx, playerID, amount, g.TableID, domain.CategoryBlackjack); err != nil {
		return nil, err
	}
	g.TotalBet = g.TotalBet.Add(amount)

	g.Phase = PhaseDealing
	dealt, _ := g.shoe.DealN(4)
	player := &Hand{Bet: amount, Payout: amount.Zero()}
	dealer := &Hand{Bet: amount.Zero(), Payout: amount.Zero()}
	player.add(dealt[0])
	dealer.add(dealt[1])
	player.add(dealt[2])
	dealer.add(dealt[3])
	g.Hands = []*Hand{player}
	g.Dealer = dealer
	g.Active = 0
	g.touch()

	// With an ace showing and insurance on offer the dealer does not peek;
	// insurance resolves the dealer natural when bought.
	peek := !(g.insuranceOffered() && dealer.Cards[0].IsAce())
	switch {
	case player.Blackjack, peek && dealer.Blackjack:
		player.Stood = true
		return s.settle(ctx, g)
	default:
		g.Phase = PhasePlaying
	}

	s.log.Debug("hand dealt",
		zap.String("game_id", g.ID),
		zap.Int("player", player.Value),
		zap.String("up_card", dealer.Cards[0].String()))
	return g.snapshot(), nil
}

// Action applies a player decision to the active hand
func (s *Service) Action(ctx context.Context, playerID, gameID string, req ActionRequest) (*Game, error) {
	g, err := s.lookup(playerID, gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Phase != PhasePlaying {
		return nil, fmt.Errorf("%w: %s not allowed in phase %s", domain.ErrIllegalAction, req.Action, g.Phase)
	}
	if !g.allowed(req.Action) {
		return nil, fmt.Errorf("%w: %s not allowed on hand %d", domain.ErrIllegalAction, req.Action, g.Active+1)
	}

	h := g.Hands[g.Active]
	switch req.Action {
	case ActionHit:
		c, err := g.shoe.Deal()
		if err != nil {
			return nil, err
		}
		h.add(c)

	case ActionStand:
		h.Stood = true

	case ActionDouble:
		if g.shoe.Remaining() < 1 {
			return nil, cards.ErrShoeExhausted
		}
		if _, err := s.wallet.PlaceBet(ctx, playerID, h.Bet, g.TableID, domain.CategoryBlackjack); err != nil {
			return nil, err
		}
		g.TotalBet = g.TotalBet.Add(h.Bet)
		h.Bet = h.Bet.Times(2)
		h.Doubled = true
		c, _ := g.shoe.Deal()
		h.add(c)
		h.Stood = true

	case ActionSplit:
		if g.shoe.Remaining() < 2 {
			return nil, cards.ErrShoeExhausted
		}
		if _, err := s.wallet.PlaceBet(ctx, playerID, h.Bet, g.TableID, domain.CategoryBlackjack); err != nil {
			return nil, err
		}
		g.TotalBet = g.TotalBet.Add(h.Bet)
		g.split(h)

	case ActionSurrender:
		refund := h.Bet.Mul(decimal.NewFromFloat(0.5))
		if refund.Amount > 0 {
			if _, err := s.wallet.RecordWin(ctx, playerID, refund, g.TableID, domain.CategoryBlackjack); err != nil {
				s.walletFailure(ctx, g, refund, err)
				return nil, fmt.Errorf("failed to refund surrender: %w", err)
			}
		}
		h.Surrendered = true
		h.Stood = true
		h.Result = ResultSurrender
		h.Payout = refund
		g.credited = g.credited.Add(refund)

	case ActionInsurance:
		if err := s.insure(ctx, g, req.Amount); err != nil {
			return nil, err
		}
		if g.Dealer.Blackjack {
			for _, hand := range g.Hands {
				hand.Stood = true
			}
			return s.settle(ctx, g)
		}
		g.touch()
		return g.snapshot(), nil
	}

	g.touch()
	if g.advance() {
		return s.settle(ctx, g)
	}
	return g.snapshot(), nil
}

// insure takes insurance of up to half the original bet. A dealer natural
// pays it 2:1 on the spot.
func (s *Service) insure(ctx context.Context, g *Game, amount domain.Money) error {
	limit := g.Hands[0].Bet.Amount / 2
	if amount.Currency != g.Currency || amount.Amount <= 0 || amount.Amount > limit {
		return fmt.Errorf("%w: insurance must be between 1 and %d %s", domain.ErrInvalidBet, limit, g.Currency)
	}
	if _, err := s.wallet.PlaceBet(ctx, g.PlayerID, amount, g.TableID, domain.CategoryBlackjack); err != nil {
		return err
	}
	g.Insurance = amount
	g.TotalBet = g.TotalBet.Add(amount)
	g.InsuranceSettled = true

	if !g.Dealer.Blackjack {
		return nil
	}
	g.InsurancePayout = amount.Times(3)
	if _, err := s.wallet.RecordWin(ctx, g.PlayerID, g.InsurancePayout, g.TableID, domain.CategoryBlackjack); err != nil {
		s.walletFailure(ctx, g, g.InsurancePayout, err)
		return fmt.Errorf("failed to pay insurance: %w", err)
	}
	g.credited = g.credited.Add(g.InsurancePayout)
	return nil
}

// settle plays the dealer hand, settles every player hand and credits the
// total once
func (s *Service) settle(ctx context.Context, g *Game) (*Game, error) {
	g.Phase = PhaseDealerPlay

	live := false
	for _, h := range g.Hands {
		if !h.Busted && !h.Surrendered {
			live = true
		}
	}
	natural := len(g.Hands) == 1 && g.Hands[0].Blackjack
	if live && !natural && !g.Dealer.Blackjack {
		for dealerHits(g.Dealer, g.Rules) {
			c, err := g.shoe.Deal()
			if err != nil {
				// stays in dealer_play; nothing has been credited yet
				return nil, err
			}
			g.Dealer.add(c)
		}
	}

	mult := g.Rules.naturalMultiplier()
	due := g.TotalBet.Zero()
	for _, h := range g.Hands {
		if h.Surrendered {
			continue
		}
		h.Result, h.Payout = Settle(h, g.Dealer, mult)
		due = due.Add(h.Payout)
	}

	g.TotalWin = g.credited.Add(due)
	g.Phase = PhaseFinished
	g.touch()

	if due.Amount > 0 {
		if _, err := s.wallet.RecordWin(ctx, g.PlayerID, due, g.TableID, domain.CategoryBlackjack); err != nil {
			s.walletFailure(ctx, g, due, err)
			return nil, fmt.Errorf("failed to credit win: %w", err)
		}
	}
	g.credited = g.TotalWin

	s.finish(ctx, g)
	return g.snapshot(), nil
}

func (s *Service) walletFailure(ctx context.Context, g *Game, amount domain.Money, err error) {
	s.log.Warn("wallet credit failed",
		zap.String("game_id", g.ID),
		zap.Int64("amount", amount.Amount),
		zap.Error(err))
	s.audit.Log(ctx, audit.EventWalletFailure, domain.SeverityCritical,
		fmt.Sprintf("Failed to credit %d %s for %s", amount.Amount, amount.Currency, g.ID),
		map[string]interface{}{"game_id": g.ID, "amount": amount.Amount},
		audit.WithPlayer(g.PlayerID), audit.WithGame(g.TableID), audit.WithComponent("blackjack"))
}

// finish records the round and updates the session. Failures are logged.
func (s *Service) finish(ctx context.Context, g *Game) {
	snap := g.snapshot()
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("failed to encode game", zap.String("game_id", g.ID), zap.Error(err))
	}
	rec := &domain.GameRecord{
		ID:        g.ID,
		Kind:      domain.CategoryBlackjack,
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

	s.log.Debug("game settled",
		zap.String("game_id", g.ID),
		zap.Int("hands", len(g.Hands)),
		zap.Int("dealer", g.Dealer.Value),
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

func (g *Game) touch() {
	g.UpdatedAt = time.Now().UTC()
}

func (g *Game) insuranceOffered() bool {
	return g.Rules.InsuranceAllowed && g.Dealer != nil && len(g.Dealer.Cards) > 0 && g.Dealer.Cards[0].IsAce()
}

// untouched reports whether the player has not acted since the deal
func (g *Game) untouched() bool {
	return len(g.Hands) == 1 && len(g.Hands[0].Cards) == 2 && !g.Hands[0].Stood
}

// allowed returns whether act is legal on the active hand
func (g *Game) allowed(act Action) bool {
	if g.Phase != PhasePlaying || g.Active >= len(g.Hands) {
		return false
	}
	h := g.Hands[g.Active]
	if h.Stood {
		return false
	}

	switch act {
	case ActionHit, ActionStand:
		return true
	case ActionDouble:
		if len(h.Cards) != 2 {
			return false
		}
		if h.FromSplit && !g.Rules.DoubleAfterSplit {
			return false
		}
		return g.Rules.DoubleOnAnyTwo || (h.Value >= 9 && h.Value <= 11)
	case ActionSplit:
		return h.pair() && len(g.Hands) < g.Rules.MaxSplitHands
	case ActionSurrender:
		return g.Rules.SurrenderAllowed && g.untouched()
	case ActionInsurance:
		return g.insuranceOffered() && !g.InsuranceSettled && g.untouched()
	}
	return false
}

// legal lists the actions available on the active hand
func (g *Game) legal() []Action {
	var out []Action
	for _, a := range []Action{ActionHit, ActionStand, ActionDouble, ActionSplit, ActionSurrender, ActionInsurance} {
		if g.allowed(a) {
			out = append(out, a)
		}
	}
	return out
}

// split moves the second card of h into a new hand right after it and deals
// one card to each
func (g *Game) split(h *Hand) {
	aces := h.Cards[0].IsAce()
	second := &Hand{
		Cards:     []cards.Card{h.Cards[1]},
		Bet:       h.Bet,
		Payout:    h.Bet.Zero(),
		FromSplit: true,
	}
	h.Cards = h.Cards[:1]
	h.FromSplit = true

	hands := make([]*Hand, 0, len(g.Hands)+1)
	hands = append(hands, g.Hands[:g.Active+1]...)
	hands = append(hands, second)
	hands = append(hands, g.Hands[g.Active+1:]...)
	g.Hands = hands

	dealt, _ := g.shoe.DealN(2)
	h.add(dealt[0])
	second.add(dealt[1])

	if aces && !g.Rules.ResplitAces {
		h.Stood = true
		second.Stood = true
	}
}

// advance moves past finished hands and reports whether all are done
func (g *Game) advance() bool {
	for g.Active < len(g.Hands) && g.Hands[g.Active].Stood {
		g.Active++
	}
	return g.Active >= len(g.Hands)
}

// snapshot copies the game for callers. The hole card stays hidden until
// the dealer plays.
func (g *Game) snapshot() *Game {
	cp := &Game{
		ID:               g.ID,
		PlayerID:         g.PlayerID,
		TableID:          g.TableID,
		Currency:         g.Currency,
		Phase:            g.Phase,
		Rules:            g.Rules,
		Active:           g.Active,
		Insurance:        g.Insurance,
		InsurancePayout:  g.InsurancePayout,
		InsuranceSettled: g.InsuranceSettled,
		TotalBet:         g.TotalBet,
		TotalWin:         g.TotalWin,
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}
	for _, h := range g.Hands {
		cp.Hands = append(cp.Hands, h.clone())
	}
	if g.Dealer != nil {
		cp.Dealer = g.Dealer.clone()
		if g.Phase == PhasePlaying {
			cp.HoleCardHidden = true
			cp.Dealer.Cards = cp.Dealer.Cards[:1]
			cp.Dealer.recompute()
		}
	}
	if g.Phase == PhasePlaying {
		cp.Actions = g.legal()
	}
	return cp
}
