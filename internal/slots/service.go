package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/jackpot"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

// SpinRequest contains the data for one spin
type SpinRequest struct {
	PlayerID string       `json:"player_id"`
	GameID   string       `json:"game_id"`
	Bet      domain.Money `json:"bet"`
	Paylines []int        `json:"paylines,omitempty"`
}

// BonusAward is a triggered bonus feature and what it paid
type BonusAward struct {
	FeatureID string               `json:"feature_id"`
	Type      paytable.FeatureType `json:"type"`
	FreeSpins int                  `json:"free_spins,omitempty"`
	Payout    domain.Money         `json:"payout"`
}

// JackpotWin is a paid jackpot
type JackpotWin struct {
	JackpotID string               `json:"jackpot_id"`
	Type      paytable.JackpotType `json:"type"`
	Amount    domain.Money         `json:"amount"`
}

// SpinResult is one resolved spin.
// TotalWin = LineWin + Bonus.Payout + Jackpot.Amount + sum of Cascades[i].Win
type SpinResult struct {
	ID            string        `json:"id"`
	PlayerID      string        `json:"player_id"`
	GameID        string        `json:"game_id"`
	Bet           domain.Money  `json:"bet"`
	FreeSpin      bool          `json:"free_spin"`
	Grid          Grid          `json:"grid"`
	Wins          []Win         `json:"wins"`
	LineWin       domain.Money  `json:"line_win"`
	Bonus         *BonusAward   `json:"bonus,omitempty"`
	Jackpot       *JackpotWin   `json:"jackpot,omitempty"`
	Cascades      []CascadeStep `json:"cascades,omitempty"`
	TotalWin      domain.Money  `json:"total_win"`
	Balance       domain.Money  `json:"balance"`
	FreeSpinsLeft int           `json:"free_spins_left"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Option configures the service
type Option func(*Service)

// WithLargeWin sets the win amount, in minor units, that raises a large win event
func WithLargeWin(amount int64) Option {
	return func(s *Service) {
		s.largeWin = amount
	}
}

// Service runs slot spins against the wallet, jackpot pools and session tracker
type Service struct {
	registry *paytable.Registry
	resolver *Resolver
	wallet   wallet.Wallet
	pools    jackpot.Store
	audit    audit.Recorder
	sessions *session.Tracker
	log      *zap.Logger
	largeWin int64

	mu        sync.Mutex
	freeSpins map[string]*freeSpinBank
}

// NewService creates a new slot service
func NewService(registry *paytable.Registry, rngSvc *rng.Service, w wallet.Wallet, pools jackpot.Store,
	rec audit.Recorder, sessions *session.Tracker, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		resolver:  NewResolver(rngSvc),
		wallet:    w,
		pools:     pools,
		audit:     rec,
		sessions:  sessions,
		log:       log.Named("slots"),
		largeWin:  10000,
		freeSpins: make(map[string]*freeSpinBank),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsurePools creates every progressive pool of the catalog at its seed
func (s *Service) EnsurePools(ctx context.Context) error {
	for _, p := range s.registry.All() {
		for _, j := range p.Jackpots {
			if j.Type != paytable.JackpotProgressive {
				continue
			}
			if err := s.pools.Ensure(ctx, j.ID, decimal.NewFromInt(j.SeedAmount)); err != nil {
				return err
			}
		}
	}
	return nil
}

func freeSpinKey(playerID, gameID string) string {
	return playerID + "|" + gameID
}

// freeSpinBank holds banked free spins and the stake they play at
type freeSpinBank struct {
	left  int
	bet   domain.Money
	lines []paytable.Payline
}

// FreeSpins returns the free spins a player has left on a game
func (s *Service) FreeSpins(playerID, gameID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.freeSpins[freeSpinKey(playerID, gameID)]; ok {
		return b.left
	}
	return 0
}

// takeFreeSpin consumes a banked free spin and returns the bet and paylines
// of the spin that won it
func (s *Service) takeFreeSpin(playerID, gameID string) (domain.Money, []paytable.Payline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := freeSpinKey(playerID, gameID)
	b, ok := s.freeSpins[key]
	if !ok {
		return domain.Money{}, nil, false
	}
	b.left--
	if b.left == 0 {
		delete(s.freeSpins, key)
	}
	return b.bet, b.lines, true
}

// awardFreeSpins banks n free spins. A retrigger keeps the stake already banked.
func (s *Service) awardFreeSpins(playerID, gameID string, n int, bet domain.Money, lines []paytable.Payline) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := freeSpinKey(playerID, gameID)
	b, ok := s.freeSpins[key]
	if !ok {
		b = &freeSpinBank{bet: bet, lines: lines}
		s.freeSpins[key] = b
	}
	b.left += n
	return b.left
}

// Spin validates the bet, debits it, resolves the spin and credits the win.
// Nothing is debited when validation fails; a failed debit aborts the spin.
// A free spin plays at the bet and paylines of the spin that awarded it,
// whatever the request carries.
func (s *Service) Spin(ctx context.Context, req SpinRequest) (*SpinResult, error) {
	p, err := s.registry.Get(req.GameID)
	if err != nil {
		return nil, err
	}
	if err := p.CheckBet(req.Bet); err != nil {
		return nil, err
	}
	lines, err := ActivePaylines(p, req.Paylines)
	if err != nil {
		return nil, err
	}

	stake := req.Bet
	charged := req.Bet
	var balance domain.Money
	bankedBet, bankedLines, free := s.takeFreeSpin(req.PlayerID, p.ID)
	if free {
		stake, lines = bankedBet, bankedLines
		charged = stake.Zero()
	} else {
		balance, err = s.wallet.PlaceBet(ctx, req.PlayerID, stake, p.ID, domain.CategorySlots)
		if err != nil {
			return nil, err
		}
	}
	// Every spin feeds the progressive pools, free spins at their banked stake
	s.contribute(ctx, p, stake)

	out, err := s.resolver.Resolve(p, stake, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spin: %w", err)
	}

	now := time.Now().UTC()
	result := &SpinResult{
		ID:        fmt.Sprintf("spin_%d_%s_%s", now.UnixNano(), req.PlayerID, p.ID),
		PlayerID:  req.PlayerID,
		GameID:    p.ID,
		Bet:       stake,
		FreeSpin:  free,
		Grid:      out.Grid,
		Wins:      out.Wins,
		LineWin:   out.LineWin,
		Cascades:  out.Cascades,
		Balance:   balance,
		CreatedAt: now,
	}
	total := out.LineWin

	if out.Bonus != nil {
		award := &BonusAward{
			FeatureID: out.Bonus.ID,
			Type:      out.Bonus.Type,
			FreeSpins: out.Bonus.FreeSpins,
			Payout:    stake.Times(out.Bonus.Multiplier),
		}
		if award.FreeSpins > 0 {
			s.awardFreeSpins(req.PlayerID, p.ID, award.FreeSpins, stake, lines)
		}
		result.Bonus = award
		total = total.Add(award.Payout)
	}

	if out.Jackpot != nil {
		if jw := s.payJackpot(ctx, req.PlayerID, p.ID, out.Jackpot); jw != nil {
			result.Jackpot = jw
			total = total.Add(jw.Amount)
		}
	}

	for _, step := range out.Cascades {
		total = total.Add(step.Win)
	}
	result.TotalWin = total
	result.FreeSpinsLeft = s.FreeSpins(req.PlayerID, p.ID)

	// Credit win if any (GLI-19 §4.3.3.d)
	if total.Amount > 0 {
		balance, err = s.wallet.RecordWin(ctx, req.PlayerID, total, p.ID, domain.CategorySlots)
		if err != nil {
			if result.Jackpot != nil {
				s.restoreJackpot(ctx, p, result.Jackpot)
			}
			s.audit.Log(ctx, audit.EventWalletFailure, domain.SeverityCritical,
				fmt.Sprintf("Failed to credit %d %s for %s", total.Amount, total.Currency, result.ID),
				map[string]interface{}{"spin_id": result.ID, "win": total.Amount},
				audit.WithPlayer(req.PlayerID), audit.WithGame(p.ID))
			return nil, fmt.Errorf("failed to credit win: %w", err)
		}
		result.Balance = balance
	} else if free {
		if br, ok := s.wallet.(wallet.BalanceReader); ok {
			if bal, err := br.GetBalance(ctx, req.PlayerID, stake.Currency); err == nil {
				result.Balance = bal
			}
		}
	}

	s.finish(ctx, result, charged)
	return result, nil
}

// contribute adds the bet share of every progressive pool in the bet currency
func (s *Service) contribute(ctx context.Context, p *paytable.Paytable, bet domain.Money) {
	for _, j := range p.Jackpots {
		if j.Type != paytable.JackpotProgressive || j.Currency != bet.Currency {
			continue
		}
		share := bet.Decimal().Mul(j.Rate())
		if _, err := s.pools.Contribute(ctx, j.ID, share); err != nil {
			s.log.Error("jackpot contribution failed",
				zap.String("jackpot_id", j.ID),
				zap.String("share", share.String()),
				zap.Error(err))
		}
	}
}

// payJackpot claims a progressive pool or pays a fixed award. The fraction
// of a minor unit left after truncation goes back into the pool.
func (s *Service) payJackpot(ctx context.Context, playerID, gameID string, def *paytable.JackpotDef) *JackpotWin {
	win := &JackpotWin{JackpotID: def.ID, Type: def.Type}

	switch def.Type {
	case paytable.JackpotFixed:
		win.Amount = domain.Cents(def.SeedAmount, def.Currency)
	case paytable.JackpotProgressive:
		seed := decimal.NewFromInt(def.SeedAmount)
		pool, err := s.pools.Claim(ctx, def.ID, seed)
		if err != nil {
			s.log.Error("jackpot claim failed", zap.String("jackpot_id", def.ID), zap.Error(err))
			s.audit.Log(ctx, audit.EventSystemError, domain.SeverityError,
				fmt.Sprintf("Jackpot %s triggered but could not be claimed", def.ID),
				map[string]string{"error": err.Error()},
				audit.WithPlayer(playerID), audit.WithGame(gameID))
			return nil
		}
		win.Amount = domain.MoneyFromDecimal(pool, def.Currency)
		if frac := pool.Sub(win.Amount.Decimal()); frac.IsPositive() {
			if _, err := s.pools.Contribute(ctx, def.ID, frac); err != nil {
				s.log.Error("jackpot remainder contribution failed",
					zap.String("jackpot_id", def.ID),
					zap.String("remainder", frac.String()),
					zap.Error(err))
			}
		}
	default:
		return nil
	}

	s.log.Info("jackpot won",
		zap.String("jackpot_id", def.ID),
		zap.String("player_id", playerID),
		zap.Int64("amount", win.Amount.Amount),
		zap.String("currency", win.Amount.Currency))
	s.audit.Log(ctx, audit.EventJackpotWon, domain.SeverityInfo,
		fmt.Sprintf("Jackpot %s won: %.2f %s", def.ID, win.Amount.Float64(), win.Amount.Currency),
		map[string]interface{}{"jackpot_id": def.ID, "amount": win.Amount.Amount},
		audit.WithPlayer(playerID), audit.WithGame(gameID), audit.WithComponent("slots"))

	return win
}

// restoreJackpot puts an unpaid progressive win back on top of the pool,
// which was reset to its seed when claimed
func (s *Service) restoreJackpot(ctx context.Context, p *paytable.Paytable, jw *JackpotWin) {
	if jw.Type != paytable.JackpotProgressive {
		return
	}
	for _, j := range p.Jackpots {
		if j.ID != jw.JackpotID {
			continue
		}
		unpaid := jw.Amount.Decimal().Sub(decimal.NewFromInt(j.SeedAmount))
		if !unpaid.IsPositive() {
			return
		}
		if _, err := s.pools.Contribute(ctx, j.ID, unpaid); err != nil {
			s.log.Error("failed to restore unpaid jackpot",
				zap.String("jackpot_id", j.ID),
				zap.String("amount", unpaid.String()),
				zap.Error(err))
			return
		}
		s.log.Warn("unpaid jackpot restored to pool",
			zap.String("jackpot_id", j.ID),
			zap.String("amount", unpaid.String()))
		return
	}
}

// finish records the spin, updates the session and raises large win events.
// The spin is settled by now, so failures here are logged rather than returned.
func (s *Service) finish(ctx context.Context, result *SpinResult, charged domain.Money) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Error("failed to encode spin", zap.String("spin_id", result.ID), zap.Error(err))
	}
	rec := &domain.GameRecord{
		ID:        result.ID,
		Kind:      domain.CategorySlots,
		PlayerID:  result.PlayerID,
		GameID:    result.GameID,
		Bet:       charged,
		Win:       result.TotalWin,
		Payload:   payload,
		CreatedAt: result.CreatedAt,
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		s.log.Error("failed to record spin", zap.String("spin_id", result.ID), zap.Error(err))
	}

	if _, err := s.sessions.Record(ctx, result.PlayerID, result.GameID, charged, result.TotalWin); err != nil {
		s.log.Error("failed to update session", zap.String("spin_id", result.ID), zap.Error(err))
	}

	// Audit log for large wins (GLI-19 §2.8.8)
	if s.largeWin > 0 && result.TotalWin.Amount >= s.largeWin {
		s.audit.Log(ctx, audit.EventLargeWin, domain.SeverityInfo,
			fmt.Sprintf("Large win: %.2f %s", result.TotalWin.Float64(), result.TotalWin.Currency),
			map[string]interface{}{
				"spin_id": result.ID,
				"win":     result.TotalWin.Amount,
				"bet":     result.Bet.Amount,
			},
			audit.WithPlayer(result.PlayerID), audit.WithGame(result.GameID))
	}

	s.log.Debug("spin resolved",
		zap.String("spin_id", result.ID),
		zap.Int64("bet", charged.Amount),
		zap.Int64("win", result.TotalWin.Amount),
		zap.Int("wins", len(result.Wins)),
		zap.Int("cascades", len(result.Cascades)),
		zap.Bool("free_spin", result.FreeSpin))
}

// Pools returns the current amount of every progressive pool
func (s *Service) Pools(ctx context.Context) (map[string]decimal.Decimal, error) {
	return s.pools.Snapshot(ctx)
}
