// Package paytable holds the static configuration of each slot game:
// reel geometry, symbol table, paylines, bonus features and jackpots.
// GLI-19 §4.4.1: Paytable information
package paytable

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/domain"
)

var (
	ErrInvalidPaytable = errors.New("invalid paytable")
	ErrDuplicateGame   = errors.New("duplicate game id")
)

// Minimum winning lengths
const (
	MinLineRun     = 3
	MinClusterSize = 8
)

// Style selects how wins are evaluated
type Style string

const (
	StylePaylines Style = "paylines"
	StyleClusters Style = "clusters"
)

// Symbol is a reel symbol definition
type Symbol struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Value     int64  `json:"value" yaml:"value"`   // payout basis, percent of bet
	Rarity    int    `json:"rarity" yaml:"rarity"` // 1-100, higher is rarer
	IsWild    bool   `json:"is_wild,omitempty" yaml:"wild"`
	IsScatter bool   `json:"is_scatter,omitempty" yaml:"scatter"`
	IsBonus   bool   `json:"is_bonus,omitempty" yaml:"bonus"`
}

// SamplingWeight inverts rarity into a linear draw weight
func SamplingWeight(s Symbol) int {
	w := 101 - s.Rarity
	if w < 1 {
		return 1
	}
	return w
}

// Payline is a row index per reel, read left to right
type Payline struct {
	ID      int   `json:"id" yaml:"id"`
	Pattern []int `json:"pattern" yaml:"pattern"`
}

// TriggerType selects how a feature or jackpot is triggered
type TriggerType string

const (
	TriggerSymbolCount TriggerType = "symbol_count"
	TriggerRandom      TriggerType = "random"
)

// Trigger is the condition of a bonus feature or jackpot
type Trigger struct {
	Type        TriggerType `json:"type" yaml:"type"`
	Symbol      string      `json:"symbol,omitempty" yaml:"symbol"`
	Count       int         `json:"count,omitempty" yaml:"count"`
	Probability float64     `json:"probability,omitempty" yaml:"probability"`
}

// FeatureType names a bonus feature
type FeatureType string

const (
	FeatureFreeSpins      FeatureType = "free_spins"
	FeatureMultiplier     FeatureType = "multiplier"
	FeatureCascadingReels FeatureType = "cascading_reels"
)

// BonusFeature is a bonus rule. Multiplier pays Multiplier × bet when triggered.
type BonusFeature struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Type       FeatureType `json:"type" yaml:"type"`
	Trigger    Trigger     `json:"trigger" yaml:"trigger"`
	FreeSpins  int         `json:"free_spins,omitempty" yaml:"free_spins"`
	Multiplier int64       `json:"multiplier,omitempty" yaml:"multiplier"`
}

// JackpotType is progressive or fixed
type JackpotType string

const (
	JackpotProgressive JackpotType = "progressive"
	JackpotFixed       JackpotType = "fixed"
)

// JackpotDef is the static part of a jackpot. Runtime pool amounts live in
// the jackpot package.
type JackpotDef struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Type             JackpotType `json:"type" yaml:"type"`
	Currency         string      `json:"currency" yaml:"currency"`
	SeedAmount       int64       `json:"seed_amount" yaml:"seed_amount"`
	ContributionRate float64     `json:"contribution_rate" yaml:"contribution_rate"`
	Trigger          Trigger     `json:"trigger" yaml:"trigger"`
}

// Rate returns the contribution rate as a decimal
func (j JackpotDef) Rate() decimal.Decimal {
	return decimal.NewFromFloat(j.ContributionRate)
}

// Paytable is the complete static definition of one slot game
type Paytable struct {
	ID       string           `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Reels    int              `json:"reels" yaml:"reels"`
	Rows     int              `json:"rows" yaml:"rows"`
	Style    Style            `json:"style" yaml:"style"`
	Symbols  []Symbol         `json:"symbols" yaml:"symbols"`
	Paylines []Payline        `json:"paylines,omitempty" yaml:"paylines"`
	RTP      float64          `json:"rtp" yaml:"rtp"`
	MinBet   map[string]int64 `json:"min_bet" yaml:"min_bet"`
	MaxBet   map[string]int64 `json:"max_bet" yaml:"max_bet"`
	Features []BonusFeature   `json:"features,omitempty" yaml:"features"`
	Jackpots []JackpotDef     `json:"jackpots,omitempty" yaml:"jackpots"`
}

// Symbol looks up a symbol by id
func (p *Paytable) Symbol(id string) (Symbol, bool) {
	for _, s := range p.Symbols {
		if s.ID == id {
			return s, true
		}
	}
	return Symbol{}, false
}

// Cascades reports whether the game declares a cascading_reels feature
func (p *Paytable) Cascades() bool {
	for _, f := range p.Features {
		if f.Type == FeatureCascadingReels {
			return true
		}
	}
	return false
}

// Weights returns the sampling weight of every symbol, in symbol order
func (p *Paytable) Weights() []int {
	w := make([]int, len(p.Symbols))
	for i, s := range p.Symbols {
		w[i] = SamplingWeight(s)
	}
	return w
}

// CheckBet validates a bet against the per-currency limits
func (p *Paytable) CheckBet(bet domain.Money) error {
	min, ok := p.MinBet[bet.Currency]
	if !ok {
		return fmt.Errorf("%w: currency %s not offered on %s", domain.ErrInvalidBet, bet.Currency, p.ID)
	}
	max := p.MaxBet[bet.Currency]
	if bet.Amount < min || bet.Amount > max {
		return fmt.Errorf("%w: %d outside [%d, %d] %s", domain.ErrInvalidBet, bet.Amount, min, max, bet.Currency)
	}
	return nil
}

// Game returns the catalog view of the paytable
func (p *Paytable) Game() *domain.Game {
	return &domain.Game{
		ID:             p.ID,
		Name:           p.Name,
		Category:       domain.CategorySlots,
		TheoreticalRTP: p.RTP,
		MinBet:         p.MinBet,
		MaxBet:         p.MaxBet,
		Enabled:        true,
	}
}

// Validate checks geometry, symbols, paylines, features and jackpots for consistency
func (p *Paytable) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPaytable)
	}
	if p.Reels <= 0 || p.Rows <= 0 {
		return fmt.Errorf("%w: %s has %dx%d geometry", ErrInvalidPaytable, p.ID, p.Reels, p.Rows)
	}
	if len(p.Symbols) == 0 {
		return fmt.Errorf("%w: %s has no symbols", ErrInvalidPaytable, p.ID)
	}

	seen := make(map[string]bool)
	for _, s := range p.Symbols {
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("%w: %s has empty or duplicate symbol %q", ErrInvalidPaytable, p.ID, s.ID)
		}
		if s.Rarity < 1 || s.Rarity > 100 {
			return fmt.Errorf("%w: symbol %s rarity %d outside 1-100", ErrInvalidPaytable, s.ID, s.Rarity)
		}
		if s.Value < 0 {
			return fmt.Errorf("%w: symbol %s has negative value", ErrInvalidPaytable, s.ID)
		}
		seen[s.ID] = true
	}

	switch p.Style {
	case StylePaylines:
		if len(p.Paylines) == 0 {
			return fmt.Errorf("%w: %s has no paylines", ErrInvalidPaytable, p.ID)
		}
		ids := make(map[int]bool)
		for _, l := range p.Paylines {
			if ids[l.ID] {
				return fmt.Errorf("%w: duplicate payline %d", ErrInvalidPaytable, l.ID)
			}
			ids[l.ID] = true
			if len(l.Pattern) != p.Reels {
				return fmt.Errorf("%w: payline %d spans %d reels, want %d", ErrInvalidPaytable, l.ID, len(l.Pattern), p.Reels)
			}
			for _, row := range l.Pattern {
				if row < 0 || row >= p.Rows {
					return fmt.Errorf("%w: payline %d row %d out of range", ErrInvalidPaytable, l.ID, row)
				}
			}
		}
	case StyleClusters:
	default:
		return fmt.Errorf("%w: unknown style %q", ErrInvalidPaytable, p.Style)
	}

	if len(p.MinBet) == 0 {
		return fmt.Errorf("%w: %s has no bet limits", ErrInvalidPaytable, p.ID)
	}
	for cur, min := range p.MinBet {
		max, ok := p.MaxBet[cur]
		if !ok || min <= 0 || max < min {
			return fmt.Errorf("%w: bad %s limits on %s", ErrInvalidPaytable, cur, p.ID)
		}
	}

	for _, f := range p.Features {
		switch f.Type {
		case FeatureCascadingReels:
			continue
		case FeatureFreeSpins, FeatureMultiplier:
		default:
			return fmt.Errorf("%w: feature %s has unknown type %q", ErrInvalidPaytable, f.ID, f.Type)
		}
		if err := p.validateTrigger(f.Trigger); err != nil {
			return fmt.Errorf("feature %s: %w", f.ID, err)
		}
	}

	for _, j := range p.Jackpots {
		if j.Type != JackpotProgressive && j.Type != JackpotFixed {
			return fmt.Errorf("%w: jackpot %s has unknown type %q", ErrInvalidPaytable, j.ID, j.Type)
		}
		if j.Currency == "" || j.SeedAmount < 0 || j.ContributionRate < 0 || j.ContributionRate >= 1 {
			return fmt.Errorf("%w: jackpot %s has bad amounts", ErrInvalidPaytable, j.ID)
		}
		if err := p.validateTrigger(j.Trigger); err != nil {
			return fmt.Errorf("jackpot %s: %w", j.ID, err)
		}
	}

	return nil
}

func (p *Paytable) validateTrigger(t Trigger) error {
	switch t.Type {
	case TriggerSymbolCount:
		if _, ok := p.Symbol(t.Symbol); !ok {
			return fmt.Errorf("%w: unknown trigger symbol %q", ErrInvalidPaytable, t.Symbol)
		}
		if t.Count <= 0 || t.Count > p.Reels*p.Rows {
			return fmt.Errorf("%w: trigger count %d out of range", ErrInvalidPaytable, t.Count)
		}
	case TriggerRandom:
		if t.Probability <= 0 || t.Probability > 1 {
			return fmt.Errorf("%w: trigger probability %f out of range", ErrInvalidPaytable, t.Probability)
		}
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidPaytable, t.Type)
	}
	return nil
}
