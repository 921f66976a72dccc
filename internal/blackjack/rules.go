// Package blackjack implements the blackjack table: betting, dealing, player
// actions, dealer play and settlement under configurable house rules.
// GLI-19 §4.11: Table Games
package blackjack

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// Rules are the house rules of a table
type Rules struct {
	DealerStandsOnSoft17 bool    `json:"dealer_stands_on_soft17" yaml:"dealer_stands_on_soft17"`
	BlackjackPays        float64 `json:"blackjack_pays" yaml:"blackjack_pays"`
	DoubleAfterSplit     bool    `json:"double_after_split" yaml:"double_after_split"`
	ResplitAces          bool    `json:"resplit_aces" yaml:"resplit_aces"`
	SurrenderAllowed     bool    `json:"surrender_allowed" yaml:"surrender_allowed"`
	InsuranceAllowed     bool    `json:"insurance_allowed" yaml:"insurance_allowed"`
	MaxSplitHands        int     `json:"max_split_hands" yaml:"max_split_hands"`
	DoubleOnAnyTwo       bool    `json:"double_on_any_two" yaml:"double_on_any_two"`
}

// DefaultRules returns a 3:2, dealer stands on soft 17 game with up to 4 hands
func DefaultRules() Rules {
	return Rules{
		DealerStandsOnSoft17: true,
		BlackjackPays:        1.5,
		DoubleAfterSplit:     true,
		ResplitAces:          false,
		SurrenderAllowed:     true,
		InsuranceAllowed:     true,
		MaxSplitHands:        4,
		DoubleOnAnyTwo:       true,
	}
}

// naturalMultiplier is the total returned on a winning natural, stake included
func (r Rules) naturalMultiplier() decimal.Decimal {
	return decimal.NewFromInt(1).Add(decimal.NewFromFloat(r.BlackjackPays))
}

// Table is a blackjack table definition
type Table struct {
	ID     string           `json:"id" yaml:"id"`
	Name   string           `json:"name" yaml:"name"`
	Decks  int              `json:"decks" yaml:"decks"`
	MinBet map[string]int64 `json:"min_bet" yaml:"min_bet"`
	MaxBet map[string]int64 `json:"max_bet" yaml:"max_bet"`
	Rules  Rules            `json:"rules" yaml:"rules"`
}

// DefaultTables returns the built-in blackjack tables
func DefaultTables() []*Table {
	vegas := DefaultRules()
	vegas.DealerStandsOnSoft17 = false
	vegas.BlackjackPays = 1.2
	vegas.SurrenderAllowed = false

	return []*Table{
		{
			ID:     "blackjack-classic",
			Name:   "Classic Blackjack",
			Decks:  6,
			MinBet: map[string]int64{"USD": 100, "EUR": 100},
			MaxBet: map[string]int64{"USD": 50000, "EUR": 50000},
			Rules:  DefaultRules(),
		},
		{
			ID:     "blackjack-vegas",
			Name:   "Vegas Strip 6:5",
			Decks:  8,
			MinBet: map[string]int64{"USD": 500},
			MaxBet: map[string]int64{"USD": 100000},
			Rules:  vegas,
		},
	}
}

// Validate checks the table definition
func (t *Table) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("blackjack table missing id")
	}
	if t.Decks <= 0 {
		return fmt.Errorf("blackjack table %s needs at least one deck", t.ID)
	}
	if t.Rules.BlackjackPays <= 0 {
		return fmt.Errorf("blackjack table %s: blackjack_pays must be positive", t.ID)
	}
	if t.Rules.MaxSplitHands < 1 {
		return fmt.Errorf("blackjack table %s: max_split_hands must be at least 1", t.ID)
	}
	if len(t.MinBet) == 0 {
		return fmt.Errorf("blackjack table %s has no bet limits", t.ID)
	}
	for cur, min := range t.MinBet {
		if max, ok := t.MaxBet[cur]; !ok || min <= 0 || max < min {
			return fmt.Errorf("blackjack table %s has bad %s limits", t.ID, cur)
		}
	}
	return nil
}

// CheckBet validates a bet against the table limits
func (t *Table) CheckBet(bet domain.Money) error {
	min, ok := t.MinBet[bet.Currency]
	if !ok {
		return fmt.Errorf("%w: currency %s not offered on %s", domain.ErrInvalidBet, bet.Currency, t.ID)
	}
	if bet.Amount < min || bet.Amount > t.MaxBet[bet.Currency] {
		return fmt.Errorf("%w: %d outside [%d, %d] %s", domain.ErrInvalidBet, bet.Amount, min, t.MaxBet[bet.Currency], bet.Currency)
	}
	return nil
}

// Game returns the catalog view of the table
func (t *Table) Game() *domain.Game {
	return &domain.Game{
		ID:       t.ID,
		Name:     t.Name,
		Category: domain.CategoryBlackjack,
		MinBet:   t.MinBet,
		MaxBet:   t.MaxBet,
		Enabled:  true,
	}
}
