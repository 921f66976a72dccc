package blackjack

import (
	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/cards"
	"github.com/alexbotov/casino-engine/internal/domain"
)

// Result is the settled outcome of one hand
type Result string

const (
	ResultWin       Result = "win"
	ResultLose      Result = "lose"
	ResultPush      Result = "push"
	ResultBlackjack Result = "blackjack"
	ResultSurrender Result = "surrender"
)

// Hand is a player or dealer hand
type Hand struct {
	Cards       []cards.Card `json:"cards"`
	Bet         domain.Money `json:"bet"`
	Value       int          `json:"value"`
	Soft        bool         `json:"soft"`
	Blackjack   bool         `json:"blackjack"`
	Busted      bool         `json:"busted"`
	Stood       bool         `json:"stood"`
	Doubled     bool         `json:"doubled,omitempty"`
	Surrendered bool         `json:"surrendered,omitempty"`
	FromSplit   bool         `json:"from_split,omitempty"`
	Result      Result       `json:"result,omitempty"`
	Payout      domain.Money `json:"payout"`
}

// Evaluate counts aces as 11, reducing them to 1 one at a time while the
// total is over 21. Soft means an ace is still counted as 11.
func Evaluate(cs []cards.Card) (value int, soft bool) {
	aces := 0
	for _, c := range cs {
		value += c.BlackjackValue()
		if c.IsAce() {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value, aces > 0
}

func (h *Hand) add(c cards.Card) {
	h.Cards = append(h.Cards, c)
	h.recompute()
}

func (h *Hand) recompute() {
	h.Value, h.Soft = Evaluate(h.Cards)
	// split hands never count as a natural
	h.Blackjack = h.Value == 21 && len(h.Cards) == 2 && !h.FromSplit
	h.Busted = h.Value > 21
	if h.Busted {
		h.Stood = true
	}
}

func (h *Hand) pair() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

func (h *Hand) clone() *Hand {
	cp := *h
	cp.Cards = append([]cards.Card(nil), h.Cards...)
	return &cp
}

// dealerHits reports whether the dealer draws on the hand
func dealerHits(h *Hand, rules Rules) bool {
	if h.Value < 17 {
		return true
	}
	return h.Value == 17 && h.Soft && !rules.DealerStandsOnSoft17
}

// Settle decides one player hand against the finished dealer hand. The
// checks run in a fixed order and the first that applies decides.
// The payout is the total returned, stake included.
func Settle(h, dealer *Hand, natural decimal.Decimal) (Result, domain.Money) {
	switch {
	case h.Busted:
		return ResultLose, h.Bet.Zero()
	case h.Blackjack:
		if dealer.Blackjack {
			return ResultPush, h.Bet
		}
		return ResultBlackjack, h.Bet.Mul(natural)
	case dealer.Blackjack:
		return ResultLose, h.Bet.Zero()
	case dealer.Busted:
		return ResultWin, h.Bet.Times(2)
	case h.Value > dealer.Value:
		return ResultWin, h.Bet.Times(2)
	case h.Value == dealer.Value:
		return ResultPush, h.Bet
	default:
		return ResultLose, h.Bet.Zero()
	}
}
