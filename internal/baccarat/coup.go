// Package baccarat implements punto banco: the fixed drawing rules, main bets,
// commission on banker wins and pair side bets.
// GLI-19 §4.11: Table Games
package baccarat

import (
	"github.com/alexbotov/casino-engine/internal/cards"
)

// Side of a baccarat coup
type Side string

const (
	Player Side = "player"
	Banker Side = "banker"
	Tie    Side = "tie"
)

// Hand is a player or banker hand
type Hand struct {
	Cards []cards.Card `json:"cards"`
	Value int          `json:"value"`
}

// Value sums baccarat card values modulo 10
func Value(cs []cards.Card) int {
	v := 0
	for _, c := range cs {
		v += c.BaccaratValue()
	}
	return v % 10
}

func (h *Hand) add(c cards.Card) {
	h.Cards = append(h.Cards, c)
	h.Value = Value(h.Cards)
}

// Pair reports whether the first two cards share a rank
func (h *Hand) Pair() bool {
	return len(h.Cards) >= 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

// PerfectPair reports whether the first two cards are identical
func (h *Hand) PerfectPair() bool {
	return h.Pair() && h.Cards[0].Suit == h.Cards[1].Suit
}

// Coup is one fully dealt round
type Coup struct {
	Player      Hand        `json:"player"`
	Banker      Hand        `json:"banker"`
	PlayerThird *cards.Card `json:"player_third,omitempty"`
	BankerThird *cards.Card `json:"banker_third,omitempty"`
	Natural     bool        `json:"natural"`
	Winner      Side        `json:"winner"`
}

// cardsNeeded is the most a coup can deal
const cardsNeeded = 6

// BankerDraws applies the banker third card rule. playerThird is nil when
// the player stood.
func BankerDraws(banker int, playerThird *cards.Card) bool {
	if playerThird == nil {
		return banker <= 5
	}
	p := playerThird.BaccaratValue()
	switch banker {
	case 0, 1, 2:
		return true
	case 3:
		return p != 8
	case 4:
		return p >= 2 && p <= 7
	case 5:
		return p >= 4 && p <= 7
	case 6:
		return p == 6 || p == 7
	default:
		return false
	}
}

// Play deals a coup from the shoe: two cards each, alternating from the
// player. A natural 8 or 9 on either side ends the coup.
func Play(shoe *cards.Shoe) (*Coup, error) {
	if shoe.Remaining() < cardsNeeded {
		return nil, cards.ErrShoeExhausted
	}

	c := &Coup{}
	dealt, _ := shoe.DealN(4)
	c.Player.add(dealt[0])
	c.Banker.add(dealt[1])
	c.Player.add(dealt[2])
	c.Banker.add(dealt[3])

	if c.Player.Value >= 8 || c.Banker.Value >= 8 {
		c.Natural = true
		c.Winner = winner(c.Player.Value, c.Banker.Value)
		return c, nil
	}

	if c.Player.Value <= 5 {
		card, _ := shoe.Deal()
		c.PlayerThird = &card
		c.Player.add(card)
	}
	if BankerDraws(c.Banker.Value, c.PlayerThird) {
		card, _ := shoe.Deal()
		c.BankerThird = &card
		c.Banker.add(card)
	}

	c.Winner = winner(c.Player.Value, c.Banker.Value)
	return c, nil
}

func winner(player, banker int) Side {
	switch {
	case player > banker:
		return Player
	case banker > player:
		return Banker
	default:
		return Tie
	}
}
