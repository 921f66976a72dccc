// Package cards provides playing cards, decks and multi-deck shoes for the
// table games.
package cards

import (
	"errors"
	"fmt"

	"github.com/alexbotov/casino-engine/internal/rng"
)

// ErrShoeExhausted is returned when dealing past the last card of a shoe
var ErrShoeExhausted = errors.New("shoe exhausted")

// Suit of a playing card
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits in deck construction order
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank of a playing card
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks in deck construction order
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var pips = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8, Nine: 9, Ten: 10,
}

var glyphs = map[Suit]string{Hearts: "♥", Diamonds: "♦", Clubs: "♣", Spades: "♠"}

// Card is an immutable playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// New returns a card of the given rank and suit
func New(r Rank, s Suit) Card {
	return Card{Suit: s, Rank: r}
}

// IsAce reports whether the card is an ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsFace reports whether the card is a jack, queen or king
func (c Card) IsFace() bool {
	return c.Rank == Jack || c.Rank == Queen || c.Rank == King
}

// BlackjackValue counts an ace as 11 and face cards as 10.
// Hand evaluation reduces aces to 1 as needed.
func (c Card) BlackjackValue() int {
	switch {
	case c.IsAce():
		return 11
	case c.IsFace():
		return 10
	default:
		return pips[c.Rank]
	}
}

// BaccaratValue counts an ace as 1 and tens and faces as 0
func (c Card) BaccaratValue() int {
	switch {
	case c.IsAce():
		return 1
	case c.IsFace(), c.Rank == Ten:
		return 0
	default:
		return pips[c.Rank]
	}
}

// Glyph returns the suit symbol
func (c Card) Glyph() string {
	return glyphs[c.Suit]
}

func (c Card) String() string {
	return string(c.Rank) + c.Glyph()
}

// NewDeck returns the 52 cards of a standard deck in suit-then-rank order
func NewDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shoe is an ordered sequence of cards with a dealing cursor.
// A shoe belongs to exactly one game and is not safe for concurrent use.
type Shoe struct {
	cards  []Card
	cursor int
}

// NewShoe builds a shoe that deals the given cards in order
func NewShoe(cards ...Card) *Shoe {
	cp := make([]Card, len(cards))
	copy(cp, cards)
	return &Shoe{cards: cp}
}

// NewShuffledShoe combines the given number of decks and shuffles them
func NewShuffledShoe(decks int, r *rng.Service) (*Shoe, error) {
	if decks <= 0 {
		return nil, fmt.Errorf("shoe needs at least one deck, got %d", decks)
	}
	all := make([]Card, 0, decks*52)
	for i := 0; i < decks; i++ {
		all = append(all, NewDeck()...)
	}
	if err := r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] }); err != nil {
		return nil, fmt.Errorf("failed to shuffle shoe: %w", err)
	}
	return &Shoe{cards: all}, nil
}

// Deal returns the next card. Dealing past the end is an error, never a wrap.
func (s *Shoe) Deal() (Card, error) {
	if s.cursor >= len(s.cards) {
		return Card{}, ErrShoeExhausted
	}
	c := s.cards[s.cursor]
	s.cursor++
	return c, nil
}

// DealN returns the next n cards
func (s *Shoe) DealN(n int) ([]Card, error) {
	if s.Remaining() < n {
		return nil, ErrShoeExhausted
	}
	out := make([]Card, n)
	for i := range out {
		out[i], _ = s.Deal()
	}
	return out, nil
}

// Remaining returns the number of undealt cards
func (s *Shoe) Remaining() int {
	return len(s.cards) - s.cursor
}

// Dealt returns the number of cards dealt so far
func (s *Shoe) Dealt() int {
	return s.cursor
}

// Size returns the total number of cards in the shoe
func (s *Shoe) Size() int {
	return len(s.cards)
}
