// Package roulette implements a single-zero European roulette table
// GLI-19 §4.11: Table Games
package roulette

import (
	"fmt"
	"sort"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// Pockets on a European wheel
const Pockets = 37

// WheelOrder is the clockwise pocket sequence starting at zero
var WheelOrder = [Pockets]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

var red = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Color of a pocket
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
	Black Color = "black"
)

// ColorOf returns the pocket color of n
func ColorOf(n int) Color {
	switch {
	case n == 0:
		return Green
	case red[n]:
		return Red
	default:
		return Black
	}
}

// BetType names a roulette bet
type BetType string

const (
	Straight BetType = "straight"
	Split    BetType = "split"
	Street   BetType = "street"
	Corner   BetType = "corner"
	Line     BetType = "line"
	Column   BetType = "column"
	Dozen    BetType = "dozen"
	RedBet   BetType = "red"
	BlackBet BetType = "black"
	Odd      BetType = "odd"
	Even     BetType = "even"
	Low      BetType = "low"
	High     BetType = "high"
)

// Odds are the winnings per unit staked
var Odds = map[BetType]int64{
	Straight: 35,
	Split:    17,
	Street:   11,
	Corner:   8,
	Line:     5,
	Column:   2,
	Dozen:    2,
	RedBet:   1,
	BlackBet: 1,
	Odd:      1,
	Even:     1,
	Low:      1,
	High:     1,
}

func inside(n int) bool { return n >= 1 && n <= 36 }

// sameRow reports whether two numbers share a row of the layout
func sameRow(a, b int) bool { return (a-1)/3 == (b-1)/3 }

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Normalize validates the covered numbers of a bet against the layout and
// returns them sorted. Outside bets cover no explicit numbers; column and
// dozen bets carry their index 1-3.
func Normalize(t BetType, numbers []int) ([]int, error) {
	if _, ok := Odds[t]; !ok {
		return nil, fmt.Errorf("%w: unknown bet type %q", domain.ErrInvalidBet, t)
	}
	ns := append([]int(nil), numbers...)
	sort.Ints(ns)

	bad := func() ([]int, error) {
		return nil, fmt.Errorf("%w: %v is not a valid %s", domain.ErrInvalidBet, numbers, t)
	}

	switch t {
	case Straight:
		if len(ns) != 1 || ns[0] < 0 || ns[0] > 36 {
			return bad()
		}
	case Split:
		if len(ns) != 2 {
			return bad()
		}
		a, b := ns[0], ns[1]
		switch {
		case a == 0 && b >= 1 && b <= 3:
		case inside(a) && b-a == 3 && inside(b):
		case inside(a) && b-a == 1 && sameRow(a, b):
		default:
			return bad()
		}
	case Street:
		if len(ns) != 3 {
			return bad()
		}
		// the two zero trios are streets on a European layout
		if !(inside(ns[0]) && ns[0]%3 == 1 && ns[1] == ns[0]+1 && ns[2] == ns[0]+2) &&
			!equal(ns, []int{0, 1, 2}) && !equal(ns, []int{0, 2, 3}) {
			return bad()
		}
	case Corner:
		if len(ns) != 4 {
			return bad()
		}
		a := ns[0]
		if !equal(ns, []int{0, 1, 2, 3}) &&
			!(inside(a) && a%3 != 0 && a <= 32 && equal(ns, []int{a, a + 1, a + 3, a + 4})) {
			return bad()
		}
	case Line:
		if len(ns) != 6 {
			return bad()
		}
		a := ns[0]
		if !(inside(a) && a%3 == 1 && a <= 31 && equal(ns, []int{a, a + 1, a + 2, a + 3, a + 4, a + 5})) {
			return bad()
		}
	case Column, Dozen:
		if len(ns) != 1 || ns[0] < 1 || ns[0] > 3 {
			return bad()
		}
	default:
		if len(ns) != 0 {
			return bad()
		}
	}
	return ns, nil
}

// IsBetWinning reports whether a bet covers the winning number. Zero loses
// every outside bet.
func IsBetWinning(t BetType, numbers []int, n int) bool {
	switch t {
	case Straight, Split, Street, Corner, Line:
		for _, x := range numbers {
			if x == n {
				return true
			}
		}
		return false
	}

	if !inside(n) {
		return false
	}
	switch t {
	case Column:
		return len(numbers) == 1 && (n-1)%3+1 == numbers[0]
	case Dozen:
		return len(numbers) == 1 && (n-1)/12+1 == numbers[0]
	case RedBet:
		return ColorOf(n) == Red
	case BlackBet:
		return ColorOf(n) == Black
	case Odd:
		return n%2 == 1
	case Even:
		return n%2 == 0
	case Low:
		return n <= 18
	case High:
		return n >= 19
	}
	return false
}

// Payout returns the stake plus winnings of a winning bet
func Payout(t BetType, amount domain.Money) domain.Money {
	return amount.Add(amount.Times(Odds[t]))
}
