// Package slots resolves slot spins: reel generation, payline and cluster
// wins, bonus features, jackpots and cascades.
// GLI-19 §4.5: Game Selection Process
package slots

import (
	"fmt"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/rng"
)

// MaxCascades bounds the tumble loop of a single spin
const MaxCascades = 10

// Grid holds symbol ids indexed [reel][row], row 0 at the top
type Grid [][]string

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, col := range g {
		out[i] = append([]string(nil), col...)
	}
	return out
}

// Position is a grid cell
type Position struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

// WinKind tells payline wins from cluster wins
type WinKind string

const (
	WinPayline WinKind = "payline"
	WinCluster WinKind = "cluster"
)

// Win is one winning payline or cluster
type Win struct {
	Kind      WinKind      `json:"kind"`
	Line      int          `json:"line,omitempty"`
	Symbol    string       `json:"symbol"`
	Count     int          `json:"count"`
	Positions []Position   `json:"positions"`
	Wild      bool         `json:"wild,omitempty"`
	Payout    domain.Money `json:"payout"`
}

// CascadeStep is one tumble: the cells removed, the refilled grid and the
// wins found on it
type CascadeStep struct {
	Index   int          `json:"index"`
	Removed []Position   `json:"removed"`
	Grid    Grid         `json:"grid"`
	Wins    []Win        `json:"wins"`
	Win     domain.Money `json:"win"`
}

// Outcome is everything the resolver decides for one spin. Jackpot pools
// are not touched here; Jackpot names the triggered definition only.
type Outcome struct {
	Grid     Grid
	Wins     []Win
	LineWin  domain.Money
	Bonus    *paytable.BonusFeature
	Jackpot  *paytable.JackpotDef
	Cascades []CascadeStep
}

// Resolver draws and evaluates spins. It keeps no state besides the RNG.
type Resolver struct {
	rng *rng.Service
}

// NewResolver creates a resolver drawing from r
func NewResolver(r *rng.Service) *Resolver {
	return &Resolver{rng: r}
}

// Resolve draws a grid and runs every evaluation step in order
func (r *Resolver) Resolve(p *paytable.Paytable, bet domain.Money, lines []paytable.Payline) (*Outcome, error) {
	grid, err := r.GenerateGrid(p)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Grid: grid}
	out.Wins = Evaluate(p, grid, bet, lines)
	out.LineWin = SumWins(bet.Zero(), out.Wins)

	if out.Bonus, err = r.CheckBonus(p, grid); err != nil {
		return nil, err
	}
	if out.Jackpot, err = r.CheckJackpot(p, grid, bet.Currency); err != nil {
		return nil, err
	}
	if p.Cascades() {
		if out.Cascades, err = r.Cascade(p, grid, bet, lines, out.Wins); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GenerateGrid samples every cell independently by rarity-inverted weight
// GLI-19 §4.5.2.a: Making calls to RNG
func (r *Resolver) GenerateGrid(p *paytable.Paytable) (Grid, error) {
	weights := p.Weights()
	g := make(Grid, p.Reels)
	for reel := range g {
		g[reel] = make([]string, p.Rows)
		for row := range g[reel] {
			sym, err := r.draw(p, weights)
			if err != nil {
				return nil, err
			}
			g[reel][row] = sym
		}
	}
	return g, nil
}

func (r *Resolver) draw(p *paytable.Paytable, weights []int) (string, error) {
	idx, err := r.rng.SelectWeighted(weights)
	if err != nil {
		return "", fmt.Errorf("failed to draw symbol: %w", err)
	}
	return p.Symbols[idx].ID, nil
}

// ActivePaylines returns the selected paylines, or all of them when none are selected
func ActivePaylines(p *paytable.Paytable, selected []int) ([]paytable.Payline, error) {
	if len(selected) == 0 {
		return p.Paylines, nil
	}
	if p.Style != paytable.StylePaylines {
		return nil, fmt.Errorf("%w: %s has no paylines to select", domain.ErrInvalidBet, p.ID)
	}

	byID := make(map[int]paytable.Payline, len(p.Paylines))
	for _, l := range p.Paylines {
		byID[l.ID] = l
	}

	lines := make([]paytable.Payline, 0, len(selected))
	seen := make(map[int]bool)
	for _, id := range selected {
		l, ok := byID[id]
		if !ok || seen[id] {
			return nil, fmt.Errorf("%w: payline %d not available", domain.ErrInvalidBet, id)
		}
		seen[id] = true
		lines = append(lines, l)
	}
	return lines, nil
}

// Evaluate dispatches on the game's win style
func Evaluate(p *paytable.Paytable, g Grid, bet domain.Money, lines []paytable.Payline) []Win {
	if p.Style == paytable.StyleClusters {
		return EvaluateClusters(p, g, bet)
	}
	return EvaluatePaylines(p, g, bet, lines)
}

// SumWins adds the payouts of wins onto base
func SumWins(base domain.Money, wins []Win) domain.Money {
	for _, w := range wins {
		base = base.Add(w.Payout)
	}
	return base
}

func lengthMultiplier(n int) int64 {
	switch {
	case n >= 5:
		return 10
	case n == 4:
		return 5
	default:
		return 1
	}
}

// EvaluatePaylines walks each payline from the leftmost reel. Wilds extend
// the run of the first non-wild symbol; scatters never pay on a line.
// GLI-19 §4.4.1.m: Wild/substitute symbols
func EvaluatePaylines(p *paytable.Paytable, g Grid, bet domain.Money, lines []paytable.Payline) []Win {
	var wins []Win
	for _, line := range lines {
		syms := make([]paytable.Symbol, len(line.Pattern))
		for reel, row := range line.Pattern {
			syms[reel], _ = p.Symbol(g[reel][row])
		}

		anchor := syms[0]
		for _, s := range syms {
			if !s.IsWild {
				anchor = s
				break
			}
		}
		if anchor.IsScatter || anchor.IsBonus {
			if !syms[0].IsWild {
				continue
			}
			// leading wilds pay on their own
			anchor = syms[0]
		}

		count := 0
		wild := false
		for _, s := range syms {
			if s.ID == anchor.ID {
				count++
				continue
			}
			if s.IsWild && !anchor.IsWild {
				count++
				wild = true
				continue
			}
			break
		}
		if count < paytable.MinLineRun || anchor.Value == 0 {
			continue
		}

		mult := lengthMultiplier(count)
		if wild {
			mult *= 2
		}
		payout := anchor.Value * mult * bet.Amount / 100

		positions := make([]Position, count)
		for reel := 0; reel < count; reel++ {
			positions[reel] = Position{Reel: reel, Row: line.Pattern[reel]}
		}

		wins = append(wins, Win{
			Kind:      WinPayline,
			Line:      line.ID,
			Symbol:    anchor.ID,
			Count:     count,
			Positions: positions,
			Wild:      wild,
			Payout:    domain.Cents(payout, bet.Currency),
		})
	}
	return wins
}

func clusterMultiplier(size int) int64 {
	switch {
	case size >= 15:
		return 150
	case size >= 12:
		return 25
	case size >= 10:
		return 10
	case size >= paytable.MinClusterSize:
		return 5
	default:
		return 0
	}
}

// EvaluateClusters flood-fills 4-connected groups of equal symbols. Each
// cell joins at most one group; scatters never form clusters.
func EvaluateClusters(p *paytable.Paytable, g Grid, bet domain.Money) []Win {
	reels := len(g)
	if reels == 0 {
		return nil
	}
	rows := len(g[0])

	visited := make([][]bool, reels)
	for i := range visited {
		visited[i] = make([]bool, rows)
	}

	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	var wins []Win

	for reel := 0; reel < reels; reel++ {
		for row := 0; row < rows; row++ {
			if visited[reel][row] {
				continue
			}
			id := g[reel][row]
			sym, _ := p.Symbol(id)
			if sym.IsScatter || sym.IsBonus {
				visited[reel][row] = true
				continue
			}

			queue := []Position{{Reel: reel, Row: row}}
			visited[reel][row] = true
			var cells []Position
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				cells = append(cells, cur)
				for _, d := range dirs {
					nr, nw := cur.Reel+d[0], cur.Row+d[1]
					if nr < 0 || nr >= reels || nw < 0 || nw >= rows {
						continue
					}
					if visited[nr][nw] || g[nr][nw] != id {
						continue
					}
					visited[nr][nw] = true
					queue = append(queue, Position{Reel: nr, Row: nw})
				}
			}

			mult := clusterMultiplier(len(cells))
			if mult == 0 || sym.Value == 0 {
				continue
			}
			wins = append(wins, Win{
				Kind:      WinCluster,
				Symbol:    id,
				Count:     len(cells),
				Positions: cells,
				Payout:    domain.Cents(sym.Value*mult*bet.Amount/100, bet.Currency),
			})
		}
	}
	return wins
}

// CountSymbol counts the cells showing id anywhere on the grid
func CountSymbol(g Grid, id string) int {
	n := 0
	for _, col := range g {
		for _, s := range col {
			if s == id {
				n++
			}
		}
	}
	return n
}

func (r *Resolver) triggered(g Grid, t paytable.Trigger) (bool, error) {
	switch t.Type {
	case paytable.TriggerSymbolCount:
		return CountSymbol(g, t.Symbol) >= t.Count, nil
	case paytable.TriggerRandom:
		return r.rng.Chance(t.Probability)
	default:
		return false, nil
	}
}

// CheckBonus returns the first feature, in declared order, whose trigger
// matches. Cascading reels are a game property, not a triggered feature.
func (r *Resolver) CheckBonus(p *paytable.Paytable, g Grid) (*paytable.BonusFeature, error) {
	for i := range p.Features {
		f := p.Features[i]
		if f.Type == paytable.FeatureCascadingReels {
			continue
		}
		ok, err := r.triggered(g, f.Trigger)
		if err != nil {
			return nil, err
		}
		if ok {
			return &f, nil
		}
	}
	return nil, nil
}

// CheckJackpot returns the first jackpot in the bet currency whose trigger matches
func (r *Resolver) CheckJackpot(p *paytable.Paytable, g Grid, currency string) (*paytable.JackpotDef, error) {
	for i := range p.Jackpots {
		j := p.Jackpots[i]
		if j.Currency != currency {
			continue
		}
		ok, err := r.triggered(g, j.Trigger)
		if err != nil {
			return nil, err
		}
		if ok {
			return &j, nil
		}
	}
	return nil, nil
}

// Cascade removes the cells of wins, lets the rest fall, refills from the
// top and evaluates again, until a refill produces no win or MaxCascades
// steps ran. Each step holds its own grid. Initial wins are not repeated
// in the steps.
func (r *Resolver) Cascade(p *paytable.Paytable, g Grid, bet domain.Money, lines []paytable.Payline, wins []Win) ([]CascadeStep, error) {
	var steps []CascadeStep
	current := g
	for i := 0; i < MaxCascades && len(wins) > 0; i++ {
		removed := winningCells(wins)
		next, err := r.tumble(p, current, removed)
		if err != nil {
			return nil, err
		}

		nextWins := Evaluate(p, next, bet, lines)
		steps = append(steps, CascadeStep{
			Index:   i + 1,
			Removed: removed,
			Grid:    next,
			Wins:    nextWins,
			Win:     SumWins(bet.Zero(), nextWins),
		})
		current, wins = next, nextWins
	}
	return steps, nil
}

func winningCells(wins []Win) []Position {
	seen := make(map[Position]bool)
	var cells []Position
	for _, w := range wins {
		for _, pos := range w.Positions {
			if !seen[pos] {
				seen[pos] = true
				cells = append(cells, pos)
			}
		}
	}
	return cells
}

// tumble builds the next grid without touching g
func (r *Resolver) tumble(p *paytable.Paytable, g Grid, removed []Position) (Grid, error) {
	gone := make(map[Position]bool, len(removed))
	for _, pos := range removed {
		gone[pos] = true
	}

	weights := p.Weights()
	next := make(Grid, len(g))
	for reel, col := range g {
		kept := make([]string, 0, len(col))
		for row, sym := range col {
			if !gone[Position{Reel: reel, Row: row}] {
				kept = append(kept, sym)
			}
		}

		fresh := len(col) - len(kept)
		next[reel] = make([]string, 0, len(col))
		for i := 0; i < fresh; i++ {
			sym, err := r.draw(p, weights)
			if err != nil {
				return nil, err
			}
			next[reel] = append(next[reel], sym)
		}
		next[reel] = append(next[reel], kept...)
	}
	return next, nil
}
