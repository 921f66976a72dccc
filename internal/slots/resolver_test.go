package slots

import (
	"strings"
	"testing"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/rng"
)

func usd(n int64) domain.Money { return domain.Cents(n, "USD") }

func builtin(t *testing.T, id string) *paytable.Paytable {
	t.Helper()
	reg, err := paytable.NewRegistry(paytable.Builtin()...)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	p, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Failed to get %s: %v", id, err)
	}
	return p
}

// middleRow builds a 5x3 grid with the given symbols on row 1 and PLUM elsewhere
func middleRow(symbols ...string) Grid {
	g := make(Grid, len(symbols))
	for reel, s := range symbols {
		g[reel] = []string{"PLUM", s, "PLUM"}
	}
	return g
}

func TestEvaluatePaylines(t *testing.T) {
	p := builtin(t, paytable.FortuneFives)
	line := []paytable.Payline{{ID: 1, Pattern: []int{1, 1, 1, 1, 1}}}

	tests := []struct {
		name   string
		row    []string
		symbol string
		count  int
		wild   bool
		payout int64
	}{
		{"ThreeSevens", []string{"7", "7", "7", "BAR", "CHERRY"}, "7", 3, false, 100},
		{"FourSevens", []string{"7", "7", "7", "7", "BAR"}, "7", 4, false, 500},
		{"FiveSevens", []string{"7", "7", "7", "7", "7"}, "7", 5, false, 1000},
		{"LeadingWild", []string{"WILD", "7", "7", "BELL", "CHERRY"}, "7", 3, true, 200},
		{"WildInside", []string{"CHERRY", "CHERRY", "WILD", "CHERRY", "LEMON"}, "CHERRY", 4, true, 200},
		{"AllWild", []string{"WILD", "WILD", "WILD", "WILD", "WILD"}, "WILD", 5, false, 1500},
		{"WildsBeforeScatter", []string{"WILD", "WILD", "WILD", "SCATTER", "7"}, "WILD", 3, false, 150},
		{"TwoWildsBeforeScatter", []string{"WILD", "WILD", "SCATTER", "7", "7"}, "", 0, false, 0},
		{"ScatterLine", []string{"SCATTER", "SCATTER", "SCATTER", "SCATTER", "SCATTER"}, "", 0, false, 0},
		{"BrokenRun", []string{"7", "7", "BAR", "7", "7"}, "", 0, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wins := EvaluatePaylines(p, middleRow(tc.row...), usd(100), line)
			if tc.count == 0 {
				if len(wins) != 0 {
					t.Errorf("Expected no win, got %+v", wins)
				}
				return
			}
			if len(wins) != 1 {
				t.Fatalf("Expected 1 win, got %d", len(wins))
			}
			w := wins[0]
			if w.Symbol != tc.symbol || w.Count != tc.count || w.Wild != tc.wild {
				t.Errorf("Expected %s x%d wild=%v, got %s x%d wild=%v", tc.symbol, tc.count, tc.wild, w.Symbol, w.Count, w.Wild)
			}
			if w.Payout.Amount != tc.payout {
				t.Errorf("Expected payout %d, got %d", tc.payout, w.Payout.Amount)
			}
			if len(w.Positions) != tc.count {
				t.Errorf("Expected %d positions, got %d", tc.count, len(w.Positions))
			}
		})
	}
}

func TestPaylineScenario(t *testing.T) {
	p := &paytable.Paytable{
		ID:       "sevens-line",
		Reels:    5,
		Rows:     1,
		Style:    paytable.StylePaylines,
		Symbols:  []paytable.Symbol{{ID: "7", Value: 100, Rarity: 10}},
		Paylines: []paytable.Payline{{ID: 1, Pattern: []int{0, 0, 0, 0, 0}}},
		MinBet:   map[string]int64{"USD": 1},
		MaxBet:   map[string]int64{"USD": 100000},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Invalid paytable: %v", err)
	}

	out, err := NewResolver(rng.NewSeeded(1)).Resolve(p, usd(100), p.Paylines)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if out.LineWin.Amount != 10000 {
		t.Errorf("Expected line win 10000, got %d", out.LineWin.Amount)
	}
}

func checkerboard(reels, rows int) Grid {
	g := make(Grid, reels)
	for reel := range g {
		g[reel] = make([]string, rows)
		for row := range g[reel] {
			if (reel+row)%2 == 0 {
				g[reel][row] = "RUBY"
			} else {
				g[reel][row] = "TOPAZ"
			}
		}
	}
	return g
}

func filled(reels, rows int, symbol string) Grid {
	g := make(Grid, reels)
	for reel := range g {
		g[reel] = make([]string, rows)
		for row := range g[reel] {
			g[reel][row] = symbol
		}
	}
	return g
}

func TestEvaluateClusters(t *testing.T) {
	p := builtin(t, paytable.GemCascade)

	t.Run("NoAdjacency", func(t *testing.T) {
		if wins := EvaluateClusters(p, checkerboard(6, 5), usd(100)); len(wins) != 0 {
			t.Errorf("Expected no clusters, got %d", len(wins))
		}
	})

	t.Run("EightBlock", func(t *testing.T) {
		g := checkerboard(6, 5)
		for reel := 0; reel < 2; reel++ {
			for row := 0; row < 4; row++ {
				g[reel][row] = "EMERALD"
			}
		}
		wins := EvaluateClusters(p, g, usd(100))
		if len(wins) != 1 {
			t.Fatalf("Expected 1 cluster, got %d", len(wins))
		}
		if wins[0].Count != 8 || wins[0].Symbol != "EMERALD" {
			t.Errorf("Expected EMERALD x8, got %s x%d", wins[0].Symbol, wins[0].Count)
		}
		if wins[0].Payout.Amount != 50 {
			t.Errorf("Expected payout 50, got %d", wins[0].Payout.Amount)
		}
	})

	t.Run("SevenIsNotEnough", func(t *testing.T) {
		g := checkerboard(6, 5)
		for row := 0; row < 5; row++ {
			g[0][row] = "EMERALD"
		}
		g[1][0], g[1][1] = "EMERALD", "EMERALD"
		if wins := EvaluateClusters(p, g, usd(100)); len(wins) != 0 {
			t.Errorf("Expected no clusters for 7 cells, got %d", len(wins))
		}
	})

	t.Run("Tiers", func(t *testing.T) {
		tests := []struct {
			size int
			mult int64
		}{{8, 5}, {9, 5}, {10, 10}, {11, 10}, {12, 25}, {14, 25}, {15, 150}, {30, 150}}
		for _, tc := range tests {
			if got := clusterMultiplier(tc.size); got != tc.mult {
				t.Errorf("Expected multiplier %d for size %d, got %d", tc.mult, tc.size, got)
			}
		}
	})

	t.Run("FullGrid", func(t *testing.T) {
		wins := EvaluateClusters(p, filled(6, 5, "RUBY"), usd(100))
		if len(wins) != 1 || wins[0].Count != 30 {
			t.Fatalf("Expected a single 30 cell cluster, got %+v", wins)
		}
		if wins[0].Payout.Amount != 750 {
			t.Errorf("Expected payout 750, got %d", wins[0].Payout.Amount)
		}
	})

	t.Run("ScattersNeverCluster", func(t *testing.T) {
		if wins := EvaluateClusters(p, filled(6, 5, "SCATTER"), usd(100)); len(wins) != 0 {
			t.Errorf("Expected no scatter clusters, got %d", len(wins))
		}
	})

	t.Run("CellsBelongToOneCluster", func(t *testing.T) {
		r := NewResolver(rng.NewSeeded(21))
		for i := 0; i < 200; i++ {
			g, _ := r.GenerateGrid(p)
			seen := make(map[Position]bool)
			for _, w := range EvaluateClusters(p, g, usd(100)) {
				for _, pos := range w.Positions {
					if seen[pos] {
						t.Fatalf("Cell %+v in two clusters", pos)
					}
					seen[pos] = true
				}
			}
		}
	})
}

func TestGenerateGridWeighting(t *testing.T) {
	p := &paytable.Paytable{
		ID:    "weights",
		Reels: 10,
		Rows:  10,
		Style: paytable.StyleClusters,
		Symbols: []paytable.Symbol{
			{ID: "COMMON", Value: 1, Rarity: 1},
			{ID: "RARE", Value: 1, Rarity: 100},
		},
		MinBet: map[string]int64{"USD": 1},
		MaxBet: map[string]int64{"USD": 1},
	}

	r := NewResolver(rng.NewSeeded(8))
	common, rare := 0, 0
	for i := 0; i < 50; i++ {
		g, err := r.GenerateGrid(p)
		if err != nil {
			t.Fatalf("GenerateGrid failed: %v", err)
		}
		if len(g) != 10 || len(g[0]) != 10 {
			t.Fatalf("Expected 10x10 grid, got %dx%d", len(g), len(g[0]))
		}
		common += CountSymbol(g, "COMMON")
		rare += CountSymbol(g, "RARE")
	}

	// weights are 100 to 1
	if rare == 0 || common < 40*rare {
		t.Errorf("Expected roughly 100:1 draw ratio, got %d:%d", common, rare)
	}
}

func TestActivePaylines(t *testing.T) {
	p := builtin(t, paytable.FortuneFives)

	all, err := ActivePaylines(p, nil)
	if err != nil || len(all) != 10 {
		t.Errorf("Expected all 10 paylines, got %d (%v)", len(all), err)
	}

	some, err := ActivePaylines(p, []int{3, 1})
	if err != nil || len(some) != 2 || some[0].ID != 3 {
		t.Errorf("Expected paylines 3 and 1 in order, got %+v (%v)", some, err)
	}

	for _, bad := range [][]int{{11}, {1, 1}} {
		if _, err := ActivePaylines(p, bad); err == nil || !strings.Contains(err.Error(), "payline") {
			t.Errorf("Expected payline error for %v, got %v", bad, err)
		}
	}
}

func featureTable(features ...paytable.BonusFeature) *paytable.Paytable {
	return &paytable.Paytable{
		ID:       "features",
		Reels:    3,
		Rows:     3,
		Style:    paytable.StylePaylines,
		Symbols:  []paytable.Symbol{{ID: "A", Value: 10, Rarity: 10}, {ID: "S", Rarity: 90, IsScatter: true}},
		Paylines: []paytable.Payline{{ID: 1, Pattern: []int{1, 1, 1}}},
		MinBet:   map[string]int64{"USD": 1},
		MaxBet:   map[string]int64{"USD": 1000},
		Features: features,
	}
}

func TestCheckBonus(t *testing.T) {
	r := NewResolver(rng.NewSeeded(4))
	g := filled(3, 3, "S")

	t.Run("FirstMatchWins", func(t *testing.T) {
		p := featureTable(
			paytable.BonusFeature{ID: "tumble", Type: paytable.FeatureCascadingReels},
			paytable.BonusFeature{ID: "nine", Type: paytable.FeatureFreeSpins,
				Trigger: paytable.Trigger{Type: paytable.TriggerSymbolCount, Symbol: "S", Count: 9}, FreeSpins: 5},
			paytable.BonusFeature{ID: "three", Type: paytable.FeatureMultiplier,
				Trigger: paytable.Trigger{Type: paytable.TriggerSymbolCount, Symbol: "S", Count: 3}, Multiplier: 2},
		)
		f, err := r.CheckBonus(p, g)
		if err != nil {
			t.Fatalf("CheckBonus failed: %v", err)
		}
		if f == nil || f.ID != "nine" {
			t.Errorf("Expected feature nine, got %+v", f)
		}
	})

	t.Run("SkipsUnmatched", func(t *testing.T) {
		p := featureTable(
			paytable.BonusFeature{ID: "a-count", Type: paytable.FeatureFreeSpins,
				Trigger: paytable.Trigger{Type: paytable.TriggerSymbolCount, Symbol: "A", Count: 3}, FreeSpins: 5},
			paytable.BonusFeature{ID: "always", Type: paytable.FeatureMultiplier,
				Trigger: paytable.Trigger{Type: paytable.TriggerRandom, Probability: 1}, Multiplier: 3},
		)
		f, _ := r.CheckBonus(p, g)
		if f == nil || f.ID != "always" {
			t.Errorf("Expected feature always, got %+v", f)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		p := featureTable(paytable.BonusFeature{ID: "a-count", Type: paytable.FeatureFreeSpins,
			Trigger: paytable.Trigger{Type: paytable.TriggerSymbolCount, Symbol: "A", Count: 3}, FreeSpins: 5})
		if f, _ := r.CheckBonus(p, g); f != nil {
			t.Errorf("Expected no feature, got %s", f.ID)
		}
	})
}

func TestCheckJackpot(t *testing.T) {
	p := featureTable()
	always := paytable.Trigger{Type: paytable.TriggerRandom, Probability: 1}
	p.Jackpots = []paytable.JackpotDef{
		{ID: "eur", Type: paytable.JackpotProgressive, Currency: "EUR", SeedAmount: 100, Trigger: always},
		{ID: "usd", Type: paytable.JackpotProgressive, Currency: "USD", SeedAmount: 100, Trigger: always},
	}

	j, err := NewResolver(rng.NewSeeded(2)).CheckJackpot(p, filled(3, 3, "A"), "USD")
	if err != nil {
		t.Fatalf("CheckJackpot failed: %v", err)
	}
	if j == nil || j.ID != "usd" {
		t.Errorf("Expected usd jackpot, got %+v", j)
	}
}

func monoClusterTable() *paytable.Paytable {
	return &paytable.Paytable{
		ID:       "mono",
		Reels:    3,
		Rows:     3,
		Style:    paytable.StyleClusters,
		Symbols:  []paytable.Symbol{{ID: "X", Value: 10, Rarity: 10}},
		MinBet:   map[string]int64{"USD": 1},
		MaxBet:   map[string]int64{"USD": 1000},
		Features: []paytable.BonusFeature{{ID: "tumble", Type: paytable.FeatureCascadingReels}},
	}
}

func TestCascade(t *testing.T) {
	t.Run("CappedAtMax", func(t *testing.T) {
		p := monoClusterTable()
		out, err := NewResolver(rng.NewSeeded(5)).Resolve(p, usd(100), nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(out.Cascades) != MaxCascades {
			t.Fatalf("Expected %d cascade steps, got %d", MaxCascades, len(out.Cascades))
		}
		for i, step := range out.Cascades {
			if step.Index != i+1 {
				t.Errorf("Expected step index %d, got %d", i+1, step.Index)
			}
			if len(step.Removed) != 9 {
				t.Errorf("Expected 9 removed cells, got %d", len(step.Removed))
			}
			if step.Win.Amount != 50 {
				t.Errorf("Expected step win 50, got %d", step.Win.Amount)
			}
		}
	})

	t.Run("StepsHoldOwnGrids", func(t *testing.T) {
		p := monoClusterTable()
		out, _ := NewResolver(rng.NewSeeded(6)).Resolve(p, usd(100), nil)

		out.Cascades[0].Grid[0][0] = "CHANGED"
		if out.Grid[0][0] != "X" {
			t.Error("Initial grid aliased by cascade step")
		}
		if out.Cascades[1].Grid[0][0] != "X" {
			t.Error("Cascade steps share a grid")
		}
	})

	t.Run("Gravity", func(t *testing.T) {
		p := &paytable.Paytable{
			ID:    "gravity",
			Reels: 1,
			Rows:  3,
			Style: paytable.StyleClusters,
			Symbols: []paytable.Symbol{
				{ID: "A", Value: 1, Rarity: 10},
				{ID: "B", Value: 1, Rarity: 10},
			},
		}
		g := Grid{{"A", "B", "A"}}
		next, err := NewResolver(rng.NewSeeded(7)).tumble(p, g, []Position{{Reel: 0, Row: 2}})
		if err != nil {
			t.Fatalf("tumble failed: %v", err)
		}
		if next[0][1] != "A" || next[0][2] != "B" {
			t.Errorf("Expected survivors to fall to [_, A, B], got %v", next[0])
		}
		if g[0][2] != "A" {
			t.Error("tumble modified its input grid")
		}
	})

	t.Run("NoWinsNoSteps", func(t *testing.T) {
		p := builtin(t, paytable.GemCascade)
		steps, err := NewResolver(rng.NewSeeded(9)).Cascade(p, checkerboard(6, 5), usd(100), nil, nil)
		if err != nil {
			t.Fatalf("Cascade failed: %v", err)
		}
		if len(steps) != 0 {
			t.Errorf("Expected no steps, got %d", len(steps))
		}
	})
}

func TestGridClone(t *testing.T) {
	g := Grid{{"A", "B"}, {"C", "D"}}
	c := g.Clone()
	c[1][0] = "Z"
	if g[1][0] != "C" {
		t.Error("Clone shares storage with the original")
	}
}
