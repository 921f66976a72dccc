package paytable

// Built-in game ids
const (
	FortuneFives  = "fortune-fives"
	GemCascade    = "gem-cascade"
	ClassicSevens = "classic-sevens"
)

// Builtin returns the default catalog used when no games file is configured
func Builtin() []*Paytable {
	return []*Paytable{fortuneFives(), gemCascade(), classicSevens()}
}

func standardLimits() (map[string]int64, map[string]int64) {
	return map[string]int64{"USD": 10, "EUR": 10},
		map[string]int64{"USD": 10000, "EUR": 10000}
}

// fortuneFives is a 5x3, 10 line video slot with wild, scatter free spins
// and a progressive jackpot per currency
func fortuneFives() *Paytable {
	min, max := standardLimits()
	return &Paytable{
		ID:    FortuneFives,
		Name:  "Fortune Fives",
		Reels: 5,
		Rows:  3,
		Style: StylePaylines,
		Symbols: []Symbol{
			{ID: "CHERRY", Name: "Cherry", Value: 20, Rarity: 20},
			{ID: "LEMON", Name: "Lemon", Value: 25, Rarity: 25},
			{ID: "PLUM", Name: "Plum", Value: 30, Rarity: 35},
			{ID: "BELL", Name: "Bell", Value: 50, Rarity: 55},
			{ID: "BAR", Name: "Bar", Value: 80, Rarity: 70},
			{ID: "7", Name: "Seven", Value: 100, Rarity: 85},
			{ID: "WILD", Name: "Wild", Value: 150, Rarity: 90, IsWild: true},
			{ID: "SCATTER", Name: "Scatter", Value: 0, Rarity: 92, IsScatter: true},
		},
		Paylines: []Payline{
			{ID: 1, Pattern: []int{1, 1, 1, 1, 1}},
			{ID: 2, Pattern: []int{0, 0, 0, 0, 0}},
			{ID: 3, Pattern: []int{2, 2, 2, 2, 2}},
			{ID: 4, Pattern: []int{0, 1, 2, 1, 0}},
			{ID: 5, Pattern: []int{2, 1, 0, 1, 2}},
			{ID: 6, Pattern: []int{0, 0, 1, 2, 2}},
			{ID: 7, Pattern: []int{2, 2, 1, 0, 0}},
			{ID: 8, Pattern: []int{1, 0, 0, 0, 1}},
			{ID: 9, Pattern: []int{1, 2, 2, 2, 1}},
			{ID: 10, Pattern: []int{1, 0, 1, 2, 1}},
		},
		RTP:    0.96,
		MinBet: min,
		MaxBet: max,
		Features: []BonusFeature{
			{
				ID:         "scatter-free-spins",
				Name:       "Free Spins",
				Type:       FeatureFreeSpins,
				Trigger:    Trigger{Type: TriggerSymbolCount, Symbol: "SCATTER", Count: 3},
				FreeSpins:  10,
				Multiplier: 2,
			},
			{
				ID:         "lucky-strike",
				Name:       "Lucky Strike",
				Type:       FeatureMultiplier,
				Trigger:    Trigger{Type: TriggerRandom, Probability: 0.005},
				Multiplier: 5,
			},
		},
		Jackpots: []JackpotDef{
			{
				ID:               "fortune-mega-usd",
				Name:             "Fortune Mega",
				Type:             JackpotProgressive,
				Currency:         "USD",
				SeedAmount:       100000,
				ContributionRate: 0.01,
				Trigger:          Trigger{Type: TriggerRandom, Probability: 0.0001},
			},
			{
				ID:               "fortune-mega-eur",
				Name:             "Fortune Mega",
				Type:             JackpotProgressive,
				Currency:         "EUR",
				SeedAmount:       100000,
				ContributionRate: 0.01,
				Trigger:          Trigger{Type: TriggerRandom, Probability: 0.0001},
			},
		},
	}
}

// gemCascade is a 6x5 cluster pays slot with tumbling reels
func gemCascade() *Paytable {
	min, max := standardLimits()
	return &Paytable{
		ID:    GemCascade,
		Name:  "Gem Cascade",
		Reels: 6,
		Rows:  5,
		Style: StyleClusters,
		Symbols: []Symbol{
			{ID: "RUBY", Name: "Ruby", Value: 5, Rarity: 10},
			{ID: "TOPAZ", Name: "Topaz", Value: 8, Rarity: 20},
			{ID: "EMERALD", Name: "Emerald", Value: 10, Rarity: 30},
			{ID: "SAPPHIRE", Name: "Sapphire", Value: 15, Rarity: 45},
			{ID: "AMETHYST", Name: "Amethyst", Value: 25, Rarity: 60},
			{ID: "DIAMOND", Name: "Diamond", Value: 50, Rarity: 75},
			{ID: "SCATTER", Name: "Crystal Ball", Value: 0, Rarity: 93, IsScatter: true},
		},
		RTP:    0.955,
		MinBet: min,
		MaxBet: max,
		Features: []BonusFeature{
			{ID: "tumble", Name: "Tumbling Reels", Type: FeatureCascadingReels},
			{
				ID:        "crystal-spins",
				Name:      "Crystal Spins",
				Type:      FeatureFreeSpins,
				Trigger:   Trigger{Type: TriggerSymbolCount, Symbol: "SCATTER", Count: 4},
				FreeSpins: 8,
			},
		},
	}
}

// classicSevens is a 3x3 fruit machine with a fixed top award
func classicSevens() *Paytable {
	return &Paytable{
		ID:    ClassicSevens,
		Name:  "Classic Sevens",
		Reels: 3,
		Rows:  3,
		Style: StylePaylines,
		Symbols: []Symbol{
			{ID: "CHERRY", Name: "Cherry", Value: 30, Rarity: 15},
			{ID: "BELL", Name: "Bell", Value: 60, Rarity: 40},
			{ID: "BAR", Name: "Bar", Value: 120, Rarity: 60},
			{ID: "7", Name: "Seven", Value: 300, Rarity: 80},
			{ID: "WILD", Name: "Wild", Value: 500, Rarity: 90, IsWild: true},
		},
		Paylines: []Payline{
			{ID: 1, Pattern: []int{1, 1, 1}},
			{ID: 2, Pattern: []int{0, 0, 0}},
			{ID: 3, Pattern: []int{2, 2, 2}},
			{ID: 4, Pattern: []int{0, 1, 2}},
			{ID: 5, Pattern: []int{2, 1, 0}},
		},
		RTP:    0.94,
		MinBet: map[string]int64{"USD": 25},
		MaxBet: map[string]int64{"USD": 5000},
		Jackpots: []JackpotDef{
			{
				ID:         "classic-nine-sevens",
				Name:       "Nine Sevens",
				Type:       JackpotFixed,
				Currency:   "USD",
				SeedAmount: 50000,
				Trigger:    Trigger{Type: TriggerSymbolCount, Symbol: "7", Count: 9},
			},
		},
	}
}
