package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alexbotov/casino-engine/internal/baccarat"
	"github.com/alexbotov/casino-engine/internal/blackjack"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/roulette"
)

// Catalog holds every game definition the engine serves
type Catalog struct {
	Slots     []*paytable.Paytable `yaml:"slots"`
	Blackjack []*blackjack.Table   `yaml:"blackjack"`
	Roulette  []*roulette.Table    `yaml:"roulette"`
	Baccarat  []*baccarat.Table    `yaml:"baccarat"`
}

// DefaultCatalog returns the built-in games
func DefaultCatalog() *Catalog {
	return &Catalog{
		Slots:     paytable.Builtin(),
		Blackjack: blackjack.DefaultTables(),
		Roulette:  roulette.DefaultTables(),
		Baccarat:  baccarat.DefaultTables(),
	}
}

// LoadCatalog reads a YAML games file. An empty path yields the built-in
// catalog; a section missing from the file falls back to its built-in games.
// Blackjack tables start from the default rules, so a file only names the
// rules it changes.
func LoadCatalog(path string) (*Catalog, error) {
	def := DefaultCatalog()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read games file: %w", err)
	}

	var raw struct {
		Slots     []*paytable.Paytable `yaml:"slots"`
		Blackjack []yaml.Node          `yaml:"blackjack"`
		Roulette  []*roulette.Table    `yaml:"roulette"`
		Baccarat  []*baccarat.Table    `yaml:"baccarat"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse games file %s: %w", path, err)
	}

	cat := &Catalog{Slots: raw.Slots, Roulette: raw.Roulette, Baccarat: raw.Baccarat}
	for i := range raw.Blackjack {
		t := &blackjack.Table{Decks: 6, Rules: blackjack.DefaultRules()}
		if err := raw.Blackjack[i].Decode(t); err != nil {
			return nil, fmt.Errorf("failed to parse blackjack table: %w", err)
		}
		cat.Blackjack = append(cat.Blackjack, t)
	}
	for _, t := range cat.Baccarat {
		if t.Decks == 0 {
			t.Decks = 8
		}
	}

	if len(cat.Slots) == 0 {
		cat.Slots = def.Slots
	}
	if len(cat.Blackjack) == 0 {
		cat.Blackjack = def.Blackjack
	}
	if len(cat.Roulette) == 0 {
		cat.Roulette = def.Roulette
	}
	if len(cat.Baccarat) == 0 {
		cat.Baccarat = def.Baccarat
	}
	return cat, nil
}
