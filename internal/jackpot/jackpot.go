// Package jackpot keeps progressive jackpot pools.
//
// Pools are shared by every concurrent spin on a game, so each Store
// implementation provides an atomic contribute and an atomic claim-and-reset.
// Amounts are decimals in minor currency units; fractional contributions
// accumulate and are truncated only when a pool is paid out.
package jackpot

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownPool = errors.New("unknown jackpot pool")

// Store is a set of named jackpot pools
type Store interface {
	// Ensure creates the pool at seed if it does not exist yet
	Ensure(ctx context.Context, id string, seed decimal.Decimal) error
	// Contribute adds amount to the pool and returns the new total
	Contribute(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
	// Claim returns the pool total and resets it to seed in one step
	Claim(ctx context.Context, id string, seed decimal.Decimal) (decimal.Decimal, error)
	// Amount returns the current pool total
	Amount(ctx context.Context, id string) (decimal.Decimal, error)
	// Snapshot returns every pool total
	Snapshot(ctx context.Context) (map[string]decimal.Decimal, error)
}
