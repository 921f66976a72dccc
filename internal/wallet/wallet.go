// Package wallet provides balance and transaction management
// Compliant with GLI-19 §2.5.6: Financial Transactions, §2.5.7: Transaction Log
package wallet

import (
	"context"
	"errors"

	"github.com/alexbotov/casino-engine/internal/domain"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Wallet is the only way balances change. Both calls are atomic and return
// the balance after the operation.
type Wallet interface {
	PlaceBet(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error)
	RecordWin(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error)
}

// BalanceReader is implemented by wallets that can report a balance
type BalanceReader interface {
	GetBalance(ctx context.Context, playerID, currency string) (domain.Money, error)
}

func checkAmount(amount domain.Money) error {
	if amount.Amount <= 0 || amount.Currency == "" {
		return ErrInvalidAmount
	}
	return nil
}
