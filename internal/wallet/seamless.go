package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/pkg/seamless"
)

// Seamless debits and credits an operator-held balance over the seamless
// wallet API. Amounts travel in major units.
type Seamless struct {
	client *seamless.Client
}

// NewSeamless wraps a seamless wallet client
func NewSeamless(client *seamless.Client) *Seamless {
	return &Seamless{client: client}
}

func (s *Seamless) PlaceBet(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}

	txID := uuid.New().String()
	res, err := s.client.Withdraw(ctx, &seamless.WithdrawRequest{
		PlayerID:      playerID,
		TransactionID: txID,
		GameID:        gameID,
		Category:      string(category),
		Amount:        majorUnits(amount),
		Currency:      amount.Currency,
	})
	if err != nil {
		var apiErr *seamless.APIError
		if !errors.As(err, &apiErr) {
			// Outcome unknown, ask the operator to reverse it
			s.client.Cancel(context.WithoutCancel(ctx), playerID, txID)
		}
		return domain.Money{}, mapError(err)
	}
	return parseBalance(res.Balance, amount.Currency)
}

func (s *Seamless) RecordWin(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}

	res, err := s.client.Deposit(ctx, &seamless.DepositRequest{
		PlayerID:      playerID,
		TransactionID: uuid.New().String(),
		GameID:        gameID,
		Category:      string(category),
		Amount:        majorUnits(amount),
		Currency:      amount.Currency,
	})
	if err != nil {
		return domain.Money{}, mapError(err)
	}
	return parseBalance(res.Balance, amount.Currency)
}

// GetBalance returns the operator balance of a player
func (s *Seamless) GetBalance(ctx context.Context, playerID, currency string) (domain.Money, error) {
	res, err := s.client.Balance(ctx, playerID, currency)
	if err != nil {
		return domain.Money{}, mapError(err)
	}
	return parseBalance(res.Balance, currency)
}

func majorUnits(m domain.Money) string {
	return m.Decimal().Shift(-2).StringFixed(2)
}

func parseBalance(s, currency string) (domain.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.Money{}, fmt.Errorf("invalid balance %q: %w", s, err)
	}
	return domain.MoneyFromDecimal(d.Shift(2), currency), nil
}

func mapError(err error) error {
	var apiErr *seamless.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case seamless.ErrInsufficientBalance, seamless.ErrBetLimitReached, seamless.ErrLossLimitReached:
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, apiErr.Message)
		case seamless.ErrInvalidAmount:
			return fmt.Errorf("%w: %s", ErrInvalidAmount, apiErr.Message)
		}
	}
	return fmt.Errorf("seamless wallet: %w", err)
}
