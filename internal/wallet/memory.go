package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexbotov/casino-engine/internal/domain"
)

type balanceKey struct {
	player   string
	currency string
}

// Memory is an in-process wallet for tests and demo mode
type Memory struct {
	mu           sync.Mutex
	balances     map[balanceKey]int64
	transactions []*domain.Transaction
}

// NewMemory creates an empty in-memory wallet
func NewMemory() *Memory {
	return &Memory{balances: make(map[balanceKey]int64)}
}

// Deposit credits funds outside of play
func (m *Memory) Deposit(_ context.Context, playerID string, amount domain.Money) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}
	return m.apply(playerID, amount, domain.TxTypeDeposit, "", "")
}

func (m *Memory) PlaceBet(_ context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}
	return m.apply(playerID, amount, domain.TxTypeWager, gameID, category)
}

func (m *Memory) RecordWin(_ context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}
	return m.apply(playerID, amount, domain.TxTypeWin, gameID, category)
}

func (m *Memory) apply(playerID string, amount domain.Money, txType domain.TransactionType, gameID string, category domain.GameCategory) (domain.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := balanceKey{playerID, amount.Currency}
	before := m.balances[key]
	after := before + amount.Amount
	if txType == domain.TxTypeWager {
		if before < amount.Amount {
			return domain.Cents(before, amount.Currency), ErrInsufficientFunds
		}
		after = before - amount.Amount
	}
	m.balances[key] = after

	m.transactions = append(m.transactions, &domain.Transaction{
		ID:            uuid.New().String(),
		PlayerID:      playerID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: domain.Cents(before, amount.Currency),
		BalanceAfter:  domain.Cents(after, amount.Currency),
		GameID:        gameID,
		Category:      category,
		CreatedAt:     time.Now().UTC(),
	})

	return domain.Cents(after, amount.Currency), nil
}

// GetBalance returns the balance of a player in a currency
func (m *Memory) GetBalance(_ context.Context, playerID, currency string) (domain.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Cents(m.balances[balanceKey{playerID, currency}], currency), nil
}

// Transactions returns the ledger of a player in insertion order
func (m *Memory) Transactions(playerID string) []*domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.PlayerID == playerID {
			out = append(out, tx)
		}
	}
	return out
}
