package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/domain"
)

// Service is the PostgreSQL ledger wallet. Every balance change is a
// conditional UPDATE plus a transactions row in the same SQL transaction.
type Service struct {
	db    *sql.DB
	audit audit.Recorder
	log   *zap.Logger
}

// New creates a new wallet service
func New(db *sql.DB, auditSvc audit.Recorder, log *zap.Logger) *Service {
	return &Service{
		db:    db,
		audit: auditSvc,
		log:   log.Named("wallet"),
	}
}

// GetBalance retrieves the current balance for a player (GLI-19 §2.5.7)
func (s *Service) GetBalance(ctx context.Context, playerID, currency string) (domain.Money, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM balances WHERE player_id = $1 AND currency = $2
	`, playerID, currency).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cents(0, currency), nil
	}
	if err != nil {
		return domain.Money{}, fmt.Errorf("failed to get balance: %w", err)
	}
	return domain.Cents(amount, currency), nil
}

// Deposit adds funds to a player's account (GLI-19 §2.5.6)
func (s *Service) Deposit(ctx context.Context, playerID string, amount domain.Money, reference string) (*domain.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	tx, err := s.credit(ctx, playerID, amount, domain.TxTypeDeposit, "", "", reference)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventDeposit, domain.SeverityInfo,
		fmt.Sprintf("Deposit of %.2f %s", amount.Float64(), amount.Currency),
		map[string]interface{}{
			"transaction_id": tx.ID,
			"amount":         amount.Float64(),
			"currency":       amount.Currency,
		},
		audit.WithPlayer(playerID))

	return tx, nil
}

// PlaceBet deducts a bet (GLI-19 §4.3.3). The balance check and the
// deduction are one statement, so concurrent bets cannot overdraw.
func (s *Service) PlaceBet(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}

	now := time.Now().UTC()
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Money{}, err
	}
	defer dbTx.Rollback()

	var after int64
	err = dbTx.QueryRowContext(ctx, `
		UPDATE balances SET amount = amount - $1, updated_at = $2
		WHERE player_id = $3 AND currency = $4 AND amount >= $1
		RETURNING amount
	`, amount.Amount, now, playerID, amount.Currency).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Money{}, ErrInsufficientFunds
	}
	if err != nil {
		return domain.Money{}, fmt.Errorf("failed to place bet: %w", err)
	}

	txn := &domain.Transaction{
		ID:            uuid.New().String(),
		PlayerID:      playerID,
		Type:          domain.TxTypeWager,
		Amount:        amount,
		BalanceBefore: domain.Cents(after+amount.Amount, amount.Currency),
		BalanceAfter:  domain.Cents(after, amount.Currency),
		GameID:        gameID,
		Category:      category,
		CreatedAt:     now,
	}
	if err := insertTransaction(ctx, dbTx, txn); err != nil {
		return domain.Money{}, err
	}

	if err := dbTx.Commit(); err != nil {
		return domain.Money{}, err
	}
	return txn.BalanceAfter, nil
}

// RecordWin adds winnings to a player's balance (GLI-19 §4.3.3)
func (s *Service) RecordWin(ctx context.Context, playerID string, amount domain.Money, gameID string, category domain.GameCategory) (domain.Money, error) {
	if err := checkAmount(amount); err != nil {
		return domain.Money{}, err
	}

	tx, err := s.credit(ctx, playerID, amount, domain.TxTypeWin, gameID, category, "")
	if err != nil {
		s.log.Warn("win credit failed",
			zap.String("player_id", playerID),
			zap.String("game_id", gameID),
			zap.Int64("amount", amount.Amount),
			zap.Error(err))
		return domain.Money{}, err
	}
	return tx.BalanceAfter, nil
}

func (s *Service) credit(ctx context.Context, playerID string, amount domain.Money, txType domain.TransactionType, gameID string, category domain.GameCategory, reference string) (*domain.Transaction, error) {
	now := time.Now().UTC()
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback()

	var after int64
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO balances (player_id, currency, amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id, currency)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		RETURNING amount
	`, playerID, amount.Currency, amount.Amount, now).Scan(&after)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	txn := &domain.Transaction{
		ID:            uuid.New().String(),
		PlayerID:      playerID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: domain.Cents(after-amount.Amount, amount.Currency),
		BalanceAfter:  domain.Cents(after, amount.Currency),
		GameID:        gameID,
		Category:      category,
		Reference:     reference,
		CreatedAt:     now,
	}
	if err := insertTransaction(ctx, dbTx, txn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}

func insertTransaction(ctx context.Context, dbTx *sql.Tx, tx *domain.Transaction) error {
	_, err := dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, player_id, type, amount, currency, balance_before, balance_after, game_id, category, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tx.ID, tx.PlayerID, tx.Type, tx.Amount.Amount, tx.Amount.Currency,
		tx.BalanceBefore.Amount, tx.BalanceAfter.Amount, tx.GameID, tx.Category, tx.Reference, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// GetTransactions retrieves transaction history for a player (GLI-19 §2.5.7)
func (s *Service) GetTransactions(ctx context.Context, playerID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, type, amount, currency, balance_before, balance_after, game_id, category, reference, created_at
		FROM transactions WHERE player_id = $1 ORDER BY created_at DESC LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var amount, balBefore, balAfter int64
		var currency string
		var gameID, category, reference sql.NullString

		err := rows.Scan(&tx.ID, &tx.PlayerID, &tx.Type, &amount, &currency,
			&balBefore, &balAfter, &gameID, &category, &reference, &tx.CreatedAt)
		if err != nil {
			return nil, err
		}

		tx.Amount = domain.Cents(amount, currency)
		tx.BalanceBefore = domain.Cents(balBefore, currency)
		tx.BalanceAfter = domain.Cents(balAfter, currency)
		tx.GameID = gameID.String
		tx.Category = domain.GameCategory(category.String)
		tx.Reference = reference.String

		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}
