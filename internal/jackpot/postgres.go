package jackpot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
)

const (
	poolTable     = "jackpot_pools"
	colID         = "id"
	colAmount     = "amount"
	colUpdatedAt  = "updated_at"
	colClaimCount = "claims"
)

// PostgresStore keeps pools in the jackpot_pools table. Contribution is a
// single UPDATE ... RETURNING; claim locks the row for the read and reset.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ensure(ctx context.Context, id string, seed decimal.Decimal) error {
	query := sq.Insert(poolTable).
		Columns(colID, colAmount, colUpdatedAt).
		Values(id, seed, time.Now().UTC()).
		Suffix("ON CONFLICT (" + colID + ") DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to ensure pool %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Contribute(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := sq.Update(poolTable).
		Set(colAmount, sq.Expr(colAmount+" + ?", amount)).
		Set(colUpdatedAt, time.Now().UTC()).
		Where(sq.Eq{colID: id}).
		Suffix("RETURNING " + colAmount).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var total decimal.Decimal
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to contribute to pool %s: %w", id, err)
	}
	return total, nil
}

func (s *PostgresStore) Claim(ctx context.Context, id string, seed decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	sel := sq.Select(colAmount).
		From(poolTable).
		Where(sq.Eq{colID: id}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := sel.ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var won decimal.Decimal
	err = tx.QueryRowContext(ctx, sqlStr, args...).Scan(&won)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock pool %s: %w", id, err)
	}

	upd := sq.Update(poolTable).
		Set(colAmount, seed).
		Set(colClaimCount, sq.Expr(colClaimCount+" + 1")).
		Set(colUpdatedAt, time.Now().UTC()).
		Where(sq.Eq{colID: id}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err = upd.ToSql()
	if err != nil {
		return decimal.Zero, err
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to reset pool %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return won, nil
}

func (s *PostgresStore) Amount(ctx context.Context, id string) (decimal.Decimal, error) {
	query := sq.Select(colAmount).
		From(poolTable).
		Where(sq.Eq{colID: id}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var amount decimal.Decimal
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (s *PostgresStore) Snapshot(ctx context.Context) (map[string]decimal.Decimal, error) {
	sqlStr, args, err := sq.Select(colID, colAmount).From(poolTable).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var id string
		var amount decimal.Decimal
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, err
		}
		out[id] = amount
	}
	return out, rows.Err()
}
