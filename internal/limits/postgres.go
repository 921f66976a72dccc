package limits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	limitsTable   = "player_limits"
	activityTable = "limit_activity"
)

// PostgresStore keeps limits in player_limits and totals the window from limit_activity
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Load(ctx context.Context, playerID string) (*Record, error) {
	sqlStr, args, err := sq.Select("daily_wager", "daily_loss", "pending_wager", "pending_loss", "pending_at").
		From(limitsTable).
		Where(sq.Eq{"player_id": playerID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rec Record
	var pendingWager, pendingLoss sql.NullInt64
	var pendingAt sql.NullTime
	err = p.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&rec.Current.DailyWager, &rec.Current.DailyLoss, &pendingWager, &pendingLoss, &pendingAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query player limits: %w", err)
	}

	if pendingAt.Valid {
		rec.Pending = &Limits{DailyWager: pendingWager.Int64, DailyLoss: pendingLoss.Int64}
		rec.PendingAt = pendingAt.Time.UTC()
	}
	return &rec, nil
}

func (p *PostgresStore) Save(ctx context.Context, playerID string, rec *Record) error {
	var pendingWager, pendingLoss sql.NullInt64
	var pendingAt sql.NullTime
	if rec.Pending != nil {
		pendingWager = sql.NullInt64{Int64: rec.Pending.DailyWager, Valid: true}
		pendingLoss = sql.NullInt64{Int64: rec.Pending.DailyLoss, Valid: true}
		pendingAt = sql.NullTime{Time: rec.PendingAt, Valid: true}
	}

	sqlStr, args, err := sq.Insert(limitsTable).
		Columns("player_id", "daily_wager", "daily_loss", "pending_wager", "pending_loss", "pending_at", "updated_at").
		Values(playerID, rec.Current.DailyWager, rec.Current.DailyLoss, pendingWager, pendingLoss, pendingAt, time.Now().UTC()).
		Suffix("ON CONFLICT (player_id) DO UPDATE SET daily_wager = EXCLUDED.daily_wager, " +
			"daily_loss = EXCLUDED.daily_loss, pending_wager = EXCLUDED.pending_wager, " +
			"pending_loss = EXCLUDED.pending_loss, pending_at = EXCLUDED.pending_at, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (p *PostgresStore) AddActivity(ctx context.Context, playerID string, a Activity) error {
	sqlStr, args, err := sq.Insert(activityTable).
		Columns("player_id", "currency", "bet", "win", "created_at").
		Values(playerID, a.Currency, a.Bet, a.Win, a.At).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (p *PostgresStore) Totals(ctx context.Context, playerID, currency string, since time.Time) (wagered, won int64, err error) {
	sqlStr, args, err := sq.Select("COALESCE(SUM(bet), 0)", "COALESCE(SUM(win), 0)").
		From(activityTable).
		Where(sq.Eq{"player_id": playerID, "currency": currency}).
		Where(sq.Gt{"created_at": since}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, 0, err
	}
	if err := p.db.QueryRowContext(ctx, sqlStr, args...).Scan(&wagered, &won); err != nil {
		return 0, 0, fmt.Errorf("failed to total limit activity: %w", err)
	}
	return wagered, won, nil
}
