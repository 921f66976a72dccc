package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/alexbotov/casino-engine/internal/domain"
)

const table = "game_sessions"

var columns = []string{
	"id", "player_id", "game_id", "currency", "started_at", "ended_at", "last_activity_at", "status",
	"rounds_played", "total_bet", "total_win", "biggest_win",
	"win_streak", "loss_streak", "longest_win_streak", "longest_loss_streak",
}

// PostgresStore keeps sessions in the game_sessions table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, s *domain.GameSession) error {
	query := sq.Insert(table).
		Columns(columns...).
		Values(s.ID, s.PlayerID, s.GameID, s.Currency, s.StartedAt, s.EndedAt, s.LastActivityAt, s.Status,
			s.RoundsPlayed, s.TotalBet, s.TotalWin, s.BiggestWin,
			s.WinStreak, s.LossStreak, s.LongestWinStreak, s.LongestLossStreak).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*domain.GameSession, error) {
	s, err := p.selectOne(ctx, sq.Eq{"id": id})
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, err
}

func (p *PostgresStore) FindOpen(ctx context.Context, playerID, gameID string) (*domain.GameSession, error) {
	return p.selectOne(ctx, sq.Eq{
		"player_id": playerID,
		"game_id":   gameID,
		"status":    domain.GameSessionActive,
	})
}

func (p *PostgresStore) selectOne(ctx context.Context, where sq.Eq) (*domain.GameSession, error) {
	query := sq.Select(columns...).
		From(table).
		Where(where).
		OrderBy("started_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var s domain.GameSession
	var endedAt sql.NullTime
	err = p.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&s.ID, &s.PlayerID, &s.GameID, &s.Currency, &s.StartedAt, &endedAt, &s.LastActivityAt, &s.Status,
		&s.RoundsPlayed, &s.TotalBet, &s.TotalWin, &s.BiggestWin,
		&s.WinStreak, &s.LossStreak, &s.LongestWinStreak, &s.LongestLossStreak)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return &s, nil
}

func (p *PostgresStore) Update(ctx context.Context, s *domain.GameSession) error {
	query := sq.Update(table).
		SetMap(map[string]interface{}{
			"ended_at":            s.EndedAt,
			"last_activity_at":    s.LastActivityAt,
			"status":              s.Status,
			"rounds_played":       s.RoundsPlayed,
			"total_bet":           s.TotalBet,
			"total_win":           s.TotalWin,
			"biggest_win":         s.BiggestWin,
			"win_streak":          s.WinStreak,
			"loss_streak":         s.LossStreak,
			"longest_win_streak":  s.LongestWinStreak,
			"longest_loss_streak": s.LongestLossStreak,
		}).
		Where(sq.Eq{"id": s.ID}).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, s.ID)
	}
	return nil
}
