package control

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const controlTable = "game_controls"

// PostgresStore keeps switches in the game_controls table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Save(ctx context.Context, s *Setting) error {
	query := sq.Insert(controlTable).
		Columns("scope", "enabled", "reason", "updated_by", "updated_at").
		Values(s.Scope, s.Enabled, s.Reason, s.UpdatedBy, s.UpdatedAt).
		Suffix("ON CONFLICT (scope) DO UPDATE SET enabled = EXCLUDED.enabled, reason = EXCLUDED.reason, " +
			"updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (p *PostgresStore) Load(ctx context.Context) ([]*Setting, error) {
	sqlStr, args, err := sq.Select("scope", "enabled", "reason", "updated_by", "updated_at").
		From(controlTable).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query game controls: %w", err)
	}
	defer rows.Close()

	var out []*Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Scope, &s.Enabled, &s.Reason, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
