// Package audit records game outcomes and significant events
// Compliant with GLI-19 §2.8.8: Significant Event Information
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/alexbotov/casino-engine/internal/domain"
)

// Event types per GLI-19 §2.8.8
const (
	EventDeposit          = "deposit"
	EventGameSessionStart = "game_session_start"
	EventGameSessionEnd   = "game_session_end"
	EventLargeWin         = "large_win"
	EventJackpotWon       = "jackpot_won"
	EventWalletFailure    = "wallet_failure"
	EventSystemError      = "system_error"
	EventRNGHealthCheck   = "rng_health_check"
)

// Recorder is the persistence collaborator of the game services
type Recorder interface {
	// Record stores one resolved outcome
	Record(ctx context.Context, rec *domain.GameRecord) error
	// Log records a significant event
	Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error
}

// History is implemented by recorders that can replay stored outcomes
type History interface {
	GetRecords(ctx context.Context, filter RecordFilter) ([]*domain.GameRecord, error)
}

// Service provides audit logging functionality on top of PostgreSQL
type Service struct {
	db *sql.DB
}

// New creates a new audit service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record stores a game record
func (s *Service) Record(ctx context.Context, rec *domain.GameRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var payload interface{}
	if len(rec.Payload) > 0 {
		payload = string(rec.Payload)
	}

	query := sq.Insert("game_records").
		Columns("id", "kind", "player_id", "game_id", "bet_amount", "win_amount", "currency", "payload", "created_at").
		Values(rec.ID, rec.Kind, rec.PlayerID, rec.GameID, rec.Bet.Amount, rec.Win.Amount, rec.Bet.Currency, payload, rec.CreatedAt).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to store game record %s: %w", rec.ID, err)
	}
	return nil
}

// LogEvent records a significant event
func (s *Service) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var data interface{}
	if len(event.Data) > 0 {
		data = string(event.Data)
	}

	query := sq.Insert("audit_events").
		Columns("id", "type", "severity", "timestamp", "player_id", "session_id", "game_id", "description", "data", "component").
		Values(event.ID, event.Type, event.Severity, event.Timestamp, event.PlayerID, event.SessionID, event.GameID,
			event.Description, data, event.Component).
		PlaceholderFormat(sq.Dollar)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) error {
	return s.LogEvent(ctx, NewEvent(eventType, severity, description, data, opts...))
}

// NewEvent builds an event with the given options applied
func NewEvent(eventType string, severity domain.EventSeverity, description string, data interface{}, opts ...EventOption) *domain.AuditEvent {
	event := &domain.AuditEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Severity:    severity,
		Timestamp:   time.Now().UTC(),
		Description: description,
		Component:   "engine",
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err == nil {
			event.Data = jsonData
		}
	}

	for _, opt := range opts {
		opt(event)
	}
	return event
}

// EventOption is a functional option for configuring audit events
type EventOption func(*domain.AuditEvent)

// WithPlayer sets the player ID for the event
func WithPlayer(playerID string) EventOption {
	return func(e *domain.AuditEvent) {
		e.PlayerID = &playerID
	}
}

// WithSession sets the session ID for the event
func WithSession(sessionID string) EventOption {
	return func(e *domain.AuditEvent) {
		e.SessionID = &sessionID
	}
}

// WithGame sets the game ID for the event
func WithGame(gameID string) EventOption {
	return func(e *domain.AuditEvent) {
		e.GameID = &gameID
	}
}

// WithComponent sets the component for the event
func WithComponent(component string) EventOption {
	return func(e *domain.AuditEvent) {
		e.Component = component
	}
}

// RecordFilter defines criteria for game record history
type RecordFilter struct {
	PlayerID string
	GameID   string
	Kind     domain.GameCategory
	From     time.Time
	Limit    int
}

// GetRecords retrieves game history, newest first (GLI-19 §4.14)
func (s *Service) GetRecords(ctx context.Context, filter RecordFilter) ([]*domain.GameRecord, error) {
	query := sq.Select("id", "kind", "player_id", "game_id", "bet_amount", "win_amount", "currency", "payload", "created_at").
		From("game_records").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.PlayerID != "" {
		query = query.Where(sq.Eq{"player_id": filter.PlayerID})
	}
	if filter.GameID != "" {
		query = query.Where(sq.Eq{"game_id": filter.GameID})
	}
	if filter.Kind != "" {
		query = query.Where(sq.Eq{"kind": filter.Kind})
	}
	if !filter.From.IsZero() {
		query = query.Where(sq.GtOrEq{"created_at": filter.From})
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query = query.Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.GameRecord
	for rows.Next() {
		var rec domain.GameRecord
		var bet, win int64
		var currency string
		var payload sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.PlayerID, &rec.GameID, &bet, &win, &currency, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Bet = domain.Cents(bet, currency)
		rec.Win = domain.Cents(win, currency)
		if payload.Valid {
			rec.Payload = json.RawMessage(payload.String)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// EventFilter defines criteria for filtering audit events
type EventFilter struct {
	PlayerID string
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
}

// GetEvents retrieves audit events with optional filtering
func (s *Service) GetEvents(ctx context.Context, filter *EventFilter) ([]*domain.AuditEvent, error) {
	query := sq.Select("id", "type", "severity", "timestamp", "player_id", "session_id", "game_id", "description", "data", "component").
		From("audit_events").
		OrderBy("timestamp DESC").
		PlaceholderFormat(sq.Dollar)

	limit := 100
	if filter != nil {
		if filter.PlayerID != "" {
			query = query.Where(sq.Eq{"player_id": filter.PlayerID})
		}
		if filter.Type != "" {
			query = query.Where(sq.Eq{"type": filter.Type})
		}
		if !filter.From.IsZero() {
			query = query.Where(sq.GtOrEq{"timestamp": filter.From})
		}
		if !filter.To.IsZero() {
			query = query.Where(sq.LtOrEq{"timestamp": filter.To})
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}
	query = query.Limit(uint64(limit))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var event domain.AuditEvent
		var playerID, sessionID, gameID, data sql.NullString

		err := rows.Scan(&event.ID, &event.Type, &event.Severity, &event.Timestamp,
			&playerID, &sessionID, &gameID, &event.Description, &data, &event.Component)
		if err != nil {
			return nil, err
		}

		if playerID.Valid {
			event.PlayerID = &playerID.String
		}
		if sessionID.Valid {
			event.SessionID = &sessionID.String
		}
		if gameID.Valid {
			event.GameID = &gameID.String
		}
		if data.Valid {
			event.Data = json.RawMessage(data.String)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}
