// Package domain contains the core value types shared by the game engines
//
// Key concepts:
//   - Money: integer minor units plus an ISO 4217 currency code
//   - GameSession: running per-player, per-game aggregate
//   - GameRecord: opaque outcome record handed to the persistence layer
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Money represents monetary values with precision
type Money struct {
	Amount   int64  `json:"amount"`   // Amount in smallest unit (cents)
	Currency string `json:"currency"` // ISO 4217 currency code
}

// NewMoney creates a new Money value from dollars/major unit
func NewMoney(amount float64, currency string) Money {
	return Money{
		Amount:   decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart(),
		Currency: currency,
	}
}

// Cents creates a Money value from minor units
func Cents(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Float64 returns the monetary value as a float
func (m Money) Float64() float64 {
	return float64(m.Amount) / 100.0
}

// Decimal returns the amount in minor units as a decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount)
}

// Add adds two money values
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Sub subtracts money value
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Times multiplies by an integer factor
func (m Money) Times(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}

// Mul multiplies by a decimal factor. Fractions of the minor unit are truncated.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{
		Amount:   m.Decimal().Mul(factor).Truncate(0).IntPart(),
		Currency: m.Currency,
	}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Zero returns a zero amount in the same currency
func (m Money) Zero() Money {
	return Money{Currency: m.Currency}
}

// MoneyFromDecimal converts a minor-unit decimal into Money, truncating fractions
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	return Money{Amount: d.Truncate(0).IntPart(), Currency: currency}
}

// GameCategory identifies the family a game belongs to
type GameCategory string

const (
	CategorySlots     GameCategory = "slots"
	CategoryBlackjack GameCategory = "blackjack"
	CategoryRoulette  GameCategory = "roulette"
	CategoryBaccarat  GameCategory = "baccarat"
)

// Game represents a game definition exposed by the catalog
type Game struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       GameCategory     `json:"category"`
	TheoreticalRTP float64          `json:"theoretical_rtp,omitempty"`
	MinBet         map[string]int64 `json:"min_bet"`
	MaxBet         map[string]int64 `json:"max_bet"`
	Enabled        bool             `json:"enabled"`
}

// GameSessionStatus represents game session state
type GameSessionStatus string

const (
	GameSessionActive    GameSessionStatus = "active"
	GameSessionCompleted GameSessionStatus = "completed"
)

// GameSession is the running aggregate of one player on one game
type GameSession struct {
	ID                string            `json:"id" db:"id"`
	PlayerID          string            `json:"player_id" db:"player_id"`
	GameID            string            `json:"game_id" db:"game_id"`
	Currency          string            `json:"currency" db:"currency"`
	StartedAt         time.Time         `json:"started_at" db:"started_at"`
	EndedAt           *time.Time        `json:"ended_at,omitempty" db:"ended_at"`
	LastActivityAt    time.Time         `json:"last_activity_at" db:"last_activity_at"`
	Status            GameSessionStatus `json:"status" db:"status"`
	RoundsPlayed      int64             `json:"rounds_played" db:"rounds_played"`
	TotalBet          int64             `json:"total_bet" db:"total_bet"`
	TotalWin          int64             `json:"total_win" db:"total_win"`
	BiggestWin        int64             `json:"biggest_win" db:"biggest_win"`
	WinStreak         int               `json:"win_streak" db:"win_streak"`
	LossStreak        int               `json:"loss_streak" db:"loss_streak"`
	LongestWinStreak  int               `json:"longest_win_streak" db:"longest_win_streak"`
	LongestLossStreak int               `json:"longest_loss_streak" db:"longest_loss_streak"`
}

// RTP returns the realized return to player of the session
func (s *GameSession) RTP() float64 {
	if s.TotalBet == 0 {
		return 0
	}
	return float64(s.TotalWin) / float64(s.TotalBet)
}

// NetResult returns total win minus total bet
func (s *GameSession) NetResult() int64 {
	return s.TotalWin - s.TotalBet
}

// GameRecord is an opaque outcome record stored by the persistence collaborator
type GameRecord struct {
	ID        string          `json:"id" db:"id"`
	Kind      GameCategory    `json:"kind" db:"kind"`
	PlayerID  string          `json:"player_id" db:"player_id"`
	GameID    string          `json:"game_id" db:"game_id"`
	Bet       Money           `json:"bet" db:"bet"`
	Win       Money           `json:"win" db:"win"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// EventSeverity represents audit event severity
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityError    EventSeverity = "error"
	SeverityCritical EventSeverity = "critical"
)

// AuditEvent represents a significant event such as a jackpot hit or a large win
type AuditEvent struct {
	ID          string          `json:"id" db:"id"`
	Type        string          `json:"type" db:"type"`
	Severity    EventSeverity   `json:"severity" db:"severity"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	PlayerID    *string         `json:"player_id,omitempty" db:"player_id"`
	SessionID   *string         `json:"session_id,omitempty" db:"session_id"`
	GameID      *string         `json:"game_id,omitempty" db:"game_id"`
	Description string          `json:"description" db:"description"`
	Data        json.RawMessage `json:"data,omitempty" db:"data"`
	Component   string          `json:"component" db:"component"`
}

// TransactionType represents wallet transaction types
type TransactionType string

const (
	TxTypeDeposit TransactionType = "deposit"
	TxTypeWager   TransactionType = "wager"
	TxTypeWin     TransactionType = "win"
)

// Transaction represents a wallet ledger entry
type Transaction struct {
	ID            string          `json:"id" db:"id"`
	PlayerID      string          `json:"player_id" db:"player_id"`
	Type          TransactionType `json:"type" db:"type"`
	Amount        Money           `json:"amount" db:"amount"`
	BalanceBefore Money           `json:"balance_before" db:"balance_before"`
	BalanceAfter  Money           `json:"balance_after" db:"balance_after"`
	GameID        string          `json:"game_id,omitempty" db:"game_id"`
	Category      GameCategory    `json:"category,omitempty" db:"category"`
	Reference     string          `json:"reference,omitempty" db:"reference"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
