package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/alexbotov/casino-engine/internal/database"
	"github.com/alexbotov/casino-engine/internal/domain"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventLargeWin, domain.SeverityInfo, "Large win", map[string]int64{"win": 50000},
		WithPlayer("p1"), WithGame("fortune-fives"), WithComponent("slots"))

	if e.ID == "" {
		t.Error("Expected event ID to be set")
	}
	if e.PlayerID == nil || *e.PlayerID != "p1" {
		t.Errorf("Expected player p1, got %v", e.PlayerID)
	}
	if e.GameID == nil || *e.GameID != "fortune-fives" {
		t.Errorf("Expected game fortune-fives, got %v", e.GameID)
	}
	if e.Component != "slots" {
		t.Errorf("Expected component slots, got %s", e.Component)
	}

	var data map[string]int64
	if err := json.Unmarshal(e.Data, &data); err != nil || data["win"] != 50000 {
		t.Errorf("Expected data win=50000, got %s", e.Data)
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Record(ctx, &domain.GameRecord{ID: "r1", Kind: domain.CategorySlots})
	m.Record(ctx, &domain.GameRecord{ID: "r2", Kind: domain.CategoryRoulette})
	m.Log(ctx, EventJackpotWon, domain.SeverityInfo, "Jackpot", nil)
	m.Log(ctx, EventLargeWin, domain.SeverityInfo, "Large win", nil)

	records := m.Records()
	if len(records) != 2 || records[0].ID != "r1" {
		t.Errorf("Expected records in insertion order, got %d", len(records))
	}
	if got := len(m.Events(EventJackpotWon)); got != 1 {
		t.Errorf("Expected 1 jackpot event, got %d", got)
	}
	if got := len(m.Events("")); got != 2 {
		t.Errorf("Expected 2 events, got %d", got)
	}
}

func TestServicePostgres(t *testing.T) {
	dsn := os.Getenv("RGS_TEST_DSN")
	if dsn == "" {
		t.Skip("RGS_TEST_DSN not set")
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	svc := New(db)
	player := "player-" + uuid.New().String()

	t.Run("RecordAndQuery", func(t *testing.T) {
		rec := &domain.GameRecord{
			ID:       "spin_1_" + player,
			Kind:     domain.CategorySlots,
			PlayerID: player,
			GameID:   "fortune-fives",
			Bet:      domain.Cents(100, "USD"),
			Win:      domain.Cents(250, "USD"),
			Payload:  json.RawMessage(`{"grid":[]}`),
		}
		if err := svc.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		records, err := svc.GetRecords(ctx, RecordFilter{PlayerID: player})
		if err != nil {
			t.Fatalf("GetRecords failed: %v", err)
		}
		if len(records) != 1 || records[0].Win.Amount != 250 {
			t.Errorf("Expected one record with win 250, got %+v", records)
		}
	})

	t.Run("LogAndQuery", func(t *testing.T) {
		if err := svc.Log(ctx, EventLargeWin, domain.SeverityInfo, "Large win", nil, WithPlayer(player)); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
		events, err := svc.GetEvents(ctx, &EventFilter{PlayerID: player, Type: EventLargeWin})
		if err != nil {
			t.Fatalf("GetEvents failed: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("Expected 1 event, got %d", len(events))
		}
	})
}
