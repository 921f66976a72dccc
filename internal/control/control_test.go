package control

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/database"
	"github.com/alexbotov/casino-engine/internal/domain"
)

// memStore keeps saved settings so a second service can reload them
type memStore struct {
	mu       sync.Mutex
	settings map[string]*Setting
	fail     error
}

func (m *memStore) Save(_ context.Context, s *Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	cp := *s
	m.settings[s.Scope] = &cp
	return nil
}

func (m *memStore) Load(_ context.Context) ([]*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Setting
	for _, s := range m.settings {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func setupTestControl(t *testing.T) (*Service, *memStore, *audit.Memory) {
	t.Helper()
	store := &memStore{settings: make(map[string]*Setting)}
	rec := audit.NewMemory()
	return New(store, rec), store, rec
}

func TestGamingEnabled(t *testing.T) {
	svc, _, _ := setupTestControl(t)

	if !svc.IsGamingEnabled() {
		t.Error("Gaming should be enabled by default")
	}
	if err := svc.CheckGame("fortune-fives"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestDisableAllGaming(t *testing.T) {
	svc, _, rec := setupTestControl(t)
	ctx := context.Background()

	t.Run("RequiresReason", func(t *testing.T) {
		if err := svc.DisableAllGaming(ctx, "", "admin"); !errors.Is(err, ErrNoReason) {
			t.Errorf("Expected ErrNoReason, got %v", err)
		}
	})

	t.Run("DisableGaming", func(t *testing.T) {
		if err := svc.DisableAllGaming(ctx, "Maintenance", "admin@example.com"); err != nil {
			t.Fatalf("Failed to disable gaming: %v", err)
		}
		if svc.IsGamingEnabled() {
			t.Error("Gaming should be disabled")
		}

		err := svc.CheckGame("fortune-fives")
		if !errors.Is(err, domain.ErrGameDisabled) {
			t.Errorf("Expected ErrGameDisabled, got %v", err)
		}

		status := svc.GetSystemStatus()
		if status.GamingEnabled || status.DisabledReason != "Maintenance" || status.DisabledAt == nil {
			t.Errorf("Unexpected status: %+v", status)
		}
		if len(rec.Events("gaming_disabled")) != 1 {
			t.Error("Expected a gaming_disabled audit event")
		}
	})

	t.Run("EnableGaming", func(t *testing.T) {
		if err := svc.EnableAllGaming(ctx, "admin@example.com"); err != nil {
			t.Fatalf("Failed to enable gaming: %v", err)
		}
		if !svc.IsGamingEnabled() {
			t.Error("Gaming should be enabled")
		}
		if status := svc.GetSystemStatus(); status.DisabledAt != nil {
			t.Errorf("Expected no disabled timestamp, got %v", status.DisabledAt)
		}
	})
}

func TestDisableGame(t *testing.T) {
	svc, _, _ := setupTestControl(t)
	ctx := context.Background()
	gameID := "gem-cascade"

	t.Run("DisableGame", func(t *testing.T) {
		if err := svc.DisableGame(ctx, gameID, "Paytable review", "admin"); err != nil {
			t.Fatalf("Failed to disable game: %v", err)
		}
		if svc.IsGameEnabled(gameID) {
			t.Error("Game should be disabled")
		}
		if err := svc.CheckGame(gameID); !errors.Is(err, domain.ErrGameDisabled) {
			t.Errorf("Expected ErrGameDisabled, got %v", err)
		}
		if got := svc.GetSystemStatus().DisabledGames; len(got) != 1 || got[0] != gameID {
			t.Errorf("Expected [%s], got %v", gameID, got)
		}
	})

	t.Run("OtherGamesStillEnabled", func(t *testing.T) {
		if err := svc.CheckGame("roulette-european"); err != nil {
			t.Errorf("Expected other games enabled, got %v", err)
		}
	})

	t.Run("EnableGame", func(t *testing.T) {
		if err := svc.EnableGame(ctx, gameID, "admin"); err != nil {
			t.Fatalf("Failed to enable game: %v", err)
		}
		if !svc.IsGameEnabled(gameID) {
			t.Error("Game should be enabled")
		}
	})
}

func TestLoadState(t *testing.T) {
	svc, store, _ := setupTestControl(t)
	ctx := context.Background()

	svc.DisableAllGaming(ctx, "Incident", "ops")
	svc.DisableGame(ctx, "classic-sevens", "Review", "ops")

	restarted := New(store, nil)
	if err := restarted.LoadState(ctx); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if restarted.IsGamingEnabled() {
		t.Error("Expected gaming to stay disabled after restart")
	}
	if restarted.IsGameEnabled("classic-sevens") {
		t.Error("Expected classic-sevens to stay disabled after restart")
	}
}

func TestStoreFailure(t *testing.T) {
	svc, store, _ := setupTestControl(t)
	store.fail = errors.New("connection refused")

	if err := svc.DisableGame(context.Background(), "gem-cascade", "Review", "ops"); err == nil {
		t.Fatal("Expected error when the store fails")
	}
	if !svc.IsGameEnabled("gem-cascade") {
		t.Error("Expected state unchanged when persistence fails")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RGS_TEST_DSN")
	if dsn == "" {
		t.Skip("RGS_TEST_DSN not set")
	}

	db, err := database.New("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := db.CleanData(ctx); err != nil {
		t.Fatalf("Failed to clean data: %v", err)
	}

	svc := New(NewPostgresStore(db.DB), audit.New(db.DB))
	if err := svc.DisableGame(ctx, "fortune-fives", "Review", "ops"); err != nil {
		t.Fatalf("DisableGame failed: %v", err)
	}
	if err := svc.DisableGame(ctx, "fortune-fives", "Second review", "ops"); err != nil {
		t.Fatalf("DisableGame upsert failed: %v", err)
	}

	restarted := New(NewPostgresStore(db.DB), nil)
	if err := restarted.LoadState(ctx); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if restarted.IsGameEnabled("fortune-fives") {
		t.Error("Expected fortune-fives disabled after reload")
	}
}
