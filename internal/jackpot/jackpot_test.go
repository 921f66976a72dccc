package jackpot

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/database"
)

// runStoreTests exercises the Store contract against any implementation
func runStoreTests(t *testing.T, store Store) {
	ctx := context.Background()
	seed := decimal.NewFromInt(100000)

	t.Run("EnsureIsIdempotent", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		if err := store.Ensure(ctx, id, seed); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
		if _, err := store.Contribute(ctx, id, decimal.NewFromInt(50)); err != nil {
			t.Fatalf("Contribute failed: %v", err)
		}
		if err := store.Ensure(ctx, id, seed); err != nil {
			t.Fatalf("Second ensure failed: %v", err)
		}
		amount, _ := store.Amount(ctx, id)
		if !amount.Equal(decimal.NewFromInt(100050)) {
			t.Errorf("Expected 100050, got %s", amount)
		}
	})

	t.Run("FractionalContributions", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		store.Ensure(ctx, id, seed)
		for i := 0; i < 4; i++ {
			store.Contribute(ctx, id, decimal.RequireFromString("0.25"))
		}
		amount, _ := store.Amount(ctx, id)
		if !amount.Equal(decimal.NewFromInt(100001)) {
			t.Errorf("Expected 100001, got %s", amount)
		}
	})

	t.Run("ClaimResetsToSeed", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		store.Ensure(ctx, id, seed)
		store.Contribute(ctx, id, decimal.NewFromInt(777))

		won, err := store.Claim(ctx, id, seed)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if !won.Equal(decimal.NewFromInt(100777)) {
			t.Errorf("Expected to win 100777, got %s", won)
		}
		amount, _ := store.Amount(ctx, id)
		if !amount.Equal(seed) {
			t.Errorf("Expected pool reset to %s, got %s", seed, amount)
		}
	})

	t.Run("UnknownPool", func(t *testing.T) {
		id := "missing-" + uuid.New().String()
		if _, err := store.Contribute(ctx, id, decimal.NewFromInt(1)); !errors.Is(err, ErrUnknownPool) {
			t.Errorf("Expected ErrUnknownPool from Contribute, got %v", err)
		}
		if _, err := store.Claim(ctx, id, seed); !errors.Is(err, ErrUnknownPool) {
			t.Errorf("Expected ErrUnknownPool from Claim, got %v", err)
		}
		if _, err := store.Amount(ctx, id); !errors.Is(err, ErrUnknownPool) {
			t.Errorf("Expected ErrUnknownPool from Amount, got %v", err)
		}
	})

	t.Run("ConcurrentContributions", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		store.Ensure(ctx, id, seed)

		const workers = 50
		const perWorker = 20
		a := decimal.RequireFromString("1.5")

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					if _, err := store.Contribute(ctx, id, a); err != nil {
						t.Errorf("Contribute failed: %v", err)
					}
				}
			}()
		}
		wg.Wait()

		want := seed.Add(a.Mul(decimal.NewFromInt(workers * perWorker)))
		amount, _ := store.Amount(ctx, id)
		if !amount.Equal(want) {
			t.Errorf("Expected %s after concurrent contributions, got %s", want, amount)
		}
	})

	t.Run("ClaimDuringContributions", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		zero := decimal.Zero
		store.Ensure(ctx, id, zero)

		const contributions = 400
		one := decimal.NewFromInt(1)

		var wg sync.WaitGroup
		var mu sync.Mutex
		claimed := decimal.Zero

		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < contributions; i++ {
				store.Contribute(ctx, id, one)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				won, err := store.Claim(ctx, id, zero)
				if err != nil {
					t.Errorf("Claim failed: %v", err)
					return
				}
				mu.Lock()
				claimed = claimed.Add(won)
				mu.Unlock()
			}
		}()
		wg.Wait()

		rest, _ := store.Amount(ctx, id)
		if total := claimed.Add(rest); !total.Equal(decimal.NewFromInt(contributions)) {
			t.Errorf("Expected claimed plus remaining to be %d, got %s", contributions, total)
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		id := "pool-" + uuid.New().String()
		store.Ensure(ctx, id, seed)
		snap, err := store.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if got, ok := snap[id]; !ok || !got.Equal(seed) {
			t.Errorf("Expected %s in snapshot at %s, got %s", id, seed, got)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("RGS_TEST_REDIS")
	if addr == "" {
		t.Skip("RGS_TEST_REDIS not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to reach redis: %v", err)
	}

	runStoreTests(t, NewRedisStore(rdb))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RGS_TEST_DSN")
	if dsn == "" {
		t.Skip("RGS_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	runStoreTests(t, NewPostgresStore(db))
}
