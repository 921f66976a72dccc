package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alexbotov/casino-engine/internal/api"
	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/auth"
	"github.com/alexbotov/casino-engine/internal/config"
	"github.com/alexbotov/casino-engine/internal/control"
	"github.com/alexbotov/casino-engine/internal/database"
	"github.com/alexbotov/casino-engine/internal/game"
	"github.com/alexbotov/casino-engine/internal/jackpot"
	"github.com/alexbotov/casino-engine/internal/limits"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/wallet"
	"github.com/alexbotov/casino-engine/pkg/seamless"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Env == "development" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadCatalog(cfg.Game.GamesFile)
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	auditSvc := audit.New(db.DB)
	rngSvc := rng.New()

	// GLI-19 §3.3.3 - RNG must be healthy before accepting play
	if h, err := rngSvc.HealthCheck(); err != nil || !h.Healthy {
		log.Warn("rng health check failed at startup", zap.Any("result", h), zap.Error(err))
	}

	pools, closePools, err := newJackpotStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closePools()

	inner, err := newWallet(cfg, db, auditSvc, log)
	if err != nil {
		return err
	}
	guard := limits.New(inner, limits.Limits{
		DailyWager: cfg.Limits.DailyWager,
		DailyLoss:  cfg.Limits.DailyLoss,
	}, auditSvc, limits.WithStore(limits.NewPostgresStore(db.DB)))

	ctl := control.New(control.NewPostgresStore(db.DB), auditSvc)
	if err := ctl.LoadState(ctx); err != nil {
		return err
	}

	engine, err := game.New(ctx, catalog, game.Deps{
		RNG:      rngSvc,
		Wallet:   guard,
		Jackpots: pools,
		Audit:    auditSvc,
		Sessions: session.NewPostgresStore(db.DB),
		Logger:   log,
		Control:  ctl,
		LargeWin: cfg.Game.LargeWin,
		MinRTP:   cfg.Game.MinRTP,
	})
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithCurrency(cfg.Game.DefaultCurrency),
		api.WithLimits(guard),
		api.WithOperatorKey(cfg.Auth.OperatorKey),
	}
	if _, ok := inner.(wallet.BalanceReader); ok {
		opts = append(opts, api.WithBalances(guard))
	}
	handler := api.New(auth.New(cfg.Auth), engine, rngSvc, log, opts...)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler.SetupRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("wallet", cfg.Wallet.Mode),
			zap.String("jackpots", cfg.Game.JackpotStore))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newJackpotStore(ctx context.Context, cfg *config.Config, db *database.DB) (jackpot.Store, func(), error) {
	switch cfg.Game.JackpotStore {
	case "memory":
		return jackpot.NewMemoryStore(), func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		return jackpot.NewRedisStore(rdb), func() { rdb.Close() }, nil
	case "postgres":
		return jackpot.NewPostgresStore(db.DB), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown jackpot store %q", cfg.Game.JackpotStore)
	}
}

func newWallet(cfg *config.Config, db *database.DB, rec audit.Recorder, log *zap.Logger) (wallet.Wallet, error) {
	switch cfg.Wallet.Mode {
	case "postgres":
		return wallet.New(db.DB, rec, log), nil
	case "seamless":
		if cfg.Wallet.SeamlessURL == "" {
			return nil, errors.New("RGS_SEAMLESS_URL is required for the seamless wallet")
		}
		return wallet.NewSeamless(seamless.NewClient(&seamless.ClientConfig{
			BaseURL:    cfg.Wallet.SeamlessURL,
			APIKey:     cfg.Wallet.SeamlessKey,
			APISecret:  cfg.Wallet.SeamlessSecret,
			Timeout:    cfg.Wallet.Timeout,
			RetryCount: 2,
		})), nil
	default:
		return nil, fmt.Errorf("unknown wallet mode %q", cfg.Wallet.Mode)
	}
}
