// Package config provides configuration management for the game engine
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Game     GameConfig
	Wallet   WalletConfig
	Limits   LimitsConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// RedisConfig holds the address of the shared jackpot store
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	JWTSecret   string
	Issuer      string
	TokenExpiry time.Duration
	// OperatorKey enables the /admin routes when set
	OperatorKey string
}

// GameConfig holds game-related configuration
type GameConfig struct {
	DefaultCurrency string
	GamesFile       string
	// JackpotStore is memory, redis or postgres
	JackpotStore string
	// LargeWin is the win, in minor units, that raises an audit event
	LargeWin int64
	MinRTP   float64
}

// WalletConfig selects the wallet backend
type WalletConfig struct {
	// Mode is postgres or seamless
	Mode           string
	SeamlessURL    string
	SeamlessKey    string
	SeamlessSecret string
	Timeout        time.Duration
}

// LimitsConfig holds the default player limits in minor units, zero is none
// (GLI-19 §2.5.5)
type LimitsConfig struct {
	DailyWager int64
	DailyLoss  int64
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
	Env   string
}

// Load reads a .env file when present, then configuration from the
// environment with defaults
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("RGS_PORT", "8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("RGS_DB_DRIVER", "postgres"),
			DSN:    getEnv("RGS_DB_DSN", "host=localhost dbname=rgs sslmode=disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("RGS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("RGS_REDIS_PASSWORD", ""),
			DB:       int(getEnvInt("RGS_REDIS_DB", 0)),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("RGS_JWT_SECRET", "rgs-dev-secret-change-in-production"),
			Issuer:      getEnv("RGS_JWT_ISSUER", "casino-engine"),
			TokenExpiry: 24 * time.Hour,
			OperatorKey: getEnv("RGS_OPERATOR_KEY", ""),
		},
		Game: GameConfig{
			DefaultCurrency: getEnv("RGS_CURRENCY", "USD"),
			GamesFile:       getEnv("RGS_GAMES_FILE", ""),
			JackpotStore:    getEnv("RGS_JACKPOT_STORE", "postgres"),
			LargeWin:        getEnvInt("RGS_LARGE_WIN", 100000),
			MinRTP:          0.75, // GLI-19 §4.7.1 - minimum 75%
		},
		Wallet: WalletConfig{
			Mode:           getEnv("RGS_WALLET", "postgres"),
			SeamlessURL:    getEnv("RGS_SEAMLESS_URL", ""),
			SeamlessKey:    getEnv("RGS_SEAMLESS_KEY", ""),
			SeamlessSecret: getEnv("RGS_SEAMLESS_SECRET", ""),
			Timeout:        10 * time.Second,
		},
		Limits: LimitsConfig{
			DailyWager: getEnvInt("RGS_DAILY_WAGER_LIMIT", 0),
			DailyLoss:  getEnvInt("RGS_DAILY_LOSS_LIMIT", 0),
		},
		Log: LogConfig{
			Level: getEnv("RGS_LOG_LEVEL", "info"),
			Env:   getEnv("RGS_ENV", "production"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
