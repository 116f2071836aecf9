// Package config loads client settings from the environment, with a
// best-effort .env file on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	ServerURL       string        `env:"PLAYROOM_SERVER_URL" envDefault:"ws://localhost:8080/subscribe"`
	GatewayURL      string        `env:"PLAYROOM_GATEWAY_URL" envDefault:"http://localhost:8080"`
	CredentialsPath string        `env:"PLAYROOM_CREDENTIALS_PATH"`
	BackoffBase     time.Duration `env:"PLAYROOM_BACKOFF_BASE" envDefault:"500ms"`
	BackoffCap      time.Duration `env:"PLAYROOM_BACKOFF_CAP" envDefault:"30s"`
	MaxAttempts     int           `env:"PLAYROOM_MAX_RECONNECT_ATTEMPTS" envDefault:"10"`
	SyncInterval    time.Duration `env:"PLAYROOM_SYNC_POLL_INTERVAL" envDefault:"100ms"`
	SyncTimeout     time.Duration `env:"PLAYROOM_SYNC_POLL_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"PLAYROOM_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() // ignore a missing .env, plain env vars still apply

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.CredentialsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home dir: %w", err)
		}
		cfg.CredentialsPath = filepath.Join(home, ".playroom", "credentials.db")
	}
	return &cfg, nil
}

// Logger builds a zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: log level %q: %w", c.LogLevel, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = level
	return zcfg.Build()
}
