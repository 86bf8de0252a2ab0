package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for the dev server.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// ServerConfig controls the standalone HTTP dev server.
type ServerConfig struct {
	Addr            string        `env:"CHAOSCLASH_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"CHAOSCLASH_LOG_LEVEL"        envDefault:"info"`
	GameConfigPath  string        `env:"CHAOSCLASH_GAME_CONFIG"`
	Store           string        `env:"CHAOSCLASH_STORE"            envDefault:"memory"`
	RedisAddr       string        `env:"CHAOSCLASH_REDIS_ADDR"       envDefault:"localhost:6379"`
	RedisPassword   string        `env:"CHAOSCLASH_REDIS_PASSWORD"`
	RedisDB         int           `env:"CHAOSCLASH_REDIS_DB"         envDefault:"0"`
	SnapshotTTL     time.Duration `env:"CHAOSCLASH_SNAPSHOT_TTL"     envDefault:"24h"`
	ShutdownTimeout time.Duration `env:"CHAOSCLASH_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Seed            int64         `env:"CHAOSCLASH_SEED"`
}

// LoadServerConfig loads the dev server configuration from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Store {
	case StoreMemory, StoreRedis:
	default:
		return ServerConfig{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}
