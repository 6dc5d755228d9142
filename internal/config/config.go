package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `env:"SERVER_PORT, default=8080"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	MySQLDSN   string `env:"MYSQL_DSN,   default=user:password@tcp(localhost:3306)/erpcore?charset=utf8mb4&parseTime=True&loc=Local"`
	JWTSecret  string `env:"JWT_SECRET,  default=change-me"`

	Redis RedisConfig

	// Bootstrap is consumed by cmd/seed only.
	Bootstrap BootstrapConfig
}

// RedisConfig configures the token store backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	DB       int    `env:"REDIS_DB,   default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// BootstrapConfig describes the optional one-time admin account created
// by the seed command. Seeding skips it when Email is empty.
type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME, default=admin"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load builds Config from the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
