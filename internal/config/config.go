package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Base URL of the external social service (user directory + friendships).
	SocialBaseURL string        `envconfig:"SOCIAL_BASE_URL" required:"true"`
	SocialTimeout time.Duration `envconfig:"SOCIAL_TIMEOUT" default:"3s"`

	// Optional Redis address for the shared friendship cache. Empty means
	// an in-process cache is used.
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	FriendshipGateTTL time.Duration `envconfig:"FRIENDSHIP_GATE_TTL" default:"30s"`

	// Scope of online/offline broadcasts: "all" or "friends".
	PresenceFanout string `envconfig:"PRESENCE_FANOUT" default:"all"`

	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"50"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if cfg.PresenceFanout != "all" && cfg.PresenceFanout != "friends" {
		return nil, fmt.Errorf("PRESENCE_FANOUT must be \"all\" or \"friends\", got %q", cfg.PresenceFanout)
	}
	return &cfg, nil
}
