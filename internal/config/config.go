package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	DispatchTimeoutSec int    `env:"DISPATCH_TIMEOUT_SEC,default=30"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// DispatchTimeout returns the per-dispatch timeout as a duration.
func (c *Config) DispatchTimeout() time.Duration {
	if c == nil || c.DispatchTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DispatchTimeoutSec) * time.Second
}
