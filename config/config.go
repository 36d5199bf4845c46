package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is loaded once at startup and passed into constructors; nothing in
// the process reads the environment after boot.
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`
	DSN  string `env:"DSN,required"`

	// JWTSecret signs session tokens. TokenTTL of zero means tokens never
	// expire on their own and are invalidated only by logout.
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"0"`

	MinPasswordLen int `env:"MIN_PASSWORD_LEN" envDefault:"6"`
}

// Load reads .env when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
