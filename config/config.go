// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	Port  int  `env:"PORT" envDefault:"8080"`
	Debug bool `env:"DEBUG" envDefault:"false"`

	// Gemini
	GeminiAPIKey     string `env:"GEMINI_API_KEY,required,notEmpty"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-lite"`
	StructuredOutput bool   `env:"GEMINI_STRUCTURED_OUTPUT" envDefault:"true"`

	// HTTP
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	BodyLimit   string   `env:"BODY_LIMIT" envDefault:"1M"`

	// Observer stream
	JWTSecret     string        `env:"JWT_SECRET,required,notEmpty"`
	WatchTokenTTL time.Duration `env:"WATCH_TOKEN_TTL" envDefault:"2h"`

	// Event bus: in-process channels unless REDIS_URL is set
	RedisURL string `env:"REDIS_URL"`

	// Archive
	ArchiveEnabled bool          `env:"ARCHIVE_ENABLED" envDefault:"false"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"./data/trainer.db"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Voice mode
	TTSEnabled   bool   `env:"TTS_ENABLED" envDefault:"false"`
	STTEnabled   bool   `env:"STT_ENABLED" envDefault:"false"`
	LanguageCode string `env:"LANGUAGE_CODE" envDefault:"ja-JP"`
	TTSVoice     string `env:"TTS_VOICE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if c.ArchiveEnabled {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL cannot be empty when ARCHIVE_ENABLED is set")
		}
		if c.SessionIdleTTL <= 0 || c.SweepInterval <= 0 {
			return fmt.Errorf("SESSION_IDLE_TTL and SWEEP_INTERVAL must be > 0")
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// UsesPostgres reports whether the archive points at PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
