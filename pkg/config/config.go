// Package config loads the service configuration from the environment.
// Every knob has a default; Load never touches the filesystem (the .env
// loading is the caller's job, before Load).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LLMTier configures one model tier. The strong tier drives seeding,
// planning, and prose; the fast tier drives assessments and state updates.
type LLMTier struct {
	Provider string
	Model    string
}

// Config is the umbrella configuration object for the service.
type Config struct {
	// HTTP server
	Host string
	Port int

	// Model tiers
	Strong LLMTier
	Fast   LLMTier

	// Data locations
	PromptsDir string
	TropesDir  string
	SeedDBPath string

	// Generation defaults
	TropePoolSize int

	// Retention
	SessionMaxIdle  time.Duration
	CleanupInterval time.Duration
}

// Load builds a Config from the environment, applying defaults for anything
// unset.
func Load() (*Config, error) {
	cfg := &Config{
		Host: getEnv("DRAMATURGE_HOST", "0.0.0.0"),
		Strong: LLMTier{
			Provider: getEnv("DRAMATURGE_STRONG_PROVIDER", "openai"),
			Model:    getEnv("DRAMATURGE_STRONG_MODEL", "gpt-4o"),
		},
		Fast: LLMTier{
			Provider: getEnv("DRAMATURGE_FAST_PROVIDER", "openai"),
			Model:    getEnv("DRAMATURGE_FAST_MODEL", "gpt-4o-mini"),
		},
		PromptsDir: getEnv("DRAMATURGE_PROMPTS_DIR", "prompts"),
		TropesDir:  getEnv("DRAMATURGE_TROPES_DIR", "data/tropes"),
		SeedDBPath: getEnv("DRAMATURGE_SEED_DB", "data/seeds.db"),
	}

	var err error
	if cfg.Port, err = getEnvInt("DRAMATURGE_PORT", 8000); err != nil {
		return nil, err
	}
	if cfg.TropePoolSize, err = getEnvInt("DRAMATURGE_TROPE_POOL_SIZE", 30); err != nil {
		return nil, err
	}
	if cfg.SessionMaxIdle, err = getEnvDuration("DRAMATURGE_SESSION_MAX_IDLE", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = getEnvDuration("DRAMATURGE_CLEANUP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Strong.Provider == "" || c.Strong.Model == "" {
		return fmt.Errorf("config: strong tier provider and model must be set")
	}
	if c.Fast.Provider == "" || c.Fast.Model == "" {
		return fmt.Errorf("config: fast tier provider and model must be set")
	}
	if c.TropePoolSize < 1 {
		return fmt.Errorf("config: trope pool size must be positive, got %d", c.TropePoolSize)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}
