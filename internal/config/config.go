package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PolicyTrust  = "trust"
	PolicyDerive = "derive"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

type Config struct {
	Port             string        `yaml:"port"`
	DatabaseURL      string        `yaml:"database_url"`
	DatabaseDriver   string        `yaml:"database_driver"`
	OnlineWindow     time.Duration `yaml:"online_window"`
	LeaderboardLimit int           `yaml:"leaderboard_limit"`
	ScorePolicy      string        `yaml:"score_policy"`
	RunsPerMinute    float64       `yaml:"runs_per_minute"`
	RunsBurst        int           `yaml:"runs_burst"`
	LogFormat        string        `yaml:"log_format"`
	Env              string        `yaml:"env"`

	// Client side.
	APIURL       string        `yaml:"api_url"`
	Home         string        `yaml:"home"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func Default() Config {
	return Config{
		Port:             "8080",
		DatabaseDriver:   DriverPostgres,
		OnlineWindow:     5 * time.Minute,
		LeaderboardLimit: 100,
		ScorePolicy:      PolicyTrust,
		RunsPerMinute:    120,
		RunsBurst:        20,
		LogFormat:        "json",
		Env:              "development",
		APIURL:           "http://localhost:8080",
		Home:             defaultHome(),
		PollInterval:     8 * time.Second,
	}
}

// Load applies defaults, then the optional YAML file at path, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.OnlineWindow = getEnvDuration("ONLINE_WINDOW", cfg.OnlineWindow)
	cfg.LeaderboardLimit = getEnvInt("LEADERBOARD_LIMIT", cfg.LeaderboardLimit)
	cfg.ScorePolicy = getEnv("SCORE_POLICY", cfg.ScorePolicy)
	cfg.RunsPerMinute = getEnvFloat("RUNS_RATE_PER_MINUTE", cfg.RunsPerMinute)
	cfg.RunsBurst = getEnvInt("RUNS_RATE_BURST", cfg.RunsBurst)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.APIURL = getEnv("ARCADE_API_URL", cfg.APIURL)
	cfg.Home = getEnv("ARCADE_HOME", cfg.Home)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.ScorePolicy {
	case PolicyTrust, PolicyDerive:
	default:
		return fmt.Errorf("unsupported SCORE_POLICY %q", c.ScorePolicy)
	}
	return nil
}

func defaultHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".arcade"
	}
	return filepath.Join(dir, "arcade")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
