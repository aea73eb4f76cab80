// Package config loads service settings from an optional YAML file overlaid by
// environment variables (which may come from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role selects which side of the pipeline a process runs.
type Role string

const (
	RoleGateway Role = "gateway"
	RoleWorker  Role = "worker"
	RoleAll     Role = "all"
)

func (r Role) RunsGateway() bool { return r == RoleGateway || r == RoleAll }
func (r Role) RunsWorker() bool  { return r == RoleWorker || r == RoleAll }

type SolverConfig struct {
	// Wall-clock limit of one solve; also the age after which a RUNNING
	// request is considered abandoned.
	TimeLimit     time.Duration `yaml:"time_limit"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

type RecoveryConfig struct {
	UnqueueTimeLimit      time.Duration `yaml:"unqueue_time_limit"`
	RunningSweepInterval  time.Duration `yaml:"running_sweep_interval"`
	EnqueuedSweepInterval time.Duration `yaml:"enqueued_sweep_interval"`
}

type MessagingConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type Config struct {
	Role        Role   `yaml:"role"`
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	ORSAPIKey   string `yaml:"ors_api_key"`
	SeedPath    string `yaml:"seed_path"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	Solver    SolverConfig    `yaml:"solver"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Messaging MessagingConfig `yaml:"messaging"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Role:      RoleAll,
		Port:      "8080",
		SeedPath:  "data/seeds/problems.json",
		LogLevel:  "info",
		LogFormat: "text",
		Solver: SolverConfig{
			TimeLimit:     5 * time.Minute,
			MaxConcurrent: 0,
		},
		Recovery: RecoveryConfig{
			UnqueueTimeLimit:      10 * time.Second,
			RunningSweepInterval:  5 * time.Minute,
			EnqueuedSweepInterval: 10 * time.Second,
		},
		Messaging: MessagingConfig{
			PollInterval: 500 * time.Millisecond,
		},
	}
}

// Get returns the environment value of key or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := Get("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Role = Role(Get("ROLE", string(cfg.Role)))
	cfg.Port = Get("PORT", cfg.Port)
	cfg.DatabaseURL = Get("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = Get("REDIS_URL", cfg.RedisURL)
	cfg.ORSAPIKey = Get("ORS_API_KEY", cfg.ORSAPIKey)
	cfg.SeedPath = Get("SEED_PATH", cfg.SeedPath)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = Get("LOG_FORMAT", cfg.LogFormat)

	var err error
	if cfg.Solver.TimeLimit, err = getDuration("SOLVER_TIME_LIMIT", cfg.Solver.TimeLimit); err != nil {
		return err
	}
	if cfg.Solver.MaxConcurrent, err = getInt("MAX_CONCURRENT_SOLVES", cfg.Solver.MaxConcurrent); err != nil {
		return err
	}
	if cfg.Recovery.UnqueueTimeLimit, err = getDuration("UNQUEUE_TIME_LIMIT", cfg.Recovery.UnqueueTimeLimit); err != nil {
		return err
	}
	if cfg.Recovery.RunningSweepInterval, err = getDuration("RUNNING_SWEEP_INTERVAL", cfg.Recovery.RunningSweepInterval); err != nil {
		return err
	}
	if cfg.Recovery.EnqueuedSweepInterval, err = getDuration("ENQUEUED_SWEEP_INTERVAL", cfg.Recovery.EnqueuedSweepInterval); err != nil {
		return err
	}
	if cfg.Messaging.PollInterval, err = getDuration("QUEUE_POLL_INTERVAL", cfg.Messaging.PollInterval); err != nil {
		return err
	}
	return nil
}

// Validate rejects combinations the server cannot run with.
func (c Config) Validate() error {
	switch c.Role {
	case RoleGateway, RoleWorker, RoleAll:
	default:
		return fmt.Errorf("config: unknown role %q", c.Role)
	}

	// Split roles only cooperate through a shared broker.
	if c.Role != RoleAll && c.RedisURL == "" {
		return fmt.Errorf("config: role %q requires REDIS_URL", c.Role)
	}
	if c.Solver.TimeLimit <= 0 {
		return errors.New("config: solver time limit must be positive")
	}
	if c.Recovery.RunningSweepInterval <= 0 || c.Recovery.EnqueuedSweepInterval <= 0 {
		return errors.New("config: sweep intervals must be positive")
	}
	if c.Messaging.PollInterval <= 0 {
		return errors.New("config: queue poll interval must be positive")
	}
	return nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
