package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	DataDir      string // directory with CSV price files
	LogLevel     string
	Port         int
	DevMode      bool

	Symbols         []string // symbols retrained on schedule
	RetrainSchedule string   // cron spec for the retrain job

	// Agent hyperparameters
	Strategy        string  // vanilla, fixed_target, double
	Window          int     // state window size n
	ReplayCapacity  int     // replay memory capacity C
	BatchSize       int     // learning minibatch size
	Gamma           float64 // discount factor
	Epsilon         float64 // initial exploration rate
	EpsilonDecay    float64 // per-episode multiplicative decay
	EpsilonMin      float64 // exploration floor
	TargetSyncEvery int     // learn steps between target syncs (K)
	LearningRate    float64
	Episodes        int // training episodes per run
	Seed            int64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/trader.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		Symbols:         getEnvAsList("TRAIN_SYMBOLS"),
		RetrainSchedule: getEnv("RETRAIN_SCHEDULE", "0 0 1 * * *"), // 01:00 nightly

		Strategy:        getEnv("DQN_STRATEGY", "double"),
		Window:          getEnvAsInt("DQN_WINDOW", 10),
		ReplayCapacity:  getEnvAsInt("DQN_REPLAY_CAPACITY", 10000),
		BatchSize:       getEnvAsInt("DQN_BATCH_SIZE", 32),
		Gamma:           getEnvAsFloat("DQN_GAMMA", 0.95),
		Epsilon:         getEnvAsFloat("DQN_EPSILON", 1.0),
		EpsilonDecay:    getEnvAsFloat("DQN_EPSILON_DECAY", 0.995),
		EpsilonMin:      getEnvAsFloat("DQN_EPSILON_MIN", 0.01),
		TargetSyncEvery: getEnvAsInt("DQN_TARGET_SYNC_EVERY", 100),
		LearningRate:    getEnvAsFloat("DQN_LEARNING_RATE", 0.001),
		Episodes:        getEnvAsInt("DQN_EPISODES", 50),
		Seed:            int64(getEnvAsInt("DQN_SEED", 42)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Window < 1 {
		return fmt.Errorf("DQN_WINDOW must be positive, got %d", c.Window)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("DQN_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.ReplayCapacity < c.BatchSize {
		return fmt.Errorf("DQN_REPLAY_CAPACITY (%d) must be at least DQN_BATCH_SIZE (%d)", c.ReplayCapacity, c.BatchSize)
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("DQN_GAMMA must be in (0, 1], got %f", c.Gamma)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("DQN_EPSILON must be in [0, 1], got %f", c.Epsilon)
	}
	if c.TargetSyncEvery < 1 {
		return fmt.Errorf("DQN_TARGET_SYNC_EVERY must be positive, got %d", c.TargetSyncEvery)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
