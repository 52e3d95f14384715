package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
	"github.com/joho/godotenv"
)

const dataFile = "codex-reversi/games.db"

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

type Config struct {
	Port               string
	DBPath             string
	LogLevel           string
	DefaultBoardSize   int
	DefaultRules       string
	HeartbeatInterval  time.Duration
	MatchmakingTimeout time.Duration
}

// LoadDotEnv reads .env from the working directory or its parent, if
// either exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Debug("no .env file found")
		}
	}
}

// Load builds a Config from the environment.
func Load() *Config {
	cfg := &Config{
		Port:               GetEnv("PORT", "8080"),
		DBPath:             GetEnv("REVERSI_DB_PATH", ""),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		DefaultBoardSize:   GetEnvAsInt("DEFAULT_BOARD_SIZE", 8),
		DefaultRules:       GetEnv("DEFAULT_RULES", domain.StandardRuleID),
		HeartbeatInterval:  GetEnvAsDuration("SSE_HEARTBEAT_SECONDS", 15*time.Second),
		MatchmakingTimeout: GetEnvAsDuration("MATCHMAKING_TIMEOUT_SECONDS", 300*time.Second),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	return cfg
}

// Validate checks the values the game engine depends on.
func (c *Config) Validate() error {
	if c.DefaultBoardSize <= 0 || c.DefaultBoardSize%2 != 0 {
		return &InvalidConfig{fmt.Sprintf("DEFAULT_BOARD_SIZE must be a positive even number, got %d", c.DefaultBoardSize)}
	}
	if _, err := domain.DefaultRules.Lookup(c.DefaultRules); err != nil {
		return &InvalidConfig{fmt.Sprintf("DEFAULT_RULES: %v", err)}
	}
	if _, err := log.ParseLogLevel(c.LogLevel); err != nil {
		return &InvalidConfig{err.Error()}
	}
	if c.HeartbeatInterval <= 0 {
		return &InvalidConfig{"SSE_HEARTBEAT_SECONDS must be positive"}
	}
	return nil
}

func defaultDBPath() string {
	p, err := xdg.DataFile(dataFile)
	if err != nil {
		log.Warn("could not resolve XDG data path: %v", err)
		return "games.db"
	}
	return p
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsDuration reads a whole number of seconds.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	secs := GetEnvAsInt(key, -1)
	if secs < 0 {
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
