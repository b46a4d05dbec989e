// Package config loads runtime settings for every binary from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market feed
	MarketSymbols        string
	MarketUpdateInterval float64 // seconds
	MarketVolatility     float64
	MarketRandomSeed     int64 // 0 seeds from the clock

	// Storage
	PositionsFile string
	JournalDB     string

	// Backend HTTP server
	BackendHost string
	BackendPort int

	// Account service; a blank base URL selects the in-memory store
	AccountServiceBaseURL string
	AccountServiceAPIKey  string
	AccountServiceTimeout float64 // seconds

	// Logging
	LogLevel  string
	LogPretty bool

	// Discord bot
	DiscordToken   string
	BackendBaseURL string
	CommandPrefix  string

	// Account simulator
	AccountSimAddr         string
	AccountSimStartBalance float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		MarketSymbols:        getEnv("MARKET_SYMBOLS", "ACME,BNB,CRYPTO,DXL"),
		MarketUpdateInterval: getEnvAsFloat("MARKET_UPDATE_INTERVAL", 2.0),
		MarketVolatility:     getEnvAsFloat("MARKET_VOLATILITY", 0.015),
		MarketRandomSeed:     getEnvAsInt64("MARKET_RANDOM_SEED", 0),

		PositionsFile: getEnv("POSITIONS_FILE", "data/positions.json"),
		JournalDB:     getEnv("JOURNAL_DB", "data/trades.db"),

		BackendHost: getEnv("BACKEND_HOST", "0.0.0.0"),
		BackendPort: getEnvAsInt("BACKEND_PORT", 8000),

		AccountServiceBaseURL: getEnv("ACCOUNT_SERVICE_BASE_URL", ""),
		AccountServiceAPIKey:  getEnv("ACCOUNT_SERVICE_API_KEY", ""),
		AccountServiceTimeout: getEnvAsFloat("ACCOUNT_SERVICE_TIMEOUT", 5.0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		DiscordToken:   getEnv("DISCORD_TOKEN", ""),
		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		CommandPrefix:  getEnv("COMMAND_PREFIX", "!"),

		AccountSimAddr:         getEnv("ACCOUNT_SIM_ADDR", ":8100"),
		AccountSimStartBalance: getEnvAsFloat("ACCOUNT_SIM_START_BALANCE", 10_000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants shared by every binary. Binary-specific
// requirements (for example DISCORD_TOKEN) are enforced in main.
func (c *Config) Validate() error {
	if len(c.Symbols()) == 0 {
		return fmt.Errorf("MARKET_SYMBOLS must name at least one symbol")
	}
	if c.MarketUpdateInterval <= 0 {
		return fmt.Errorf("MARKET_UPDATE_INTERVAL must be positive")
	}
	if c.MarketVolatility < 0 {
		return fmt.Errorf("MARKET_VOLATILITY must not be negative")
	}
	if c.BackendPort < 1 || c.BackendPort > 65535 {
		return fmt.Errorf("BACKEND_PORT out of range: %d", c.BackendPort)
	}
	if c.AccountServiceTimeout <= 0 {
		return fmt.Errorf("ACCOUNT_SERVICE_TIMEOUT must be positive")
	}
	if c.AccountSimStartBalance < 0 {
		return fmt.Errorf("ACCOUNT_SIM_START_BALANCE must not be negative")
	}
	return nil
}

// Symbols parses MarketSymbols into a list, trimming whitespace and
// skipping empty entries.
func (c *Config) Symbols() []string {
	parts := strings.Split(c.MarketSymbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UpdateInterval returns the feed tick interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.MarketUpdateInterval * float64(time.Second))
}

// AccountTimeout returns the account service HTTP timeout.
func (c *Config) AccountTimeout() time.Duration {
	return time.Duration(c.AccountServiceTimeout * float64(time.Second))
}

// BackendAddr joins host and port into a listen address.
func (c *Config) BackendAddr() string {
	return fmt.Sprintf("%s:%d", c.BackendHost, c.BackendPort)
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
