// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Solana   SolanaConfig
	Jupiter  JupiterConfig
	Trading  TradingConfig
	Scanner  ScannerConfig
	Monitor  MonitorConfig
	Telegram TelegramConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds storage connection strings. ClickHouse and Redis are
// optional; empty values disable the archive and the enrichment cache.
type DatabaseConfig struct {
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SolanaConfig holds RPC endpoints in fallback order.
type SolanaConfig struct {
	RPCEndpoints []string
	WSEndpoint   string
}

// JupiterConfig holds the Jupiter swap and price API endpoints.
type JupiterConfig struct {
	APIURL      string
	PriceAPIURL string
	TokenAPIURL string
}

// TradingConfig holds execution settings. The private key never appears in
// logs or error messages.
type TradingConfig struct {
	PrivateKey         string
	DryRun             bool
	DefaultSlippageBps int
}

// ScannerConfig holds wallet scan pacing.
type ScannerConfig struct {
	Interval     time.Duration
	RatePerSec   float64
	ArchiveSwaps bool
}

// MonitorConfig holds the position monitor tick period.
type MonitorConfig struct {
	Interval time.Duration
}

// TelegramConfig holds notification delivery settings. An empty token
// disables Telegram notifications.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the .env file and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional; environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Solana: SolanaConfig{
			RPCEndpoints: splitList(getEnv("SOLANA_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")),
			WSEndpoint:   getEnv("SOLANA_WS_ENDPOINT", ""),
		},
		Jupiter: JupiterConfig{
			APIURL:      getEnv("JUPITER_API_URL", "https://quote-api.jup.ag/v6"),
			PriceAPIURL: getEnv("JUPITER_PRICE_API_URL", "https://lite-api.jup.ag/price/v2"),
			TokenAPIURL: getEnv("JUPITER_TOKEN_API_URL", "https://lite-api.jup.ag/tokens/v1"),
		},
		Trading: TradingConfig{
			PrivateKey:         getEnv("WALLET_PRIVATE_KEY", ""),
			DryRun:             getEnvAsBool("DRY_RUN", true),
			DefaultSlippageBps: getEnvAsInt("DEFAULT_SLIPPAGE_BPS", 1200),
		},
		Scanner: ScannerConfig{
			Interval:     getEnvAsDuration("SCAN_INTERVAL", 60*time.Second),
			RatePerSec:   getEnvAsFloat("SCAN_RATE_PER_SEC", 5),
			ArchiveSwaps: getEnvAsBool("ARCHIVE_SWAPS", true),
		},
		Monitor: MonitorConfig{
			Interval: getEnvAsDuration("MONITOR_INTERVAL", 30*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
