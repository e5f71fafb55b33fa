package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEndpoint is the public Coinbase Exchange REST API.
const DefaultEndpoint = "https://api.exchange.coinbase.com"

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	COINBASE_ENDPOINT=https://api.exchange.coinbase.com
//	BATCH_GROUP_SIZE=10
//	HISTORY_START=2023-01-01
//	HISTORY_END=2023-06-30
//	HISTORY_GRANULARITY=1d
//	LOG_LEVEL=info
//	LOG_PRETTY=false
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Coinbase CoinbaseConfig // Upstream API and batch settings
	Log      LogConfig      // Logger settings
	Postgres PostgresConfig // PostgreSQL connection settings (ingest mode only)
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// CoinbaseConfig defines the upstream endpoint and the history window fetched
// by the benchmark and ingest modes.
//
// Fields:
//   - Endpoint: base URL, requests go to {Endpoint}{path}.
//   - GroupSize: number of concurrent requests per batch group.
//   - HistoryStart / HistoryEnd: ISO dates passed through verbatim.
//   - Granularity: candle width, label ("1d") or seconds ("86400").
type CoinbaseConfig struct {
	Endpoint     string
	GroupSize    int
	HistoryStart string
	HistoryEnd   string
	Granularity  string
}

// LogConfig controls the zerolog base logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() in main and handed to constructors
// from there; packages below cmd receive the values they need explicitly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("COINBASE_ENDPOINT", DefaultEndpoint)
	viper.SetDefault("BATCH_GROUP_SIZE", 10)
	viper.SetDefault("HISTORY_START", "2023-01-01")
	viper.SetDefault("HISTORY_END", "2023-06-30")
	viper.SetDefault("HISTORY_GRANULARITY", "1d")

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "coinbench")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Coinbase: CoinbaseConfig{
			Endpoint:     strings.TrimRight(viper.GetString("COINBASE_ENDPOINT"), "/"),
			GroupSize:    viper.GetInt("BATCH_GROUP_SIZE"),
			HistoryStart: viper.GetString("HISTORY_START"),
			HistoryEnd:   viper.GetString("HISTORY_END"),
			Granularity:  viper.GetString("HISTORY_GRANULARITY"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Pretty: viper.GetBool("LOG_PRETTY"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// DSN builds the connection string used by database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// missingKeys reports the critical keys left empty in cfg.
func missingKeys(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Coinbase.Endpoint == "" {
		missing = append(missing, "COINBASE_ENDPOINT")
	}
	if cfg.Coinbase.GroupSize < 1 {
		missing = append(missing, "BATCH_GROUP_SIZE")
	}
	if cfg.Coinbase.HistoryStart == "" {
		missing = append(missing, "HISTORY_START")
	}
	if cfg.Coinbase.HistoryEnd == "" {
		missing = append(missing, "HISTORY_END")
	}
	if cfg.Coinbase.Granularity == "" {
		missing = append(missing, "HISTORY_GRANULARITY")
	}

	return missing
}

// validateConfig terminates the application when critical fields are missing.
//
// Postgres settings are not checked here; they are only needed by ingest mode
// and a bad DSN surfaces on the first ping.
func validateConfig() {
	if missing := missingKeys(AppConfig); len(missing) > 0 {
		log.Fatalf("missing or invalid configuration: %v\n", missing)
	}
}
