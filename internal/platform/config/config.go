package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string

	// Ledger settings
	BaseCurrency string

	// Event ingestion settings
	IngestAsync          bool
	EventRateLimit       string
	IdempotencyRetention time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("BASE_CURRENCY", "USD")
	viper.SetDefault("INGEST_ASYNC", false)
	viper.SetDefault("EVENT_RATE_LIMIT", "100-M")
	viper.SetDefault("IDEMPOTENCY_RETENTION", "2160h")

	// Environment variables override defaults and .env file values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.BaseCurrency = viper.GetString("BASE_CURRENCY")
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
		log.Printf("Warning: BASE_CURRENCY not set. Defaulting to %s.\n", cfg.BaseCurrency)
	}

	// Retention window for applied-event records. Records older than this are
	// pruned; a replay outside the window will double post, so keep it well
	// above any producer's redelivery horizon.
	retentionStr := viper.GetString("IDEMPOTENCY_RETENTION")
	retention, err := time.ParseDuration(retentionStr)
	if err != nil || retention <= 0 {
		retention = time.Hour * 2160 // 90 days
		if retentionStr != "" {
			log.Printf("Warning: Invalid value for IDEMPOTENCY_RETENTION ('%s'). Defaulting to %s.\n", retentionStr, retention.String())
		}
	}
	cfg.IdempotencyRetention = retention

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.IngestAsync = viper.GetBool("INGEST_ASYNC")
	cfg.EventRateLimit = viper.GetString("EVENT_RATE_LIMIT")

	return cfg, nil
}
