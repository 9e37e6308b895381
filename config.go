package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/pharmacy-agent/database"
	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"github.com/yashrajoria/pharmacy-agent/sender"
)

const (
	StoreDynamo = "dynamodb"
	StoreMemory = "memory"
)

// Config holds all configuration for the pharmacy agent.
type Config struct {
	Port         string
	AppEnv       string
	AWSRegion    string
	StoreBackend string

	ProductsTable string
	OrdersTable   string
	// SeedCatalogCSV preloads the memory store.
	SeedCatalogCSV string

	RedisURL string
	MongoURI string
	MongoDB  string
	Postgres database.PostgresConfig
	SMTP     sender.SMTPConfig

	STTURL              string
	PolicyServiceURL    string
	VoiceArchiveBucket  string
	OrderEventsTopicArn string
	InvoiceTopicArn     string
	CatalogEventsQueue  string

	CatalogMaxAge time.Duration
	SessionTTL    time.Duration
	CommitTimeout time.Duration
	NotifyTimeout time.Duration
	TokenTTL      time.Duration

	JWTSecret         string
	AdminPasswordHash string
	AdminPassword     string

	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
}

// secretSource is satisfied by *aws.SecretsClient.
type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment (and .env when
// present), with an optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("load aws config for secrets: %w", err)
		}
		applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8090"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreDynamo)),
		ProductsTable:  getEnv("DDB_TABLE_PRODUCTS", "Medicines"),
		OrdersTable:    getEnv("DDB_TABLE_ORDERS", "Orders"),
		SeedCatalogCSV: os.Getenv("SEED_CATALOG_CSV"),
		RedisURL:       os.Getenv("REDIS_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDB:        getEnv("MONGO_DB", "pharmacy"),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		SMTP: sender.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		},
		STTURL:              os.Getenv("STT_API_URL"),
		PolicyServiceURL:    os.Getenv("POLICY_SERVICE_URL"),
		VoiceArchiveBucket:  os.Getenv("VOICE_ARCHIVE_BUCKET"),
		OrderEventsTopicArn: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),
		InvoiceTopicArn:     os.Getenv("INVOICE_TOPIC_ARN"),
		CatalogEventsQueue:  os.Getenv("CATALOG_EVENTS_QUEUE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AdminPasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "PharmacyAgent"),
		CloudWatchLogGroup:  os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"CATALOG_MAX_AGE", "30s", &cfg.CatalogMaxAge},
		{"CHECKOUT_SESSION_TTL", "0", &cfg.SessionTTL},
		{"COMMIT_TIMEOUT", "10s", &cfg.CommitTimeout},
		{"NOTIFY_TIMEOUT", "10s", &cfg.NotifyTimeout},
		{"ADMIN_TOKEN_TTL", "12h", &cfg.TokenTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = v
	}

	ints := []struct {
		key      string
		fallback string
		dst      *int
	}{
		{"RATE_LIMIT_PER_MINUTE", "120", &cfg.RateLimitPerMinute},
		{"RATE_LIMIT_BURST", "20", &cfg.RateLimitBurst},
	}
	for _, n := range ints {
		v, err := strconv.Atoi(getEnv(n.key, n.fallback))
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", n.key)
		}
		*n.dst = v
	}

	return cfg, nil
}

// applySecrets overrides credentials with Secrets Manager values. A
// missing secret keeps the environment value.
func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if v, err := sm.GetSecret(ctx, "pharmacy/JWT_SECRET"); err == nil && v != "" {
		cfg.JWTSecret = v
	}
	if v, err := sm.GetSecret(ctx, "pharmacy/ADMIN_PASSWORD_HASH"); err == nil && v != "" {
		cfg.AdminPasswordHash = v
	}
	if m, err := sm.GetSecretMap(ctx, "pharmacy/DB_CREDENTIALS"); err == nil {
		override(&cfg.Postgres.User, m, "POSTGRES_USER")
		override(&cfg.Postgres.Password, m, "POSTGRES_PASSWORD")
		override(&cfg.Postgres.DBName, m, "POSTGRES_DB")
		override(&cfg.Postgres.Host, m, "POSTGRES_HOST")
		override(&cfg.Postgres.Port, m, "POSTGRES_PORT")
		override(&cfg.MongoURI, m, "MONGO_URI")
		override(&cfg.RedisURL, m, "REDIS_URL")
	}
	if m, err := sm.GetSecretMap(ctx, "pharmacy/SMTP_CREDENTIALS"); err == nil {
		override(&cfg.SMTP.Host, m, "SMTP_HOST")
		override(&cfg.SMTP.Port, m, "SMTP_PORT")
		override(&cfg.SMTP.Username, m, "SMTP_USER")
		override(&cfg.SMTP.Password, m, "SMTP_PASS")
		override(&cfg.SMTP.From, m, "SMTP_FROM")
	}
}

func override(dst *string, m map[string]string, key string) {
	if v, ok := m[key]; ok && v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.StoreBackend != StoreDynamo && c.StoreBackend != StoreMemory {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreDynamo, StoreMemory, c.StoreBackend)
	}
	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
