package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Environment   string        // ENV (default "development")
	DBDriver      string        // DB_DRIVER: postgres | sqlite (default postgres)
	DBDSN         string        // DB_DSN (required)
	HTTPAddr      string        // HTTP_ADDR (default ":8080")
	JWTSecret     string        // JWT_SECRET (required for serve and token)
	TelegramToken string        // TELEGRAM_TOKEN (optional, empty = bot disabled)
	NATSURL       string        // NATS_URL (optional, empty = no events)
	AuditInterval time.Duration // AUDIT_INTERVAL (default 10m; 0 = disabled)
	TxMaxRetries  int           // TX_MAX_RETRIES (default 5)
	CORSOrigins   []string      // CORS_ORIGINS, comma separated (default "*")
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		Environment:   envOrDefault("ENV", "development"),
		DBDriver:      strings.ToLower(envOrDefault("DB_DRIVER", DriverPostgres)),
		DBDSN:         os.Getenv("DB_DSN"),
		HTTPAddr:      envOrDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		NATSURL:       os.Getenv("NATS_URL"),
		CORSOrigins:   splitList(envOrDefault("CORS_ORIGINS", "*")),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.DBDriver)
	}

	interval, err := time.ParseDuration(envOrDefault("AUDIT_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("AUDIT_INTERVAL: %w", err)
	}
	if interval < 0 {
		return nil, fmt.Errorf("AUDIT_INTERVAL must not be negative")
	}
	cfg.AuditInterval = interval

	retries, err := strconv.Atoi(envOrDefault("TX_MAX_RETRIES", "5"))
	if err != nil {
		return nil, fmt.Errorf("TX_MAX_RETRIES: %w", err)
	}
	if retries < 0 {
		return nil, fmt.Errorf("TX_MAX_RETRIES must not be negative")
	}
	cfg.TxMaxRetries = retries

	return cfg, nil
}

// IsProduction сообщает, запущены ли мы в production окружении
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RequireJWTSecret проверяет, что секрет для подписи токенов задан
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	return nil
}

// LoadJWTSecret загружает только JWT_SECRET. Нужен командам, которым не
// требуется подключение к базе.
func LoadJWTSecret() (string, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{JWTSecret: os.Getenv("JWT_SECRET")}
	if err := cfg.RequireJWTSecret(); err != nil {
		return "", err
	}
	return cfg.JWTSecret, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
