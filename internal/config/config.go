package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	PaySuite PaySuiteConfig
	Billing  BillingConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	ClientURL          string
	Environment        string
	LogFilePath        string
	NotificationLog    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
	Debug      bool
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AuthConfig struct {
	JWTSecret string
}

type PaySuiteConfig struct {
	BaseURL       string
	APIKey        string
	PrivateKey    string
	WebhookSecret string
	WebhookURL    string
	ReturnURL     string
	Environment   string // sandbox | production
	Mode          string // token | private_key | auto
	Timeout       time.Duration
}

type BillingConfig struct {
	PlanCatalogPath      string
	PendingPaymentMaxAge time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			NotificationLog:    getEnv("NOTIFICATION_LOG_FILE_PATH", "logs/notification.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Debug:      getEnvAsBool("DB_DEBUG", false),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "PlacarCerto"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		PaySuite: PaySuiteConfig{
			BaseURL:       getEnv("PAYSUITE_BASE_URL", "https://paysuite.tech/api/v1"),
			APIKey:        getEnv("PAYSUITE_API_KEY", ""),
			PrivateKey:    getEnv("PAYSUITE_PRIVATE_KEY", ""),
			WebhookSecret: getEnv("PAYSUITE_WEBHOOK_SECRET", ""),
			WebhookURL:    getEnv("PAYSUITE_WEBHOOK_URL", ""),
			ReturnURL:     getEnv("PAYSUITE_RETURN_URL", ""),
			Environment:   getEnv("PAYSUITE_ENVIRONMENT", "sandbox"),
			Mode:          getEnv("PAYSUITE_MODE", "auto"),
			Timeout:       getEnvAsDuration("PAYSUITE_TIMEOUT", 30*time.Second),
		},
		Billing: BillingConfig{
			PlanCatalogPath:      getEnv("PLAN_CATALOG_PATH", ""),
			PendingPaymentMaxAge: getEnvAsDuration("PENDING_PAYMENT_MAX_AGE", 2*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "placarcerto-payments"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts "90s"/"2h" and plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
