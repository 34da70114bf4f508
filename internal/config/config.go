package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EventBusConfig selects and sizes the rate-change bus. Zero values keep the
// bus defaults.
type EventBusConfig struct {
	Driver         string        // "memory" or "kafka"
	BufferSize     int           // Pending events held by the in-memory bus
	Workers        int           // Concurrent event handlers
	HandlerTimeout time.Duration // Upper bound for matching + dispatch of one event
}

// KafkaConfig holds broker settings for the kafka driver.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// WhatsAppConfig points at the WhatsApp HTTP gateway.
type WhatsAppConfig struct {
	APIURL  string
	Session string
	APIKey  string
	Timeout time.Duration
}

type EmailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// DispatchConfig bounds per-message delivery retries.
type DispatchConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration // Deadline for one recipient, retries included
}

// RetrySweeperConfig controls the cron job that re-sends failed notifications.
// Zero values keep the scheduler defaults.
type RetrySweeperConfig struct {
	Enabled     bool
	Schedule    string // Cron expression (e.g., "*/10 * * * *")
	MaxAttempts int
	BatchSize   int
	Timeout     time.Duration
}

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Database
	DatabaseURL string

	// CORS
	AllowedOrigins []string

	// Alerts
	ReferenceCurrency string // Local currency; alerts on it compare against the buy rate
	AlertLocale       string // "en" or "fr"

	EventBus     EventBusConfig
	Kafka        KafkaConfig
	WhatsApp     WhatsAppConfig
	Email        EmailConfig
	Dispatch     DispatchConfig
	RetrySweeper RetrySweeperConfig
}

// Load reads configuration from the environment, after applying a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  env,

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/exchango?sslmode=disable"),

		// CORS
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),

		ReferenceCurrency: strings.ToUpper(getEnv("REFERENCE_CURRENCY", "MAD")),
		AlertLocale:       getEnv("ALERT_LOCALE", "en"),

		EventBus: EventBusConfig{
			Driver:         getEnv("EVENT_BUS", "memory"),
			BufferSize:     getIntEnv("EVENT_BUS_BUFFER", 0),
			Workers:        getIntEnv("EVENT_BUS_WORKERS", 0),
			HandlerTimeout: getDurationEnv("EVENT_HANDLER_TIMEOUT", 0),
		},

		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "exchango.rate-updated"),
			GroupID: getEnv("KAFKA_GROUP_ID", "exchango-alert-matcher"),
		},

		WhatsApp: WhatsAppConfig{
			APIURL:  os.Getenv("WHATSAPP_API_URL"),
			Session: getEnv("WHATSAPP_SESSION", "default"),
			APIKey:  os.Getenv("WHATSAPP_API_KEY"),
			Timeout: getDurationEnv("WHATSAPP_TIMEOUT", 15*time.Second),
		},

		Email: EmailConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    getEnv("EMAIL_FROM", "alerts@exchango.ma"),
			FromName:       getEnv("EMAIL_FROM_NAME", "ExchanGo"),
		},

		Dispatch: DispatchConfig{
			MaxAttempts: getIntEnv("DISPATCH_MAX_ATTEMPTS", 2),
			RetryDelay:  getDurationEnv("DISPATCH_RETRY_DELAY", 500*time.Millisecond),
			Timeout:     getDurationEnv("DISPATCH_TIMEOUT", 0),
		},

		RetrySweeper: RetrySweeperConfig{
			Enabled:     getBoolEnv("RETRY_SWEEPER_ENABLED", false),
			Schedule:    os.Getenv("RETRY_SWEEPER_SCHEDULE"),
			MaxAttempts: getIntEnv("RETRY_MAX_ATTEMPTS", 0),
			BatchSize:   getIntEnv("RETRY_BATCH_SIZE", 0),
			Timeout:     getDurationEnv("RETRY_SWEEPER_TIMEOUT", 0),
		},
	}
}

// IsDevelopment enables the plain-text request log.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction switches logging to JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// WhatsAppEnabled reports whether a WhatsApp gateway is configured.
func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsApp.APIURL != ""
}

// EmailEnabled reports whether SendGrid credentials are configured.
func (c *Config) EmailEnabled() bool {
	return c.Email.SendGridAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
