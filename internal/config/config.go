package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
	SLA          SLAConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	EmailFrom             string
	EscalationEmail       string
	SendGridAPIKey        string
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// KafkaConfig controls the event forwarder. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string
	EventsTopic string
}

// Enabled reports whether events should be forwarded to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// SLAConfig tunes risk windows and background jobs.
type SLAConfig struct {
	FirstResponseRiskMinutes int
	ResolutionRiskMinutes    int
	MonitorEnabled           bool
	MonitorSchedule          string
	ReportSchedule           string
	SweepTimeoutSeconds      int
	TicketNumberMaxAttempts  int
	ReportTTLHours           int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "servicedesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:             getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EscalationEmail:       os.Getenv("NOTIFY_ESCALATION_EMAIL"),
			SendGridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
			WebhookURL:            os.Getenv("NOTIFY_WEBHOOK_URL"),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsList("KAFKA_BROKERS"),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "servicedesk.ticket-events"),
		},
		SLA: SLAConfig{
			FirstResponseRiskMinutes: getEnvAsInt("SLA_FIRST_RESPONSE_RISK_MINUTES", 120),
			ResolutionRiskMinutes:    getEnvAsInt("SLA_RESOLUTION_RISK_MINUTES", 240),
			MonitorEnabled:           getEnvAsBool("SLA_MONITOR_ENABLED", true),
			MonitorSchedule:          getEnv("SLA_MONITOR_SCHEDULE", "@every 5m"),
			ReportSchedule:           getEnv("SLA_REPORT_SCHEDULE", "0 9 * * *"),
			SweepTimeoutSeconds:      getEnvAsInt("SLA_SWEEP_TIMEOUT_SECONDS", 60),
			TicketNumberMaxAttempts:  getEnvAsInt("TICKET_NUMBER_MAX_ATTEMPTS", 10),
			ReportTTLHours:           getEnvAsInt("SLA_REPORT_TTL_HOURS", 720),
		},
	}

	if cfg.SLA.FirstResponseRiskMinutes <= 0 || cfg.SLA.ResolutionRiskMinutes <= 0 {
		return nil, fmt.Errorf("sla risk windows must be positive")
	}
	if cfg.SLA.TicketNumberMaxAttempts <= 0 {
		cfg.SLA.TicketNumberMaxAttempts = 10
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// FirstResponseRisk is the at-risk window for the first response track.
func (s SLAConfig) FirstResponseRisk() time.Duration {
	return time.Duration(s.FirstResponseRiskMinutes) * time.Minute
}

// ResolutionRisk is the at-risk window for the resolution track.
func (s SLAConfig) ResolutionRisk() time.Duration {
	return time.Duration(s.ResolutionRiskMinutes) * time.Minute
}

// SweepTimeout bounds a single monitor pass.
func (s SLAConfig) SweepTimeout() time.Duration {
	if s.SweepTimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.SweepTimeoutSeconds) * time.Second
}

// ReportTTL is how long daily reports are kept in Redis.
func (s SLAConfig) ReportTTL() time.Duration {
	return time.Duration(s.ReportTTLHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
