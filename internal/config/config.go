// Package config loads leadflow configuration from a YAML file, an optional
// .env file, and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/leadflow/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Slack    SlackConfig    `yaml:"slack"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Executor ExecutorConfig `yaml:"executor"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Handover HandoverConfig `yaml:"handover"`
	Notify   NotifyConfig   `yaml:"notify"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	Host           string   `yaml:"host" env:"HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings. Redis is optional; an empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// SESConfig holds AWS SES credentials for outbound email.
type SESConfig struct {
	Enabled          bool   `yaml:"enabled" env:"AWS_SES_ENABLED"`
	Region           string `yaml:"region" env:"AWS_SES_REGION"`
	AccessKey        string `yaml:"access_key" env:"AWS_SES_ACCESS_KEY"`
	SecretKey        string `yaml:"secret_key" env:"AWS_SES_SECRET_KEY"`
	FromEmail        string `yaml:"from_email" env:"AWS_SES_FROM_EMAIL"`
	FromName         string `yaml:"from_name"`
	ConfigurationSet string `yaml:"configuration_set"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// Timeout returns the SES call timeout.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlackConfig holds the incoming-webhook used for handover and watchdog
// alerts.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" env:"SLACK_WEBHOOK_URL"`
	MaxRetries int    `yaml:"max_retries"`
}

// KafkaConfig holds the event publisher settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// ExecutorConfig tunes campaign batch processing.
type ExecutorConfig struct {
	BatchSize              int `yaml:"batch_size" env:"EXECUTOR_BATCH_SIZE"`
	BatchDelayMillis       int `yaml:"batch_delay_ms" env:"EXECUTOR_BATCH_DELAY_MS"`
	RetentionMinutes       int `yaml:"retention_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// BatchDelay returns the pause between batches.
func (c ExecutorConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMillis) * time.Millisecond
}

// Retention returns how long finished executions are kept.
func (c ExecutorConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

// CleanupInterval returns how often finished executions and held emails are
// purged.
func (c ExecutorConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// WatchdogConfig configures the outbound email gatekeeper.
type WatchdogConfig struct {
	// CounterBackend is one of "memory", "redis" or "postgres".
	CounterBackend      string `yaml:"counter_backend" env:"WATCHDOG_COUNTER_BACKEND"`
	Timezone            string `yaml:"timezone" env:"WATCHDOG_TIMEZONE"`
	HoldRetentionHours  int    `yaml:"hold_retention_hours"`
	DisableDefaultRules bool   `yaml:"disable_default_rules"`
}

// HoldRetention returns how long quarantined and pending emails are kept.
func (c WatchdogConfig) HoldRetention() time.Duration {
	return time.Duration(c.HoldRetentionHours) * time.Hour
}

// HandoverConfig holds the criteria used when a conversation's campaign has
// none of its own.
type HandoverConfig struct {
	QualificationScore     float64                    `yaml:"qualification_score"`
	ConversationLength     int                        `yaml:"conversation_length"`
	KeywordTriggers        []string                   `yaml:"keyword_triggers"`
	TimeThresholdSeconds   int                        `yaml:"time_threshold_seconds"`
	GoalCompletionRequired []string                   `yaml:"goal_completion_required"`
	Recipients             []domain.HandoverRecipient `yaml:"recipients"`
}

// Criteria converts the defaults into domain criteria.
func (c HandoverConfig) Criteria() domain.HandoverCriteria {
	return domain.HandoverCriteria{
		QualificationScore:     c.QualificationScore,
		ConversationLength:     c.ConversationLength,
		KeywordTriggers:        append([]string(nil), c.KeywordTriggers...),
		TimeThresholdSeconds:   c.TimeThresholdSeconds,
		GoalCompletionRequired: append([]string(nil), c.GoalCompletionRequired...),
		HandoverRecipients:     append([]domain.HandoverRecipient(nil), c.Recipients...),
	}
}

// NotifyConfig lists the administrators who receive watchdog alerts.
type NotifyConfig struct {
	AdminRecipients []domain.HandoverRecipient `yaml:"admin_recipients"`
}

// TracingConfig enables OpenTelemetry export. An empty Endpoint disables
// tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level            string `yaml:"level" env:"LOG_LEVEL"`
	DisableRedaction bool   `yaml:"disable_redaction" env:"LOG_DISABLE_REDACTION"`
}

// Load reads configuration from a YAML file and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv loads .env (if present), then the YAML file (if present), then
// overlays environment variables. A missing YAML file is not an error.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		loaded, err := Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	// Sections holding recipient lists are YAML-only.
	sections := []any{
		&cfg.Server, &cfg.Database, &cfg.Redis, &cfg.SES, &cfg.Slack,
		&cfg.Kafka, &cfg.Executor, &cfg.Watchdog, &cfg.Tracing, &cfg.Logging,
	}
	for _, section := range sections {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Slack.MaxRetries == 0 {
		cfg.Slack.MaxRetries = 3
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "leadflow.events"
	}
	if cfg.Executor.BatchSize == 0 {
		cfg.Executor.BatchSize = 10
	}
	if cfg.Executor.BatchDelayMillis == 0 {
		cfg.Executor.BatchDelayMillis = 1000
	}
	if cfg.Executor.RetentionMinutes == 0 {
		cfg.Executor.RetentionMinutes = 60
	}
	if cfg.Executor.CleanupIntervalMinutes == 0 {
		cfg.Executor.CleanupIntervalMinutes = 60
	}
	if cfg.Watchdog.CounterBackend == "" {
		cfg.Watchdog.CounterBackend = "memory"
	}
	if cfg.Watchdog.Timezone == "" {
		cfg.Watchdog.Timezone = "UTC"
	}
	if cfg.Watchdog.HoldRetentionHours == 0 {
		cfg.Watchdog.HoldRetentionHours = 24
	}
	if cfg.Handover.QualificationScore == 0 {
		cfg.Handover.QualificationScore = 7
	}
	if cfg.Handover.ConversationLength == 0 {
		cfg.Handover.ConversationLength = 10
	}
	if len(cfg.Handover.KeywordTriggers) == 0 {
		cfg.Handover.KeywordTriggers = []string{"pricing", "demo", "speak to someone", "talk to a human", "ready to buy"}
	}
	if cfg.Handover.TimeThresholdSeconds == 0 {
		cfg.Handover.TimeThresholdSeconds = 1800
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "leadflow"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
