package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DatabaseConfig selects the gorm dialector and its connection settings.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"mysql"`
	Host            string        `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port            string        `env:"DB_PORT" envDefault:"3306"`
	Database        string        `env:"DB_DATABASE" envDefault:"supplement_program"`
	Username        string        `env:"DB_USERNAME" envDefault:"root"`
	Password        string        `env:"DB_PASSWORD"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath      string        `env:"DB_SQLITE_PATH" envDefault:"program.db"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	DebugSQL        bool          `env:"DEBUG_SQL" envDefault:"false"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port    string `env:"SERVER_PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`
}

// LogConfig controls zap and the log file tee.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	FilePath    string `env:"LOG_FILE" envDefault:"logs/program-api.log"`
}

// AuthConfig holds the shared secret used to verify staff tokens.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// MailConfig is the SMTP relay used by the mail notifier.
type MailConfig struct {
	Host          string   `env:"SMTP_HOST"`
	Port          int      `env:"SMTP_PORT" envDefault:"587"`
	User          string   `env:"SMTP_USER"`
	Pass          string   `env:"SMTP_PASS"`
	From          string   `env:"SMTP_FROM"`
	SkipTLSVerify bool     `env:"SMTP_SKIP_TLS_VERIFY" envDefault:"false"`
	OpsRecipients []string `env:"NOTIFY_MAIL_TO" envSeparator:","`
}

// KafkaConfig describes the screening event topic. Brokers empty disables the consumer.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_SCREENING_TOPIC" envDefault:"screening-events"`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"supplement-program"`
}

// NotifyConfig picks where compliance reminders are handed off.
type NotifyConfig struct {
	Driver        string `env:"NOTIFY_DRIVER" envDefault:"log"` // log|sqs|mail
	SQSQueueName  string `env:"NOTIFY_SQS_QUEUE" envDefault:"compliance-reminders"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

// ProgramConfig carries the tunables of the supplementation program itself.
type ProgramConfig struct {
	TimeZone                 string        `env:"APP_TIMEZONE" envDefault:"Asia/Kolkata"`
	MilestoneGraceDays       int           `env:"MILESTONE_GRACE_DAYS" envDefault:"0"`
	ReminderInterval         time.Duration `env:"REMINDER_INTERVAL" envDefault:"15m"`
	OverdueInterval          time.Duration `env:"OVERDUE_INTERVAL" envDefault:"24h"`
	RunJobsOnStart           bool          `env:"RUN_JOBS_ON_START" envDefault:"false"`
	SchedulerEnabled         bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	JobLockPrefix            string        `env:"JOB_LOCK_PREFIX" envDefault:"program_job"`
	AllowResubmission        bool          `env:"COMPLIANCE_ALLOW_RESUBMISSION" envDefault:"true"`
	RecomputeDueOnRedelivery bool          `env:"RECOMPUTE_DUE_ON_REDELIVERY" envDefault:"false"`
}

// AppConfig is the whole process configuration.
type AppConfig struct {
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	Auth     AuthConfig
	Mail     MailConfig
	Kafka    KafkaConfig
	Notify   NotifyConfig
	Program  ProgramConfig
}

// Load reads an optional .env file and then parses the environment.
func Load() (*AppConfig, error) {
	// .env is optional; the process environment always wins.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Program.Location(); err != nil {
		return nil, err
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	return cfg, nil
}

// Location resolves the program time zone used for "today" and the 09:00 due time.
func (p ProgramConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(p.TimeZone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// IsProduction reports whether the service runs with production logging defaults.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Log.Environment, "production")
}
