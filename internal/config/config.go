// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker дефолт "postgres" (имя сервиса в docker-compose), для локалки переопределяй DB_HOST=localhost.
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"lingvo"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME" default:"lingvo"`
	DBSSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns    int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Redis (кеш метаданных вопросов, пустой адрес = кеш в памяти процесса) ---
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	QuestionCacheTTL time.Duration `envconfig:"QUESTION_CACHE_TTL" default:"10m"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- HTTP ---
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPRequestTimeout time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"5s"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- XP / Streak ---
	XPLedgerEnabled         bool `envconfig:"XP_LEDGER_ENABLED" default:"true"`
	StreakGraceHours        int  `envconfig:"STREAK_GRACE_HOURS" default:"26"`
	DefaultTimeLimitSeconds int  `envconfig:"DEFAULT_TIME_LIMIT_SECONDS" default:"30"`

	// --- Scheduler ---
	CronDaily     string `envconfig:"CRON_DAILY" default:"0 0 * * *"`
	CronWeekly    string `envconfig:"CRON_WEEKLY" default:"0 0 * * 1"`
	CronReminders string `envconfig:"CRON_REMINDERS" default:"0 * * * *"`
	CronTimezone  string `envconfig:"CRON_TIMEZONE" default:"UTC"`

	// --- Reminders ---
	ReminderMinStreak     int `envconfig:"REMINDER_MIN_STREAK" default:"3"`
	ReminderInactiveHours int `envconfig:"REMINDER_INACTIVE_HOURS" default:"20"`

	// --- Mail ---
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@lingvo.local"`

	// --- Admin ---
	// Argon2id-хеш, генерируется scripts/generate_hash.go. Пустой = админ-эндпоинты выключены.
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Feature Flags ---
	FeatureRemindersEnabled bool `envconfig:"FEATURE_REMINDERS_ENABLED" default:"true"`
	FeatureSchedulerEnabled bool `envconfig:"FEATURE_SCHEDULER_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// UsesPostgres сообщает, что данные живут в PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.StorageDriver == StoragePostgres
}

// SMTPEnabled сообщает, настроена ли отправка писем.
func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

// GracePeriod — окно, в котором стрик ещё продолжается.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.StreakGraceHours) * time.Hour
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORAGE_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StreakGraceHours < 24 || c.StreakGraceHours >= 48 {
		return fmt.Errorf("STREAK_GRACE_HOURS должен быть в диапазоне [24, 48)")
	}
	if c.DefaultTimeLimitSeconds < 1 {
		return fmt.Errorf("DEFAULT_TIME_LIMIT_SECONDS должен быть >= 1")
	}
	if c.HTTPRequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	if c.ReminderMinStreak < 1 || c.ReminderInactiveHours < 0 {
		return fmt.Errorf("некорректные REMINDER_MIN_STREAK/REMINDER_INACTIVE_HOURS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
