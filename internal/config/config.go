package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL settings for the wizard session store.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// ConnectAttempts bounds the startup pings before giving up.
	ConnectAttempts int
}

// MinIOConfig holds object storage settings for attachment staging.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// StagingExpiryDays expires abandoned staged objects through a bucket
	// lifecycle rule. Zero leaves the bucket lifecycle untouched.
	StagingExpiryDays int
}

// ClinicAPIConfig points at the remote Patient Records API.
type ClinicAPIConfig struct {
	URL     string
	Timeout time.Duration
}

// WizardConfig tunes the intake wizard sessions.
type WizardConfig struct {
	// ResetDelay is how long a finished wizard keeps showing its success
	// notice before it returns to the first step.
	ResetDelay time.Duration
	// SubmitTimeout is how long a wizard may sit in Submitting before it is
	// treated as failed. Keep it above the clinic API timeout.
	SubmitTimeout time.Duration
	// SessionTTL is the idle time after which a session is purged.
	SessionTTL      time.Duration
	JanitorInterval time.Duration
}

// LogConfig selects the log level and output format ("console", "json" or "ecs").
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppName   string
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	ClinicAPI ClinicAPIConfig
	Wizard    WizardConfig
	Log       LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppName: getEnv("APP_NAME", "clinicdesk"),
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectAttempts:    getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),

			StagingExpiryDays: getEnvInt("MINIO_STAGING_EXPIRY_DAYS", 2),
		},
		ClinicAPI: ClinicAPIConfig{
			URL:     getEnv("CLINIC_API_URL", "http://localhost:3000/api"),
			Timeout: getEnvDuration("CLINIC_API_TIMEOUT", 30*time.Second),
		},
		Wizard: WizardConfig{
			ResetDelay:      getEnvDuration("WIZARD_RESET_DELAY", 2*time.Second),
			SubmitTimeout:   getEnvDuration("WIZARD_SUBMIT_TIMEOUT", time.Minute),
			SessionTTL:      getEnvDuration("WIZARD_SESSION_TTL", 24*time.Hour),
			JanitorInterval: getEnvDuration("WIZARD_JANITOR_INTERVAL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("2s", "1h30m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
