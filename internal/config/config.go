package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
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
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LifecycleConfig groups the document lifecycle knobs: the per-owner storage
// ceiling, how long trashed documents are retained before the reaper purges
// them, and the sweep cadences.
//
// The original deployment carried two conflicting retention windows (2 days
// in the cleanup job, 7 in a settings default) and two quota literals
// (200 MB and 200 GB). Both are collapsed into a single configured value
// here; the defaults follow the code paths that actually ran.
type LifecycleConfig struct {
	StorageQuotaBytes   int64
	TrashRetention      time.Duration
	ReaperInterval      time.Duration
	OrphanSweepInterval time.Duration
}

// RateLimitConfig holds the inbound admission gate settings.
type RateLimitConfig struct {
	Window         time.Duration
	MaxRequests    int64
	BypassPrefixes []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Lifecycle LifecycleConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
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
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Lifecycle: LifecycleConfig{
			StorageQuotaBytes:   getEnvInt64("STORAGE_QUOTA_BYTES", 200*1024*1024),
			TrashRetention:      time.Duration(getEnvInt("TRASH_RETENTION_HOURS", 48)) * time.Hour,
			ReaperInterval:      time.Duration(getEnvInt("REAPER_INTERVAL_SEC", 3600)) * time.Second,
			OrphanSweepInterval: time.Duration(getEnvInt("ORPHAN_SWEEP_INTERVAL_SEC", 86400)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Window:         time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
			MaxRequests:    getEnvInt64("RATE_LIMIT_MAX_REQUESTS", 100),
			BypassPrefixes: getEnvList("RATE_LIMIT_BYPASS_PREFIXES", "/static/,/css/,/js/"),
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key, def string) []string {
	raw := getEnv(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
