package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	StoreNone      = "none"
	StoreMemory    = "memory"
	StorePathstore = "pathstore"
	StoreGCS       = "gcs"
)

type Config struct {
	Port  string
	Debug bool

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL          time.Duration
	GenerateTimeout time.Duration

	// Draft storage
	StoreBackend    string
	PathstoreURL    string
	PathstoreAPIKey string
	GCSBucket       string

	// Quotas. A zero window disables them.
	PreviewLimit    int
	GenerationLimit int
	QuotaWindow     time.Duration
}

func Load() Config {
	cfg := Config{
		Port:  envOr("PORT", "8090"),
		Debug: envBool("DEBUG", false),

		APIKey: os.Getenv("BONDGEN_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		JobTTL:          envDuration("JOB_TTL", 1*time.Hour),
		GenerateTimeout: envDuration("GENERATE_TIMEOUT", 2*time.Minute),

		StoreBackend:    envOr("STORE_BACKEND", StoreNone),
		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),

		PreviewLimit:    envInt("PREVIEW_LIMIT", 5),
		GenerationLimit: envInt("GENERATION_LIMIT", 3),
		QuotaWindow:     envDuration("QUOTA_WINDOW", 24*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 2 * time.Minute
	}
	if cfg.QuotaWindow < 0 {
		cfg.QuotaWindow = 0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("BONDGEN_API_KEY is required")
	}
	switch c.StoreBackend {
	case StoreNone, StoreMemory:
	case StorePathstore:
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required when STORE_BACKEND=pathstore")
		}
	case StoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORE_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
