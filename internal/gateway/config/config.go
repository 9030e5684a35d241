package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"savedanalysis/internal/schema"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	Port string
	Env  string
	// AppVersion is the running release. Documents stamped with an earlier
	// version go through the per-step upgraders on load.
	AppVersion string
	Store      StoreConfig
	Cache      CacheConfig
}

type StoreConfig struct {
	Backend     string
	Dir         string
	PostgresDSN string
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:       resolvePort(os.Getenv("PORT")),
		Env:        env,
		AppVersion: strings.TrimSpace(os.Getenv("APP_VERSION")),
		Store:      loadStoreConfig(env),
		Cache:      loadCacheConfig(),
	}
	return cfg, nil
}

// Validate checks the settings a store-backed command needs.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.AppVersion == "" {
		return fmt.Errorf("APP_VERSION is required")
	}
	if _, err := schema.ParseVersion(c.AppVersion); err != nil {
		return fmt.Errorf("APP_VERSION: %w", err)
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendS3:
		if c.Store.S3.Endpoint == "" {
			return fmt.Errorf("ANALYSIS_S3_ENDPOINT is required for the s3 backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("ANALYSIS_PG_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown ANALYSIS_STORE %q", c.Store.Backend)
	}
	return nil
}

func resolvePort(raw string) string {
	port := strings.TrimSpace(raw)
	if port == "" {
		return ":8081"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func loadStoreConfig(env string) StoreConfig {
	return StoreConfig{
		Backend:     strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_STORE")), BackendFile)),
		Dir:         firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_STORE_DIR")), "data/analyses"),
		PostgresDSN: strings.TrimSpace(os.Getenv("ANALYSIS_PG_DSN")),
		S3:          loadS3Config(env),
	}
}

func loadS3Config(env string) S3Config {
	if isLocal(env) {
		return localS3Config()
	}
	return S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv("ANALYSIS_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_REGION")), "us-east-1"),
		AccessKey: strings.TrimSpace(os.Getenv("ANALYSIS_S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("ANALYSIS_S3_SECRET_KEY")),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_S3_BUCKET")), "saved-analyses"),
		UseSSL:    parseBool(os.Getenv("ANALYSIS_S3_USE_SSL"), true),
	}
}

func loadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:    parseBool(os.Getenv("ANALYSIS_CACHE_ENABLED"), true),
		TTL:        5 * time.Minute,
		MaxEntries: 1024,
	}
	if raw := strings.TrimSpace(os.Getenv("ANALYSIS_CACHE_TTL")); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ANALYSIS_CACHE_MAX_ENTRIES")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	return cfg
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func parseBool(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
