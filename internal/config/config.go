package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup from the environment.
type Config struct {
	ListenAddr    string
	PublicBaseURL string
	Dev           bool

	// TokenSecret signs session tokens; it is the only required value.
	TokenSecret string

	// Bootstrap credentials mint the very first admin while the users
	// table is still empty; ignored afterwards.
	AdminBootstrapUser     string
	AdminBootstrapPasscode string

	DBDriver string
	DBDSN    string

	CleanupInterval  time.Duration
	CleanupRetention time.Duration

	// ShareCacheBackend: none | memory | redis.
	ShareCacheBackend string
	RedisAddr         string

	OTELMetricsEnabled        bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsExportInterval time.Duration
	EnableOTelHTTP            bool

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:                envOr("LISTEN_ADDR", ":8080"),
		PublicBaseURL:             strings.TrimRight(envOr("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		Dev:                       envBool("DEV", false),
		TokenSecret:               os.Getenv("TOKEN_SECRET"),
		AdminBootstrapUser:        os.Getenv("ADMIN_BOOTSTRAP_USER"),
		AdminBootstrapPasscode:    os.Getenv("ADMIN_BOOTSTRAP_PASSCODE"),
		DBDriver:                  envOr("DB_DRIVER", "sqlite"),
		DBDSN:                     envOr("DB_DSN", "memovault.db"),
		CleanupInterval:           envDuration("CLEANUP_INTERVAL", 6*time.Hour),
		CleanupRetention:          envDuration("CLEANUP_RETENTION", 7*24*time.Hour),
		ShareCacheBackend:         envOr("SHARE_CACHE_BACKEND", "memory"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		OTELMetricsEnabled:        envBool("OTEL_METRICS_ENABLED", false),
		OTELExporterOTLPEndpoint:  envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           envOr("OTEL_SERVICE_NAME", "memovault"),
		OTELEnvironment:           envOr("OTEL_ENVIRONMENT", "development"),
		OTELMetricsExportInterval: envDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second),
		EnableOTelHTTP:            envBool("OTEL_HTTP_ENABLED", false),
		ShutdownTimeout:           envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("TOKEN_SECRET is required")
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch c.ShareCacheBackend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("SHARE_CACHE_BACKEND must be none, memory or redis, got %q", c.ShareCacheBackend)
	}
	if c.ShareCacheBackend == "redis" && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when SHARE_CACHE_BACKEND=redis")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	if c.CleanupRetention < 0 {
		return errors.New("CLEANUP_RETENTION must not be negative")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
