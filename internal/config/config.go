package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStorageRedis  = "redis"
	SessionStorageBolt   = "bolt"
	SessionStorageMemory = "memory"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	HTTPAddr          string
	BackendURL        string
	BackendTimeout    time.Duration
	PostgresDSN       string
	RedisAddr         string
	KafkaBrokers      []string
	InteractionsTopic string
	JWTSecret         string
	SessionStorage    string
	BoltPath          string
	CacheBackend      string
	CacheTTL          time.Duration
	CookieSecure      bool
	OTLPEndpoint      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		BackendURL:        os.Getenv("BACKEND_URL"),
		BackendTimeout:    durationEnv("BACKEND_TIMEOUT", 10*time.Second),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		KafkaBrokers:      []string{os.Getenv("KAFKA_BROKER")},
		InteractionsTopic: os.Getenv("KAFKA_INTERACTIONS_TOPIC"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SessionStorage:    os.Getenv("SESSION_STORAGE"),
		BoltPath:          os.Getenv("BOLT_PATH"),
		CacheBackend:      os.Getenv("CACHE_BACKEND"),
		CacheTTL:          durationEnv("CACHE_TTL", 30*time.Minute),
		CookieSecure:      boolEnv("COOKIE_SECURE", false),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://localhost:5000"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=cinematch sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.InteractionsTopic == "" {
		cfg.InteractionsTopic = "interactions"
	}
	switch cfg.SessionStorage {
	case SessionStorageRedis, SessionStorageBolt, SessionStorageMemory:
	default:
		cfg.SessionStorage = SessionStorageRedis
	}
	if cfg.BoltPath == "" {
		cfg.BoltPath = "cinematch.db"
	}
	switch cfg.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		cfg.CacheBackend = CacheBackendMemory
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"backend_url", cfg.BackendURL,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"session_storage", cfg.SessionStorage,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL,
		"verify_tokens", cfg.JWTSecret != "")
	return cfg
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func boolEnv(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid bool, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}
