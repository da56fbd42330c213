package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Metrics       MetricsConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Leaderboard   LeaderboardConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3333"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

type AuthConfig struct {
	ClerkSecretKey     string `envconfig:"CLERK_SECRET_KEY" required:"true"`
	ClerkWebhookSecret string `envconfig:"CLERK_WEBHOOK_SECRET" default:""`
}

type MetricsConfig struct {
	User        string `envconfig:"METRICS_USER" default:""`
	Pass        string `envconfig:"METRICS_PASS" default:""`
	PprofSecret string `envconfig:"PPROF_SECRET" default:""`
}

// CacheConfig selects the leaderboard cache backend: memory or redis.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"REDIS_KEY_PREFIX" default:"darkquests"`
}

type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"30"`

	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

type LeaderboardConfig struct {
	Size int `envconfig:"LEADERBOARD_SIZE" default:"10"`
}

type NotificationConfig struct {
	CredentialsFile string `envconfig:"FCM_CREDENTIALS_FILE" default:"./serviceAccountKey.json"`
	Workers         int    `envconfig:"NOTIFICATION_WORKERS" default:"3"`
	QueueSize       int    `envconfig:"NOTIFICATION_QUEUE_SIZE" default:"100"`
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (s *ServerConfig) Address() string {
	return ":" + s.Port
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Leaderboard.Size <= 0 {
		return nil, fmt.Errorf("LEADERBOARD_SIZE must be positive, got %d", cfg.Leaderboard.Size)
	}

	return &cfg, nil
}
