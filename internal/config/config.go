package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/spondias/internal/models"
)

type Config struct {
	HTTPAddr string
	AppEnv   string
	LogLevel string

	DatabaseURL string
	// DBTimeout bounds each credential query or insert.
	DBTimeout time.Duration

	// JWTSecret may be empty here; signing and verification refuse to work
	// without it, so a missing secret surfaces on first use.
	JWTSecret         []byte
	JWTExpiresSeconds int

	RedisURL          string
	RateLimitTimeout  time.Duration
	RateLimitWindow   time.Duration
	LoginRateLimit    int
	RegisterRateLimit int
	TrustProxyHeaders bool

	KafkaBrokers []string
	KafkaTopic   string

	// AdminUpstreamURL is the service behind the gate that implements the
	// admin pages and catalog management. Empty disables the proxy.
	AdminUpstreamURL string

	ScryptN int
	ScryptR int
	ScryptP int
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresSeconds) * time.Second
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	var env envParser
	cfg := &Config{
		HTTPAddr: EnvDefault("HTTP_ADDR", ":8080"),
		AppEnv:   EnvDefault("APP_ENV", "development"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBTimeout:   time.Duration(env.Int("DB_TIMEOUT_MS", 3000)) * time.Millisecond,

		JWTSecret:         []byte(os.Getenv("JWT_SECRET")),
		JWTExpiresSeconds: env.Int("JWT_EXPIRES_IN_SECONDS", 86400),

		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		RateLimitTimeout:  time.Duration(env.Int("RATE_LIMIT_TIMEOUT_MS", 2000)) * time.Millisecond,
		RateLimitWindow:   time.Duration(env.Int("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		LoginRateLimit:    env.Int("LOGIN_RATE_LIMIT", 10),
		RegisterRateLimit: env.Int("REGISTER_RATE_LIMIT", 5),
		TrustProxyHeaders: env.Bool("TRUST_PROXY_HEADERS", true),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		AdminUpstreamURL: strings.TrimSpace(os.Getenv("ADMIN_UPSTREAM_URL")),

		ScryptN: env.Int("HASH_SCRYPT_N", 16384),
		ScryptR: env.Int("HASH_SCRYPT_R", 8),
		ScryptP: env.Int("HASH_SCRYPT_P", 1),
	}
	if err := env.Err(); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required env DATABASE_URL")
	}
	if cfg.JWTExpiresSeconds <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRES_IN_SECONDS must be positive, got %d", cfg.JWTExpiresSeconds)
	}
	if cfg.DBTimeout <= 0 {
		return nil, fmt.Errorf("DB_TIMEOUT_MS must be positive, got %s", cfg.DBTimeout)
	}
	if cfg.LoginRateLimit <= 0 || cfg.RegisterRateLimit <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit settings must be positive")
	}

	return cfg, nil
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func InitDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns def when key is unset and an error when it is set but not
// an integer.
func EnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: expected an integer", key, v)
	}
	return n, nil
}

func EnvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: expected a boolean", key, v)
	}
	return b, nil
}

// envParser collects every malformed value so Load reports them together.
type envParser struct {
	errs []error
}

func (p *envParser) Int(key string, def int) int {
	n, err := EnvInt(key, def)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return n
}

func (p *envParser) Bool(key string, def bool) bool {
	b, err := EnvBool(key, def)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return b
}

func (p *envParser) Err() error {
	return errors.Join(p.errs...)
}
