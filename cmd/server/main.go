package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/spondias/internal/config"
	"github.com/Skotchmaster/spondias/internal/handlers"
	"github.com/Skotchmaster/spondias/internal/hash"
	"github.com/Skotchmaster/spondias/internal/logging"
	authmw "github.com/Skotchmaster/spondias/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/spondias/internal/middleware/logging"
	"github.com/Skotchmaster/spondias/internal/mykafka"
	"github.com/Skotchmaster/spondias/internal/ratelimit"
	"github.com/Skotchmaster/spondias/internal/repo"
	"github.com/Skotchmaster/spondias/internal/service"
	"github.com/Skotchmaster/spondias/internal/tokens"
	httpserver "github.com/Skotchmaster/spondias/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_init_error", "error", err)
		os.Exit(1)
	}

	if len(cfg.JWTSecret) == 0 {
		logger.Warn("jwt_secret_missing", "effect", "login, registration and protected routes will fail")
	}

	hasher, err := hash.NewHasher(hash.Params{N: cfg.ScryptN, R: cfg.ScryptR, P: cfg.ScryptP})
	if err != nil {
		logger.Error("hasher_init_error", "error", err)
		os.Exit(1)
	}

	var events mykafka.Publisher = mykafka.Nop{}
	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Error("kafka_init_error", "error", err)
			os.Exit(1)
		}
		events = producer
	}

	svc := &service.AuthService{
		Repo:     &repo.GormRepo{DB: db, Timeout: cfg.DBTimeout},
		Hasher:   hasher,
		Tokens:   tokens.NewSigner(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL(),
		Events:   events,
		Topic:    cfg.KafkaTopic,
	}

	var adminUpstream echo.HandlerFunc
	if cfg.AdminUpstreamURL != "" {
		adminUpstream, err = httpserver.NewUpstream(cfg.AdminUpstreamURL)
		if err != nil {
			logger.Error("admin_upstream_error", "error", err)
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			Svc:          svc,
			Limiter:      newLimiter(cfg, logger),
			LoginRule:    handlers.Rule{Limit: cfg.LoginRateLimit, Window: cfg.RateLimitWindow},
			RegisterRule: handlers.Rule{Limit: cfg.RegisterRateLimit, Window: cfg.RateLimitWindow},
			TrustProxy:   cfg.TrustProxyHeaders,
			SecureCookie: cfg.IsProduction(),
			TokenTTL:     cfg.TokenTTL(),
		},
		Gate:          authmw.NewGate(tokens.NewEdgeVerifier(cfg.JWTSecret)),
		AdminUpstream: adminUpstream,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newLimiter falls back to the in-process store alone when REDIS_URL is
// empty or unusable.
func newLimiter(cfg *config.Config, logger *slog.Logger) *ratelimit.Limiter {
	var primary ratelimit.Counter
	if cfg.RedisURL != "" {
		counter, err := ratelimit.NewRedisCounter(cfg.RedisURL, cfg.RateLimitTimeout)
		if err != nil {
			logger.Warn("rate_limit_backend_disabled", "error", err)
		} else {
			primary = counter
		}
	}
	return ratelimit.NewLimiter(primary, ratelimit.NewMemoryStore(), logger)
}
