package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"login-system/internal/config"
	"login-system/internal/db"
	apihttp "login-system/internal/http"
	"login-system/internal/repository"
	"login-system/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionPurgeInterval = 15 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	credentialRepo := repository.NewPgCredentialRepository(pool)
	sessionRepo, closeSessions, err := newSessionRepository(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}
	defer closeSessions()

	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	authSvc := service.NewAuthService(logger, credentialRepo, sessionRepo, hasher, cfg.SessionTTL)
	cookie := apihttp.NewSessionCookie(cfg.SessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, cookie)
	router := apihttp.NewRouter(logger, authHandler, authSvc, cookie, pool, cfg.StaticDir)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("bcrypt_cost", hasher.Cost()),
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Printf("warning: zap init: %v", err)
		return zap.NewNop()
	}
	return logger
}

// newSessionRepository elige el store de sesiones segun SESSION_BACKEND.
func newSessionRepository(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	logger *zap.Logger,
) (repository.SessionRepository, func(), error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			_ = redisClient.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return repository.NewRedisSessionRepository(redisClient), func() { _ = redisClient.Close() }, nil

	case config.SessionBackendMemory:
		logger.Warn("using in-memory session store; sessions are lost on restart")
		return repository.NewMemorySessionRepository(), func() {}, nil

	default:
		sessions := repository.NewPgSessionRepository(pool)
		if cfg.SessionTTL > 0 {
			go purgeExpiredSessions(ctx, sessions, logger)
		}
		return sessions, func() {}, nil
	}
}

// purgeExpiredSessions borra periodicamente las sesiones vencidas de Postgres.
func purgeExpiredSessions(ctx context.Context, sessions *repository.PgSessionRepository, logger *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired sessions failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
