// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/carterperez-dev/poin-lunak/internal/admin"
	"github.com/carterperez-dev/poin-lunak/internal/auth"
	"github.com/carterperez-dev/poin-lunak/internal/config"
	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/health"
	"github.com/carterperez-dev/poin-lunak/internal/loyalty"
	"github.com/carterperez-dev/poin-lunak/internal/middleware"
	"github.com/carterperez-dev/poin-lunak/internal/ratelimit"
	"github.com/carterperez-dev/poin-lunak/internal/server"
	"github.com/carterperez-dev/poin-lunak/internal/user"
)

const (
	drainDelay          = 5 * time.Second
	tokenJanitorPeriod  = time.Hour
	redeemLimiterPrefix = "ratelimit:redeem:"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrate := flag.Bool("migrate", true, "apply database migrations on startup")
	flag.Parse()

	if err := run(*configPath, *migrate); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, migrate bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if migrate {
		if err := core.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis, cfg.App.Name)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	if cfg.IsDevelopment() {
		if err := ensureKeyPair(cfg.JWT); err != nil {
			return err
		}
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	windows := ratelimit.NewMemoryStore()
	go windows.RunSweeper(ctx, cfg.Loyalty.SweepInterval)

	var redeemLimiter *ratelimit.Limiter
	switch cfg.Loyalty.LimiterBackend {
	case config.LimiterBackendRedis:
		redeemLimiter = ratelimit.New(
			ratelimit.NewRedisStore(redis.Client, redeemLimiterPrefix),
			ratelimit.WithFallback(windows),
		)
	default:
		redeemLimiter = ratelimit.New(windows)
	}
	logger.Info("redeem limiter initialized",
		"backend", cfg.Loyalty.LimiterBackend,
		"limit", cfg.Loyalty.RedeemLimit,
		"window", cfg.Loyalty.RedeemWindow,
	)

	loyaltySvc := loyalty.NewService(
		loyalty.NewStore(db.DB),
		redeemLimiter,
		loyalty.NewRedisKV(redis.Client),
		cfg.Loyalty,
	)
	loyaltyHandler := loyalty.NewHandler(loyaltySvc)

	userRepo := user.NewStore(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, loyaltySvc, redis.Client)
	authHandler := auth.NewHandler(authSvc, cfg.Auth)

	go authSvc.RunTokenJanitor(ctx, tokenJanitorPeriod)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		LevelCounts: userSvc.LevelCounts,
		LimiterKeys: windows.Len,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerPeriod(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	verify := middleware.Authenticator(authSvc, cfg.Auth.CookieName)
	levelLimit := middleware.LevelRateLimiter(redis.Client, middleware.DefaultLevelLimits)
	authenticated := chainMiddleware(verify, levelLimit)
	adminOnly := middleware.RequireAdmin

	authLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(10, 5),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
	})

	router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Handler)
			authHandler.RegisterRoutes(r, authenticated)
		})

		userHandler.RegisterRoutes(r, authenticated)
		userHandler.RegisterAdminRoutes(r, authenticated, adminOnly)

		loyaltyHandler.RegisterRoutes(r, authenticated, adminOnly)
		loyaltyHandler.RegisterAdminRoutes(r, authenticated, adminOnly)

		adminHandler.RegisterRoutes(r, authenticated, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// chainMiddleware composes middlewares so the first one runs outermost.
func chainMiddleware(
	mws ...func(http.Handler) http.Handler,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// ensureKeyPair writes a fresh ES256 key pair when none exists so a
// development checkout starts without manual setup.
func ensureKeyPair(cfg config.JWTConfig) error {
	if _, err := os.Stat(cfg.PrivateKeyPath); err == nil {
		return nil
	}

	for _, p := range []string{cfg.PrivateKeyPath, cfg.PublicKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return err
		}
	}

	slog.Warn("generating development JWT key pair",
		"private_key", cfg.PrivateKeyPath,
	)
	return auth.GenerateKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
