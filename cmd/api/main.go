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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/carterperez-dev/templates/nz-market/internal/admin"
	"github.com/carterperez-dev/templates/nz-market/internal/auth"
	"github.com/carterperez-dev/templates/nz-market/internal/catalog"
	"github.com/carterperez-dev/templates/nz-market/internal/chat"
	"github.com/carterperez-dev/templates/nz-market/internal/config"
	"github.com/carterperez-dev/templates/nz-market/internal/core"
	"github.com/carterperez-dev/templates/nz-market/internal/events"
	"github.com/carterperez-dev/templates/nz-market/internal/health"
	"github.com/carterperez-dev/templates/nz-market/internal/mail"
	"github.com/carterperez-dev/templates/nz-market/internal/metrics"
	"github.com/carterperez-dev/templates/nz-market/internal/middleware"
	"github.com/carterperez-dev/templates/nz-market/internal/order"
	"github.com/carterperez-dev/templates/nz-market/internal/server"
	"github.com/carterperez-dev/templates/nz-market/internal/upload"
	"github.com/carterperez-dev/templates/nz-market/internal/user"
)

const (
	drainDelay    = 5 * time.Second
	purgeInterval = time.Hour

	uploadsPerHour = 60
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

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

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	reg := metrics.New(cfg.Metrics.Namespace)
	reg.MustRegister(collectors.NewDBStatsCollector(db.DB.DB, "postgres"))

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}

	var publisher events.Publisher
	if cfg.NATS.Enabled {
		nc, natsErr := events.Connect(cfg.NATS, logger)
		if natsErr != nil {
			return natsErr
		}
		publisher = nc
		deps = append(deps, health.Dependency{Name: "nats", Checker: nc, Optional: true})
		logger.Info("nats connected", "url", cfg.NATS.URL)
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	var sender mail.Sender
	if cfg.SMTP.Enabled {
		smtp, smtpErr := mail.NewSMTPSender(cfg.SMTP, logger)
		if smtpErr != nil {
			return smtpErr
		}
		sender = smtp
	} else {
		sender = mail.NewLogSender(logger)
	}
	mailer := mail.NewAccountMailer(sender, cfg.Auth.FrontendURL, reg.EmailsSent)

	storage, err := upload.NewMinIOStorage(cfg.Storage)
	if err != nil {
		return err
	}
	storage.EnsureBucket(ctx, cfg.Storage.Region)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(auth.ServiceConfig{
		Repo:   auth.NewRepository(db.DB),
		JWT:    jwtManager,
		Users:  userSvc,
		Mailer: mailer,
		Redis:  redis.Client,
		Auth:   cfg.Auth,
		Logger: logger,
	})
	authHandler := auth.NewHandler(authSvc)
	userSvc.SetSessions(authSvc)

	catalogSvc := catalog.NewService(catalog.NewRepository(db.DB))
	catalogHandler := catalog.NewHandler(catalogSvc)

	hub := chat.NewHub(redis, cfg.Chat.ChannelPrefix, reg.ChatConnections, logger)
	chatSvc := chat.NewService(chat.ServiceConfig{
		Repo:          chat.NewRepository(db.DB),
		Items:         catalogSvc,
		Publisher:     redis,
		ChannelPrefix: cfg.Chat.ChannelPrefix,
		Messages:      reg.ChatMessages,
		Logger:        logger,
	})
	chatHandler := chat.NewHandler(chatSvc, hub, cfg.Chat, cfg.CORS.AllowedOrigins)

	adminSvc := admin.NewService(admin.ServiceConfig{
		Repo:     admin.NewRepository(db.DB),
		Sessions: authSvc,
		Events:   publisher,
		Metrics:  reg,
		Logger:   logger,
	})
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Service:    adminSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	orderSvc := order.NewService(order.ServiceConfig{
		Repo:    order.NewRepository(db.DB),
		Items:   catalogSvc,
		Gateway: order.NewGateway(cfg.Stripe),
		Audit:   adminSvc,
		Events:  publisher,
		Metrics: reg,
		Logger:  logger,
	})
	orderHandler := order.NewHandler(orderSvc)

	uploadHandler := upload.NewHandler(upload.NewService(storage, cfg.Storage.PresignExpiry))

	healthHandler := health.NewHandler(deps...)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	if cfg.Metrics.Enabled {
		router.Use(reg.Middleware)
	}
	router.Use(middleware.Logger(logger))
	if cfg.Otel.Enabled {
		router.Use(middleware.Tracing(cfg.Otel.ServiceName))
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, reg.Handler())
	}

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	credentialLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(10, 5),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	}).Handler

	authHandler.RegisterRoutes(router, authenticator, credentialLimiter)
	userHandler.RegisterRoutes(router, authenticator)
	catalogHandler.RegisterRoutes(router, authenticator)
	chatHandler.RegisterRoutes(router, authenticator)
	orderHandler.RegisterRoutes(router, authenticator)
	uploadLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerHour(uploadsPerHour, 10),
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
	}).Handler
	uploadHandler.RegisterRoutes(router, func(next http.Handler) http.Handler {
		return authenticator(uploadLimiter(next))
	})
	adminHandler.RegisterReportRoutes(router, authenticator)

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticator, middleware.RequireAdmin)

		adminHandler.RegisterRoutes(r)
		userHandler.RegisterAdminRoutes(r)
		orderHandler.RegisterAdminRoutes(r)
	})

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("chat hub stopped", "error", err)
			healthHandler.SetReady(false)
		}
	}()

	go purgeExpired(ctx, authSvc, logger)

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

	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		logger.Warn("chat hub did not stop before deadline")
	}

	publisher.Close()

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

// purgeExpired clears dead refresh and account tokens until ctx ends.
func purgeExpired(ctx context.Context, svc *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired tokens", "count", n)
			}
		}
	}
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
