// Package main is the entry point for the gateway API server.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/gateways"
	"gatepay/internal/handlers"
	"gatepay/internal/logging"
	"gatepay/internal/metrics"
	"gatepay/internal/middleware"
	"gatepay/internal/models"
	"gatepay/internal/repositories"
	"gatepay/internal/repositories/cache"
	"gatepay/internal/routes"
	"gatepay/internal/services/auth"
	"gatepay/internal/services/payment"
	"gatepay/internal/utils"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

func main() {
	config.LoadEnv()

	logger := logging.MustNewLogger("gatepay", config.GetEnv("ENV", "development"))
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, redisCache, err := cache.Open(ctx, logger)
	if err != nil {
		return err
	}
	if redisCache != nil {
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Warn("failed to close redis connection", zap.Error(err))
			}
		}()
	}

	gwCfg, err := gateways.LoadConfig()
	if err != nil {
		return err
	}
	registry, err := gateways.New(gwCfg, gateways.Options{Logger: logger, Cache: store})
	if err != nil {
		return err
	}
	if len(registry.Names()) == 0 {
		logger.Warn("no gateways configured")
	}
	logger.Info("gateways ready", zap.Strings("gateways", registry.Names()), zap.String("default", registry.Default()))

	checks := map[string]handlers.Pinger{}
	if redisCache != nil {
		checks["redis"] = redisCache.HealthCheck
	}

	var (
		journal       payment.Journal = repositories.NoopJournal{}
		journalReader handlers.JournalReader
		clients       repositories.APIClientRepository
	)
	if dbCfg, enabled := repositories.DBConfigFromEnv(); enabled {
		db, err := repositories.Open(dbCfg, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("failed to close database connection", zap.Error(err))
			}
		}()
		go logPoolStats(ctx, db, logger)

		checks["database"] = sqlDB.PingContext
		journalRepo := repositories.NewJournalRepository(db)
		journal, journalReader = journalRepo, journalRepo
		clients = repositories.NewAPIClientRepository(db, store)
	} else {
		logger.Warn("DB_HOST not set, operation journal disabled and API clients read from the environment")
		clients, err = staticClients(logger)
		if err != nil {
			return err
		}
	}

	secret, err := jwtSecret(logger)
	if err != nil {
		return err
	}

	collector := metrics.New()
	paymentService := payment.NewService(registry, journal, collector)
	authService := auth.NewService(clients, auth.Config{
		Secret:   secret,
		TokenTTL: config.GetDurationEnv("TOKEN_TTL", auth.DefaultTokenTTL),
		Logger:   logger.Named("auth"),
	})

	app := fiber.New(fiber.Config{
		AppName:      "gatepay " + version,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 60*time.Second),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(collector.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,DELETE",
	}))
	app.Use("/api/token", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("TOKEN_RATE_LIMIT", 10),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Deps{
		Auth:     middleware.NewAuthMiddleware(authService),
		Tokens:   handlers.NewAuthHandler(authService),
		Payments: handlers.NewPaymentHandler(paymentService, journalReader),
		Health:   handlers.NewHealthHandler(version, checks),
		Metrics:  collector.Handler(),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + config.GetEnv("PORT", "3000")
		logger.Info("listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return app.ShutdownWithTimeout(config.GetDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second))
}

// jwtSecret reads JWT_SECRET. Outside production a random secret is used
// when none is set, which invalidates tokens on restart.
func jwtSecret(logger *zap.Logger) ([]byte, error) {
	if s := config.GetEnv("JWT_SECRET", ""); s != "" {
		return []byte(s), nil
	}
	if config.IsProduction() {
		return nil, errors.New("JWT_SECRET must be set in production")
	}
	logger.Warn("JWT_SECRET not set, using a random secret")
	return []byte(utils.MustGenerateSecureCode()), nil
}

// staticClients seeds one API client from API_CLIENT_ID and
// API_CLIENT_SECRET.
func staticClients(logger *zap.Logger) (repositories.APIClientRepository, error) {
	id := config.GetEnv("API_CLIENT_ID", "")
	secret := config.GetEnv("API_CLIENT_SECRET", "")
	if id == "" || secret == "" {
		logger.Warn("API_CLIENT_ID/API_CLIENT_SECRET not set, no client can obtain a token")
		return repositories.NewStaticAPIClients(), nil
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return nil, err
	}
	return repositories.NewStaticAPIClients(models.APIClient{
		ClientID:   id,
		SecretHash: hash,
		Name:       id,
		Scopes:     config.GetEnv("API_CLIENT_SCOPES", models.ScopePaymentsRead+" "+models.ScopePaymentsWrite),
	}), nil
}

func logPoolStats(ctx context.Context, db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			logger.Debug("db pool stats",
				zap.Int("open", stats.OpenConnections),
				zap.Int("idle", stats.Idle),
				zap.Int("in_use", stats.InUse),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration))
		}
	}
}
