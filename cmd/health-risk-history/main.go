package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/health-risk-history/internal/api/http"
	"github.com/i474232898/health-risk-history/internal/config"
	"github.com/i474232898/health-risk-history/internal/environment"
	"github.com/i474232898/health-risk-history/internal/environment/providers"
	"github.com/i474232898/health-risk-history/internal/healthrisk"
	"github.com/i474232898/health-risk-history/internal/lock"
	"github.com/i474232898/health-risk-history/internal/logging"
	"github.com/i474232898/health-risk-history/internal/observability"
	"github.com/i474232898/health-risk-history/internal/scheduler"
	"github.com/i474232898/health-risk-history/internal/store"
)

const serviceName = "health-risk-history"

// historyBackend is everything the service needs from storage.
type historyBackend interface {
	healthrisk.UserDirectory
	healthrisk.ProfileStore
	healthrisk.ProfileWriter
	healthrisk.HistoryStore
	healthrisk.HistoryReader
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	weatherProvider, err := providers.NewWeatherProvider(cfg.WeatherProvider, httpClient, providers.WeatherKeys{
		OpenWeather: cfg.OpenWeatherAPIKey,
		WeatherAPI:  cfg.WeatherAPIKey,
	}, cfg.UpstreamMaxRetries)
	if err != nil {
		zl.Fatal("failed to configure weather provider", zap.Error(err))
	}
	airQuality := providers.NewOpenMeteoAirQualityProvider(httpClient, cfg.UpstreamMaxRetries)
	envClient := environment.NewClient(weatherProvider, airQuality, metrics, zl)

	location := cfg.DefaultLocation
	if cfg.GeocodeEnabled() {
		if loc, err := environment.GeocodeCity(cfg.DefaultCity, cfg.DefaultCountry, cfg.GeocoderAPIKey); err != nil {
			zl.Warn("geocoding failed; using configured coordinates",
				zap.String("city", cfg.DefaultCity), zap.Error(err))
		} else {
			location = loc
		}
	}
	zl.Info("using default location", zap.Float64("lat", location.Lat), zap.Float64("lon", location.Lon))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		backend historyBackend
		checks  = map[string]pinger{}
	)
	if cfg.DatabaseURL != "" {
		var db *sql.DB
		db, err = store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMaxIdle)
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		pg := store.NewPostgresStore(db, zl)
		if err := pg.Migrate(ctx); err != nil {
			zl.Fatal("failed to apply schema", zap.Error(err))
		}
		backend = pg
		checks["database"] = pg
	} else {
		zl.Warn("DATABASE_URL not set; using in-memory store, register users via PUT /api/v1/users/:userID/health-profile")
		backend = store.NewMemoryStore(0)
	}

	var locker healthrisk.RunLocker
	if cfg.RedisAddr != "" {
		rdb := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()

		rl := lock.NewRedisLocker(rdb, lock.DefaultKey, cfg.RunLockTTL)
		locker = rl
		checks["redis"] = rl
	}

	clock := clockwork.NewRealClock()
	service := healthrisk.NewService(healthrisk.Deps{
		Users:       backend,
		Profiles:    backend,
		History:     backend,
		Environment: envClient,
		Locations:   environment.FixedLocation(location),
		Locker:      locker,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      zl,
	}, healthrisk.Options{
		Workers:     cfg.BatchWorkers,
		PageSize:    cfg.BatchPageSize,
		UserTimeout: cfg.UserTimeout,
	})

	// The lock TTL also bounds a scheduled run.
	sched := scheduler.New(cfg.ScheduleCron, cfg.RunLockTTL, service, zl)
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok", "service": serviceName}
		for name, p := range checks {
			if err := p.Ping(c.UserContext()); err != nil {
				status["status"] = "degraded"
				status[name] = err.Error()
				continue
			}
			status[name] = "ok"
		}
		if status["status"] != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// HTTP runs get the same bound as scheduled ones so the lock cannot expire under them.
	httpapi.RegisterRoutes(app, httpapi.Handlers{
		Runner:     service,
		History:    backend,
		Profiles:   backend,
		Clock:      clock,
		RunTimeout: cfg.RunLockTTL,
	})

	go func() {
		zl.Info("http server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
}
