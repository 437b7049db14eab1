package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/agroflow/irrigation-advisor/internal/api/http"
	"github.com/agroflow/irrigation-advisor/internal/agro"
	"github.com/agroflow/irrigation-advisor/internal/config"
	"github.com/agroflow/irrigation-advisor/internal/features"
	"github.com/agroflow/irrigation-advisor/internal/logging"
	"github.com/agroflow/irrigation-advisor/internal/notify"
	"github.com/agroflow/irrigation-advisor/internal/pipeline"
	"github.com/agroflow/irrigation-advisor/internal/predict"
	"github.com/agroflow/irrigation-advisor/internal/queue"
	"github.com/agroflow/irrigation-advisor/internal/resilience"
	"github.com/agroflow/irrigation-advisor/internal/scheduler"
	"github.com/agroflow/irrigation-advisor/internal/store"
	"github.com/agroflow/irrigation-advisor/internal/weather"
	"github.com/agroflow/irrigation-advisor/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)

	// Shared HTTP client for outbound provider and gateway calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Weather acquisition: Open-Meteo primary, WeatherAPI secondary, backed
	// by the last-known-good cache.
	cache := weather.NewCache()
	var provs []weather.Provider
	provs = append(provs, providers.NewOpenMeteoProvider(httpClient))
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	weatherSvc := weather.NewService(provs, cache, cfg.CacheMaxAge, logger)

	// Core engines.
	featEngine := features.NewEngine(features.Config{
		SensorFreshness:      cfg.SensorFreshness,
		DiscrepancyTolerance: cfg.DiscrepancyTolerance,
	})
	predEngine := predict.NewEngine(
		predict.DefaultStrategies(),
		nil,
		predict.Config{ConfidenceThreshold: cfg.ConfidenceThreshold},
		logger,
	)

	// Delivery channels in priority order.
	var channels []notify.Channel
	if cfg.WhatsAppGatewayURL != "" {
		channels = append(channels, notify.NewWhatsAppChannel(httpClient, cfg.WhatsAppGatewayURL, cfg.WhatsAppAPIKey))
	}
	if cfg.SMSGatewayURL != "" {
		channels = append(channels, notify.NewSMSChannel(httpClient, cfg.SMSGatewayURL, cfg.SMSAPIKey))
	}
	dispatcher := notify.NewDispatcher(channels, resilience.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		Factor:          2,
	}, logger)

	audit := store.NewAuditStore(cfg.AuditMaxRecords, cfg.AuditMaxAge)

	refDB := agro.NewReferenceDB()

	reqQueue := queue.New[pipeline.Request](cfg.QueueCapacity)
	orch := pipeline.New(
		pipeline.Config{
			ForecastDays:    cfg.ForecastDays,
			Workers:         cfg.Workers,
			RequestDeadline: cfg.RequestDeadline,
		},
		reqQueue,
		weatherSvc,
		refDB,
		featEngine,
		predEngine,
		dispatcher,
		audit,
		nil, // sensor ingestion collaborator wired when deployed with IoT
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch.Start(ctx)

	// Prefetch forecasts for registered field locations.
	sched := scheduler.New(cfg.FieldLocations, cfg.PrefetchEvery, cfg.ForecastDays, weatherSvc, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "irrigation-advisor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "irrigation-advisor",
		})
	})

	httpapi.RegisterRoutes(app, orch, refDB, audit, cache)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()
	logger.Info("irrigation-advisor started", "port", cfg.Port, "workers", cfg.Workers)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	orch.Wait()
}
