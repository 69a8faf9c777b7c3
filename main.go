package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"binacloud/monitor/api"
	"binacloud/monitor/buildinfo"
	"binacloud/monitor/config"
	"binacloud/monitor/database"
	"binacloud/monitor/logger"
	"binacloud/monitor/services"
	"binacloud/monitor/timezone"
	"binacloud/monitor/ws"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	_ "binacloud/monitor/docs" // Import generated docs
)

// @title Bina Cloud Monitor API
// @version 1.0
// @description Call event ingestion, real-time notification and dashboard analytics service
// @BasePath /
// @schemes http

const idleTimeout = 5 * time.Second

func main() {
	buildinfo.SetStartTime(time.Now())

	cfg := config.Load()

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Debug: cfg.Log.Debug}); err != nil {
		panic(err)
	}

	info := buildinfo.GetInfo()
	logger.Info().
		Str("version", info.Version).
		Str("commit", info.Commit).
		Str("build_date", info.BuildDate).
		Str("go_version", info.GoVersion).
		Str("hostname", info.Hostname).
		Msg("starting application")

	if err := database.InitClickHouse(&cfg.ClickHouse); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize ClickHouse")
	}

	if err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize Redis")
	}

	store := database.GetEventStore()
	redis := database.GetRedis(cfg.Redis.DedupDurationMS)
	clock := timezone.NewService(cfg.Timezone)

	hub := ws.NewHub(redis, cfg.Notifier, logger.WithComponent("ws"))

	batcher := services.NewEventBatcher(
		cfg.ClickHouse.BufferChannelCapacity,
		cfg.ClickHouse.BatchSize,
		cfg.ClickHouse.FlushIntervalSeconds,
		store,
		redis,
		logger.WithComponent("batcher"),
	)
	batcher.Start()

	history := services.NewCallHistory(store, clock, logger.WithComponent("history"))

	eventService, err := services.NewEventService(services.EventServiceDeps{
		Store:          store,
		Devices:        redis,
		Broadcaster:    hub,
		History:        history,
		Clock:          clock,
		Batcher:        batcher,
		ContactURLBase: cfg.ContactURLBase,
		Log:            logger.WithComponent("events"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize event service")
	}

	dashboardService := services.NewDashboardService(store, clock, logger.WithComponent("dashboard"))

	eventHandler := api.NewEventHandler(eventService)
	dashboardHandler := api.NewDashboardHandler(dashboardService)

	app := fiber.New(fiber.Config{
		IdleTimeout: idleTimeout,
	})

	app.Use(recover.New())

	// redirect to swagger docs
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/swagger/", fiber.StatusMovedPermanently)
	})

	// Health check endpoint
	app.Get("/health", api.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Event endpoints
	app.Post("/api/events", eventHandler.PostEvent)
	app.Post("/api/events/bulk", eventHandler.PostEventsBulk)
	app.Get("/api/events", eventHandler.ListEvents)
	app.Get("/api/events/recent", eventHandler.RecentEvents)

	// Dashboard endpoint
	app.Get("/api/dashboard/stats", dashboardHandler.GetStats)

	// Real-time notification channel
	app.Use("/ws", ws.UpgradeMiddleware())
	app.Get("/ws", hub.Handler())

	// Listen from a different goroutine
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	logger.Info().Msg("gracefully shutting down")
	_ = app.Shutdown()

	logger.Info().Msg("running cleanup tasks")

	// Shutdown event service batcher (flushes remaining events)
	if err := services.ShutdownEventService(eventService); err != nil {
		logger.Error().Err(err).Msg("error shutting down event service batcher")
	}

	if err := database.CloseClickHouse(); err != nil {
		logger.Error().Err(err).Msg("error closing ClickHouse")
	}

	if err := database.CloseRedis(); err != nil {
		logger.Error().Err(err).Msg("error closing Redis")
	}

	logger.Info().Msg("shutdown complete")
}
