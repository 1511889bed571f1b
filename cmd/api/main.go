package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinicdesk/docs"
	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/config"
	"clinicdesk/internal/database"
	"clinicdesk/internal/database/migration"
	handlers "clinicdesk/internal/http/handler"
	"clinicdesk/internal/http/middleware"
	"clinicdesk/internal/logging"
	"clinicdesk/internal/otel"
	"clinicdesk/internal/repository/postgres"
	"clinicdesk/internal/service"
	"clinicdesk/internal/storage"
	"clinicdesk/internal/submission"
)

// @title Clinic Desk API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()
	logger := logging.Setup(logging.Options{
		App:    cfg.AppName,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	wizardMetrics, err := service.NewWizardMetrics(reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register wizard metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register http metrics")
	}

	api := clinicapi.New(cfg.ClinicAPI)
	wizardSvc := service.NewWizardService(
		postgres.NewWizardSessionPostgres(db),
		objStore,
		submission.New(api, objStore),
		service.WizardOptions{
			ResetDelay:    cfg.Wizard.ResetDelay,
			SubmitTimeout: cfg.Wizard.SubmitTimeout,
			SessionTTL:    cfg.Wizard.SessionTTL,
			Metrics:       wizardMetrics,
			Logger:        logger.With().Str("component", "wizard").Logger(),
		},
	)
	defer wizardSvc.Close()
	clinicSvc := service.NewClinicService(api)

	go service.RunJanitor(ctx, wizardSvc, cfg.Wizard.JanitorInterval, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	docs.SwaggerInfo.Host = cfg.AppHost
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		if host := c.Get("Host"); host != "" {
			docs.SwaggerInfo.Host = host
		}
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, db, wizardSvc, clinicSvc)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("listening")
	if err := app.Listen(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
