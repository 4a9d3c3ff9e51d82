package main

import (
	"context"
	"os"
	"time"

	"salescadence/config"
	"salescadence/engine"
	"salescadence/middleware"
	"salescadence/routes"
	"salescadence/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize error reporting when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			log.Fatalf("Failed to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize and start the sequence sweep worker
	eng := engine.New(config.DB, log)
	sweepInterval := time.Duration(config.AppConfig.SweepInterval) * time.Minute
	sequenceWorker := worker.NewSequenceWorker(config.DB, eng, log, sweepInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sequenceWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, log)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	log.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
