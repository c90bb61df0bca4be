package main

import (
	"log"
	"os"

	"team-match-backend/internal/api/routes"
	"team-match-backend/internal/cache"
	"team-match-backend/internal/config"
	"team-match-backend/internal/database"
	"team-match-backend/internal/jobs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file in development
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Set up logging
	setupLogging(cfg.LogLevel)

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, nil)
	if err != nil {
		logrus.Fatal("Failed to initialize database:", err)
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logrus.Fatal("Failed to initialize Redis:", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router and services
	router, services := routes.SetupRoutes(db, redisClient, cfg)

	// Start background jobs
	if cfg.JobsEnabled {
		runner, err := jobs.NewRunner(services.Recommend, services.Requests, services.Locks, cfg.PrecacheCron, cfg.SweepInterval)
		if err != nil {
			logrus.Fatal("Failed to initialize job runner:", err)
		}
		if err := runner.Start(); err != nil {
			logrus.Fatal("Failed to start background jobs:", err)
		}
		defer runner.Stop()
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "7100"
	}

	logrus.Infof("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatal("Failed to start server:", err)
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
