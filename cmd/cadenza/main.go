package main

import (
	"os"
	"os/signal"
	"syscall"

	"cadenza/internal/config"
	"cadenza/internal/release"
	"cadenza/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load optional .env with secrets (ngrok token)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.WithError(err).Warn("Could not load .env file")
		}
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Switch to the configured logger
	logger = cfg.NewLogger()

	// Open the releases store
	store, err := release.NewStore(cfg.Releases.Root, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error opening releases store")
	}
	defer store.Close()

	// Create and configure the catalogue server
	catalogServer, err := server.NewCatalogServer(cfg, store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating catalogue server")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := catalogServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	catalogServer.Shutdown()
}
