package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dws-trade-store/internal/config"
	"github.com/dws-trade-store/internal/data/mongo"
	"github.com/dws-trade-store/internal/data/postgres"
	"github.com/dws-trade-store/internal/expiry"
	"github.com/dws-trade-store/internal/logger"
	"github.com/dws-trade-store/internal/platform/persistence"
	"github.com/dws-trade-store/internal/service"
	"github.com/dws-trade-store/internal/trade_api"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("trade_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	tradeRepo := postgres.NewTradeRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize services
	tradeManager := service.NewTradeManager(postgresDB, tradeRepo, auditRepo, log)

	// Initialize REST server
	server := trade_api.NewServer(log, cfg, tradeManager, tradeRepo, auditRepo)
	log.Info("REST server initialized")

	// Initialize expiry sweeper
	sweeper := expiry.NewSweeper(&cfg.Expiry, tradeManager, auditRepo, log)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start expiry sweeper in goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting expiry sweeper", "interval", cfg.Expiry.CheckInterval.String())
		sweeper.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context, stopping the sweeper
	cancelAppCtx()
	wg.Wait()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
