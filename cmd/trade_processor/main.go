package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dws-trade-store/internal/config"
	"github.com/dws-trade-store/internal/data/mongo"
	"github.com/dws-trade-store/internal/data/postgres"
	"github.com/dws-trade-store/internal/expiry"
	"github.com/dws-trade-store/internal/logger"
	"github.com/dws-trade-store/internal/platform/messaging/consumers"
	"github.com/dws-trade-store/internal/platform/messaging/producers"
	"github.com/dws-trade-store/internal/platform/persistence"
	coreservice "github.com/dws-trade-store/internal/service"
	"github.com/dws-trade-store/internal/trade_processor/consumer"
	"github.com/dws-trade-store/internal/trade_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("trade_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Trade Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Ensure the trade topic exists before the consumer subscribes
	if err := producers.EnsureTopic(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.NumPartitions, cfg.Kafka.ReplicationFactor, log); err != nil {
		log.Error("Failed to ensure trade topic exists", "topic", cfg.Kafka.TradeTopic, "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize the trade manager and wrap it in a bounded worker pool
	tradeManager := coreservice.NewTradeManager(postgresDB, tradeRepo, auditRepo, log)
	baseProcessing := service.NewEventProcessingService(log, tradeManager)
	processingService, err := service.NewWorkerPoolProcessingService(
		baseProcessing,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize trade event handler. A typed nil producer must not reach the
	// handler's interface field, so only assign it when the DLQ is enabled.
	var dlqPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlqPublisher = dlqProducer
	}
	tradeEventHandler := consumer.NewTradeEventHandler(
		log,
		processingService,
		dlqPublisher,
	)

	// Initialize expiry sweeper
	sweeper := expiry.NewSweeper(&cfg.Expiry, tradeManager, auditRepo, log)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.TradeTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.TradeTopic, cfg.Kafka.ConsumerGroup, tradeEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start expiry sweeper in a goroutine
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
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processingService.Running())
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Trade Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Trade Processor shutdown completed with errors")
	} else {
		log.Info("Trade Processor shutdown completed successfully")
	}
}
