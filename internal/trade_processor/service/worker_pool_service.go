package service

import (
	"context"
	"log/slog"

	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService runs event processing on a bounded goroutine
// pool so a burst on the topic cannot fan out into unbounded concurrency
// against the database.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEvent submits the event to the worker pool and waits for the
// outcome. The caller blocks so offset commit order is preserved; the pool
// only caps how many events are in flight at once.
func (s *WorkerPoolProcessingService) ProcessEvent(ctx context.Context, event *trade.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Submitting trade event to worker pool",
		"trade_id", event.TradeID,
		"version", event.Version,
	)

	resultChan := make(chan error, 1)

	// Copy the event to avoid data races with the caller
	eventCopy := *event

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessEvent(ctx, &eventCopy)
	})
	if err != nil {
		logger.Error("Failed to submit trade event to worker pool",
			"trade_id", event.TradeID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
