package expiry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"log/slog"

	"github.com/dws-trade-store/internal/config"
	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockTradeManager struct {
	mock.Mock
	sweepCalls atomic.Int64
}

func (m *MockTradeManager) Ingest(ctx context.Context, event *trade.Event) (*trade.Trade, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Trade), args.Error(1)
}

func (m *MockTradeManager) FetchOne(ctx context.Context, tradeID string) (*trade.Trade, error) {
	args := m.Called(ctx, tradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Trade), args.Error(1)
}

func (m *MockTradeManager) FetchAll(ctx context.Context, skip, limit int) ([]*trade.Trade, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Trade), args.Error(1)
}

func (m *MockTradeManager) FetchByBook(ctx context.Context, bookID string) ([]*trade.Trade, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Trade), args.Error(1)
}

func (m *MockTradeManager) Remove(ctx context.Context, tradeID string) (bool, error) {
	args := m.Called(ctx, tradeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTradeManager) ExpireSweep(ctx context.Context, asOf trade.Date) (int64, error) {
	m.sweepCalls.Add(1)
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTradeManager) Statistics(ctx context.Context) (*service.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Statistics), args.Error(1)
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) LogAudit(ctx context.Context, tradeID string, action audit.Action, details map[string]interface{}, status audit.Status) (string, error) {
	args := m.Called(ctx, tradeID, action, details, status)
	return args.String(0), args.Error(1)
}

func (m *MockAuditLog) LogEvent(ctx context.Context, eventType audit.Action, data map[string]interface{}, severity audit.Severity) (string, error) {
	args := m.Called(ctx, eventType, data, severity)
	return args.String(0), args.Error(1)
}

func (m *MockAuditLog) GetAuditLogs(ctx context.Context, tradeID string, skip, limit int) ([]*audit.Entry, error) {
	args := m.Called(ctx, tradeID, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditLog) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var testNow = time.Date(2026, time.May, 20, 3, 0, 0, 0, time.UTC)

func newTestSweeper(manager *MockTradeManager, auditLog *MockAuditLog, interval time.Duration) *Sweeper {
	s := NewSweeper(&config.ExpiryConfig{CheckInterval: interval}, manager, auditLog, slog.Default())
	s.now = func() time.Time { return testNow }
	return s
}

func TestSweeper_SweepSuccess(t *testing.T) {
	manager := &MockTradeManager{}
	auditLog := &MockAuditLog{}
	sweeper := newTestSweeper(manager, auditLog, time.Hour)

	asOf := trade.DateOf(testNow)
	manager.On("ExpireSweep", mock.Anything, asOf).Return(int64(2), nil).Once()

	sweeper.sweep(context.Background())

	manager.AssertExpectations(t)
	auditLog.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweeper_SweepFailureRecordsEvent(t *testing.T) {
	manager := &MockTradeManager{}
	auditLog := &MockAuditLog{}
	sweeper := newTestSweeper(manager, auditLog, time.Hour)

	asOf := trade.DateOf(testNow)
	sweepErr := errors.New("postgres unreachable")
	manager.On("ExpireSweep", mock.Anything, asOf).Return(int64(0), sweepErr).Once()
	auditLog.On("LogEvent", mock.Anything, audit.EventExpiryCheckError, map[string]interface{}{
		"error": sweepErr.Error(),
		"date":  "2026-05-20",
	}, audit.SeverityError).Return("ev1", nil).Once()

	sweeper.sweep(context.Background())

	manager.AssertExpectations(t)
	auditLog.AssertExpectations(t)
}

func TestSweeper_SweepFailureNeverStopsTheLoop(t *testing.T) {
	manager := &MockTradeManager{}
	auditLog := &MockAuditLog{}
	sweeper := newTestSweeper(manager, auditLog, 10*time.Millisecond)

	asOf := trade.DateOf(testNow)
	manager.On("ExpireSweep", mock.Anything, asOf).Return(int64(0), errors.New("still down"))
	auditLog.On("LogEvent", mock.Anything, audit.EventExpiryCheckError, mock.Anything, audit.SeverityError).Return("", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	// One immediate sweep plus at least one tick
	assert.Eventually(t, func() bool {
		return manager.sweepCalls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestSweeper_StartSweepsImmediately(t *testing.T) {
	manager := &MockTradeManager{}
	auditLog := &MockAuditLog{}
	sweeper := newTestSweeper(manager, auditLog, time.Hour)

	asOf := trade.DateOf(testNow)
	manager.On("ExpireSweep", mock.Anything, asOf).Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	// The first sweep happens before the first tick, which is an hour away
	assert.Eventually(t, func() bool {
		return manager.sweepCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
