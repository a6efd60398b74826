package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dws-trade-store/internal/domain/trade"
	coreservice "github.com/dws-trade-store/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTradeManager mocks the trade manager for processing tests
type MockTradeManager struct {
	mock.Mock
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
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTradeManager) Statistics(ctx context.Context) (*coreservice.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coreservice.Statistics), args.Error(1)
}

var _ coreservice.TradeManager = (*MockTradeManager)(nil)

func testEvent() *trade.Event {
	return &trade.Event{
		TradeID:        "T1",
		Version:        2,
		CounterPartyID: "CP-1",
		BookID:         "B1",
		MaturityDate:   trade.NewDate(2027, time.May, 20),
		CreatedDate:    trade.NewDate(2026, time.May, 20),
		CorrelationID:  "corr1",
	}
}

func TestEventProcessingService_ProcessEvent(t *testing.T) {
	logger := slog.Default()

	t.Run("accepted event", func(t *testing.T) {
		mockManager := &MockTradeManager{}
		svc := NewEventProcessingService(logger, mockManager)

		event := testEvent()
		mockManager.On("Ingest", mock.Anything, event).Return(event.Record(), nil)

		err := svc.ProcessEvent(context.Background(), event)
		assert.NoError(t, err)
		mockManager.AssertExpectations(t)
	})

	t.Run("rejection is terminal, not an error", func(t *testing.T) {
		mockManager := &MockTradeManager{}
		svc := NewEventProcessingService(logger, mockManager)

		event := testEvent()
		mockManager.On("Ingest", mock.Anything, event).
			Return(nil, trade.ErrLowerVersion{TradeID: "T1", ReceivedVersion: 2, CurrentVersion: 5})

		err := svc.ProcessEvent(context.Background(), event)
		assert.NoError(t, err)
		mockManager.AssertExpectations(t)
	})

	t.Run("past maturity rejection is terminal", func(t *testing.T) {
		mockManager := &MockTradeManager{}
		svc := NewEventProcessingService(logger, mockManager)

		event := testEvent()
		mockManager.On("Ingest", mock.Anything, event).
			Return(nil, trade.ErrMaturityInPast{TradeID: "T1", MaturityDate: trade.NewDate(2026, time.May, 19)})

		err := svc.ProcessEvent(context.Background(), event)
		assert.NoError(t, err)
		mockManager.AssertExpectations(t)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		mockManager := &MockTradeManager{}
		svc := NewEventProcessingService(logger, mockManager)

		event := testEvent()
		storageErr := trade.ErrStorageUnavailable{Op: "upsert trade", Err: errors.New("connection refused")}
		mockManager.On("Ingest", mock.Anything, event).Return(nil, storageErr)

		err := svc.ProcessEvent(context.Background(), event)
		assert.Error(t, err)
		assert.ErrorIs(t, err, storageErr)
		mockManager.AssertExpectations(t)
	})
}
