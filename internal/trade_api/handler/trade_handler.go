package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
	"github.com/dws-trade-store/internal/service"
	"github.com/dws-trade-store/internal/trade_api/middleware"
	"github.com/gin-gonic/gin"
)

// TradeHandler handles HTTP requests for trade operations
type TradeHandler struct {
	manager  service.TradeManager
	auditLog audit.Log
	logger   *slog.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(logger *slog.Logger, manager service.TradeManager, auditLog audit.Log) *TradeHandler {
	return &TradeHandler{
		manager:  manager,
		auditLog: auditLog,
		logger:   logger,
	}
}

// Ingest handles create-or-update of a trade record.
//
// An event with a version lower than the stored one is rejected, an equal or
// higher version replaces the record, and a maturity date in the past is
// rejected.
func (h *TradeHandler) Ingest(c *gin.Context) {
	var req TradeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	event := &trade.Event{
		TradeID:        req.TradeID,
		Version:        req.Version,
		CounterPartyID: req.CounterPartyID,
		BookID:         req.BookID,
		MaturityDate:   req.MaturityDate,
		CreatedDate:    req.CreatedDate,
		Expired:        req.Expired,
		CorrelationID:  middleware.GetCorrelationID(c),
	}

	stored, err := h.manager.Ingest(c.Request.Context(), event)
	if err != nil {
		if trade.IsRejection(err) {
			h.logger.Warn("Trade event rejected", "trade_id", req.TradeID, "error", err)
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to ingest trade event", "trade_id", req.TradeID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapTradeToResponse(stored))
}

// GetByID retrieves a trade by its ID, returning 404 if not found
func (h *TradeHandler) GetByID(c *gin.Context) {
	tradeID := c.Param("id")

	t, err := h.manager.FetchOne(c.Request.Context(), tradeID)
	if err != nil {
		var notFoundErr trade.ErrTradeNotFound
		if errors.As(err, &notFoundErr) {
			RespondNotFound(c, "Trade not found")
			return
		}
		h.logger.Error("Failed to get trade", "trade_id", tradeID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTradeToResponse(t))
}

// List retrieves all trades with skip/limit pagination
func (h *TradeHandler) List(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	trades, err := h.manager.FetchAll(c.Request.Context(), params.Skip, params.Limit)
	if err != nil {
		h.logger.Error("Failed to list trades", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTradesToListResponse(trades))
}

// ListByBook retrieves all trades belonging to a book
func (h *TradeHandler) ListByBook(c *gin.Context) {
	bookID := c.Param("bookId")

	trades, err := h.manager.FetchByBook(c.Request.Context(), bookID)
	if err != nil {
		h.logger.Error("Failed to list trades by book", "book_id", bookID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTradesToListResponse(trades))
}

// Delete removes a trade record, returning 404 if it never existed
func (h *TradeHandler) Delete(c *gin.Context) {
	tradeID := c.Param("id")

	deleted, err := h.manager.Remove(c.Request.Context(), tradeID)
	if err != nil {
		h.logger.Error("Failed to delete trade", "trade_id", tradeID, "error", err)
		RespondInternalError(c)
		return
	}
	if !deleted {
		RespondNotFound(c, fmt.Sprintf("Trade %s not found", tradeID))
		return
	}

	RespondOK(c, DeleteTradeResponse{Message: fmt.Sprintf("Trade %s deleted successfully", tradeID)})
}

// Statistics returns total, expired and active trade counts
func (h *TradeHandler) Statistics(c *gin.Context) {
	stats, err := h.manager.Statistics(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute statistics", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, stats)
}

// TriggerExpiry runs an expiry sweep on demand, outside the scheduled interval
func (h *TradeHandler) TriggerExpiry(c *gin.Context) {
	count, err := h.manager.ExpireSweep(c.Request.Context(), trade.Today())
	if err != nil {
		h.logger.Error("Manually triggered expiry sweep failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ExpiryCheckResponse{
		Message:       "Expiry check completed",
		TradesExpired: count,
	})
}

// AuditLogs retrieves audit entries, optionally filtered by trade id
func (h *TradeHandler) AuditLogs(c *gin.Context) {
	var params AuditLogParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	logs, err := h.auditLog.GetAuditLogs(c.Request.Context(), params.TradeID, params.Skip, params.Limit)
	if err != nil {
		h.logger.Error("Failed to get audit logs", "trade_id", params.TradeID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, AuditLogListResponse{Logs: logs, Count: len(logs)})
}

// mapTradeToResponse maps a trade record to a response DTO
func mapTradeToResponse(t *trade.Trade) TradeResponse {
	return TradeResponse{
		TradeID:        t.TradeID,
		Version:        t.Version,
		CounterPartyID: t.CounterPartyID,
		BookID:         t.BookID,
		MaturityDate:   t.MaturityDate.String(),
		CreatedDate:    t.CreatedDate.String(),
		Expired:        t.Expired,
		LastUpdated:    t.LastUpdated.Format(time.RFC3339),
	}
}

func mapTradesToListResponse(trades []*trade.Trade) TradeListResponse {
	responses := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		responses = append(responses, mapTradeToResponse(t))
	}
	return TradeListResponse{Trades: responses, Count: len(responses)}
}
