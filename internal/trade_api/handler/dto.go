package handler

import (
	"github.com/dws-trade-store/internal/domain/audit"
	"github.com/dws-trade-store/internal/domain/trade"
)

// TradeEventRequest represents an incoming trade create/update event
type TradeEventRequest struct {
	TradeID        string     `json:"trade_id" binding:"required,max=50"`
	Version        int        `json:"version" binding:"required,min=1"`
	CounterPartyID string     `json:"counter_party_id" binding:"required,max=50"`
	BookID         string     `json:"book_id" binding:"required,max=50"`
	MaturityDate   trade.Date `json:"maturity_date" binding:"required"`
	CreatedDate    trade.Date `json:"created_date" binding:"required"`
	Expired        bool       `json:"expired"`
}

// TradeResponse represents a trade record in API responses
type TradeResponse struct {
	TradeID        string `json:"trade_id"`
	Version        int    `json:"version"`
	CounterPartyID string `json:"counter_party_id"`
	BookID         string `json:"book_id"`
	MaturityDate   string `json:"maturity_date"`
	CreatedDate    string `json:"created_date"`
	Expired        bool   `json:"expired"`
	LastUpdated    string `json:"last_updated"`
}

// TradeListResponse represents a list of trades in API responses
type TradeListResponse struct {
	Trades []TradeResponse `json:"trades"`
	Count  int             `json:"count"`
}

// DeleteTradeResponse confirms a completed delete
type DeleteTradeResponse struct {
	Message string `json:"message"`
}

// ExpiryCheckResponse reports the outcome of a manually triggered sweep
type ExpiryCheckResponse struct {
	Message       string `json:"message"`
	TradesExpired int64  `json:"trades_expired"`
}

// AuditLogListResponse represents audit entries in API responses
type AuditLogListResponse struct {
	Logs  []*audit.Entry `json:"logs"`
	Count int            `json:"count"`
}

// HealthCheckResponse reports per-dependency health
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// PaginationParams represents skip/limit parameters for list endpoints
type PaginationParams struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=1,max=1000"`
}

// AuditLogParams adds an optional trade id filter to pagination
type AuditLogParams struct {
	TradeID string `form:"trade_id"`
	Skip    int    `form:"skip,default=0" binding:"min=0"`
	Limit   int    `form:"limit,default=100" binding:"min=1,max=1000"`
}
