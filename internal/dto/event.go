package dto

import (
	"time"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FinancialEventRequest is the inbound webhook payload from the expense and
// income services. EventID is the idempotency key.
type FinancialEventRequest struct {
	EventID   string    `json:"eventId" binding:"required"`
	EventType string    `json:"eventType" binding:"required"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
	Data      struct {
		Amount       decimal.Decimal `json:"amount" binding:"required"`
		CurrencyCode string          `json:"currency" binding:"required,len=3"`
		Date         time.Time       `json:"date" binding:"required"`
		Description  string          `json:"description"`
		SourceID     string          `json:"sourceId"`
	} `json:"data" binding:"required"`
	Metadata struct {
		UserID string `json:"userId" binding:"required"`
	} `json:"metadata" binding:"required"`
}

// ToDomainEvent converts the webhook payload to the domain event.
func (r *FinancialEventRequest) ToDomainEvent() domain.FinancialEvent {
	return domain.FinancialEvent{
		EventID:   r.EventID,
		EventType: r.EventType,
		Timestamp: r.Timestamp,
		Data: domain.EventData{
			Amount:       r.Data.Amount,
			CurrencyCode: r.Data.CurrencyCode,
			Date:         r.Data.Date,
			Description:  r.Data.Description,
			SourceID:     r.Data.SourceID,
		},
		Metadata: domain.EventMetadata{
			UserID: r.Metadata.UserID,
		},
	}
}
