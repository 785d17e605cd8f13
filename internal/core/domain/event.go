package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recognized external event types.
const (
	EventExpenseCreated = "expense.created"
	EventIncomeReceived = "income.received"
)

// EventData is the monetary payload of a financial event.
type EventData struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	SourceID     string          `json:"sourceId"` // Identifier of the expense/income record at the producer
}

// EventMetadata carries producer context for a financial event.
type EventMetadata struct {
	UserID string `json:"userId"`
}

// FinancialEvent is the inbound contract from the expense/income services.
// EventID is the idempotency key; delivery order and count are untrusted.
type FinancialEvent struct {
	EventID   string        `json:"eventId"`
	EventType string        `json:"eventType"`
	Timestamp time.Time     `json:"timestamp"`
	Data      EventData     `json:"data"`
	Metadata  EventMetadata `json:"metadata"`
}
