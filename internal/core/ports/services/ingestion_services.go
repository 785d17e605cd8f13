package services

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// IngestResult reports the outcome of applying an external financial event.
type IngestResult struct {
	EntryID   string `json:"entryID"`
	Duplicate bool   `json:"duplicate"` // True when the event had already been applied
}

// IngestionSvcFacade turns external financial events into journal entries
// exactly once per event ID.
type IngestionSvcFacade interface {
	IngestEvent(ctx context.Context, event domain.FinancialEvent) (*IngestResult, error)
}
