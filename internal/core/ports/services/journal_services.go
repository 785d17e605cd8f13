package services

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/perfinapp/ledger_engine/internal/dto"
)

// JournalSvcFacade defines validation and posting of journal entries.
type JournalSvcFacade interface {
	// PostEntry validates the request and atomically commits the entry, its
	// lines and the balance deltas of every affected account.
	PostEntry(ctx context.Context, ownerID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// GetEntryByID retrieves an entry together with its posting lines.
	GetEntryByID(ctx context.Context, ownerID string, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a paginated, optionally date-bounded entry list.
	ListEntries(ctx context.Context, ownerID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)

	// ReverseEntry posts a new entry with flipped line directions and links the
	// two entries. The original is marked REVERSED; nothing is deleted.
	ReverseEntry(ctx context.Context, ownerID string, entryID string, userID string) (*domain.JournalEntry, error)

	// ListLinesByAccount retrieves a paginated posting-line history for one account.
	ListLinesByAccount(ctx context.Context, ownerID string, accountID string, params dto.ListLinesParams) (*dto.ListLinesResponse, error)
}
