package repositories

import (
	"context"
	"time"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// EntryReader defines read operations for journal entry data
type EntryReader interface {
	// FindEntryByID retrieves a specific journal entry by its unique identifier.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// ListEntriesByOwner retrieves a paginated list of entries for an owner,
	// optionally bounded by an entry-date range, using token-based pagination.
	// It returns the entries, a token for the next page, and an error.
	ListEntriesByOwner(ctx context.Context, ownerID string, from, to *time.Time, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)
}

// EntryWriter defines the atomic commit operations of the posting engine.
type EntryWriter interface {
	// SaveEntry persists an entry and its posting lines and applies the signed
	// balance deltas to the affected accounts, all within one atomic unit.
	// All three effects become visible together or not at all.
	SaveEntry(ctx context.Context, cmd domain.PostingCommand) error

	// SaveEntryWithIdempotency behaves like SaveEntry and additionally writes
	// the idempotency record in the same atomic unit. A duplicate event ID
	// fails the whole commit with apperrors.ErrDuplicate.
	SaveEntryWithIdempotency(ctx context.Context, cmd domain.PostingCommand, record domain.IdempotencyRecord) error

	// UpdateEntryStatusAndLinks updates the status and reversal linkage of an entry.
	UpdateEntryStatusAndLinks(ctx context.Context, entryID string, status domain.EntryStatus, reversingEntryID *string, updatedByUserID string, updatedAt time.Time) error
}

// LineReader defines read operations for posting line data
type LineReader interface {
	// FindLinesByEntryID retrieves all posting lines of a single entry.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.PostingLine, error)

	// ListLinesByAccountID retrieves a paginated list of posting lines for a
	// specific account using token-based pagination.
	ListLinesByAccountID(ctx context.Context, ownerID, accountID string, limit int, nextToken *string) ([]domain.PostingLine, *string, error)
}

// IdempotencyReader defines read operations for idempotency records
type IdempotencyReader interface {
	// FindIdempotencyRecord retrieves the record for an event ID, or
	// apperrors.ErrNotFound when the event has not been applied.
	FindIdempotencyRecord(ctx context.Context, eventID string) (*domain.IdempotencyRecord, error)
}

// IdempotencyWriter defines maintenance operations for idempotency records
type IdempotencyWriter interface {
	// PruneIdempotencyRecords deletes records applied before the cutoff and
	// returns how many were removed. Pruning never touches ledger state.
	PruneIdempotencyRecords(ctx context.Context, before time.Time) (int64, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces
// This is a facade for clients that need access to all operations
type JournalRepositoryFacade interface {
	EntryReader
	EntryWriter
	LineReader
	IdempotencyReader
	IdempotencyWriter
}
