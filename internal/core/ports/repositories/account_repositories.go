package repositories

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts by their IDs.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccountsByOwner retrieves all accounts for an owner in creation order,
	// optionally filtered by account type.
	ListAccountsByOwner(ctx context.Context, ownerID string, typeFilter *domain.AccountType) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data.
// Balance is deliberately absent here: it is only ever mutated by the posting
// path inside JournalWriter.SaveEntry.
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount updates an existing account's metadata (never its balance).
	UpdateAccount(ctx context.Context, account domain.Account) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
