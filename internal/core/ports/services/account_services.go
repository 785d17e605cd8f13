package services

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/perfinapp/ledger_engine/internal/dto"
)

// AccountSvcFacade defines the account registry operations.
type AccountSvcFacade interface {
	// CreateAccount validates the request and registers a new account with a zero balance.
	CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// GetAccountByID retrieves one account; foreign owners read as not found.
	GetAccountByID(ctx context.Context, ownerID string, accountID string) (*domain.Account, error)

	// GetAccountByIDs retrieves several owner-scoped accounts keyed by ID.
	GetAccountByIDs(ctx context.Context, ownerID string, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts returns the owner's accounts in creation order.
	ListAccounts(ctx context.Context, ownerID string, typeFilter *domain.AccountType) ([]domain.Account, error)

	// UpdateAccount edits account metadata. Immutable accounts reject the edit.
	UpdateAccount(ctx context.Context, ownerID string, accountID string, req dto.UpdateAccountRequest, updaterUserID string) (*domain.Account, error)

	// EnsureDefaultAccounts creates the owner's default cash/income/expense
	// accounts if they do not exist yet, and returns the full default set.
	EnsureDefaultAccounts(ctx context.Context, ownerID string) (map[domain.AccountType]domain.Account, error)
}
