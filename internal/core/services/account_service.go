package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
)

// ErrAccountNotMutable indicates a metadata edit on an account whose
// isMutable flag is false. Balance postings are never affected by it.
var ErrAccountNotMutable = errors.New("account does not permit manual edits")

// Default accounts provisioned per owner, keyed by account type.
var defaultAccountNames = map[domain.AccountType]string{
	domain.Asset:   "Cash",
	domain.Revenue: "Income",
	domain.Expense: "Expenses",
}

// accountService implements the account registry.
type accountService struct {
	BaseService
	accountRepo  portsrepo.AccountRepositoryFacade
	baseCurrency string
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithBaseCurrency overrides the currency assigned to accounts created
// without an explicit currency code.
func WithBaseCurrency(code string) AccountServiceOption {
	return func(s *accountService) {
		s.baseCurrency = code
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo:  repo,
		baseCurrency: "USD",
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount validates the account spec and registers a new account with a
// zero balance. Implements portssvc.AccountSvcFacade.
func (s *accountService) CreateAccount(ctx context.Context, ownerID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: account name must not be empty", apperrors.ErrValidation)
	}
	accountType := domain.AccountType(req.AccountType)
	if !accountType.IsValid() {
		return nil, fmt.Errorf("%w: unrecognized account type %q", apperrors.ErrValidation, req.AccountType)
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = s.baseCurrency
	}
	isMutable := true
	if req.IsMutable != nil {
		isMutable = *req.IsMutable
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      ownerID,
		Name:         req.Name,
		AccountType:  accountType,
		SubType:      req.SubType,
		CurrencyCode: currency,
		Balance:      decimal.Zero,
		IsMutable:    isMutable,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to save account", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.LogInfo(ctx, "Account created successfully",
		slog.String("account_id", account.AccountID),
		slog.String("owner_id", ownerID),
		slog.String("account_type", string(accountType)))
	return &account, nil
}

// GetAccountByID retrieves one account scoped to the owner.
// An account belonging to another owner reads as not found.
func (s *accountService) GetAccountByID(ctx context.Context, ownerID string, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		s.LogWarn(ctx, "Account lookup crossed owner boundary",
			slog.String("account_id", accountID),
			slog.String("requested_owner", ownerID))
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

// GetAccountByIDs retrieves several owner-scoped accounts keyed by ID.
func (s *accountService) GetAccountByIDs(ctx context.Context, ownerID string, accountIDs []string) (map[string]domain.Account, error) {
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	for id, acc := range accounts {
		if acc.OwnerID != ownerID {
			// Obscure existence of foreign accounts.
			delete(accounts, id)
		}
	}
	return accounts, nil
}

// ListAccounts returns the owner's accounts in creation order.
func (s *accountService) ListAccounts(ctx context.Context, ownerID string, typeFilter *domain.AccountType) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, ownerID, typeFilter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount edits account metadata. Immutable accounts reject the edit;
// the balance cannot be touched through this path at all.
func (s *accountService) UpdateAccount(ctx context.Context, ownerID string, accountID string, req dto.UpdateAccountRequest, updaterUserID string) (*domain.Account, error) {
	account, err := s.GetAccountByID(ctx, ownerID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsMutable {
		return nil, fmt.Errorf("%w: account %s", ErrAccountNotMutable, accountID)
	}

	updated := false
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: account name must not be empty", apperrors.ErrValidation)
		}
		account.Name = *req.Name
		updated = true
	}
	if req.SubType != nil {
		account.SubType = *req.SubType
		updated = true
	}
	if !updated {
		return account, nil
	}

	account.LastUpdatedAt = time.Now().UTC()
	account.LastUpdatedBy = updaterUserID

	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to update account", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	s.LogInfo(ctx, "Account updated successfully", slog.String("account_id", accountID))
	return account, nil
}

// EnsureDefaultAccounts creates the owner's default cash/income/expense
// accounts if missing and returns the full default set keyed by account type.
func (s *accountService) EnsureDefaultAccounts(ctx context.Context, ownerID string) (map[domain.AccountType]domain.Account, error) {
	existing, err := s.accountRepo.ListAccountsByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for default provisioning: %w", err)
	}

	defaults := make(map[domain.AccountType]domain.Account, len(defaultAccountNames))
	for _, acc := range existing {
		if _, wanted := defaultAccountNames[acc.AccountType]; wanted {
			if _, taken := defaults[acc.AccountType]; !taken {
				defaults[acc.AccountType] = acc
			}
		}
	}

	for accountType, name := range defaultAccountNames {
		if _, ok := defaults[accountType]; ok {
			continue
		}
		created, err := s.CreateAccount(ctx, ownerID, dto.CreateAccountRequest{
			Name:        name,
			AccountType: string(accountType),
			SubType:     "default",
		}, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to provision default %s account: %w", accountType, err)
		}
		defaults[accountType] = *created
	}

	return defaults, nil
}
