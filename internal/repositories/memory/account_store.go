package memory

import (
	"context"
	"fmt"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// FindAccountByID retrieves a specific account by its unique identifier.
func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return &account, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs. IDs with no
// matching account are simply absent from the result map.
func (s *Store) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if account, ok := s.accounts[id]; ok {
			found[id] = account
		}
	}
	return found, nil
}

// ListAccountsByOwner retrieves all accounts for an owner in creation order,
// optionally filtered by account type.
func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string, typeFilter *domain.AccountType) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Account
	for _, id := range s.accountOrder {
		account := s.accounts[id]
		if account.OwnerID != ownerID {
			continue
		}
		if typeFilter != nil && account.AccountType != *typeFilter {
			continue
		}
		result = append(result, account)
	}
	return result, nil
}

// SaveAccount persists a new account.
func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	s.accounts[account.AccountID] = account
	s.accountOrder = append(s.accountOrder, account.AccountID)
	return nil
}

// UpdateAccount updates an existing account's metadata. The stored balance is
// preserved regardless of what the caller passes in.
func (s *Store) UpdateAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.AccountID]
	if !ok {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrNotFound)
	}
	account.Balance = existing.Balance
	account.CreatedAt = existing.CreatedAt
	account.CreatedBy = existing.CreatedBy
	s.accounts[account.AccountID] = account
	return nil
}
