package memory

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// GetBalanceSheetData retrieves asset, liability and equity account amounts
// for an owner, in account creation order. Balances are stored in each type's
// natural sign, so they can be reported as-is.
func (s *Store) GetBalanceSheetData(ctx context.Context, ownerID string) ([]domain.AccountAmount, []domain.AccountAmount, []domain.AccountAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var assets, liabilities, equity []domain.AccountAmount
	for _, id := range s.accountOrder {
		account := s.accounts[id]
		if account.OwnerID != ownerID {
			continue
		}
		amount := domain.AccountAmount{
			AccountID: account.AccountID,
			Name:      account.Name,
			NetAmount: account.Balance,
		}
		switch account.AccountType {
		case domain.Asset:
			assets = append(assets, amount)
		case domain.Liability:
			liabilities = append(liabilities, amount)
		case domain.Equity:
			equity = append(equity, amount)
		}
	}
	return assets, liabilities, equity, nil
}

// GetTrialBalanceData retrieves per-account debit/credit columns from current
// balances. A positive natural-sign balance lands in the account type's home
// column; a negative one flips to the opposite column.
func (s *Store) GetTrialBalanceData(ctx context.Context, ownerID string) ([]domain.TrialBalanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []domain.TrialBalanceRow
	for _, id := range s.accountOrder {
		account := s.accounts[id]
		if account.OwnerID != ownerID {
			continue
		}
		row := domain.TrialBalanceRow{
			AccountID:   account.AccountID,
			AccountName: account.Name,
			AccountType: account.AccountType,
		}
		debitNatural := account.AccountType == domain.Asset || account.AccountType == domain.Expense
		if debitNatural == !account.Balance.IsNegative() {
			row.Debit = account.Balance.Abs()
		} else {
			row.Credit = account.Balance.Abs()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
