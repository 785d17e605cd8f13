package repositories

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
)

// ReportingRepository defines read-only operations for financial report data.
// Implementations aggregate current account balances; they never mutate the ledger.
type ReportingRepository interface {
	// GetBalanceSheetData retrieves asset, liability and equity account amounts for an owner.
	GetBalanceSheetData(ctx context.Context, ownerID string) ([]domain.AccountAmount, []domain.AccountAmount, []domain.AccountAmount, error)

	// GetTrialBalanceData retrieves per-account debit/credit columns from current balances.
	GetTrialBalanceData(ctx context.Context, ownerID string) ([]domain.TrialBalanceRow, error)
}
