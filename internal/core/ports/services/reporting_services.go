package services

import (
	"context"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReportingSvcFacade defines the read-only financial report projections.
type ReportingSvcFacade interface {
	// BalanceSheet groups current balances by ASSET, LIABILITY and EQUITY with totals.
	BalanceSheet(ctx context.Context, ownerID string) (*domain.BalanceSheetReport, error)

	// NetWorth returns total assets minus total liabilities.
	NetWorth(ctx context.Context, ownerID string) (decimal.Decimal, error)

	// TrialBalance returns per-account debit/credit columns from current balances.
	TrialBalance(ctx context.Context, ownerID string) ([]domain.TrialBalanceRow, error)
}
