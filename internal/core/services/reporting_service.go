package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
)

// reportingService implements the read-only report projections.
type reportingService struct {
	BaseService
	reportingRepo portsrepo.ReportingRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(repo portsrepo.ReportingRepository) portssvc.ReportingSvcFacade {
	return &reportingService{reportingRepo: repo}
}

// Ensure reportingService implements the ReportingSvcFacade interface
var _ portssvc.ReportingSvcFacade = (*reportingService)(nil)

// BalanceSheet groups current account balances by ASSET, LIABILITY and EQUITY
// with totals. Reflects the latest committed state as of the read; concurrent
// postings during the read may or may not be included.
func (s *reportingService) BalanceSheet(ctx context.Context, ownerID string) (*domain.BalanceSheetReport, error) {
	assets, liabilities, equity, err := s.reportingRepo.GetBalanceSheetData(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to retrieve balance sheet data", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to retrieve balance sheet data: %w", err)
	}

	report := &domain.BalanceSheetReport{
		Assets:           assets,
		Liabilities:      liabilities,
		Equity:           equity,
		TotalAssets:      sumAmounts(assets),
		TotalLiabilities: sumAmounts(liabilities),
		TotalEquity:      sumAmounts(equity),
	}

	s.LogInfo(ctx, "Balance sheet report generated successfully",
		slog.String("owner_id", ownerID),
		slog.Int("asset_accounts", len(assets)),
		slog.Int("liability_accounts", len(liabilities)),
		slog.Int("equity_accounts", len(equity)))
	return report, nil
}

// NetWorth returns total assets minus total liabilities for the owner.
func (s *reportingService) NetWorth(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	report, err := s.BalanceSheet(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return report.TotalAssets.Sub(report.TotalLiabilities), nil
}

// TrialBalance returns per-account debit/credit columns from current balances.
func (s *reportingService) TrialBalance(ctx context.Context, ownerID string) ([]domain.TrialBalanceRow, error) {
	rows, err := s.reportingRepo.GetTrialBalanceData(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to retrieve trial balance data", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to retrieve trial balance data: %w", err)
	}

	s.LogInfo(ctx, "Trial balance report generated successfully",
		slog.String("owner_id", ownerID),
		slog.Int("row_count", len(rows)))
	return rows, nil
}

func sumAmounts(amounts []domain.AccountAmount) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.NetAmount)
	}
	return total
}
