package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
)

// reportingRepository implements the ReportingRepository interface
type reportingRepository struct {
	BaseRepository
}

// newReportingRepository creates a new reporting repository
func newReportingRepository(db *pgxpool.Pool) portsrepo.ReportingRepository {
	return &reportingRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

// GetBalanceSheetData retrieves asset, liability and equity account amounts
// for an owner. Balances are persisted in each type's natural sign, so they
// are reported as stored.
func (r *reportingRepository) GetBalanceSheetData(ctx context.Context, ownerID string) ([]domain.AccountAmount, []domain.AccountAmount, []domain.AccountAmount, error) {
	query := `
		SELECT account_id, name, account_type, balance
		FROM accounts
		WHERE owner_id = $1
		  AND account_type IN ('ASSET', 'LIABILITY', 'EQUITY')
		ORDER BY created_at, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error querying balance sheet data: %w", err)
	}
	defer rows.Close()

	var assets, liabilities, equity []domain.AccountAmount
	for rows.Next() {
		var amount domain.AccountAmount
		var accountType domain.AccountType

		if err := rows.Scan(&amount.AccountID, &amount.Name, &accountType, &amount.NetAmount); err != nil {
			return nil, nil, nil, fmt.Errorf("error scanning balance sheet row: %w", err)
		}

		switch accountType {
		case domain.Asset:
			assets = append(assets, amount)
		case domain.Liability:
			liabilities = append(liabilities, amount)
		case domain.Equity:
			equity = append(equity, amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("error iterating balance sheet rows: %w", err)
	}
	return assets, liabilities, equity, nil
}

// GetTrialBalanceData retrieves per-account debit/credit columns from current
// balances. A positive natural-sign balance lands in the account type's home
// column; a negative one flips to the opposite column.
func (r *reportingRepository) GetTrialBalanceData(ctx context.Context, ownerID string) ([]domain.TrialBalanceRow, error) {
	query := `
		SELECT account_id, name, account_type, balance
		FROM accounts
		WHERE owner_id = $1
		ORDER BY created_at, account_id;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error querying trial balance data: %w", err)
	}
	defer rows.Close()

	var result []domain.TrialBalanceRow
	for rows.Next() {
		var row domain.TrialBalanceRow
		var balance decimal.Decimal

		if err := rows.Scan(&row.AccountID, &row.AccountName, &row.AccountType, &balance); err != nil {
			return nil, fmt.Errorf("error scanning trial balance row: %w", err)
		}

		debitNatural := row.AccountType == domain.Asset || row.AccountType == domain.Expense
		if debitNatural == !balance.IsNegative() {
			row.Debit = balance.Abs()
		} else {
			row.Credit = balance.Abs()
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trial balance rows: %w", err)
	}
	return result, nil
}
