package accounting

import (
	"fmt"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount applies the correct sign to a posting-line amount based on the
// target account's type and the line direction.
//
// DEBIT to ASSET/EXPENSE -> Positive (+)
// CREDIT to ASSET/EXPENSE -> Negative (-)
// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
func SignedAmount(line domain.PostingLine, accountType domain.AccountType) (decimal.Decimal, error) {
	signedAmount := line.Amount
	isDebit := line.Direction == domain.Debit

	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit {
			signedAmount = signedAmount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit {
			signedAmount = signedAmount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s' encountered for account ID %s", accountType, line.AccountID)
	}
	return signedAmount, nil
}

// DebitCreditSums computes the per-currency debit and credit totals of a set
// of posting lines. Lines in different currencies are summed independently.
func DebitCreditSums(lines []domain.PostingLine) (debits, credits map[string]decimal.Decimal) {
	debits = make(map[string]decimal.Decimal)
	credits = make(map[string]decimal.Decimal)
	for _, line := range lines {
		if line.Direction == domain.Debit {
			debits[line.CurrencyCode] = debits[line.CurrencyCode].Add(line.Amount)
		} else {
			credits[line.CurrencyCode] = credits[line.CurrencyCode].Add(line.Amount)
		}
	}
	return debits, credits
}

// CheckBalanced reports an error naming the first currency group whose debit
// sum does not exactly equal its credit sum. Comparison is exact; there is no
// tolerance.
func CheckBalanced(lines []domain.PostingLine) error {
	debits, credits := DebitCreditSums(lines)
	for currency, debitSum := range debits {
		if !debitSum.Equal(credits[currency]) {
			return fmt.Errorf("debits %s do not equal credits %s for currency %s", debitSum.String(), credits[currency].String(), currency)
		}
	}
	for currency, creditSum := range credits {
		if _, ok := debits[currency]; !ok && !creditSum.IsZero() {
			return fmt.Errorf("debits 0 do not equal credits %s for currency %s", creditSum.String(), currency)
		}
	}
	return nil
}

// BalanceChanges folds a set of posting lines into the net signed delta per
// account. accountTypes must contain every referenced account.
func BalanceChanges(lines []domain.PostingLine, accountTypes map[string]domain.AccountType) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal)
	for _, line := range lines {
		accountType, ok := accountTypes[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("account type not found for account ID %s", line.AccountID)
		}
		signedAmount, err := SignedAmount(line, accountType)
		if err != nil {
			return nil, err
		}
		changes[line.AccountID] = changes[line.AccountID].Add(signedAmount)
	}
	return changes, nil
}
