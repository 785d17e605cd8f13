package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether t is one of the five enumerated account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// Account represents a ledger bucket owned by a single user.
// Balance is maintained exclusively by the posting path; it always equals the
// sum of all signed posting-line effects ever committed against the account.
type Account struct {
	AccountID    string          `json:"accountID"`    // Primary Key (UUID)
	OwnerID      string          `json:"ownerID"`      // Owning user; all queries are scoped by it
	Name         string          `json:"name"`         // User-defined name
	AccountType  AccountType     `json:"accountType"`  // ASSET, LIABILITY, etc.
	SubType      string          `json:"subType"`      // Optional free-form label (e.g. "cash", "credit-card")
	CurrencyCode string          `json:"currencyCode"` // ISO 4217
	Balance      decimal.Decimal `json:"balance"`      // Current signed balance
	IsMutable    bool            `json:"isMutable"`    // Guards metadata edits, never balance postings
	AuditFields
}
