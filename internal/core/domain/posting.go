package domain

import "github.com/shopspring/decimal"

// PostingDirection indicates whether a posting line is a Debit or a Credit.
type PostingDirection string

const (
	Debit  PostingDirection = "DEBIT"
	Credit PostingDirection = "CREDIT"
)

// PostingLine represents one leg of a journal entry, affecting one account.
type PostingLine struct {
	LineID         string           `json:"lineID"`         // Primary Key (UUID)
	EntryID        string           `json:"entryID"`        // FK -> JournalEntry.entryID
	AccountID      string           `json:"accountID"`      // FK -> Account.accountID
	Amount         decimal.Decimal  `json:"amount"`         // Strictly positive
	Direction      PostingDirection `json:"direction"`      // DEBIT or CREDIT
	CurrencyCode   string           `json:"currencyCode"`   // Copied from the target account
	RunningBalance decimal.Decimal  `json:"runningBalance"` // Account balance after this line
	AuditFields
}

// PostingCommand is the output of validation: an entry plus its lines and the
// net signed balance delta per account, ready for a single atomic commit.
type PostingCommand struct {
	Entry          JournalEntry
	Lines          []PostingLine
	BalanceChanges map[string]decimal.Decimal
}
