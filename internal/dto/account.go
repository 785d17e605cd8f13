package dto

import (
	"time"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the payload for creating a new account.
// CurrencyCode is optional; it defaults to the owner's base currency.
type CreateAccountRequest struct {
	Name         string `json:"name" binding:"required"`
	AccountType  string `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SubType      string `json:"subType"`
	CurrencyCode string `json:"currencyCode" binding:"omitempty,len=3"`
	IsMutable    *bool  `json:"isMutable"`
}

// UpdateAccountRequest defines the payload for editing account metadata.
// Balance is never editable through this path.
type UpdateAccountRequest struct {
	Name    *string `json:"name"`
	SubType *string `json:"subType"`
}

// AccountResponse is the API representation of an account.
type AccountResponse struct {
	AccountID     string          `json:"accountID"`
	OwnerID       string          `json:"ownerID"`
	Name          string          `json:"name"`
	AccountType   string          `json:"accountType"`
	SubType       string          `json:"subType,omitempty"`
	CurrencyCode  string          `json:"currencyCode"`
	Balance       decimal.Decimal `json:"balance"`
	IsMutable     bool            `json:"isMutable"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain account to its API representation.
func ToAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     a.AccountID,
		OwnerID:       a.OwnerID,
		Name:          a.Name,
		AccountType:   string(a.AccountType),
		SubType:       a.SubType,
		CurrencyCode:  a.CurrencyCode,
		Balance:       a.Balance,
		IsMutable:     a.IsMutable,
		CreatedAt:     a.CreatedAt,
		LastUpdatedAt: a.LastUpdatedAt,
	}
}

// ToAccountResponses converts a slice of domain accounts.
func ToAccountResponses(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out
}
