package dto

import (
	"time"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLineRequest is one leg of a posting command.
type CreateLineRequest struct {
	AccountID string                  `json:"accountID" binding:"required"`
	Amount    decimal.Decimal         `json:"amount" binding:"required"`
	Direction domain.PostingDirection `json:"direction" binding:"required,oneof=DEBIT CREDIT"`
}

// CreateEntryRequest defines the posting command surface for manual/API callers.
type CreateEntryRequest struct {
	Date        time.Time           `json:"date" binding:"required"`
	Description string              `json:"description" binding:"required"`
	Reference   string              `json:"reference"`
	Lines       []CreateLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ListEntriesParams holds parameters for listing journal entries.
type ListEntriesParams struct {
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Limit     int        `form:"limit"`
	NextToken *string    `form:"nextToken"`
}

// LineResponse is the API representation of a posting line.
type LineResponse struct {
	LineID         string          `json:"lineID"`
	EntryID        string          `json:"entryID"`
	AccountID      string          `json:"accountID"`
	Amount         decimal.Decimal `json:"amount"`
	Direction      string          `json:"direction"`
	CurrencyCode   string          `json:"currencyCode"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// EntryResponse is the API representation of a journal entry.
type EntryResponse struct {
	EntryID          string         `json:"entryID"`
	OwnerID          string         `json:"ownerID"`
	EntryDate        time.Time      `json:"entryDate"`
	Description      string         `json:"description"`
	Reference        string         `json:"reference,omitempty"`
	Source           string         `json:"source"`
	Status           string         `json:"status"`
	OriginalEntryID  *string        `json:"originalEntryID,omitempty"`
	ReversingEntryID *string        `json:"reversingEntryID,omitempty"`
	Lines            []LineResponse `json:"lines,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// ListEntriesResponse is a page of journal entries.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ListLinesParams holds parameters for listing posting lines of an account.
type ListLinesParams struct {
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// ListLinesResponse is a page of posting lines.
type ListLinesResponse struct {
	Lines     []LineResponse `json:"lines"`
	NextToken *string        `json:"nextToken,omitempty"`
}

// ToLineResponse converts a domain posting line.
func ToLineResponse(l *domain.PostingLine) LineResponse {
	return LineResponse{
		LineID:         l.LineID,
		EntryID:        l.EntryID,
		AccountID:      l.AccountID,
		Amount:         l.Amount,
		Direction:      string(l.Direction),
		CurrencyCode:   l.CurrencyCode,
		RunningBalance: l.RunningBalance,
		CreatedAt:      l.CreatedAt,
	}
}

// ToLineResponses converts a slice of domain posting lines.
func ToLineResponses(lines []domain.PostingLine) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i := range lines {
		out[i] = ToLineResponse(&lines[i])
	}
	return out
}

// ToEntryResponse converts a domain journal entry, including any loaded lines.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	resp := EntryResponse{
		EntryID:          e.EntryID,
		OwnerID:          e.OwnerID,
		EntryDate:        e.EntryDate,
		Description:      e.Description,
		Reference:        e.Reference,
		Source:           e.Source,
		Status:           string(e.Status),
		OriginalEntryID:  e.OriginalEntryID,
		ReversingEntryID: e.ReversingEntryID,
		CreatedAt:        e.CreatedAt,
	}
	if len(e.Lines) > 0 {
		resp.Lines = ToLineResponses(e.Lines)
	}
	return resp
}
