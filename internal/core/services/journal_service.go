package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
	"github.com/perfinapp/ledger_engine/internal/utils/accounting"
)

var (
	ErrEntryUnbalanced    = errors.New("entry posting lines do not balance within a currency group")
	ErrInsufficientLines  = errors.New("entry must have at least two posting lines")
	ErrInvalidLineAmount  = errors.New("posting line amount must be strictly positive")
	ErrAccountNotFound    = errors.New("account not found")
	ErrEntryNotPosted     = errors.New("entry must be posted to be reversed")
	ErrDescriptionMissing = errors.New("entry description is required")

	// ErrInternalInvariant marks a programming-error class failure: a command
	// that bypassed validation reached the posting engine unbalanced. It is
	// logged with full context, aborted before persistence, and never retried.
	ErrInternalInvariant = errors.New("internal invariant violation")
)

// journalService implements journal validation and the posting engine.
type journalService struct {
	BaseService
	accountSvc  portssvc.AccountSvcFacade
	journalRepo portsrepo.JournalRepositoryFacade
}

// NewJournalService creates a new JournalService.
func NewJournalService(journalRepo portsrepo.JournalRepositoryFacade, accountSvc portssvc.AccountSvcFacade) *journalService {
	return &journalService{
		accountSvc:  accountSvc,
		journalRepo: journalRepo,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// buildCommand validates a candidate entry and assembles the posting command:
// the entry, its lines (currency stamped from each target account) and the net
// signed balance delta per account. It performs no persistence.
func (s *journalService) buildCommand(ctx context.Context, ownerID string, req dto.CreateEntryRequest, source, creatorUserID string) (*domain.PostingCommand, error) {
	if len(req.Lines) < 2 {
		return nil, ErrInsufficientLines
	}
	if req.Description == "" {
		return nil, ErrDescriptionMissing
	}

	accountIDs := make([]string, 0, len(req.Lines))
	for _, lineReq := range req.Lines {
		if lineReq.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: amount %s for account %s", ErrInvalidLineAmount, lineReq.Amount.String(), lineReq.AccountID)
		}
		accountIDs = append(accountIDs, lineReq.AccountID)
	}

	uniqueAccountIDs := uniqueStrings(accountIDs)
	accountsMap, err := s.accountSvc.GetAccountByIDs(ctx, ownerID, uniqueAccountIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch accounts for entry validation", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}

	accountTypes := make(map[string]domain.AccountType, len(uniqueAccountIDs))
	for _, id := range uniqueAccountIDs {
		acc, found := accountsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		accountTypes[id] = acc.AccountType
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()

	lines := make([]domain.PostingLine, len(req.Lines))
	for i, lineReq := range req.Lines {
		acc := accountsMap[lineReq.AccountID]
		lines[i] = domain.PostingLine{
			LineID:       uuid.NewString(),
			EntryID:      entryID,
			AccountID:    lineReq.AccountID,
			Amount:       lineReq.Amount,
			Direction:    lineReq.Direction,
			CurrencyCode: acc.CurrencyCode,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
	}

	if err := accounting.CheckBalanced(lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryUnbalanced, err)
	}

	balanceChanges, err := accounting.BalanceChanges(lines, accountTypes)
	if err != nil {
		// Account types were validated above, so this is a data integrity issue.
		s.LogError(ctx, err, "Error calculating balance changes", slog.String("entry_id", entryID))
		return nil, fmt.Errorf("internal error calculating balance changes: %w", err)
	}

	entry := domain.JournalEntry{
		EntryID:     entryID,
		OwnerID:     ownerID,
		EntryDate:   req.Date,
		Description: req.Description,
		Reference:   req.Reference,
		Source:      source,
		Status:      domain.Posted,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	return &domain.PostingCommand{Entry: entry, Lines: lines, BalanceChanges: balanceChanges}, nil
}

// verifyCommand re-checks the balance of a command immediately before commit.
// Validation normally guarantees this; a failure here means a bug upstream,
// so the commit is refused outright.
func (s *journalService) verifyCommand(ctx context.Context, cmd *domain.PostingCommand) error {
	if err := accounting.CheckBalanced(cmd.Lines); err != nil {
		s.LogError(ctx, err, "Unbalanced command reached the posting engine",
			slog.String("entry_id", cmd.Entry.EntryID),
			slog.String("owner_id", cmd.Entry.OwnerID),
			slog.Int("line_count", len(cmd.Lines)))
		return fmt.Errorf("%w: %v", ErrInternalInvariant, err)
	}
	return nil
}

// PostEntry validates the request and atomically commits the entry, its lines
// and the balance deltas of every affected account.
// Implements portssvc.JournalSvcFacade.
func (s *journalService) PostEntry(ctx context.Context, ownerID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	cmd, err := s.buildCommand(ctx, ownerID, req, domain.EntrySourceManual, creatorUserID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyCommand(ctx, cmd); err != nil {
		return nil, err
	}

	if err := s.journalRepo.SaveEntry(ctx, *cmd); err != nil {
		s.LogError(ctx, err, "Failed to save entry", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to save entry: %w", err)
	}

	s.LogInfo(ctx, "Entry posted successfully",
		slog.String("entry_id", cmd.Entry.EntryID),
		slog.String("owner_id", ownerID))
	entry := cmd.Entry
	entry.Lines = nil
	return &entry, nil
}

// PostEntryForEvent validates and commits an ingested entry, writing the
// idempotency record for eventID in the same atomic unit. A concurrent
// duplicate surfaces as apperrors.ErrDuplicate with nothing persisted.
func (s *journalService) PostEntryForEvent(ctx context.Context, ownerID string, req dto.CreateEntryRequest, source, eventID string) (*domain.JournalEntry, error) {
	cmd, err := s.buildCommand(ctx, ownerID, req, source, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyCommand(ctx, cmd); err != nil {
		return nil, err
	}

	record := domain.IdempotencyRecord{
		EventID:   eventID,
		EntryID:   cmd.Entry.EntryID,
		OwnerID:   ownerID,
		AppliedAt: cmd.Entry.CreatedAt,
	}
	if err := s.journalRepo.SaveEntryWithIdempotency(ctx, *cmd, record); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to save ingested entry",
			slog.String("owner_id", ownerID),
			slog.String("event_id", eventID))
		return nil, fmt.Errorf("failed to save ingested entry: %w", err)
	}

	s.LogInfo(ctx, "Ingested entry posted successfully",
		slog.String("entry_id", cmd.Entry.EntryID),
		slog.String("event_id", eventID))
	entry := cmd.Entry
	entry.Lines = nil
	return &entry, nil
}

// GetEntryByID retrieves an entry together with its posting lines.
// Implements portssvc.JournalSvcFacade.
func (s *journalService) GetEntryByID(ctx context.Context, ownerID string, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find entry by ID", slog.String("entry_id", entryID))
		}
		return nil, fmt.Errorf("failed to find entry by ID %s: %w", entryID, err)
	}

	if entry.OwnerID != ownerID {
		s.LogWarn(ctx, "Entry found but belongs to different owner",
			slog.String("entry_id", entryID),
			slog.String("requested_owner", ownerID))
		return nil, apperrors.ErrNotFound // Obscure existence
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch lines for entry", slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, apperrors.ErrInternal)
	}
	entry.Lines = lines

	s.LogDebug(ctx, "Entry and lines retrieved successfully",
		slog.String("entry_id", entryID),
		slog.Int("line_count", len(lines)))
	return entry, nil
}

// ListEntries retrieves a paginated, optionally date-bounded entry list.
// Implements portssvc.JournalSvcFacade.
func (s *journalService) ListEntries(ctx context.Context, ownerID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20 // Default limit
	}

	entries, nextToken, err := s.journalRepo.ListEntriesByOwner(ctx, ownerID, params.From, params.To, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list entries from repository", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("failed to retrieve entries: %w", err)
	}

	entryResponses := make([]dto.EntryResponse, len(entries))
	for i := range entries {
		entryResponses[i] = dto.ToEntryResponse(&entries[i])
	}

	s.LogInfo(ctx, "Entries listed successfully", slog.Int("count", len(entries)))
	return &dto.ListEntriesResponse{Entries: entryResponses, NextToken: nextToken}, nil
}

// ListLinesByAccount retrieves a paginated posting-line history for one account.
// Implements portssvc.JournalSvcFacade.
func (s *journalService) ListLinesByAccount(ctx context.Context, ownerID string, accountID string, params dto.ListLinesParams) (*dto.ListLinesResponse, error) {
	// Ownership gate; foreign accounts read as not found.
	if _, err := s.accountSvc.GetAccountByID(ctx, ownerID, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	lines, nextToken, err := s.journalRepo.ListLinesByAccountID(ctx, ownerID, accountID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list lines by account", slog.String("account_id", accountID))
		return nil, fmt.Errorf("failed to retrieve posting lines: %w", err)
	}

	return &dto.ListLinesResponse{Lines: dto.ToLineResponses(lines), NextToken: nextToken}, nil
}

// ReverseEntry posts a new entry with flipped line directions and links the
// two entries. The original is marked REVERSED; nothing is ever deleted.
// Implements portssvc.JournalSvcFacade.
func (s *journalService) ReverseEntry(ctx context.Context, ownerID string, entryID string, userID string) (*domain.JournalEntry, error) {
	original, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Original entry not found for reversal", slog.String("entry_id", entryID))
			return nil, apperrors.ErrNotFound
		}
		s.LogError(ctx, err, "Failed to fetch original entry for reversal", slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to retrieve original entry: %w", err)
	}
	if original.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound // Obscure existence
	}
	if original.Status != domain.Posted {
		return nil, fmt.Errorf("%w: entry status is %s", ErrEntryNotPosted, original.Status)
	}
	if original.OriginalEntryID != nil {
		return nil, fmt.Errorf("%w: cannot reverse an entry that is already a reversal", apperrors.ErrConflict)
	}

	originalLines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch original lines for reversal", slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to retrieve original lines: %w", err)
	}

	// A reversal is an ordinary posting command with flipped directions.
	reversalReq := dto.CreateEntryRequest{
		Date:        original.EntryDate,
		Description: fmt.Sprintf("Reversal of: %s", original.Description),
		Reference:   original.Reference,
		Lines:       make([]dto.CreateLineRequest, len(originalLines)),
	}
	for i, line := range originalLines {
		direction := domain.Credit
		if line.Direction == domain.Credit {
			direction = domain.Debit
		}
		reversalReq.Lines[i] = dto.CreateLineRequest{
			AccountID: line.AccountID,
			Amount:    line.Amount,
			Direction: direction,
		}
	}

	cmd, err := s.buildCommand(ctx, ownerID, reversalReq, domain.EntrySourceManual, userID)
	if err != nil {
		return nil, err
	}
	cmd.Entry.OriginalEntryID = &original.EntryID
	if err := s.verifyCommand(ctx, cmd); err != nil {
		return nil, err
	}

	if err := s.journalRepo.SaveEntry(ctx, *cmd); err != nil {
		s.LogError(ctx, err, "Failed to save reversing entry", slog.String("original_entry_id", entryID))
		return nil, fmt.Errorf("failed to save reversing entry: %w", err)
	}

	now := time.Now().UTC()
	if err := s.journalRepo.UpdateEntryStatusAndLinks(ctx, original.EntryID, domain.Reversed, &cmd.Entry.EntryID, userID, now); err != nil {
		s.LogError(ctx, err, "Failed to update original entry status after reversal",
			slog.String("original_entry_id", original.EntryID),
			slog.String("reversing_entry_id", cmd.Entry.EntryID))
		return nil, fmt.Errorf("failed to update original entry status: %w", err)
	}

	s.LogInfo(ctx, "Entry reversed successfully",
		slog.String("original_entry_id", original.EntryID),
		slog.String("reversing_entry_id", cmd.Entry.EntryID))
	entry := cmd.Entry
	entry.Lines = nil
	return &entry, nil
}

// uniqueStrings returns a slice containing only the unique strings from the input.
func uniqueStrings(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, str := range input {
		if _, ok := seen[str]; !ok {
			seen[str] = struct{}{}
			result = append(result, str)
		}
	}
	return result
}
