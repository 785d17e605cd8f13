package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
)

var (
	// ErrUnknownEventSchema indicates an event whose declared type is not
	// recognized. Surfaced to the operator path, never silently dropped.
	ErrUnknownEventSchema = errors.New("unknown event schema")

	// ErrSourceAccountResolution indicates the event could not be mapped to
	// ledger accounts, typically because the owner has no default accounts yet.
	ErrSourceAccountResolution = errors.New("failed to resolve accounts for event")
)

// ingestState names the stations of the per-event state machine. Progression
// is strictly forward: received -> checked -> translating -> committing ->
// applied, with checked short-circuiting to skipped on a duplicate.
type ingestState string

const (
	stateReceived    ingestState = "RECEIVED"
	stateChecked     ingestState = "CHECKED"
	stateTranslating ingestState = "TRANSLATING"
	stateCommitting  ingestState = "COMMITTING"
	stateApplied     ingestState = "APPLIED"
	stateSkipped     ingestState = "SKIPPED"
)

// Entry sources recorded for ingested events.
const (
	sourceExpenseService = "expense-service"
	sourceIncomeService  = "income-service"
)

// ingestionService applies external financial events to the ledger exactly
// once per event ID.
type ingestionService struct {
	BaseService
	accountSvc  portssvc.AccountSvcFacade
	journalSvc  *journalService
	journalRepo portsrepo.JournalRepositoryFacade
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(journalRepo portsrepo.JournalRepositoryFacade, journalSvc *journalService, accountSvc portssvc.AccountSvcFacade) portssvc.IngestionSvcFacade {
	return &ingestionService{
		accountSvc:  accountSvc,
		journalSvc:  journalSvc,
		journalRepo: journalRepo,
	}
}

// Ensure ingestionService implements the portssvc.IngestionSvcFacade interface
var _ portssvc.IngestionSvcFacade = (*ingestionService)(nil)

// IngestEvent runs one event through the ingestion state machine.
// Duplicate delivery is the expected, fully handled case: the previously
// recorded entry ID is returned with Duplicate set and nothing is mutated.
func (s *ingestionService) IngestEvent(ctx context.Context, event domain.FinancialEvent) (*portssvc.IngestResult, error) {
	state := stateReceived
	logger := s.GetLogger(ctx).With(
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.EventType))

	if event.EventID == "" {
		return nil, fmt.Errorf("%w: event ID is required", apperrors.ErrValidation)
	}
	if event.Metadata.UserID == "" {
		return nil, fmt.Errorf("%w: event metadata userId is required", apperrors.ErrValidation)
	}

	// Checked: has this event already been applied?
	state = stateChecked
	record, err := s.journalRepo.FindIdempotencyRecord(ctx, event.EventID)
	if err == nil {
		logger.Info("Event already applied, skipping", slog.String("entry_id", record.EntryID))
		return &portssvc.IngestResult{EntryID: record.EntryID, Duplicate: true}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check idempotency record: %w", err)
	}

	// Translating: map the event payload to a posting command request.
	state = stateTranslating
	req, source, err := s.translate(ctx, event)
	if err != nil {
		logger.Warn("Event translation failed",
			slog.String("state", string(state)),
			slog.String("error", err.Error()))
		return nil, err
	}

	// Committing: entry, lines, balance deltas and the idempotency record
	// succeed or fail together. A unique violation on the event ID means a
	// concurrent duplicate won the race; treat it as already applied.
	state = stateCommitting
	entry, err := s.journalSvc.PostEntryForEvent(ctx, event.Metadata.UserID, req, source, event.EventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			existing, findErr := s.journalRepo.FindIdempotencyRecord(ctx, event.EventID)
			if findErr != nil {
				return nil, fmt.Errorf("duplicate event commit lost race but record unreadable: %w", findErr)
			}
			logger.Info("Concurrent duplicate detected at commit, skipping", slog.String("entry_id", existing.EntryID))
			return &portssvc.IngestResult{EntryID: existing.EntryID, Duplicate: true}, nil
		}
		logger.Error("Event commit failed",
			slog.String("state", string(state)),
			slog.String("error", err.Error()))
		return nil, err
	}

	state = stateApplied
	logger.Info("Event applied",
		slog.String("state", string(state)),
		slog.String("entry_id", entry.EntryID))
	return &portssvc.IngestResult{EntryID: entry.EntryID}, nil
}

// translate maps an event's domain payload to a journal entry command:
// an expense debits the default expense account and credits the paying asset
// account; income debits the receiving asset account and credits revenue.
func (s *ingestionService) translate(ctx context.Context, event domain.FinancialEvent) (dto.CreateEntryRequest, string, error) {
	var debitType, creditType domain.AccountType
	var source string

	switch event.EventType {
	case domain.EventExpenseCreated:
		debitType, creditType = domain.Expense, domain.Asset
		source = sourceExpenseService
	case domain.EventIncomeReceived:
		debitType, creditType = domain.Asset, domain.Revenue
		source = sourceIncomeService
	default:
		return dto.CreateEntryRequest{}, "", fmt.Errorf("%w: %q", ErrUnknownEventSchema, event.EventType)
	}

	debitAccount, err := s.resolveAccount(ctx, event.Metadata.UserID, debitType, event.Data.CurrencyCode)
	if err != nil {
		return dto.CreateEntryRequest{}, "", err
	}
	creditAccount, err := s.resolveAccount(ctx, event.Metadata.UserID, creditType, event.Data.CurrencyCode)
	if err != nil {
		return dto.CreateEntryRequest{}, "", err
	}

	description := event.Data.Description
	if description == "" {
		description = fmt.Sprintf("%s %s", event.EventType, event.EventID)
	}

	req := dto.CreateEntryRequest{
		Date:        event.Data.Date,
		Description: description,
		Reference:   event.Data.SourceID,
		Lines: []dto.CreateLineRequest{
			{AccountID: debitAccount.AccountID, Amount: event.Data.Amount, Direction: domain.Debit},
			{AccountID: creditAccount.AccountID, Amount: event.Data.Amount, Direction: domain.Credit},
		},
	}
	return req, source, nil
}

// resolveAccount picks the owner's account for the given type, preferring a
// currency match. No account of the type at all means the owner was never
// provisioned with defaults, which the producer must resolve.
func (s *ingestionService) resolveAccount(ctx context.Context, ownerID string, accountType domain.AccountType, currency string) (*domain.Account, error) {
	accounts, err := s.accountSvc.ListAccounts(ctx, ownerID, &accountType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s accounts for owner %s: %w", accountType, ownerID, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: owner %s has no %s account", ErrSourceAccountResolution, ownerID, accountType)
	}
	for i := range accounts {
		if accounts[i].CurrencyCode == currency {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: owner %s has no %s account in currency %s", ErrSourceAccountResolution, ownerID, accountType, currency)
}
