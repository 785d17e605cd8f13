package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/core/services"
)

type IngestionServiceTestSuite struct {
	suite.Suite
	mockJournalRepo *MockJournalRepository
	mockAccountSvc  *MockAccountService
	service         portssvc.IngestionSvcFacade
	ownerID         string
	cashAccount     domain.Account
	revenueAccount  domain.Account
	expenseAccount  domain.Account
}

func (suite *IngestionServiceTestSuite) SetupTest() {
	suite.mockJournalRepo = new(MockJournalRepository)
	suite.mockAccountSvc = new(MockAccountService)
	journalSvc := services.NewJournalService(suite.mockJournalRepo, suite.mockAccountSvc)
	suite.service = services.NewIngestionService(suite.mockJournalRepo, journalSvc, suite.mockAccountSvc)

	suite.ownerID = uuid.NewString()
	suite.cashAccount = domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      suite.ownerID,
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
	}
	suite.revenueAccount = domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      suite.ownerID,
		Name:         "Income",
		AccountType:  domain.Revenue,
		CurrencyCode: "USD",
	}
	suite.expenseAccount = domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      suite.ownerID,
		Name:         "Expenses",
		AccountType:  domain.Expense,
		CurrencyCode: "USD",
	}
}

func (suite *IngestionServiceTestSuite) expenseEvent() domain.FinancialEvent {
	return domain.FinancialEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventExpenseCreated,
		Timestamp: time.Now(),
		Data: domain.EventData{
			Amount:       decimal.NewFromFloat(42.50),
			CurrencyCode: "USD",
			Date:         time.Now(),
			Description:  "Weekly groceries",
			SourceID:     uuid.NewString(),
		},
		Metadata: domain.EventMetadata{UserID: suite.ownerID},
	}
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_ExpenseApplied() {
	ctx := context.Background()
	event := suite.expenseEvent()

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.MatchedBy(func(t *domain.AccountType) bool {
		return t != nil && *t == domain.Expense
	})).Return([]domain.Account{suite.expenseAccount}, nil).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.MatchedBy(func(t *domain.AccountType) bool {
		return t != nil && *t == domain.Asset
	})).Return([]domain.Account{suite.cashAccount}, nil).Once()
	suite.mockAccountSvc.On("GetAccountByIDs", ctx, suite.ownerID, mock.Anything).
		Return(map[string]domain.Account{
			suite.expenseAccount.AccountID: suite.expenseAccount,
			suite.cashAccount.AccountID:    suite.cashAccount,
		}, nil).Once()

	var savedCmd domain.PostingCommand
	var savedRecord domain.IdempotencyRecord
	suite.mockJournalRepo.On("SaveEntryWithIdempotency", ctx, mock.AnythingOfType("domain.PostingCommand"), mock.AnythingOfType("domain.IdempotencyRecord")).
		Run(func(args mock.Arguments) {
			savedCmd = args.Get(1).(domain.PostingCommand)
			savedRecord = args.Get(2).(domain.IdempotencyRecord)
		}).Return(nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.False(result.Duplicate)
	suite.Equal(savedCmd.Entry.EntryID, result.EntryID)

	// Expense debits the expense account and credits the paying asset account.
	suite.Require().Len(savedCmd.Lines, 2)
	suite.Equal(suite.expenseAccount.AccountID, savedCmd.Lines[0].AccountID)
	suite.Equal(domain.Debit, savedCmd.Lines[0].Direction)
	suite.Equal(suite.cashAccount.AccountID, savedCmd.Lines[1].AccountID)
	suite.Equal(domain.Credit, savedCmd.Lines[1].Direction)
	suite.Equal("expense-service", savedCmd.Entry.Source)
	suite.Equal(event.Data.SourceID, savedCmd.Entry.Reference)

	// The idempotency record binds the event to the entry it produced.
	suite.Equal(event.EventID, savedRecord.EventID)
	suite.Equal(savedCmd.Entry.EntryID, savedRecord.EntryID)
	suite.Equal(suite.ownerID, savedRecord.OwnerID)

	suite.mockJournalRepo.AssertExpectations(suite.T())
	suite.mockAccountSvc.AssertExpectations(suite.T())
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_IncomeApplied() {
	ctx := context.Background()
	event := suite.expenseEvent()
	event.EventType = domain.EventIncomeReceived
	event.Data.Description = "Salary"

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.MatchedBy(func(t *domain.AccountType) bool {
		return t != nil && *t == domain.Asset
	})).Return([]domain.Account{suite.cashAccount}, nil).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.MatchedBy(func(t *domain.AccountType) bool {
		return t != nil && *t == domain.Revenue
	})).Return([]domain.Account{suite.revenueAccount}, nil).Once()
	suite.mockAccountSvc.On("GetAccountByIDs", ctx, suite.ownerID, mock.Anything).
		Return(map[string]domain.Account{
			suite.cashAccount.AccountID:    suite.cashAccount,
			suite.revenueAccount.AccountID: suite.revenueAccount,
		}, nil).Once()

	var savedCmd domain.PostingCommand
	suite.mockJournalRepo.On("SaveEntryWithIdempotency", ctx, mock.AnythingOfType("domain.PostingCommand"), mock.AnythingOfType("domain.IdempotencyRecord")).
		Run(func(args mock.Arguments) {
			savedCmd = args.Get(1).(domain.PostingCommand)
		}).Return(nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().NoError(err)
	suite.False(result.Duplicate)

	// Income debits the receiving asset account and credits revenue.
	suite.Equal(suite.cashAccount.AccountID, savedCmd.Lines[0].AccountID)
	suite.Equal(domain.Debit, savedCmd.Lines[0].Direction)
	suite.Equal(suite.revenueAccount.AccountID, savedCmd.Lines[1].AccountID)
	suite.Equal(domain.Credit, savedCmd.Lines[1].Direction)
	suite.Equal("income-service", savedCmd.Entry.Source)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_DuplicateSkipped() {
	ctx := context.Background()
	event := suite.expenseEvent()
	existingEntryID := uuid.NewString()

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(&domain.IdempotencyRecord{
			EventID:   event.EventID,
			EntryID:   existingEntryID,
			OwnerID:   suite.ownerID,
			AppliedAt: time.Now().Add(-time.Hour),
		}, nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.True(result.Duplicate)
	suite.Equal(existingEntryID, result.EntryID)
	suite.mockJournalRepo.AssertNotCalled(suite.T(), "SaveEntryWithIdempotency", mock.Anything, mock.Anything, mock.Anything)
	suite.mockAccountSvc.AssertNotCalled(suite.T(), "ListAccounts", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_ConcurrentDuplicateAtCommit() {
	ctx := context.Background()
	event := suite.expenseEvent()
	winnerEntryID := uuid.NewString()

	// No record at check time, but another delivery commits first.
	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.Anything).
		Return([]domain.Account{suite.expenseAccount}, nil).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.Anything).
		Return([]domain.Account{suite.cashAccount}, nil).Once()
	suite.mockAccountSvc.On("GetAccountByIDs", ctx, suite.ownerID, mock.Anything).
		Return(map[string]domain.Account{
			suite.expenseAccount.AccountID: suite.expenseAccount,
			suite.cashAccount.AccountID:    suite.cashAccount,
		}, nil).Once()
	suite.mockJournalRepo.On("SaveEntryWithIdempotency", ctx, mock.Anything, mock.Anything).
		Return(apperrors.ErrDuplicate).Once()
	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(&domain.IdempotencyRecord{EventID: event.EventID, EntryID: winnerEntryID, OwnerID: suite.ownerID}, nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().NoError(err)
	suite.True(result.Duplicate)
	suite.Equal(winnerEntryID, result.EntryID)
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_UnknownSchema() {
	ctx := context.Background()
	event := suite.expenseEvent()
	event.EventType = "transfer.initiated"

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrUnknownEventSchema)
	suite.Nil(result)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_NoDefaultAccounts() {
	ctx := context.Background()
	event := suite.expenseEvent()

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.Anything).
		Return([]domain.Account{}, nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrSourceAccountResolution)
	suite.Nil(result)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_CurrencyMismatch() {
	ctx := context.Background()
	event := suite.expenseEvent()
	event.Data.CurrencyCode = "EUR"

	suite.mockJournalRepo.On("FindIdempotencyRecord", ctx, event.EventID).
		Return(nil, apperrors.ErrNotFound).Once()
	// The owner has expense accounts, just none in the event's currency.
	suite.mockAccountSvc.On("ListAccounts", ctx, suite.ownerID, mock.Anything).
		Return([]domain.Account{suite.expenseAccount}, nil).Once()

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrSourceAccountResolution)
	suite.Nil(result)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_MissingEventID() {
	ctx := context.Background()
	event := suite.expenseEvent()
	event.EventID = ""

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(result)
}

func (suite *IngestionServiceTestSuite) TestIngestEvent_MissingUserID() {
	ctx := context.Background()
	event := suite.expenseEvent()
	event.Metadata.UserID = ""

	result, err := suite.service.IngestEvent(ctx, event)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(result)
}

func TestIngestionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IngestionServiceTestSuite))
}
