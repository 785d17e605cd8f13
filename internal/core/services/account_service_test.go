package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/core/services"
	"github.com/perfinapp/ledger_engine/internal/dto"
)

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string, typeFilter *domain.AccountType) ([]domain.Account, error) {
	args := m.Called(ctx, ownerID, typeFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// --- Test Suite Setup ---
type AccountServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountRepository
	service         portssvc.AccountSvcFacade
	ownerID         string
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewAccountService(suite.mockAccountRepo, services.WithBaseCurrency("USD"))
	suite.ownerID = uuid.NewString()
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Name:        "Checking",
		AccountType: "ASSET",
		SubType:     "bank",
	}

	var saved domain.Account
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(domain.Account)
		}).Return(nil).Once()

	account, err := suite.service.CreateAccount(ctx, suite.ownerID, req, suite.ownerID)

	suite.Require().NoError(err)
	suite.Require().NotNil(account)
	suite.NotEmpty(account.AccountID)
	suite.Equal(suite.ownerID, account.OwnerID)
	suite.Equal(domain.Asset, account.AccountType)
	suite.True(account.IsMutable)

	// New accounts always open at zero; the currency falls back to the base.
	suite.True(decimal.Zero.Equal(saved.Balance))
	suite.Equal("USD", saved.CurrencyCode)

	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_InvalidType() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Name:        "Mystery",
		AccountType: "PIGGYBANK",
	}

	account, err := suite.service.CreateAccount(ctx, suite.ownerID, req, suite.ownerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(account)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_EmptyName() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{AccountType: "ASSET"}

	account, err := suite.service.CreateAccount(ctx, suite.ownerID, req, suite.ownerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(account)
}

func (suite *AccountServiceTestSuite) TestGetAccountByID_ForeignOwnerReadsAsNotFound() {
	ctx := context.Background()
	accountID := uuid.NewString()
	foreign := &domain.Account{
		AccountID:   accountID,
		OwnerID:     uuid.NewString(),
		Name:        "Someone else's cash",
		AccountType: domain.Asset,
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(foreign, nil).Once()

	account, err := suite.service.GetAccountByID(ctx, suite.ownerID, accountID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(account)
}

func (suite *AccountServiceTestSuite) TestGetAccountByIDs_FiltersForeignAccounts() {
	ctx := context.Background()
	mine := domain.Account{AccountID: uuid.NewString(), OwnerID: suite.ownerID, AccountType: domain.Asset}
	theirs := domain.Account{AccountID: uuid.NewString(), OwnerID: uuid.NewString(), AccountType: domain.Asset}
	ids := []string{mine.AccountID, theirs.AccountID}

	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, ids).
		Return(map[string]domain.Account{
			mine.AccountID:   mine,
			theirs.AccountID: theirs,
		}, nil).Once()

	accounts, err := suite.service.GetAccountByIDs(ctx, suite.ownerID, ids)

	suite.Require().NoError(err)
	suite.Len(accounts, 1)
	suite.Contains(accounts, mine.AccountID)
	suite.NotContains(accounts, theirs.AccountID)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_ImmutableRejected() {
	ctx := context.Background()
	accountID := uuid.NewString()
	locked := &domain.Account{
		AccountID:   accountID,
		OwnerID:     suite.ownerID,
		Name:        "Opening Balances",
		AccountType: domain.Equity,
		IsMutable:   false,
	}
	newName := "Renamed"

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(locked, nil).Once()

	account, err := suite.service.UpdateAccount(ctx, suite.ownerID, accountID, dto.UpdateAccountRequest{Name: &newName}, suite.ownerID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAccountNotMutable)
	suite.Nil(account)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_Success() {
	ctx := context.Background()
	accountID := uuid.NewString()
	existing := &domain.Account{
		AccountID:   accountID,
		OwnerID:     suite.ownerID,
		Name:        "Cash",
		AccountType: domain.Asset,
		IsMutable:   true,
	}
	newName := "Wallet"

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(existing, nil).Once()
	suite.mockAccountRepo.On("UpdateAccount", ctx, mock.MatchedBy(func(acc domain.Account) bool {
		return acc.Name == newName
	})).Return(nil).Once()

	account, err := suite.service.UpdateAccount(ctx, suite.ownerID, accountID, dto.UpdateAccountRequest{Name: &newName}, suite.ownerID)

	suite.Require().NoError(err)
	suite.Equal(newName, account.Name)
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestUpdateAccount_NoFieldsIsNoOp() {
	ctx := context.Background()
	accountID := uuid.NewString()
	existing := &domain.Account{
		AccountID:   accountID,
		OwnerID:     suite.ownerID,
		Name:        "Cash",
		AccountType: domain.Asset,
		IsMutable:   true,
	}

	suite.mockAccountRepo.On("FindAccountByID", ctx, accountID).Return(existing, nil).Once()

	account, err := suite.service.UpdateAccount(ctx, suite.ownerID, accountID, dto.UpdateAccountRequest{}, suite.ownerID)

	suite.Require().NoError(err)
	suite.Equal("Cash", account.Name)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "UpdateAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestEnsureDefaultAccounts_ProvisionsMissing() {
	ctx := context.Background()
	existingCash := domain.Account{
		AccountID:   uuid.NewString(),
		OwnerID:     suite.ownerID,
		Name:        "Cash",
		AccountType: domain.Asset,
	}

	suite.mockAccountRepo.On("ListAccountsByOwner", ctx, suite.ownerID, (*domain.AccountType)(nil)).
		Return([]domain.Account{existingCash}, nil).Once()
	// Income and Expenses are missing and get created.
	suite.mockAccountRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).
		Return(nil).Twice()

	defaults, err := suite.service.EnsureDefaultAccounts(ctx, suite.ownerID)

	suite.Require().NoError(err)
	suite.Len(defaults, 3)
	suite.Equal(existingCash.AccountID, defaults[domain.Asset].AccountID)
	suite.Contains(defaults, domain.Revenue)
	suite.Contains(defaults, domain.Expense)
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestEnsureDefaultAccounts_AllPresentCreatesNothing() {
	ctx := context.Background()
	existing := []domain.Account{
		{AccountID: uuid.NewString(), OwnerID: suite.ownerID, Name: "Cash", AccountType: domain.Asset},
		{AccountID: uuid.NewString(), OwnerID: suite.ownerID, Name: "Income", AccountType: domain.Revenue},
		{AccountID: uuid.NewString(), OwnerID: suite.ownerID, Name: "Expenses", AccountType: domain.Expense},
	}

	suite.mockAccountRepo.On("ListAccountsByOwner", ctx, suite.ownerID, (*domain.AccountType)(nil)).
		Return(existing, nil).Once()

	defaults, err := suite.service.EnsureDefaultAccounts(ctx, suite.ownerID)

	suite.Require().NoError(err)
	suite.Len(defaults, 3)
	suite.mockAccountRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
