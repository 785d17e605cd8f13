package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/perfinapp/ledger_engine/internal/repositories/memory"
)

type StoreTestSuite struct {
	suite.Suite
	store   *memory.Store
	ownerID string
	cash    domain.Account
	revenue domain.Account
}

func (suite *StoreTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.ownerID = uuid.NewString()
	ctx := context.Background()

	suite.cash = domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      suite.ownerID,
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
		Balance:      decimal.Zero,
		IsMutable:    true,
		AuditFields:  domain.AuditFields{CreatedAt: time.Now().UTC()},
	}
	suite.revenue = domain.Account{
		AccountID:    uuid.NewString(),
		OwnerID:      suite.ownerID,
		Name:         "Income",
		AccountType:  domain.Revenue,
		CurrencyCode: "USD",
		Balance:      decimal.Zero,
		IsMutable:    true,
		AuditFields:  domain.AuditFields{CreatedAt: time.Now().UTC()},
	}
	suite.Require().NoError(suite.store.SaveAccount(ctx, suite.cash))
	suite.Require().NoError(suite.store.SaveAccount(ctx, suite.revenue))
}

// incomeCommand builds a balanced DEBIT cash / CREDIT revenue command.
func (suite *StoreTestSuite) incomeCommand(amount decimal.Decimal, entryDate, createdAt time.Time) domain.PostingCommand {
	entryID := uuid.NewString()
	entry := domain.JournalEntry{
		EntryID:     entryID,
		OwnerID:     suite.ownerID,
		EntryDate:   entryDate,
		Description: "Income received",
		Source:      domain.EntrySourceManual,
		Status:      domain.Posted,
		AuditFields: domain.AuditFields{CreatedAt: createdAt, CreatedBy: suite.ownerID},
	}
	lines := []domain.PostingLine{
		{
			LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.cash.AccountID,
			Amount: amount, Direction: domain.Debit, CurrencyCode: "USD",
			AuditFields: domain.AuditFields{CreatedAt: createdAt},
		},
		{
			LineID: uuid.NewString(), EntryID: entryID, AccountID: suite.revenue.AccountID,
			Amount: amount, Direction: domain.Credit, CurrencyCode: "USD",
			AuditFields: domain.AuditFields{CreatedAt: createdAt},
		},
	}
	return domain.PostingCommand{
		Entry: entry,
		Lines: lines,
		BalanceChanges: map[string]decimal.Decimal{
			suite.cash.AccountID:    amount,
			suite.revenue.AccountID: amount,
		},
	}
}

func (suite *StoreTestSuite) cashBalance() decimal.Decimal {
	account, err := suite.store.FindAccountByID(context.Background(), suite.cash.AccountID)
	suite.Require().NoError(err)
	return account.Balance
}

// --- Posting ---

func (suite *StoreTestSuite) TestSaveEntry_AppliesBalancesAndRunningBalances() {
	ctx := context.Background()
	now := time.Now().UTC()

	cmd := suite.incomeCommand(decimal.NewFromInt(100), now, now)
	suite.Require().NoError(suite.store.SaveEntry(ctx, cmd))

	suite.True(decimal.NewFromInt(100).Equal(suite.cashBalance()))

	lines, err := suite.store.FindLinesByEntryID(ctx, cmd.Entry.EntryID)
	suite.Require().NoError(err)
	suite.Require().Len(lines, 2)
	suite.True(decimal.NewFromInt(100).Equal(lines[0].RunningBalance))
	suite.True(decimal.NewFromInt(100).Equal(lines[1].RunningBalance))

	// A second posting continues the running balance of the first.
	later := now.Add(time.Minute)
	cmd2 := suite.incomeCommand(decimal.NewFromInt(50), later, later)
	suite.Require().NoError(suite.store.SaveEntry(ctx, cmd2))

	suite.True(decimal.NewFromInt(150).Equal(suite.cashBalance()))
	lines2, err := suite.store.FindLinesByEntryID(ctx, cmd2.Entry.EntryID)
	suite.Require().NoError(err)
	suite.True(decimal.NewFromInt(150).Equal(lines2[0].RunningBalance))
}

func (suite *StoreTestSuite) TestSaveEntry_UnknownAccountLeavesStoreUnchanged() {
	ctx := context.Background()
	now := time.Now().UTC()

	cmd := suite.incomeCommand(decimal.NewFromInt(100), now, now)
	cmd.Lines[1].AccountID = uuid.NewString() // ghost account
	cmd.BalanceChanges[cmd.Lines[1].AccountID] = decimal.NewFromInt(100)

	err := suite.store.SaveEntry(ctx, cmd)
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	suite.True(suite.cashBalance().IsZero())
	_, err = suite.store.FindEntryByID(ctx, cmd.Entry.EntryID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *StoreTestSuite) TestSaveEntry_DuplicateEntryIDRejected() {
	ctx := context.Background()
	now := time.Now().UTC()

	cmd := suite.incomeCommand(decimal.NewFromInt(10), now, now)
	suite.Require().NoError(suite.store.SaveEntry(ctx, cmd))

	err := suite.store.SaveEntry(ctx, cmd)
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.True(decimal.NewFromInt(10).Equal(suite.cashBalance()))
}

func (suite *StoreTestSuite) TestSaveEntry_ConcurrentPostingsLoseNoUpdates() {
	ctx := context.Background()
	const workers = 50
	now := time.Now().UTC()

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts := now.Add(time.Duration(i) * time.Millisecond)
			cmd := suite.incomeCommand(decimal.NewFromInt(1), ts, ts)
			errs[i] = suite.store.SaveEntry(ctx, cmd)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		suite.Require().NoError(err)
	}

	suite.True(decimal.NewFromInt(workers).Equal(suite.cashBalance()))

	// Every stored running balance is distinct: each commit saw the state
	// left by the previous one.
	lines, _, err := suite.store.ListLinesByAccountID(ctx, suite.ownerID, suite.cash.AccountID, 0, nil)
	suite.Require().NoError(err)
	suite.Require().Len(lines, workers)
	seen := make(map[string]bool, workers)
	for _, line := range lines {
		suite.False(seen[line.RunningBalance.String()], "running balance %s appeared twice", line.RunningBalance)
		seen[line.RunningBalance.String()] = true
	}
}

// --- Idempotency ---

func (suite *StoreTestSuite) TestSaveEntryWithIdempotency_ReplayIsRejectedUnchanged() {
	ctx := context.Background()
	now := time.Now().UTC()
	eventID := uuid.NewString()

	first := suite.incomeCommand(decimal.NewFromInt(75), now, now)
	record := domain.IdempotencyRecord{
		EventID:   eventID,
		EntryID:   first.Entry.EntryID,
		OwnerID:   suite.ownerID,
		AppliedAt: now,
	}
	suite.Require().NoError(suite.store.SaveEntryWithIdempotency(ctx, first, record))
	suite.True(decimal.NewFromInt(75).Equal(suite.cashBalance()))

	// Redelivery carries a fresh entry ID but the same event ID.
	replay := suite.incomeCommand(decimal.NewFromInt(75), now, now.Add(time.Second))
	replayRecord := domain.IdempotencyRecord{
		EventID:   eventID,
		EntryID:   replay.Entry.EntryID,
		OwnerID:   suite.ownerID,
		AppliedAt: now.Add(time.Second),
	}
	err := suite.store.SaveEntryWithIdempotency(ctx, replay, replayRecord)
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)

	// Balance unchanged and the replay entry never materialized.
	suite.True(decimal.NewFromInt(75).Equal(suite.cashBalance()))
	_, err = suite.store.FindEntryByID(ctx, replay.Entry.EntryID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	// The record still points at the first entry.
	stored, err := suite.store.FindIdempotencyRecord(ctx, eventID)
	suite.Require().NoError(err)
	suite.Equal(first.Entry.EntryID, stored.EntryID)
}

func (suite *StoreTestSuite) TestSaveEntryWithIdempotency_ConcurrentSameEventOneWinner() {
	ctx := context.Background()
	now := time.Now().UTC()
	eventID := uuid.NewString()
	const attempts = 20

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := suite.incomeCommand(decimal.NewFromInt(30), now, now)
			record := domain.IdempotencyRecord{
				EventID:   eventID,
				EntryID:   cmd.Entry.EntryID,
				OwnerID:   suite.ownerID,
				AppliedAt: now,
			}
			results[i] = suite.store.SaveEntryWithIdempotency(ctx, cmd, record)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			suite.ErrorIs(err, apperrors.ErrDuplicate)
		}
	}
	suite.Equal(1, winners)
	suite.True(decimal.NewFromInt(30).Equal(suite.cashBalance()))
}

func (suite *StoreTestSuite) TestPruneIdempotencyRecords() {
	ctx := context.Background()
	now := time.Now().UTC()

	old := suite.incomeCommand(decimal.NewFromInt(5), now.AddDate(0, -4, 0), now.AddDate(0, -4, 0))
	oldEventID := uuid.NewString()
	suite.Require().NoError(suite.store.SaveEntryWithIdempotency(ctx, old, domain.IdempotencyRecord{
		EventID: oldEventID, EntryID: old.Entry.EntryID, OwnerID: suite.ownerID, AppliedAt: now.AddDate(0, -4, 0),
	}))

	recent := suite.incomeCommand(decimal.NewFromInt(5), now, now)
	recentEventID := uuid.NewString()
	suite.Require().NoError(suite.store.SaveEntryWithIdempotency(ctx, recent, domain.IdempotencyRecord{
		EventID: recentEventID, EntryID: recent.Entry.EntryID, OwnerID: suite.ownerID, AppliedAt: now,
	}))

	removed, err := suite.store.PruneIdempotencyRecords(ctx, now.AddDate(0, -3, 0))
	suite.Require().NoError(err)
	suite.Equal(int64(1), removed)

	_, err = suite.store.FindIdempotencyRecord(ctx, oldEventID)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	_, err = suite.store.FindIdempotencyRecord(ctx, recentEventID)
	suite.NoError(err)

	// Pruning removes bookkeeping only; the posted entries stay.
	_, err = suite.store.FindEntryByID(ctx, old.Entry.EntryID)
	suite.NoError(err)
	suite.True(decimal.NewFromInt(10).Equal(suite.cashBalance()))
}

// --- Pagination ---

func (suite *StoreTestSuite) TestListEntriesByOwner_PagesNewestFirst() {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		ts := base.AddDate(0, 0, i)
		cmd := suite.incomeCommand(decimal.NewFromInt(1), ts, ts)
		suite.Require().NoError(suite.store.SaveEntry(ctx, cmd))
		ids = append(ids, cmd.Entry.EntryID)
	}

	page1, token, err := suite.store.ListEntriesByOwner(ctx, suite.ownerID, nil, nil, 2, nil)
	suite.Require().NoError(err)
	suite.Require().Len(page1, 2)
	suite.Require().NotNil(token)
	suite.Equal(ids[4], page1[0].EntryID)
	suite.Equal(ids[3], page1[1].EntryID)

	page2, token, err := suite.store.ListEntriesByOwner(ctx, suite.ownerID, nil, nil, 2, token)
	suite.Require().NoError(err)
	suite.Require().Len(page2, 2)
	suite.Require().NotNil(token)
	suite.Equal(ids[2], page2[0].EntryID)
	suite.Equal(ids[1], page2[1].EntryID)

	page3, token, err := suite.store.ListEntriesByOwner(ctx, suite.ownerID, nil, nil, 2, token)
	suite.Require().NoError(err)
	suite.Require().Len(page3, 1)
	suite.Nil(token)
	suite.Equal(ids[0], page3[0].EntryID)
}

func (suite *StoreTestSuite) TestListEntriesByOwner_DateRangeFilter() {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ts := base.AddDate(0, 0, i)
		suite.Require().NoError(suite.store.SaveEntry(ctx, suite.incomeCommand(decimal.NewFromInt(1), ts, ts)))
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	entries, _, err := suite.store.ListEntriesByOwner(ctx, suite.ownerID, &from, &to, 0, nil)
	suite.Require().NoError(err)
	suite.Len(entries, 3)
	for _, entry := range entries {
		suite.False(entry.EntryDate.Before(from))
		suite.False(entry.EntryDate.After(to))
	}
}

func (suite *StoreTestSuite) TestListLinesByAccountID_PagesAndScopesToOwner() {
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		suite.Require().NoError(suite.store.SaveEntry(ctx, suite.incomeCommand(decimal.NewFromInt(1), ts, ts)))
	}

	page1, token, err := suite.store.ListLinesByAccountID(ctx, suite.ownerID, suite.cash.AccountID, 2, nil)
	suite.Require().NoError(err)
	suite.Len(page1, 2)
	suite.Require().NotNil(token)

	page2, token, err := suite.store.ListLinesByAccountID(ctx, suite.ownerID, suite.cash.AccountID, 2, token)
	suite.Require().NoError(err)
	suite.Len(page2, 1)
	suite.Nil(token)

	// A foreign owner cannot read the account's lines at all.
	_, _, err = suite.store.ListLinesByAccountID(ctx, uuid.NewString(), suite.cash.AccountID, 2, nil)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// --- Accounts ---

func (suite *StoreTestSuite) TestSaveAccount_DuplicateIDRejected() {
	ctx := context.Background()
	err := suite.store.SaveAccount(ctx, suite.cash)
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *StoreTestSuite) TestUpdateAccount_PreservesBalance() {
	ctx := context.Background()
	now := time.Now().UTC()
	suite.Require().NoError(suite.store.SaveEntry(ctx, suite.incomeCommand(decimal.NewFromInt(200), now, now)))

	renamed := suite.cash
	renamed.Name = "Wallet"
	renamed.Balance = decimal.NewFromInt(999999) // must be ignored
	suite.Require().NoError(suite.store.UpdateAccount(ctx, renamed))

	account, err := suite.store.FindAccountByID(ctx, suite.cash.AccountID)
	suite.Require().NoError(err)
	suite.Equal("Wallet", account.Name)
	suite.True(decimal.NewFromInt(200).Equal(account.Balance))
}

func (suite *StoreTestSuite) TestListAccountsByOwner_TypeFilterAndOrder() {
	ctx := context.Background()
	assetType := domain.Asset

	all, err := suite.store.ListAccountsByOwner(ctx, suite.ownerID, nil)
	suite.Require().NoError(err)
	suite.Require().Len(all, 2)
	suite.Equal(suite.cash.AccountID, all[0].AccountID)
	suite.Equal(suite.revenue.AccountID, all[1].AccountID)

	assets, err := suite.store.ListAccountsByOwner(ctx, suite.ownerID, &assetType)
	suite.Require().NoError(err)
	suite.Require().Len(assets, 1)
	suite.Equal(suite.cash.AccountID, assets[0].AccountID)
}

// --- Reporting ---

func (suite *StoreTestSuite) TestGetTrialBalanceData_NaturalSignColumns() {
	ctx := context.Background()
	now := time.Now().UTC()
	suite.Require().NoError(suite.store.SaveEntry(ctx, suite.incomeCommand(decimal.NewFromInt(120), now, now)))

	rows, err := suite.store.GetTrialBalanceData(ctx, suite.ownerID)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 2)

	byID := make(map[string]domain.TrialBalanceRow, len(rows))
	for _, row := range rows {
		byID[row.AccountID] = row
	}

	// A positive asset balance lands in the debit column, a positive revenue
	// balance in the credit column.
	suite.True(decimal.NewFromInt(120).Equal(byID[suite.cash.AccountID].Debit))
	suite.True(byID[suite.cash.AccountID].Credit.IsZero())
	suite.True(decimal.NewFromInt(120).Equal(byID[suite.revenue.AccountID].Credit))
	suite.True(byID[suite.revenue.AccountID].Debit.IsZero())
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
