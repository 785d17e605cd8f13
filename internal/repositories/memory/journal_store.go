package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	"github.com/perfinapp/ledger_engine/internal/utils/accounting"
	"github.com/perfinapp/ledger_engine/internal/utils/pagination"
)

// FindEntryByID retrieves a specific journal entry by its unique identifier.
// Lines are not attached; use FindLinesByEntryID.
func (s *Store) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("journal entry %s: %w", entryID, apperrors.ErrNotFound)
	}
	entry.Lines = nil
	return &entry, nil
}

// ListEntriesByOwner retrieves a paginated list of entries for an owner,
// newest entry date first, with creation time as tiebreaker.
func (s *Store) ListEntriesByOwner(ctx context.Context, ownerID string, from, to *time.Time, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []domain.JournalEntry
	for _, id := range s.entryOrder {
		entry := s.entries[id]
		if entry.OwnerID != ownerID {
			continue
		}
		if from != nil && entry.EntryDate.Before(*from) {
			continue
		}
		if to != nil && entry.EntryDate.After(*to) {
			continue
		}
		entry.Lines = nil
		candidates = append(candidates, entry)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].EntryDate.Equal(candidates[j].EntryDate) {
			return candidates[i].EntryDate.After(candidates[j].EntryDate)
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	if nextToken != nil && *nextToken != "" {
		tokenDate, tokenCreatedAt, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		idx := sort.Search(len(candidates), func(i int) bool {
			if !candidates[i].EntryDate.Equal(tokenDate) {
				return candidates[i].EntryDate.Before(tokenDate)
			}
			return !candidates[i].CreatedAt.After(tokenCreatedAt)
		})
		// skip the token row itself
		for idx < len(candidates) && candidates[idx].EntryDate.Equal(tokenDate) && candidates[idx].CreatedAt.Equal(tokenCreatedAt) {
			idx++
		}
		candidates = candidates[idx:]
	}

	var token *string
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
		last := candidates[len(candidates)-1]
		t := pagination.EncodeToken(last.EntryDate, last.CreatedAt)
		token = &t
	}
	return candidates, token, nil
}

// SaveEntry persists an entry, its posting lines and the account balance
// deltas as one atomic unit.
func (s *Store) SaveEntry(ctx context.Context, cmd domain.PostingCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveEntryLocked(cmd)
}

// SaveEntryWithIdempotency behaves like SaveEntry and records the applied
// event in the same critical section. A duplicate event ID leaves the store
// untouched and returns apperrors.ErrDuplicate.
func (s *Store) SaveEntryWithIdempotency(ctx context.Context, cmd domain.PostingCommand, record domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.idempotency[record.EventID]; exists {
		return fmt.Errorf("event %s: %w", record.EventID, apperrors.ErrDuplicate)
	}
	if err := s.saveEntryLocked(cmd); err != nil {
		return err
	}
	s.idempotency[record.EventID] = record
	return nil
}

// saveEntryLocked applies a posting command. Callers must hold the write lock.
// Checks run before any mutation so a failure leaves the store unchanged.
func (s *Store) saveEntryLocked(cmd domain.PostingCommand) error {
	if _, exists := s.entries[cmd.Entry.EntryID]; exists {
		return fmt.Errorf("journal entry %s: %w", cmd.Entry.EntryID, apperrors.ErrDuplicate)
	}
	for accountID := range cmd.BalanceChanges {
		if _, ok := s.accounts[accountID]; !ok {
			return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
		}
	}

	lines := make([]domain.PostingLine, len(cmd.Lines))
	copy(lines, cmd.Lines)
	signedAmounts := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if _, ok := s.accounts[line.AccountID]; !ok {
			return fmt.Errorf("account %s: %w", line.AccountID, apperrors.ErrNotFound)
		}
		signed, err := accounting.SignedAmount(line, s.accounts[line.AccountID].AccountType)
		if err != nil {
			return err
		}
		signedAmounts[i] = signed
	}

	// Apply line by line so each stored running balance reflects the account
	// state after that leg. The per-account sums match cmd.BalanceChanges.
	for i, line := range lines {
		account := s.accounts[line.AccountID]
		account.Balance = account.Balance.Add(signedAmounts[i])
		account.LastUpdatedAt = cmd.Entry.CreatedAt
		account.LastUpdatedBy = cmd.Entry.CreatedBy
		s.accounts[line.AccountID] = account
		lines[i].RunningBalance = account.Balance
		s.linesByAccount[line.AccountID] = append(s.linesByAccount[line.AccountID], lines[i])
	}

	entry := cmd.Entry
	entry.Lines = nil
	s.entries[entry.EntryID] = entry
	s.entryOrder = append(s.entryOrder, entry.EntryID)
	s.linesByEntry[entry.EntryID] = lines
	return nil
}

// UpdateEntryStatusAndLinks updates the status and reversal linkage of an entry.
func (s *Store) UpdateEntryStatusAndLinks(ctx context.Context, entryID string, status domain.EntryStatus, reversingEntryID *string, updatedByUserID string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return fmt.Errorf("journal entry %s: %w", entryID, apperrors.ErrNotFound)
	}
	entry.Status = status
	entry.ReversingEntryID = reversingEntryID
	entry.LastUpdatedBy = updatedByUserID
	entry.LastUpdatedAt = updatedAt
	s.entries[entryID] = entry
	return nil
}

// FindLinesByEntryID retrieves all posting lines of a single entry.
func (s *Store) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.PostingLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.linesByEntry[entryID]
	if !ok {
		return nil, fmt.Errorf("journal entry %s: %w", entryID, apperrors.ErrNotFound)
	}
	lines := make([]domain.PostingLine, len(stored))
	copy(lines, stored)
	return lines, nil
}

// ListLinesByAccountID retrieves a paginated list of posting lines for a
// specific account, newest first.
func (s *Store) ListLinesByAccountID(ctx context.Context, ownerID, accountID string, limit int, nextToken *string) ([]domain.PostingLine, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok || account.OwnerID != ownerID {
		return nil, nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}

	stored := s.linesByAccount[accountID]
	lines := make([]domain.PostingLine, len(stored))
	copy(lines, stored)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].CreatedAt.After(lines[j].CreatedAt)
	})

	if nextToken != nil && *nextToken != "" {
		fields, err := pagination.DecodeMultiFieldToken(*nextToken)
		if err != nil || len(fields) != 2 {
			return nil, nil, fmt.Errorf("%w: invalid pagination token", apperrors.ErrValidation)
		}
		tokenCreatedAt, err := time.Parse(time.RFC3339Nano, fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid pagination token", apperrors.ErrValidation)
		}
		tokenLineID := fields[1]
		idx := 0
		for idx < len(lines) {
			if lines[idx].CreatedAt.Equal(tokenCreatedAt) && lines[idx].LineID == tokenLineID {
				idx++
				break
			}
			idx++
		}
		lines = lines[idx:]
	}

	var token *string
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
		last := lines[len(lines)-1]
		t := pagination.EncodeMultiFieldToken(last.CreatedAt.Format(time.RFC3339Nano), last.LineID)
		token = &t
	}
	return lines, token, nil
}

// FindIdempotencyRecord retrieves the record for an event ID.
func (s *Store) FindIdempotencyRecord(ctx context.Context, eventID string) (*domain.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.idempotency[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrNotFound)
	}
	return &record, nil
}

// PruneIdempotencyRecords deletes records applied before the cutoff.
func (s *Store) PruneIdempotencyRecords(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for eventID, record := range s.idempotency {
		if record.AppliedAt.Before(before) {
			delete(s.idempotency, eventID)
			removed++
		}
	}
	return removed, nil
}
