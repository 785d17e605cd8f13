package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/perfinapp/ledger_engine/internal/apperrors"
	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	"github.com/perfinapp/ledger_engine/internal/utils/accounting"
	"github.com/perfinapp/ledger_engine/internal/utils/pagination"
)

type PgxJournalRepository struct {
	BaseRepository
	accountRepo *PgxAccountRepository
}

// newPgxJournalRepository creates a new repository for journal entry,
// posting line and idempotency data.
func newPgxJournalRepository(pool *pgxpool.Pool, accountRepo *PgxAccountRepository) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
	}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryFacade
var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

// SaveEntry persists an entry, its posting lines and the account balance
// deltas within one DB transaction.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, cmd domain.PostingCommand) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	// No-op if the transaction was committed
	defer r.Rollback(ctx, tx)

	if err := r.saveEntryInTx(ctx, tx, cmd); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// SaveEntryWithIdempotency behaves like SaveEntry and inserts the idempotency
// record in the same DB transaction. The unique index on event_id makes the
// concurrent-duplicate race safe: exactly one committer wins, the loser gets
// apperrors.ErrDuplicate and nothing else it wrote survives.
func (r *PgxJournalRepository) SaveEntryWithIdempotency(ctx context.Context, cmd domain.PostingCommand, record domain.IdempotencyRecord) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.saveEntryInTx(ctx, tx, cmd); err != nil {
		return err
	}

	// Inserted after the entry because of the FK on entry_id. The unique
	// constraint still rejects a concurrent duplicate and rolls back the
	// entry with it.
	recordQuery := `
		INSERT INTO idempotency_records (event_id, entry_id, owner_id, applied_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err = tx.Exec(ctx, recordQuery,
		record.EventID,
		record.EntryID,
		record.OwnerID,
		record.AppliedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return apperrors.NewAppError(409, "event "+record.EventID+" already applied", apperrors.ErrDuplicate)
			}
		}
		return apperrors.NewAppError(500, "failed to insert idempotency record for event "+record.EventID, err)
	}

	return r.Commit(ctx, tx)
}

// saveEntryInTx performs the three-part posting commit inside tx: insert the
// entry row, lock and adjust the affected accounts, then batch-insert the
// posting lines with their running balances.
func (r *PgxJournalRepository) saveEntryInTx(ctx context.Context, tx pgx.Tx, cmd domain.PostingCommand) error {
	entry := cmd.Entry
	now := entry.CreatedAt
	userID := entry.CreatedBy

	// 1. Insert the journal entry
	entryQuery := `
		INSERT INTO journal_entries (
			entry_id, owner_id, entry_date, description, reference, source, status,
			original_entry_id, reversing_entry_id,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := tx.Exec(ctx, entryQuery,
		entry.EntryID,
		entry.OwnerID,
		entry.EntryDate,
		entry.Description,
		entry.Reference,
		entry.Source,
		entry.Status,
		entry.OriginalEntryID,
		entry.ReversingEntryID,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert journal entry "+entry.EntryID, err)
	}

	// 2. Lock the affected accounts and capture their pre-entry balances
	accountIDs := make([]string, 0, len(cmd.BalanceChanges))
	for accountID := range cmd.BalanceChanges {
		accountIDs = append(accountIDs, accountID)
	}

	lockedAccounts, err := r.accountRepo.findAccountsByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return err
	}

	// 3. Apply the balance deltas
	if err := r.accountRepo.updateAccountBalancesInTx(ctx, tx, cmd.BalanceChanges, userID, now); err != nil {
		return err
	}

	// 4. Batch-insert the posting lines with running balances calculated from
	// the locked pre-entry balances.
	lineQuery := `
		INSERT INTO posting_lines (
			line_id, entry_id, account_id, amount, direction, currency_code,
			running_balance, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	runningBalances := make(map[string]decimal.Decimal, len(lockedAccounts))
	for accountID, locked := range lockedAccounts {
		runningBalances[accountID] = locked.Balance
	}

	batch := &pgx.Batch{}
	for _, line := range cmd.Lines {
		locked, ok := lockedAccounts[line.AccountID]
		if !ok {
			return apperrors.NewAppError(500, "locked account "+line.AccountID+" missing during line processing", nil)
		}
		signedAmount, err := accounting.SignedAmount(line, locked.AccountType)
		if err != nil {
			return apperrors.NewAppError(500, "failed to calculate signed amount for line "+line.LineID, err)
		}
		runningBalance := runningBalances[line.AccountID].Add(signedAmount)
		runningBalances[line.AccountID] = runningBalance

		batch.Queue(lineQuery,
			line.LineID,
			entry.EntryID,
			line.AccountID,
			line.Amount,
			line.Direction,
			line.CurrencyCode,
			runningBalance,
			now,
			userID,
			now,
			userID,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute posting line batch for entry "+entry.EntryID, err)
	}
	return nil
}

// FindEntryByID retrieves a journal entry by its ID. Lines are loaded
// separately via FindLinesByEntryID.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `
		SELECT entry_id, owner_id, entry_date, description, reference, source, status,
		       original_entry_id, reversing_entry_id,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM journal_entries
		WHERE entry_id = $1;
	`
	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find journal entry by ID "+entryID, err)
	}
	return &entry, nil
}

func scanEntry(row pgx.Row) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	var originalID sql.NullString
	var reversingID sql.NullString

	err := row.Scan(
		&e.EntryID,
		&e.OwnerID,
		&e.EntryDate,
		&e.Description,
		&e.Reference,
		&e.Source,
		&e.Status,
		&originalID,
		&reversingID,
		&e.CreatedAt,
		&e.CreatedBy,
		&e.LastUpdatedAt,
		&e.LastUpdatedBy,
	)
	if err != nil {
		return domain.JournalEntry{}, err
	}

	if originalID.Valid {
		e.OriginalEntryID = &originalID.String
	}
	if reversingID.Valid {
		e.ReversingEntryID = &reversingID.String
	}
	return e, nil
}

// ListEntriesByOwner retrieves a paginated list of entries for an owner using
// token-based pagination, optionally bounded by an entry-date range.
func (r *PgxJournalRepository) ListEntriesByOwner(ctx context.Context, ownerID string, from, to *time.Time, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// Fetch one extra row to determine whether a next page exists.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT entry_id, owner_id, entry_date, description, reference, source, status,
		       original_entry_id, reversing_entry_id,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM journal_entries
	`
	filterClause := `WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if from != nil {
		args = append(args, *from)
		filterClause += ` AND entry_date >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		filterClause += ` AND entry_date <= $` + strconv.Itoa(len(args))
	}

	// Stable ordering: entry_date DESC with created_at DESC as tie-breaker.
	orderByClause := `ORDER BY entry_date DESC, created_at DESC`

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastDate, lastCreatedAt)
		filterClause += ` AND (entry_date, created_at) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}

	args = append(args, fetchLimit)
	query := baseQuery + " " + filterClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query journal entries for owner "+ownerID, err)
	}
	defer rows.Close()

	entries := make([]domain.JournalEntry, 0, fetchLimit)
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan journal entry row for owner "+ownerID, scanErr)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating journal entry rows for owner "+ownerID, err)
	}

	var nextTokenVal *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.EntryDate, last.CreatedAt)
		nextTokenVal = &token
	}
	return entries, nextTokenVal, nil
}

// UpdateEntryStatusAndLinks updates the status and reversal linkage of an entry.
func (r *PgxJournalRepository) UpdateEntryStatusAndLinks(ctx context.Context, entryID string, status domain.EntryStatus, reversingEntryID *string, updatedByUserID string, updatedAt time.Time) error {
	query := `
		UPDATE journal_entries
		SET status = $2,
		    reversing_entry_id = $3,
		    last_updated_at = $4,
		    last_updated_by = $5
		WHERE entry_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		entryID,
		status,
		reversingEntryID,
		updatedAt,
		updatedByUserID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update entry status/links for "+entryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("journal entry " + entryID + " not found for update")
	}
	return nil
}

const lineColumns = `
	line_id, entry_id, account_id, amount, direction, currency_code,
	running_balance, created_at, created_by, last_updated_at, last_updated_by
`

func scanLine(row pgx.Row) (domain.PostingLine, error) {
	var l domain.PostingLine
	err := row.Scan(
		&l.LineID,
		&l.EntryID,
		&l.AccountID,
		&l.Amount,
		&l.Direction,
		&l.CurrencyCode,
		&l.RunningBalance,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	return l, err
}

// FindLinesByEntryID retrieves all posting lines of a single entry.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.PostingLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM posting_lines
		WHERE entry_id = $1
		ORDER BY created_at, line_id;
	`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query posting lines for entry "+entryID, err)
	}
	defer rows.Close()

	lines := []domain.PostingLine{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan posting line row for entry "+entryID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating posting line rows for entry "+entryID, err)
	}
	return lines, nil
}

// ListLinesByAccountID retrieves a paginated list of posting lines for a
// specific account using token-based pagination, newest first.
func (r *PgxJournalRepository) ListLinesByAccountID(ctx context.Context, ownerID, accountID string, limit int, nextToken *string) ([]domain.PostingLine, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT pl.line_id, pl.entry_id, pl.account_id, pl.amount, pl.direction, pl.currency_code,
		       pl.running_balance, pl.created_at, pl.created_by, pl.last_updated_at, pl.last_updated_by
		FROM posting_lines pl
		JOIN accounts a ON pl.account_id = a.account_id
		WHERE pl.account_id = $1 AND a.owner_id = $2
	`
	orderByClause := `ORDER BY pl.created_at DESC, pl.line_id DESC`
	args := []interface{}{accountID, ownerID}

	if nextToken != nil && *nextToken != "" {
		fields, decodeErr := pagination.DecodeMultiFieldToken(*nextToken)
		if decodeErr != nil || len(fields) != 2 {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		lastCreatedAt, parseErr := time.Parse(time.RFC3339Nano, fields[0])
		if parseErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", parseErr)
		}
		args = append(args, lastCreatedAt, fields[1])
		baseQuery += ` AND (pl.created_at, pl.line_id) < ($3, $4)`
	}

	args = append(args, fetchLimit)
	query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)) + ";"

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query posting lines for account "+accountID, err)
	}
	defer rows.Close()

	lines := make([]domain.PostingLine, 0, fetchLimit)
	for rows.Next() {
		line, scanErr := scanLine(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan posting line row for account "+accountID, scanErr)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating posting line rows for account "+accountID, err)
	}

	var nextTokenVal *string
	if len(lines) > limit {
		lines = lines[:limit]
		last := lines[len(lines)-1]
		token := pagination.EncodeMultiFieldToken(last.CreatedAt.Format(time.RFC3339Nano), last.LineID)
		nextTokenVal = &token
	}
	return lines, nextTokenVal, nil
}

// FindIdempotencyRecord retrieves the record for an event ID.
func (r *PgxJournalRepository) FindIdempotencyRecord(ctx context.Context, eventID string) (*domain.IdempotencyRecord, error) {
	query := `
		SELECT event_id, entry_id, owner_id, applied_at
		FROM idempotency_records
		WHERE event_id = $1;
	`
	var record domain.IdempotencyRecord
	err := r.Pool.QueryRow(ctx, query, eventID).Scan(
		&record.EventID,
		&record.EntryID,
		&record.OwnerID,
		&record.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find idempotency record for event "+eventID, err)
	}
	return &record, nil
}

// PruneIdempotencyRecords deletes records applied before the cutoff.
func (r *PgxJournalRepository) PruneIdempotencyRecords(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE applied_at < $1;`

	cmdTag, err := r.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to prune idempotency records", err)
	}
	return cmdTag.RowsAffected(), nil
}
