package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
)

const insertDetailsQuery = `
	INSERT INTO journal_entry_details (id, journal_entry_id, account_id, line_no, debit, credit,
		description, description_arabic, created_at)
	VALUES (:id, :journal_entry_id, :account_id, :line_no, :debit, :credit,
		:description, :description_arabic, :created_at)
`

const detailsWithAccountQuery = `
	SELECT d.*, a.code AS account_code, a.name AS account_name
	FROM journal_entry_details d
	JOIN accounts a ON a.id = d.account_id
`

// Journal entry repository methods
func (r *PostgresRepository) CreateJournalEntry(
	ctx context.Context,
	entry *models.JournalEntry,
	details []models.JournalEntryDetail,
	actorID string,
) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		// Generate a new UUID if not provided
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}

		now := time.Now().UTC()
		entry.CreatedAt = now
		entry.UpdatedAt = now

		query := `
			INSERT INTO journal_entries (id, entry_number, date, description, description_arabic, reference,
				total_debit, total_credit, company_id, created_by, reversal_of, created_at, updated_at)
			VALUES (:id, :entry_number, :date, :description, :description_arabic, :reference,
				:total_debit, :total_credit, :company_id, :created_by, :reversal_of, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return err
		}

		if err := insertDetailsTx(ctx, tx, entry.ID, details, now); err != nil {
			return err
		}
		entry.Details = details

		if err := recomputeBalancesTx(ctx, tx, entry.CompanyID, accountIDs(details)); err != nil {
			return err
		}

		action := models.ActionPost
		if entry.ReversalOf != nil {
			action = models.ActionReverse
		}
		return appendEventTx(ctx, tx, eventFor(entry, actorID, action))
	})
	return mapConstraintError(err)
}

// UpdateJournalEntry rewrites the header of entry. When details is non-nil
// the whole line set is replaced and the balances of every account on
// either the old or the new line set are recomputed.
func (r *PostgresRepository) UpdateJournalEntry(
	ctx context.Context,
	entry *models.JournalEntry,
	details []models.JournalEntryDetail,
	actorID string,
) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockJournalEntryTx(ctx, tx, entry.ID)
		if err != nil {
			return err
		}

		entry.CompanyID = current.CompanyID
		entry.CreatedBy = current.CreatedBy
		entry.CreatedAt = current.CreatedAt
		entry.ReversalOf = current.ReversalOf
		entry.UpdatedAt = time.Now().UTC()

		if details == nil {
			entry.TotalDebit = current.TotalDebit
			entry.TotalCredit = current.TotalCredit
		}

		query := `
			UPDATE journal_entries
			SET entry_number = :entry_number, date = :date, description = :description,
				description_arabic = :description_arabic, reference = :reference,
				total_debit = :total_debit, total_credit = :total_credit, updated_at = :updated_at
			WHERE id = :id
		`
		if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
			return err
		}

		if details != nil {
			var old []models.JournalEntryDetail
			err := tx.SelectContext(ctx, &old,
				`SELECT * FROM journal_entry_details WHERE journal_entry_id = $1`, entry.ID)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx,
				`DELETE FROM journal_entry_details WHERE journal_entry_id = $1`, entry.ID); err != nil {
				return err
			}

			if err := insertDetailsTx(ctx, tx, entry.ID, details, entry.UpdatedAt); err != nil {
				return err
			}
			entry.Details = details

			if err := recomputeBalancesTx(ctx, tx, entry.CompanyID, accountIDs(old, details)); err != nil {
				return err
			}
		}

		return appendEventTx(ctx, tx, eventFor(entry, actorID, models.ActionUpdate))
	})
	return mapConstraintError(err)
}

// DeleteJournalEntry removes an entry and its lines, then recomputes the
// balances of every account the lines touched. The deleted entry is returned.
func (r *PostgresRepository) DeleteJournalEntry(ctx context.Context, id, actorID string) (*models.JournalEntry, error) {
	var deleted *models.JournalEntry

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		entry, err := lockJournalEntryTx(ctx, tx, id)
		if err != nil {
			return err
		}

		// Capture the lines before they go away
		var details []models.JournalEntryDetail
		err = tx.SelectContext(ctx, &details,
			`SELECT * FROM journal_entry_details WHERE journal_entry_id = $1 ORDER BY line_no`, id)
		if err != nil {
			return err
		}
		entry.Details = details

		if _, err := tx.ExecContext(ctx, `DELETE FROM journal_entry_details WHERE journal_entry_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = $1`, id); err != nil {
			return err
		}

		if err := recomputeBalancesTx(ctx, tx, entry.CompanyID, accountIDs(details)); err != nil {
			return err
		}

		deleted = entry
		return appendEventTx(ctx, tx, eventFor(entry, actorID, models.ActionDelete))
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *PostgresRepository) GetJournalEntry(ctx context.Context, id string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Journal entry not found
		}
		return nil, err
	}

	details := []models.JournalEntryDetail{}
	err = r.db.SelectContext(ctx, &details,
		detailsWithAccountQuery+` WHERE d.journal_entry_id = $1 ORDER BY d.line_no`, id)
	if err != nil {
		return nil, err
	}
	entry.Details = details

	return &entry, nil
}

func (r *PostgresRepository) GetJournalEntries(ctx context.Context, companyID string, limit int) ([]models.JournalEntry, error) {
	query := `
		SELECT * FROM journal_entries
		WHERE company_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT $2
	`

	entries := []models.JournalEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, companyID, limit); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	detailsQuery, args, err := sqlx.In(
		detailsWithAccountQuery+` WHERE d.journal_entry_id IN (?) ORDER BY d.journal_entry_id, d.line_no`, ids)
	if err != nil {
		return nil, err
	}

	var details []models.JournalEntryDetail
	if err := r.db.SelectContext(ctx, &details, r.db.Rebind(detailsQuery), args...); err != nil {
		return nil, err
	}

	byEntry := make(map[string][]models.JournalEntryDetail, len(entries))
	for _, d := range details {
		byEntry[d.JournalEntryID] = append(byEntry[d.JournalEntryID], d)
	}
	for i := range entries {
		entries[i].Details = byEntry[entries[i].ID]
	}

	return entries, nil
}

// HasReversal reports whether a reversing entry already points at entryID.
func (r *PostgresRepository) HasReversal(ctx context.Context, entryID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reversal_of = $1)`, entryID)
	return exists, err
}

// lockJournalEntryTx loads an entry header and holds its row lock until the
// transaction ends.
func lockJournalEntryTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := tx.GetContext(ctx, &entry, `SELECT * FROM journal_entries WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Resource: "journal entry", ID: id}
		}
		return nil, err
	}
	return &entry, nil
}

func insertDetailsTx(ctx context.Context, tx *sqlx.Tx, entryID string, details []models.JournalEntryDetail, now time.Time) error {
	for i := range details {
		details[i].ID = uuid.New().String()
		details[i].JournalEntryID = entryID
		details[i].LineNo = i + 1
		details[i].CreatedAt = now
	}
	_, err := tx.NamedExecContext(ctx, insertDetailsQuery, details)
	return err
}

// accountIDs returns the distinct accounts referenced by the line sets, sorted
// so that balance rows are always locked in the same order.
func accountIDs(sets ...[]models.JournalEntryDetail) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, details := range sets {
		for _, d := range details {
			if _, ok := seen[d.AccountID]; ok {
				continue
			}
			seen[d.AccountID] = struct{}{}
			ids = append(ids, d.AccountID)
		}
	}
	sort.Strings(ids)
	return ids
}
