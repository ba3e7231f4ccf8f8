package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/models"
)

func eventFor(entry *models.JournalEntry, actorID, action string) *models.LedgerEvent {
	return &models.LedgerEvent{
		CompanyID:   entry.CompanyID,
		UserID:      actorID,
		Action:      action,
		EntryID:     entry.ID,
		EntryNumber: entry.EntryNumber,
		TotalDebit:  entry.TotalDebit,
	}
}

// appendEventTx assigns the next company sequence number to event and stores it.
func appendEventTx(ctx context.Context, tx *sqlx.Tx, event *models.LedgerEvent) error {
	// Get and increment the sequence number atomically
	err := tx.QueryRowContext(ctx, `
		INSERT INTO company_sequences (company_id, current_sequence)
		VALUES ($1, 1)
		ON CONFLICT (company_id) DO UPDATE SET current_sequence = company_sequences.current_sequence + 1
		RETURNING current_sequence
	`, event.CompanyID).Scan(&event.SequenceNumber)
	if err != nil {
		return err
	}

	// Generate a new UUID if not provided
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO ledger_events (id, company_id, user_id, sequence_number, action, entry_id, entry_number, total_debit, timestamp)
		VALUES (:id, :company_id, :user_id, :sequence_number, :action, :entry_id, :entry_number, :total_debit, :timestamp)
	`
	_, err = tx.NamedExecContext(ctx, query, event)
	return err
}

// Ledger event repository methods
func (r *PostgresRepository) GetLedgerEventsBySequenceRange(
	ctx context.Context,
	companyID string,
	fromSeq,
	toSeq int64,
) ([]models.LedgerEvent, error) {
	query := `
		SELECT * FROM ledger_events
		WHERE company_id = $1 AND sequence_number >= $2
	`

	args := []interface{}{companyID, fromSeq}

	// Add toSeq condition if provided
	if toSeq > 0 {
		query += ` AND sequence_number <= $3`
		args = append(args, toSeq)
	}

	query += ` ORDER BY sequence_number ASC`

	events := []models.LedgerEvent{}
	err := r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *PostgresRepository) GetLatestSequenceNumber(ctx context.Context, companyID string) (int64, error) {
	query := `SELECT current_sequence FROM company_sequences WHERE company_id = $1`

	var seqNum int64
	err := r.db.GetContext(ctx, &seqNum, query, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil // Return 0 if no sequence exists yet
		}
		return 0, err
	}

	return seqNum, nil
}
