package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
)

// Account repository methods
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, code, name, name_arabic, type, sub_type, parent_id, level,
			is_parent, is_active, company_id, created_by, created_at, updated_at)
		VALUES (:id, :code, :name, :name_arabic, :type, :sub_type, :parent_id, :level,
			:is_parent, :is_active, :company_id, :created_by, :created_at, :updated_at)
	`

	// Generate a new UUID if not provided
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, query, account)
	return mapConstraintError(err)
}

func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT * FROM accounts WHERE id = $1`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Account not found
		}
		return nil, err
	}

	return &account, nil
}

func (r *PostgresRepository) GetAccountByCode(ctx context.Context, code, companyID string) (*models.Account, error) {
	query := `SELECT * FROM accounts WHERE code = $1 AND company_id = $2`

	var account models.Account
	err := r.db.GetContext(ctx, &account, query, code, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Account not found
		}
		return nil, err
	}

	return &account, nil
}

func (r *PostgresRepository) GetAccounts(ctx context.Context, companyID string) ([]models.Account, error) {
	query := `SELECT * FROM accounts WHERE company_id = $1 ORDER BY code ASC`

	accounts := []models.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, companyID); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PostgresRepository) GetAccountsByIDs(ctx context.Context, ids []string) ([]models.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM accounts WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE accounts
		SET code = :code, name = :name, name_arabic = :name_arabic, type = :type, sub_type = :sub_type,
			parent_id = :parent_id, level = :level, is_parent = :is_parent, is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return mapConstraintError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Resource: "account", ID: account.ID}
	}
	return nil
}

// DeleteAccount removes an account that no journal line and no sub-account
// references.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, id string) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var locked string
		err := tx.GetContext(ctx, &locked, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &ledger.NotFoundError{Resource: "account", ID: id}
			}
			return err
		}

		var inUse bool
		err = tx.GetContext(ctx, &inUse,
			`SELECT EXISTS(SELECT 1 FROM journal_entry_details WHERE account_id = $1)`, id)
		if err != nil {
			return err
		}
		if inUse {
			return ledger.ErrAccountInUse
		}

		var hasChildren bool
		err = tx.GetContext(ctx, &hasChildren,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE parent_id = $1)`, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return ledger.ErrAccountHasChildren
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
		return err
	})
	return mapConstraintError(err)
}
