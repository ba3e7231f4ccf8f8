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

// Company repository methods
func (r *PostgresRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		// Generate a new UUID if not provided
		if company.ID == "" {
			company.ID = uuid.New().String()
		}

		now := time.Now().UTC()
		company.CreatedAt = now
		company.UpdatedAt = now

		query := `
			INSERT INTO companies (id, name, name_arabic, tax_number, address, phone, email, is_active, created_by, created_at, updated_at)
			VALUES (:id, :name, :name_arabic, :tax_number, :address, :phone, :email, :is_active, :created_by, :created_at, :updated_at)
		`
		if _, err := tx.NamedExecContext(ctx, query, company); err != nil {
			return err
		}

		// The creator always gets write access
		companyUser := &models.CompanyUser{
			CompanyID:   company.ID,
			UserID:      company.CreatedBy,
			Permissions: "write",
			CreatedAt:   now,
		}
		if err := r.addUserToCompanyTx(ctx, tx, companyUser); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO company_sequences (company_id, current_sequence) VALUES ($1, 0)`,
			company.ID)
		return err
	})
}

func (r *PostgresRepository) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	query := `SELECT * FROM companies WHERE id = $1`

	var company models.Company
	err := r.db.GetContext(ctx, &company, query, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Company not found
		}
		return nil, err
	}

	return &company, nil
}

func (r *PostgresRepository) GetUserCompanies(ctx context.Context, userID string) ([]models.Company, error) {
	query := `
		SELECT c.* FROM companies c
		JOIN company_users cu ON c.id = cu.company_id
		WHERE cu.user_id = $1
		ORDER BY c.name
	`

	companies := []models.Company{}
	if err := r.db.SelectContext(ctx, &companies, query, userID); err != nil {
		return nil, err
	}

	return companies, nil
}

func (r *PostgresRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM companies ORDER BY id`); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresRepository) UpdateCompany(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE companies
		SET name = :name, name_arabic = :name_arabic, tax_number = :tax_number, address = :address,
			phone = :phone, email = :email, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, company)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Resource: "company", ID: company.ID}
	}
	return nil
}

func (r *PostgresRepository) DeleteCompany(ctx context.Context, companyID string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		// Children first, in foreign key order
		statements := []string{
			`DELETE FROM ledger_events WHERE company_id = $1`,
			`DELETE FROM account_balances WHERE company_id = $1`,
			`DELETE FROM journal_entries WHERE company_id = $1`,
			`DELETE FROM accounts WHERE company_id = $1`,
			`DELETE FROM company_sequences WHERE company_id = $1`,
			`DELETE FROM company_users WHERE company_id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, companyID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, companyID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &ledger.NotFoundError{Resource: "company", ID: companyID}
		}
		return nil
	})
}

// Company sharing repository methods
// addUserToCompanyTx is a helper method that adds a user to a company within an existing transaction
func (r *PostgresRepository) addUserToCompanyTx(ctx context.Context, tx *sqlx.Tx, companyUser *models.CompanyUser) error {
	if companyUser.CreatedAt.IsZero() {
		companyUser.CreatedAt = time.Now().UTC()
	}

	// Update the permissions if the user is already added
	query := `
		INSERT INTO company_users (company_id, user_id, permissions, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_id, user_id) DO UPDATE SET permissions = EXCLUDED.permissions
	`
	_, err := tx.ExecContext(ctx, query,
		companyUser.CompanyID, companyUser.UserID, companyUser.Permissions, companyUser.CreatedAt)
	return err
}

func (r *PostgresRepository) AddUserToCompany(ctx context.Context, companyUser *models.CompanyUser) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		return r.addUserToCompanyTx(ctx, tx, companyUser)
	})
}

func (r *PostgresRepository) CheckCompanyAccess(
	ctx context.Context,
	companyID string,
	userID string,
	requiredPermission string,
) (bool, error) {
	query := `SELECT permissions FROM company_users WHERE company_id = $1 AND user_id = $2`

	var permission string
	err := r.db.GetContext(ctx, &permission, query, companyID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil // No access
		}
		return false, err
	}

	// Write implies read
	if requiredPermission == "write" {
		return permission == "write", nil
	}

	return true, nil
}

func (r *PostgresRepository) GetCompanyUsers(ctx context.Context, companyID string) ([]models.CompanyUser, error) {
	query := `SELECT * FROM company_users WHERE company_id = $1 ORDER BY created_at, user_id`

	var companyUsers []models.CompanyUser
	err := r.db.SelectContext(ctx, &companyUsers, query, companyID)
	if err != nil {
		return nil, err
	}

	return companyUsers, nil
}
