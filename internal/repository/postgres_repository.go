package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Company operations
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
	GetUserCompanies(ctx context.Context, userID string) ([]models.Company, error)
	ListCompanyIDs(ctx context.Context) ([]string, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	DeleteCompany(ctx context.Context, companyID string) error

	// Company sharing operations
	AddUserToCompany(ctx context.Context, companyUser *models.CompanyUser) error
	CheckCompanyAccess(ctx context.Context, companyID, userID string, requiredPermission string) (bool, error)
	GetCompanyUsers(ctx context.Context, companyID string) ([]models.CompanyUser, error)

	// Account operations
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByCode(ctx context.Context, code, companyID string) (*models.Account, error)
	GetAccounts(ctx context.Context, companyID string) ([]models.Account, error)
	GetAccountsByIDs(ctx context.Context, ids []string) ([]models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// Journal entry operations. Every write recomputes the balances of the
	// accounts it touches and appends a ledger event in the same transaction.
	CreateJournalEntry(ctx context.Context, entry *models.JournalEntry, details []models.JournalEntryDetail, actorID string) error
	UpdateJournalEntry(ctx context.Context, entry *models.JournalEntry, details []models.JournalEntryDetail, actorID string) error
	DeleteJournalEntry(ctx context.Context, id, actorID string) (*models.JournalEntry, error)
	GetJournalEntry(ctx context.Context, id string) (*models.JournalEntry, error)
	GetJournalEntries(ctx context.Context, companyID string, limit int) ([]models.JournalEntry, error)
	HasReversal(ctx context.Context, entryID string) (bool, error)

	// Balance operations
	RecomputeBalance(ctx context.Context, accountID, companyID string) (*models.AccountBalance, error)
	ReconcileCompany(ctx context.Context, companyID string) (int, []models.BalanceDrift, error)
	GetAccountBalances(ctx context.Context, companyID string) ([]models.AccountBalance, error)
	GetFinancialSummary(ctx context.Context, companyID string) (*models.FinancialSummary, error)

	// Ledger event operations
	GetLedgerEventsBySequenceRange(ctx context.Context, companyID string, fromSeq, toSeq int64) ([]models.LedgerEvent, error)
	GetLatestSequenceNumber(ctx context.Context, companyID string) (int64, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// withTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// mapConstraintError turns Postgres constraint violations into ledger errors.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code.Name() {
	case "unique_violation":
		switch pqErr.Constraint {
		case "uq_accounts_code":
			return ledger.ErrDuplicateCode
		case "uq_journal_entries_entry_number":
			return ledger.ErrDuplicateEntryNumber
		case "uq_journal_entries_reversal_of":
			return ledger.ErrAlreadyReversed
		}
	case "foreign_key_violation":
		switch pqErr.Constraint {
		case "fk_details_account":
			return ledger.ErrAccountInUse
		case "fk_accounts_parent":
			return ledger.ErrAccountHasChildren
		}
	}
	return err
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}
