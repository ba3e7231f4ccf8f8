package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/shopspring/decimal"
)

type lineTotals struct {
	Debit  decimal.Decimal `db:"debit"`
	Credit decimal.Decimal `db:"credit"`
}

// recomputeBalanceTx rebuilds the balance row of (accountID, companyID) from
// the journal lines and returns the row as it was before and after.
//
// The row is locked before the lines are summed. A concurrent writer on the
// same account waits on that lock and, once it gets it, sums with a fresh
// snapshot that includes the lines the first writer committed.
func recomputeBalanceTx(ctx context.Context, tx *sqlx.Tx, accountID, companyID string) (before, after models.AccountBalance, err error) {
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, company_id, debit_balance, credit_balance, net_balance, last_updated)
		VALUES ($1, $2, 0, 0, 0, $3)
		ON CONFLICT (account_id, company_id) DO NOTHING
	`, accountID, companyID, now)
	if err != nil {
		return before, after, err
	}

	err = tx.GetContext(ctx, &before, `
		SELECT * FROM account_balances
		WHERE account_id = $1 AND company_id = $2
		FOR UPDATE
	`, accountID, companyID)
	if err != nil {
		return before, after, err
	}

	var totals lineTotals
	err = tx.GetContext(ctx, &totals, `
		SELECT COALESCE(SUM(d.debit), 0) AS debit, COALESCE(SUM(d.credit), 0) AS credit
		FROM journal_entry_details d
		JOIN journal_entries e ON e.id = d.journal_entry_id
		WHERE d.account_id = $1 AND e.company_id = $2
	`, accountID, companyID)
	if err != nil {
		return before, after, err
	}

	after = models.AccountBalance{
		AccountID:     accountID,
		CompanyID:     companyID,
		DebitBalance:  totals.Debit,
		CreditBalance: totals.Credit,
		NetBalance:    totals.Debit.Sub(totals.Credit),
		LastUpdated:   now,
	}

	_, err = tx.NamedExecContext(ctx, `
		UPDATE account_balances
		SET debit_balance = :debit_balance, credit_balance = :credit_balance,
			net_balance = :net_balance, last_updated = :last_updated
		WHERE account_id = :account_id AND company_id = :company_id
	`, after)
	return before, after, err
}

func recomputeBalancesTx(ctx context.Context, tx *sqlx.Tx, companyID string, accountIDs []string) error {
	for _, id := range accountIDs {
		if _, _, err := recomputeBalanceTx(ctx, tx, id, companyID); err != nil {
			return err
		}
	}
	return nil
}

// Balance repository methods
func (r *PostgresRepository) RecomputeBalance(ctx context.Context, accountID, companyID string) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, after, err := recomputeBalanceTx(ctx, tx, accountID, companyID)
		balance = after
		return err
	})
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ReconcileCompany recomputes every balance of a company and reports the
// rows whose cached values did not match the journal lines.
func (r *PostgresRepository) ReconcileCompany(ctx context.Context, companyID string) (int, []models.BalanceDrift, error) {
	drift := []models.BalanceDrift{}
	checked := 0

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var ids []string
		err := tx.SelectContext(ctx, &ids, `
			SELECT id FROM accounts WHERE company_id = $1
			UNION
			SELECT account_id FROM account_balances WHERE company_id = $1
			ORDER BY 1
		`, companyID)
		if err != nil {
			return err
		}

		for _, id := range ids {
			before, after, err := recomputeBalanceTx(ctx, tx, id, companyID)
			if err != nil {
				return err
			}
			checked++
			if !sameAmounts(before, after) {
				drift = append(drift, models.BalanceDrift{
					AccountID: id,
					CompanyID: companyID,
					Cached:    before,
					Actual:    after,
				})
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return checked, drift, nil
}

func sameAmounts(a, b models.AccountBalance) bool {
	return a.DebitBalance.Equal(b.DebitBalance) &&
		a.CreditBalance.Equal(b.CreditBalance) &&
		a.NetBalance.Equal(b.NetBalance)
}

func (r *PostgresRepository) GetAccountBalances(ctx context.Context, companyID string) ([]models.AccountBalance, error) {
	query := `SELECT * FROM account_balances WHERE company_id = $1 ORDER BY account_id`

	balances := []models.AccountBalance{}
	if err := r.db.SelectContext(ctx, &balances, query, companyID); err != nil {
		return nil, err
	}

	return balances, nil
}

func (r *PostgresRepository) GetFinancialSummary(ctx context.Context, companyID string) (*models.FinancialSummary, error) {
	var totals struct {
		Revenue  decimal.Decimal `db:"total_revenue"`
		Expenses decimal.Decimal `db:"total_expenses"`
	}
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			COALESCE(SUM(CASE WHEN a.type = 'revenue' THEN b.credit_balance END), 0) AS total_revenue,
			COALESCE(SUM(CASE WHEN a.type = 'expenses' THEN b.debit_balance END), 0) AS total_expenses
		FROM account_balances b
		JOIN accounts a ON a.id = b.account_id
		WHERE b.company_id = $1
	`, companyID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts WHERE company_id = $1`, companyID); err != nil {
		return nil, err
	}

	return &models.FinancialSummary{
		TotalRevenue:  totals.Revenue,
		TotalExpenses: totals.Expenses,
		NetProfit:     totals.Revenue.Sub(totals.Expenses),
		TotalAccounts: count,
	}, nil
}
