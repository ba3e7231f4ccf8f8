package service

import (
	"context"
	"fmt"

	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (s *DefaultService) GetAccountBalances(ctx context.Context, userID, companyID string) ([]models.AccountBalance, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	balances, err := s.repo.GetAccountBalances(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting account balances: %w", err)
	}
	return balances, nil
}

// GetFinancialSummary rolls the cached balances up into revenue, expenses
// and net profit.
func (s *DefaultService) GetFinancialSummary(ctx context.Context, userID, companyID string) (*models.FinancialSummary, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	summary, err := s.repo.GetFinancialSummary(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting financial summary: %w", err)
	}
	return summary, nil
}

// RecomputeBalance rebuilds the cached balance of one account from its
// journal lines. Running it again without new postings yields the same row.
func (s *DefaultService) RecomputeBalance(ctx context.Context, userID, companyID, accountID string) (*models.AccountBalance, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.CompanyID != companyID {
		return nil, &ledger.NotFoundError{Resource: "account", ID: accountID}
	}

	balance, err := s.repo.RecomputeBalance(ctx, accountID, companyID)
	if err != nil {
		return nil, fmt.Errorf("error recomputing balance: %w", err)
	}

	s.metrics.AddRecomputes(1)
	s.logger.Info("balance recomputed",
		zap.String("company_id", companyID),
		zap.String("account_id", accountID),
		zap.String("net_balance", balance.NetBalance.StringFixed(2)),
	)
	return balance, nil
}

// ReconcileBalances recomputes every balance of one company from its
// journal lines and reports the rows that had drifted.
func (s *DefaultService) ReconcileBalances(ctx context.Context, userID, companyID string) (*models.ReconcileResponse, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionWrite); err != nil {
		return nil, err
	}
	return s.reconcile(ctx, companyID)
}

// ReconcileAll reconciles the given companies, or every company when none
// are given, running at most concurrency companies at a time.
func (s *DefaultService) ReconcileAll(ctx context.Context, companyIDs []string, concurrency int) ([]models.ReconcileResponse, error) {
	if len(companyIDs) == 0 {
		ids, err := s.repo.ListCompanyIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing companies: %w", err)
		}
		companyIDs = ids
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]models.ReconcileResponse, len(companyIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range companyIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := s.reconcile(gctx, id)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *DefaultService) reconcile(ctx context.Context, companyID string) (*models.ReconcileResponse, error) {
	checked, drift, err := s.repo.ReconcileCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error reconciling company %s: %w", companyID, err)
	}

	s.metrics.AddRecomputes(checked)
	s.metrics.AddDrift(len(drift))

	for _, d := range drift {
		s.logger.Warn("balance drift corrected",
			zap.String("company_id", companyID),
			zap.String("account_id", d.AccountID),
			zap.String("cached_net", d.Cached.NetBalance.StringFixed(2)),
			zap.String("actual_net", d.Actual.NetBalance.StringFixed(2)),
		)
	}
	s.logger.Info("company reconciled",
		zap.String("company_id", companyID),
		zap.Int("accounts_checked", checked),
		zap.Int("drift", len(drift)),
	)

	return &models.ReconcileResponse{
		Status:          "success",
		CompanyID:       companyID,
		AccountsChecked: checked,
		Drift:           drift,
	}, nil
}

// Ledger events
func (s *DefaultService) GetLedgerEvents(
	ctx context.Context,
	userID string,
	companyID string,
	fromSeq int64,
	toSeq int64,
) (*models.GetLedgerEventsResponse, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	events, err := s.repo.GetLedgerEventsBySequenceRange(ctx, companyID, fromSeq, toSeq)
	if err != nil {
		return nil, fmt.Errorf("error getting ledger events: %w", err)
	}

	latestSeq, err := s.repo.GetLatestSequenceNumber(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting latest sequence number: %w", err)
	}

	return &models.GetLedgerEventsResponse{
		Status:               "success",
		CompanyID:            companyID,
		Events:               events,
		LatestSequenceNumber: latestSeq,
	}, nil
}

// GetLatestSequenceNumber retrieves the latest event sequence number for a company
func (s *DefaultService) GetLatestSequenceNumber(
	ctx context.Context,
	userID string,
	companyID string,
) (*models.SequenceNumberResponse, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	latestSeq, err := s.repo.GetLatestSequenceNumber(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting latest sequence number: %w", err)
	}

	return &models.SequenceNumberResponse{
		Status:               "success",
		CompanyID:            companyID,
		LatestSequenceNumber: latestSeq,
	}, nil
}
