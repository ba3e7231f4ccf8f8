package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultEntryLimit = 50
	maxEntryLimit     = 500
)

// PostEntry validates a journal entry and writes it together with the
// balance recompute of every account it touches.
func (s *DefaultService) PostEntry(
	ctx context.Context,
	userID string,
	req models.PostEntryRequest,
) (*models.JournalEntry, error) {
	start := time.Now()

	if req.Entry.CompanyID == "" {
		return nil, s.reject(ledger.ErrMissingCompany)
	}
	if err := s.requireAccess(ctx, req.Entry.CompanyID, userID, PermissionWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Entry.EntryNumber) == "" {
		return nil, s.reject(ledger.ErrMissingEntryNumber)
	}

	lines := toLedgerLines(req.Details)
	totals, err := ledger.Validate(lines)
	if err != nil {
		return nil, s.reject(err)
	}
	if err := s.checkPostable(ctx, req.Entry.CompanyID, lines); err != nil {
		return nil, s.reject(err)
	}

	entry := &models.JournalEntry{
		ID:          uuid.New().String(),
		CompanyID:   req.Entry.CompanyID,
		CreatedBy:   userID,
		TotalDebit:  totals.Debit,
		TotalCredit: totals.Credit,
	}
	applyHeader(entry, req.Entry)

	details := toDetails(req.Details)
	if err := s.repo.CreateJournalEntry(ctx, entry, details, userID); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntryNumber) {
			return nil, s.reject(err)
		}
		return nil, fmt.Errorf("error creating journal entry: %w", err)
	}

	s.recordWrite(models.ActionPost, entry, ledger.AccountIDs(lines), start)
	return entry, nil
}

// UpdateEntry rewrites the header of an entry. When req.Details is present
// the lines are replaced as a whole and validated like a new posting.
func (s *DefaultService) UpdateEntry(
	ctx context.Context,
	userID string,
	entryID string,
	req models.UpdateEntryRequest,
) (*models.JournalEntry, error) {
	start := time.Now()

	current, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, current.CompanyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	entry := &models.JournalEntry{
		ID:                current.ID,
		EntryNumber:       current.EntryNumber,
		Date:              current.Date,
		Description:       current.Description,
		DescriptionArabic: current.DescriptionArabic,
		Reference:         current.Reference,
		CompanyID:         current.CompanyID,
		TotalDebit:        current.TotalDebit,
		TotalCredit:       current.TotalCredit,
		ReversalOf:        current.ReversalOf,
	}
	applyPatch(entry, req.Entry)

	var (
		details []models.JournalEntryDetail
		touched []string
	)
	if req.Details != nil {
		lines := toLedgerLines(req.Details)
		totals, err := ledger.Validate(lines)
		if err != nil {
			return nil, s.reject(err)
		}
		if err := s.checkPostable(ctx, current.CompanyID, lines); err != nil {
			return nil, s.reject(err)
		}

		entry.TotalDebit = totals.Debit
		entry.TotalCredit = totals.Credit
		details = toDetails(req.Details)
		touched = ledger.AccountIDs(lines, detailLines(current.Details))
	}

	if err := s.repo.UpdateJournalEntry(ctx, entry, details, userID); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntryNumber) {
			return nil, s.reject(err)
		}
		return nil, fmt.Errorf("error updating journal entry: %w", err)
	}
	if details == nil {
		entry.Details = current.Details
	}

	s.recordWrite(models.ActionUpdate, entry, touched, start)
	return entry, nil
}

// DeleteEntry removes an entry and retracts its effect on the balances.
func (s *DefaultService) DeleteEntry(ctx context.Context, userID, entryID string) error {
	start := time.Now()

	current, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, current.CompanyID, userID, PermissionWrite); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteJournalEntry(ctx, entryID, userID)
	if err != nil {
		return fmt.Errorf("error deleting journal entry: %w", err)
	}

	s.recordWrite(models.ActionDelete, deleted, ledger.AccountIDs(detailLines(deleted.Details)), start)
	return nil
}

// ReverseEntry posts a new entry with the debit and credit sides of the
// original swapped. The original entry is kept.
func (s *DefaultService) ReverseEntry(
	ctx context.Context,
	userID string,
	entryID string,
	req models.ReverseEntryRequest,
) (*models.JournalEntry, error) {
	start := time.Now()

	original, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, original.CompanyID, userID, PermissionWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.EntryNumber) == "" {
		return nil, s.reject(ledger.ErrMissingEntryNumber)
	}
	if original.ReversalOf != nil {
		return nil, s.reject(ledger.ErrReversalOfReversal)
	}
	reversed, err := s.repo.HasReversal(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking reversals: %w", err)
	}
	if reversed {
		return nil, s.reject(ledger.ErrAlreadyReversed)
	}

	lines := ledger.Reverse(detailLines(original.Details))
	if err := s.checkPostable(ctx, original.CompanyID, lines); err != nil {
		return nil, s.reject(err)
	}

	date := req.Date.Time
	if date.IsZero() {
		date = time.Now().UTC()
	}
	details := make([]models.JournalEntryDetail, len(lines))
	for i, l := range lines {
		details[i] = models.JournalEntryDetail{
			AccountID:         l.AccountID,
			Debit:             l.Debit,
			Credit:            l.Credit,
			Description:       original.Details[i].Description,
			DescriptionArabic: original.Details[i].DescriptionArabic,
		}
	}

	originalID := original.ID
	entry := &models.JournalEntry{
		ID:                uuid.New().String(),
		EntryNumber:       strings.TrimSpace(req.EntryNumber),
		Date:              date,
		Description:       "Reversal of " + original.EntryNumber,
		DescriptionArabic: original.DescriptionArabic,
		Reference:         original.EntryNumber,
		TotalDebit:        original.TotalCredit,
		TotalCredit:       original.TotalDebit,
		CompanyID:         original.CompanyID,
		CreatedBy:         userID,
		ReversalOf:        &originalID,
	}

	if err := s.repo.CreateJournalEntry(ctx, entry, details, userID); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntryNumber) || errors.Is(err, ledger.ErrAlreadyReversed) {
			return nil, s.reject(err)
		}
		return nil, fmt.Errorf("error reversing journal entry: %w", err)
	}

	s.recordWrite(models.ActionReverse, entry, ledger.AccountIDs(lines), start)
	return entry, nil
}

func (s *DefaultService) GetJournalEntry(ctx context.Context, userID, entryID string) (*models.JournalEntry, error) {
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, entry.CompanyID, userID, PermissionRead); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListJournalEntries returns the newest entries of a company first.
func (s *DefaultService) ListJournalEntries(
	ctx context.Context,
	userID string,
	companyID string,
	limit int,
) ([]models.JournalEntry, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultEntryLimit
	}
	if limit > maxEntryLimit {
		limit = maxEntryLimit
	}

	entries, err := s.repo.GetJournalEntries(ctx, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("error getting journal entries: %w", err)
	}
	return entries, nil
}

func (s *DefaultService) loadEntry(ctx context.Context, entryID string) (*models.JournalEntry, error) {
	entry, err := s.repo.GetJournalEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("error getting journal entry: %w", err)
	}
	if entry == nil {
		return nil, &ledger.NotFoundError{Resource: "journal entry", ID: entryID}
	}
	return entry, nil
}

// checkPostable verifies that every account on lines exists, belongs to the
// company and is not a parent (grouping) account.
func (s *DefaultService) checkPostable(ctx context.Context, companyID string, lines []ledger.Line) error {
	ids := ledger.AccountIDs(lines)
	accounts, err := s.repo.GetAccountsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("error getting accounts: %w", err)
	}

	byID := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	var errs error
	for _, id := range ids {
		a, ok := byID[id]
		switch {
		case !ok:
			errs = multierr.Append(errs, &ledger.InvalidAccountError{AccountID: id, Reason: "account does not exist"})
		case a.CompanyID != companyID:
			errs = multierr.Append(errs, &ledger.InvalidAccountError{AccountID: id, Reason: "account belongs to another company"})
		case a.IsParent:
			errs = multierr.Append(errs, &ledger.InvalidAccountError{AccountID: id, Reason: "parent accounts cannot be posted to"})
		}
	}
	return errs
}

// reject logs and counts a write refused before anything was stored.
func (s *DefaultService) reject(err error) error {
	reason := rejectionReason(err)
	s.metrics.IncrRejection(reason)
	s.logger.Warn("journal entry rejected", zap.String("reason", reason), zap.Error(err))
	return err
}

func (s *DefaultService) recordWrite(action string, entry *models.JournalEntry, touched []string, start time.Time) {
	s.metrics.IncrEntry(action)
	s.metrics.AddRecomputes(len(touched))
	s.metrics.ObserveWrite(action, time.Since(start))

	s.logger.Info("journal entry written",
		zap.String("action", action),
		zap.String("company_id", entry.CompanyID),
		zap.String("entry_id", entry.ID),
		zap.String("entry_number", entry.EntryNumber),
		zap.Int("accounts", len(touched)),
	)
}

func rejectionReason(err error) string {
	var (
		unbalanced *ledger.UnbalancedEntryError
		tooLarge   *ledger.TotalTooLargeError
		accountErr *ledger.InvalidAccountError
		lineErr    *ledger.LineError
	)
	switch {
	case errors.As(err, &unbalanced):
		return "unbalanced"
	case errors.As(err, &tooLarge):
		return "amount_too_large"
	case errors.Is(err, ledger.ErrTooFewLines):
		return "too_few_lines"
	case errors.Is(err, ledger.ErrZeroAmountEntry):
		return "zero_amount"
	case errors.As(err, &accountErr):
		return "invalid_account"
	case errors.As(err, &lineErr):
		return "invalid_line"
	case errors.Is(err, ledger.ErrDuplicateEntryNumber):
		return "duplicate_entry_number"
	case errors.Is(err, ledger.ErrMissingEntryNumber), errors.Is(err, ledger.ErrMissingCompany):
		return "missing_header"
	case errors.Is(err, ledger.ErrAlreadyReversed), errors.Is(err, ledger.ErrReversalOfReversal):
		return "already_reversed"
	}
	return "other"
}

func applyHeader(entry *models.JournalEntry, h models.JournalEntryHeader) {
	entry.EntryNumber = strings.TrimSpace(h.EntryNumber)
	entry.Date = h.Date.Time
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	entry.Description = h.Description
	entry.DescriptionArabic = h.DescriptionArabic
	entry.Reference = h.Reference
}

// applyPatch overwrites the header fields present in p. A blank entry
// number or a zero date keeps the stored value.
func applyPatch(entry *models.JournalEntry, p models.JournalEntryPatch) {
	if p.EntryNumber != nil {
		if n := strings.TrimSpace(*p.EntryNumber); n != "" {
			entry.EntryNumber = n
		}
	}
	if p.Date != nil && !p.Date.IsZero() {
		entry.Date = p.Date.Time
	}
	if p.Description != nil {
		entry.Description = *p.Description
	}
	if p.DescriptionArabic != nil {
		entry.DescriptionArabic = *p.DescriptionArabic
	}
	if p.Reference != nil {
		entry.Reference = *p.Reference
	}
}

func toLedgerLines(req []models.JournalLineRequest) []ledger.Line {
	lines := make([]ledger.Line, len(req))
	for i, l := range req {
		lines[i] = ledger.Line{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit}
	}
	return lines
}

func toDetails(req []models.JournalLineRequest) []models.JournalEntryDetail {
	details := make([]models.JournalEntryDetail, len(req))
	for i, l := range req {
		details[i] = models.JournalEntryDetail{
			AccountID:         l.AccountID,
			Debit:             l.Debit,
			Credit:            l.Credit,
			Description:       l.Description,
			DescriptionArabic: l.DescriptionArabic,
		}
	}
	return details
}

func detailLines(details []models.JournalEntryDetail) []ledger.Line {
	lines := make([]ledger.Line, len(details))
	for i, d := range details {
		lines[i] = ledger.Line{AccountID: d.AccountID, Debit: d.Debit, Credit: d.Credit}
	}
	return lines
}
