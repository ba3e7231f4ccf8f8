package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors. All of them are raised before anything is written.
var (
	ErrMissingEntryNumber   = errors.New("entry number is required")
	ErrMissingCompany       = errors.New("company is required")
	ErrTooFewLines          = errors.New("journal entry needs at least two lines")
	ErrZeroAmountEntry      = errors.New("journal entry total is zero")
	ErrInvalidAccountType   = errors.New("account type must be one of assets, liabilities, equity, revenue, expenses")
	ErrDuplicateCode        = errors.New("account code already exists")
	ErrDuplicateEntryNumber = errors.New("entry number already exists")
)

// Referential and access errors.
var (
	ErrAccountInUse       = errors.New("account has posted journal lines")
	ErrAccountHasChildren = errors.New("account has sub-accounts")
	ErrAlreadyReversed    = errors.New("journal entry has already been reversed")
	ErrReversalOfReversal = errors.New("a reversing entry cannot itself be reversed")
	ErrForbidden          = errors.New("you don't have permission for this company")
)

// UnbalancedEntryError reports an entry whose debits and credits differ by
// more than Tolerance.
type UnbalancedEntryError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("total debits (%s) must equal total credits (%s)",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// TotalTooLargeError reports an entry whose totals do not fit the stored
// amount range.
type TotalTooLargeError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *TotalTooLargeError) Error() string {
	return fmt.Sprintf("entry totals (%s / %s) exceed %s",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2), MaxAmount.StringFixed(2))
}

// LineError describes a problem with a single journal line.
type LineError struct {
	Index  int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index+1, e.Reason)
}

// InvalidAccountError is returned when a line or a parent reference points
// at an account that cannot be used.
type InvalidAccountError struct {
	AccountID string
	Reason    string
}

func (e *InvalidAccountError) Error() string {
	return fmt.Sprintf("invalid account %s: %s", e.AccountID, e.Reason)
}

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	var (
		unbalanced *UnbalancedEntryError
		tooLarge   *TotalTooLargeError
		lineErr    *LineError
		accountErr *InvalidAccountError
	)
	return errors.Is(err, ErrMissingEntryNumber) ||
		errors.Is(err, ErrMissingCompany) ||
		errors.Is(err, ErrTooFewLines) ||
		errors.Is(err, ErrZeroAmountEntry) ||
		errors.Is(err, ErrInvalidAccountType) ||
		errors.As(err, &unbalanced) ||
		errors.As(err, &tooLarge) ||
		errors.As(err, &lineErr) ||
		errors.As(err, &accountErr)
}
