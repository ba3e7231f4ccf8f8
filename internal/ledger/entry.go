// Package ledger holds the double-entry rules shared by every write path:
// line validation, totals and the balance check. It performs no I/O.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Tolerance is the largest accepted difference between total debits and
// total credits of one entry.
var Tolerance = decimal.New(1, -2)

// MinLines is the smallest number of lines a journal entry may have.
const MinLines = 2

// MaxAmount is the largest amount a line or an entry total may carry.
// Amounts are stored as NUMERIC(15,2).
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// Line is one side of a journal entry as seen by the validator.
type Line struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Totals is the debit and credit rollup of a set of lines.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// ValidateLines checks the shape of every line and returns all problems
// found, combined. It does not check the balance.
func ValidateLines(lines []Line) error {
	if len(lines) < MinLines {
		return ErrTooFewLines
	}

	var errs error
	for i, l := range lines {
		if l.AccountID == "" {
			errs = multierr.Append(errs, &LineError{Index: i, Reason: "account is required"})
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			errs = multierr.Append(errs, &LineError{Index: i, Reason: "amounts must not be negative"})
			continue
		}
		if !l.Debit.Equal(l.Debit.Round(2)) || !l.Credit.Equal(l.Credit.Round(2)) {
			errs = multierr.Append(errs, &LineError{Index: i, Reason: "amounts must have at most 2 decimal places"})
		}
		if l.Debit.GreaterThan(MaxAmount) || l.Credit.GreaterThan(MaxAmount) {
			errs = multierr.Append(errs, &LineError{Index: i, Reason: "amount exceeds " + MaxAmount.StringFixed(2)})
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			errs = multierr.Append(errs, &LineError{Index: i, Reason: "line must carry exactly one of debit or credit"})
		}
	}
	return errs
}

// Sum adds up the debit and credit sides of lines.
func Sum(lines []Line) Totals {
	t := Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, l := range lines {
		t.Debit = t.Debit.Add(l.Debit)
		t.Credit = t.Credit.Add(l.Credit)
	}
	return t
}

// CheckBalance enforces debits == credits within Tolerance and rejects
// entries that move no money or more than MaxAmount.
func CheckBalance(t Totals) error {
	if t.Debit.GreaterThan(MaxAmount) || t.Credit.GreaterThan(MaxAmount) {
		return &TotalTooLargeError{Debit: t.Debit, Credit: t.Credit}
	}
	if t.Debit.Sub(t.Credit).Abs().GreaterThan(Tolerance) {
		return &UnbalancedEntryError{Debit: t.Debit, Credit: t.Credit}
	}
	if t.Debit.IsZero() {
		return ErrZeroAmountEntry
	}
	return nil
}

// Validate runs ValidateLines and CheckBalance and returns the totals to
// store on the entry header.
func Validate(lines []Line) (Totals, error) {
	if err := ValidateLines(lines); err != nil {
		return Totals{}, err
	}
	t := Sum(lines)
	if err := CheckBalance(t); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// AccountIDs returns the distinct account ids referenced by the given line
// sets, sorted. Balance rows are locked in this order.
func AccountIDs(sets ...[]Line) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, lines := range sets {
		for _, l := range lines {
			if _, ok := seen[l.AccountID]; ok {
				continue
			}
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Reverse swaps the debit and credit side of every line.
func Reverse(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{AccountID: l.AccountID, Debit: l.Credit, Credit: l.Debit}
	}
	return out
}
