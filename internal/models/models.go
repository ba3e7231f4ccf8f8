package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Company is the tenant boundary for accounts, entries and balances
type Company struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	NameArabic string    `db:"name_arabic" json:"nameArabic"`
	TaxNumber  string    `db:"tax_number" json:"taxNumber"`
	Address    string    `db:"address" json:"address"`
	Phone      string    `db:"phone" json:"phone"`
	Email      string    `db:"email" json:"email"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	CreatedBy  string    `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// CompanyUser represents the relationship between users and companies (for sharing)
type CompanyUser struct {
	CompanyID   string    `db:"company_id" json:"companyId"`
	UserID      string    `db:"user_id" json:"userId"`
	Permissions string    `db:"permissions" json:"permissions"` // "read" or "write"
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Account is a chart-of-accounts entry
type Account struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	NameArabic string    `db:"name_arabic" json:"nameArabic"`
	Type       string    `db:"type" json:"type"`
	SubType    string    `db:"sub_type" json:"subType,omitempty"`
	ParentID   *string   `db:"parent_id" json:"parentId,omitempty"`
	Level      int       `db:"level" json:"level"`
	IsParent   bool      `db:"is_parent" json:"isParent"`
	IsActive   bool      `db:"is_active" json:"isActive"`
	CompanyID  string    `db:"company_id" json:"companyId"`
	CreatedBy  string    `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// JournalEntry is the header of one balanced transaction.
// TotalDebit and TotalCredit are a cached rollup of its lines.
type JournalEntry struct {
	ID                string          `db:"id" json:"id"`
	EntryNumber       string          `db:"entry_number" json:"entryNumber"`
	Date              time.Time       `db:"date" json:"date"`
	Description       string          `db:"description" json:"description"`
	DescriptionArabic string          `db:"description_arabic" json:"descriptionArabic"`
	Reference         string          `db:"reference" json:"reference,omitempty"`
	TotalDebit        decimal.Decimal `db:"total_debit" json:"totalDebit"`
	TotalCredit       decimal.Decimal `db:"total_credit" json:"totalCredit"`
	CompanyID         string          `db:"company_id" json:"companyId"`
	CreatedBy         string          `db:"created_by" json:"createdBy"`
	ReversalOf        *string         `db:"reversal_of" json:"reversalOf,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`

	Details []JournalEntryDetail `db:"-" json:"details,omitempty"`
}

// JournalEntryDetail is one line of a journal entry
type JournalEntryDetail struct {
	ID                string          `db:"id" json:"id"`
	JournalEntryID    string          `db:"journal_entry_id" json:"journalEntryId"`
	AccountID         string          `db:"account_id" json:"accountId"`
	LineNo            int             `db:"line_no" json:"lineNo"`
	Debit             decimal.Decimal `db:"debit" json:"debit"`
	Credit            decimal.Decimal `db:"credit" json:"credit"`
	Description       string          `db:"description" json:"description,omitempty"`
	DescriptionArabic string          `db:"description_arabic" json:"descriptionArabic,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`

	// Filled on reads only
	AccountCode string `db:"account_code" json:"accountCode,omitempty"`
	AccountName string `db:"account_name" json:"accountName,omitempty"`
}

// AccountBalance is the cached aggregate of all lines posted to an account
// within one company. It is recomputed, never edited.
type AccountBalance struct {
	AccountID     string          `db:"account_id" json:"accountId"`
	CompanyID     string          `db:"company_id" json:"companyId"`
	DebitBalance  decimal.Decimal `db:"debit_balance" json:"debitBalance"`
	CreditBalance decimal.Decimal `db:"credit_balance" json:"creditBalance"`
	NetBalance    decimal.Decimal `db:"net_balance" json:"netBalance"`
	LastUpdated   time.Time       `db:"last_updated" json:"lastUpdated"`
}

// BalanceDrift reports a cached balance that differed from the line items
// when it was reconciled
type BalanceDrift struct {
	AccountID string         `json:"accountId"`
	CompanyID string         `json:"companyId"`
	Cached    AccountBalance `json:"cached"`
	Actual    AccountBalance `json:"actual"`
}

// FinancialSummary is the dashboard rollup of a company
type FinancialSummary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`
	TotalAccounts int64           `json:"totalAccounts"`
}

// Ledger event actions
const (
	ActionPost    = "post"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReverse = "reverse"
)

// LedgerEvent records a write made to a company's journal
type LedgerEvent struct {
	ID             string          `db:"id" json:"id"`
	CompanyID      string          `db:"company_id" json:"companyId"`
	UserID         string          `db:"user_id" json:"userId"`
	SequenceNumber int64           `db:"sequence_number" json:"sequenceNumber"`
	Action         string          `db:"action" json:"action"`
	EntryID        string          `db:"entry_id" json:"entryId"`
	EntryNumber    string          `db:"entry_number" json:"entryNumber"`
	TotalDebit     decimal.Decimal `db:"total_debit" json:"totalDebit"`
	Timestamp      time.Time       `db:"timestamp" json:"timestamp"`
}
