package models

import (
	"github.com/shopspring/decimal"
)

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateCompanyRequest struct {
	Name       string `json:"name" binding:"required"`
	NameArabic string `json:"nameArabic"`
	TaxNumber  string `json:"taxNumber"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type UpdateCompanyRequest struct {
	Name       *string `json:"name"`
	NameArabic *string `json:"nameArabic"`
	TaxNumber  *string `json:"taxNumber"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	IsActive   *bool   `json:"isActive"`
}

type AddUserToCompanyRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Permissions string `json:"permissions" binding:"required,oneof=read write"`
}

type CreateAccountRequest struct {
	CompanyID  string  `json:"companyId" binding:"required"`
	Code       string  `json:"code" binding:"required,max=20"`
	Name       string  `json:"name" binding:"required"`
	NameArabic string  `json:"nameArabic"`
	Type       string  `json:"type" binding:"required"`
	SubType    string  `json:"subType"`
	ParentID   *string `json:"parentId"`
	Level      int     `json:"level"`
	IsParent   bool    `json:"isParent"`
	IsActive   *bool   `json:"isActive"`
}

// UpdateAccountRequest is a partial update; nil fields are left unchanged
type UpdateAccountRequest struct {
	Code       *string `json:"code"`
	Name       *string `json:"name"`
	NameArabic *string `json:"nameArabic"`
	Type       *string `json:"type"`
	SubType    *string `json:"subType"`
	ParentID   *string `json:"parentId"`
	Level      *int    `json:"level"`
	IsParent   *bool   `json:"isParent"`
	IsActive   *bool   `json:"isActive"`
}

type JournalLineRequest struct {
	AccountID         string          `json:"accountId"`
	Debit             decimal.Decimal `json:"debit"`
	Credit            decimal.Decimal `json:"credit"`
	Description       string          `json:"description"`
	DescriptionArabic string          `json:"descriptionArabic"`
}

type JournalEntryHeader struct {
	CompanyID         string    `json:"companyId"`
	EntryNumber       string    `json:"entryNumber"`
	Date              EntryDate `json:"date"`
	Description       string    `json:"description"`
	DescriptionArabic string    `json:"descriptionArabic"`
	Reference         string    `json:"reference"`
}

// JournalEntryPatch carries the header fields of an update. Nil fields keep
// their stored value.
type JournalEntryPatch struct {
	EntryNumber       *string    `json:"entryNumber"`
	Date              *EntryDate `json:"date"`
	Description       *string    `json:"description"`
	DescriptionArabic *string    `json:"descriptionArabic"`
	Reference         *string    `json:"reference"`
}

type PostEntryRequest struct {
	Entry   JournalEntryHeader   `json:"entry"`
	Details []JournalLineRequest `json:"details" binding:"required"`
}

// UpdateEntryRequest replaces the header; when Details is present the whole
// line set is replaced as well
type UpdateEntryRequest struct {
	Entry   JournalEntryPatch    `json:"entry"`
	Details []JournalLineRequest `json:"details"`
}

type ReverseEntryRequest struct {
	EntryNumber string    `json:"entryNumber" binding:"required"`
	Date        EntryDate `json:"date"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type AddUserResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	UserID      string `json:"userId,omitempty"`
	Email       string `json:"email,omitempty"`
	Permissions string `json:"permissions,omitempty"`
}

type ReconcileResponse struct {
	Status          string         `json:"status"`
	CompanyID       string         `json:"companyId"`
	AccountsChecked int            `json:"accountsChecked"`
	Drift           []BalanceDrift `json:"drift"`
}

type GetLedgerEventsResponse struct {
	Status               string        `json:"status"`
	CompanyID            string        `json:"companyId"`
	Events               []LedgerEvent `json:"events"`
	LatestSequenceNumber int64         `json:"latestSequenceNumber"`
}

type SequenceNumberResponse struct {
	Status               string `json:"status"`
	CompanyID            string `json:"companyId"`
	LatestSequenceNumber int64  `json:"latestSequenceNumber"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
