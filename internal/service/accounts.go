package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
	"go.uber.org/zap"
)

// Account registry
func (s *DefaultService) CreateAccount(
	ctx context.Context,
	userID string,
	req models.CreateAccountRequest,
) (*models.Account, error) {
	if err := s.requireAccess(ctx, req.CompanyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	accountType, err := ledger.ParseAccountType(req.Type)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	if err := s.checkCodeFree(ctx, code, req.CompanyID); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:         uuid.New().String(),
		Code:       code,
		Name:       req.Name,
		NameArabic: req.NameArabic,
		Type:       string(accountType),
		SubType:    req.SubType,
		Level:      req.Level,
		IsParent:   req.IsParent,
		IsActive:   true,
		CompanyID:  req.CompanyID,
		CreatedBy:  userID,
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}

	if err := s.setParent(ctx, account, req.ParentID, req.Level == 0); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("company_id", account.CompanyID),
		zap.String("account_id", account.ID),
		zap.String("code", account.Code),
		zap.String("type", account.Type),
	)
	return account, nil
}

func (s *DefaultService) GetAccounts(ctx context.Context, userID, companyID string) ([]models.Account, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	accounts, err := s.repo.GetAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting accounts: %w", err)
	}
	return accounts, nil
}

func (s *DefaultService) GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, account.CompanyID, userID, PermissionRead); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *DefaultService) GetAccountByCode(ctx context.Context, userID, companyID, code string) (*models.Account, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccountByCode(ctx, code, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting account: %w", err)
	}
	if account == nil {
		return nil, &ledger.NotFoundError{Resource: "account", ID: code}
	}
	return account, nil
}

// UpdateAccount applies the non-nil fields of req. Only the fields that
// change are validated again.
func (s *DefaultService) UpdateAccount(
	ctx context.Context,
	userID string,
	accountID string,
	req models.UpdateAccountRequest,
) (*models.Account, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, account.CompanyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code != account.Code {
			if err := s.checkCodeFree(ctx, code, account.CompanyID); err != nil {
				return nil, err
			}
			account.Code = code
		}
	}
	if req.Type != nil {
		accountType, err := ledger.ParseAccountType(*req.Type)
		if err != nil {
			return nil, err
		}
		account.Type = string(accountType)
	}
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.NameArabic != nil {
		account.NameArabic = *req.NameArabic
	}
	if req.SubType != nil {
		account.SubType = *req.SubType
	}
	if req.Level != nil {
		account.Level = *req.Level
	}
	if req.IsParent != nil {
		account.IsParent = *req.IsParent
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if req.ParentID != nil {
		if err := s.setParent(ctx, account, req.ParentID, req.Level == nil); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("error updating account: %w", err)
	}

	s.logger.Info("account updated",
		zap.String("company_id", account.CompanyID),
		zap.String("account_id", account.ID),
	)
	return account, nil
}

// DeleteAccount refuses accounts that still carry journal lines or
// sub-accounts. Deactivate those with UpdateAccount instead.
func (s *DefaultService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, account.CompanyID, userID, PermissionWrite); err != nil {
		return err
	}

	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		return fmt.Errorf("error deleting account: %w", err)
	}

	s.logger.Info("account deleted",
		zap.String("company_id", account.CompanyID),
		zap.String("account_id", accountID),
		zap.String("code", account.Code),
	)
	return nil
}

func (s *DefaultService) loadAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error getting account: %w", err)
	}
	if account == nil {
		return nil, &ledger.NotFoundError{Resource: "account", ID: accountID}
	}
	return account, nil
}

func (s *DefaultService) checkCodeFree(ctx context.Context, code, companyID string) error {
	existing, err := s.repo.GetAccountByCode(ctx, code, companyID)
	if err != nil {
		return fmt.Errorf("error checking account code: %w", err)
	}
	if existing != nil {
		return ledger.ErrDuplicateCode
	}
	return nil
}

// setParent points account at parentID, or detaches it when parentID is nil
// or empty. With deriveLevel the level follows the parent.
func (s *DefaultService) setParent(ctx context.Context, account *models.Account, parentID *string, deriveLevel bool) error {
	if parentID == nil || *parentID == "" {
		account.ParentID = nil
		if deriveLevel {
			account.Level = 1
		}
		return nil
	}

	if *parentID == account.ID {
		return &ledger.InvalidAccountError{AccountID: *parentID, Reason: "account cannot be its own parent"}
	}

	parent, err := s.repo.GetAccount(ctx, *parentID)
	if err != nil {
		return fmt.Errorf("error getting parent account: %w", err)
	}
	if parent == nil {
		return &ledger.InvalidAccountError{AccountID: *parentID, Reason: "parent account does not exist"}
	}
	if parent.CompanyID != account.CompanyID {
		return &ledger.InvalidAccountError{AccountID: *parentID, Reason: "parent account belongs to another company"}
	}

	id := parent.ID
	account.ParentID = &id
	if deriveLevel {
		account.Level = parent.Level + 1
	}
	return nil
}
