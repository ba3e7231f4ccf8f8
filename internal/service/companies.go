package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/models"
	"go.uber.org/zap"
)

func (s *DefaultService) CreateCompany(
	ctx context.Context,
	userID string,
	req models.CreateCompanyRequest,
) (*models.Company, error) {
	company := &models.Company{
		ID:         uuid.New().String(),
		Name:       req.Name,
		NameArabic: req.NameArabic,
		TaxNumber:  req.TaxNumber,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		IsActive:   true,
		CreatedBy:  userID,
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("error creating company: %w", err)
	}

	s.logger.Info("company created",
		zap.String("company_id", company.ID),
		zap.String("user_id", userID),
	)
	return company, nil
}

func (s *DefaultService) GetCompanies(ctx context.Context, userID string) ([]models.Company, error) {
	companies, err := s.repo.GetUserCompanies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting companies: %w", err)
	}
	return companies, nil
}

func (s *DefaultService) GetCompany(ctx context.Context, userID, companyID string) (*models.Company, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}
	return s.loadCompany(ctx, companyID)
}

func (s *DefaultService) UpdateCompany(
	ctx context.Context,
	userID string,
	companyID string,
	req models.UpdateCompanyRequest,
) (*models.Company, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.NameArabic != nil {
		company.NameArabic = *req.NameArabic
	}
	if req.TaxNumber != nil {
		company.TaxNumber = *req.TaxNumber
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.Phone != nil {
		company.Phone = *req.Phone
	}
	if req.Email != nil {
		company.Email = *req.Email
	}
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("error updating company: %w", err)
	}

	s.logger.Info("company updated", zap.String("company_id", companyID), zap.String("user_id", userID))
	return company, nil
}

// DeleteCompany removes a company with all of its books. Only the creator
// may do this.
func (s *DefaultService) DeleteCompany(ctx context.Context, userID, companyID string) error {
	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return err
	}

	if company.CreatedBy != userID {
		return ledger.ErrForbidden
	}

	if err := s.repo.DeleteCompany(ctx, companyID); err != nil {
		return fmt.Errorf("error deleting company: %w", err)
	}

	s.logger.Info("company deleted", zap.String("company_id", companyID), zap.String("user_id", userID))
	return nil
}

// Company sharing
func (s *DefaultService) AddUserToCompany(
	ctx context.Context,
	userID string,
	companyID string,
	req models.AddUserToCompanyRequest,
) (*models.AddUserResponse, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionWrite); err != nil {
		return nil, err
	}

	userToAdd, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if userToAdd == nil {
		return nil, &ledger.NotFoundError{Resource: "user", ID: req.Email}
	}

	companyUser := &models.CompanyUser{
		CompanyID:   companyID,
		UserID:      userToAdd.ID,
		Permissions: req.Permissions,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.AddUserToCompany(ctx, companyUser); err != nil {
		return nil, fmt.Errorf("error adding user to company: %w", err)
	}

	s.logger.Info("user added to company",
		zap.String("company_id", companyID),
		zap.String("user_id", userToAdd.ID),
		zap.String("permissions", req.Permissions),
	)

	return &models.AddUserResponse{
		Status:      "success",
		Message:     "User added to company successfully",
		UserID:      userToAdd.ID,
		Email:       userToAdd.Email,
		Permissions: req.Permissions,
	}, nil
}

func (s *DefaultService) loadCompany(ctx context.Context, companyID string) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting company: %w", err)
	}
	if company == nil {
		return nil, &ledger.NotFoundError{Resource: "company", ID: companyID}
	}
	return company, nil
}

// GetCompanyUsers lists the members of a company with their permissions
func (s *DefaultService) GetCompanyUsers(ctx context.Context, userID, companyID string) ([]models.CompanyUser, error) {
	if err := s.requireAccess(ctx, companyID, userID, PermissionRead); err != nil {
		return nil, err
	}

	users, err := s.repo.GetCompanyUsers(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("error getting company users: %w", err)
	}
	return users, nil
}
