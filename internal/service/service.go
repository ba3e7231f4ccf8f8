package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/metrics"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/rongwang/ledgerbook/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Authentication errors
var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Permission levels of a company member
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetCurrentUser(ctx context.Context, userID string) (*models.User, error)

	// Companies
	CreateCompany(ctx context.Context, userID string, req models.CreateCompanyRequest) (*models.Company, error)
	GetCompanies(ctx context.Context, userID string) ([]models.Company, error)
	GetCompany(ctx context.Context, userID, companyID string) (*models.Company, error)
	UpdateCompany(ctx context.Context, userID, companyID string, req models.UpdateCompanyRequest) (*models.Company, error)
	DeleteCompany(ctx context.Context, userID, companyID string) error
	AddUserToCompany(ctx context.Context, userID, companyID string, req models.AddUserToCompanyRequest) (*models.AddUserResponse, error)
	GetCompanyUsers(ctx context.Context, userID, companyID string) ([]models.CompanyUser, error)

	// Account registry
	CreateAccount(ctx context.Context, userID string, req models.CreateAccountRequest) (*models.Account, error)
	GetAccounts(ctx context.Context, userID, companyID string) ([]models.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*models.Account, error)
	GetAccountByCode(ctx context.Context, userID, companyID, code string) (*models.Account, error)
	UpdateAccount(ctx context.Context, userID, accountID string, req models.UpdateAccountRequest) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, accountID string) error

	// Ledger writer
	PostEntry(ctx context.Context, userID string, req models.PostEntryRequest) (*models.JournalEntry, error)
	UpdateEntry(ctx context.Context, userID, entryID string, req models.UpdateEntryRequest) (*models.JournalEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID string) error
	ReverseEntry(ctx context.Context, userID, entryID string, req models.ReverseEntryRequest) (*models.JournalEntry, error)
	GetJournalEntry(ctx context.Context, userID, entryID string) (*models.JournalEntry, error)
	ListJournalEntries(ctx context.Context, userID, companyID string, limit int) ([]models.JournalEntry, error)

	// Balances and reports
	GetAccountBalances(ctx context.Context, userID, companyID string) ([]models.AccountBalance, error)
	GetFinancialSummary(ctx context.Context, userID, companyID string) (*models.FinancialSummary, error)
	RecomputeBalance(ctx context.Context, userID, companyID, accountID string) (*models.AccountBalance, error)
	ReconcileBalances(ctx context.Context, userID, companyID string) (*models.ReconcileResponse, error)
	ReconcileAll(ctx context.Context, companyIDs []string, concurrency int) ([]models.ReconcileResponse, error)

	// Ledger events
	GetLedgerEvents(ctx context.Context, userID, companyID string, fromSeq, toSeq int64) (*models.GetLedgerEventsResponse, error)
	GetLatestSequenceNumber(ctx context.Context, userID, companyID string) (*models.SequenceNumberResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	logger        *zap.Logger
	metrics       *metrics.Metrics
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(
	repo repository.Repository,
	logger *zap.Logger,
	m *metrics.Metrics,
	jwtSecret string,
	tokenDuration time.Duration,
) Service {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	return &DefaultService{
		repo:          repo,
		logger:        logger,
		metrics:       m,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// GetCurrentUser returns the signed-in user
func (s *DefaultService) GetCurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, &ledger.NotFoundError{Resource: "user", ID: userID}
	}
	return user, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": user.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// requireAccess fails with ledger.ErrForbidden unless userID holds at least
// permission on the company.
func (s *DefaultService) requireAccess(ctx context.Context, companyID, userID, permission string) error {
	hasAccess, err := s.repo.CheckCompanyAccess(ctx, companyID, userID, permission)
	if err != nil {
		return fmt.Errorf("error checking company access: %w", err)
	}
	if !hasAccess {
		return ledger.ErrForbidden
	}
	return nil
}
