package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/ledgerbook/internal/api"
	"github.com/rongwang/ledgerbook/internal/config"
	"github.com/rongwang/ledgerbook/internal/metrics"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/rongwang/ledgerbook/internal/repository"
	"github.com/rongwang/ledgerbook/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestTokenTTL is the JWT_TTL every integration test runs with
const TestTokenTTL = 90 * time.Minute

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  repository.Repository
	Service     service.Service
	Metrics     *metrics.Metrics
	JWTSecret   string
	TokenTTL    time.Duration
	DB          *sqlx.DB
	TestUserID  string
	TestUserJWT string
}

// SetupTestContext connects to the test database and builds the full HTTP
// stack on top of it. The test is skipped when the database is unreachable.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	if err := config.LoadDotEnv("../../../.env"); err != nil {
		t.Logf("Warning: failed to load .env: %v", err)
	}
	t.Setenv("JWT_TTL", TestTokenTTL.String())
	cfg := config.LoadConfig()

	// Always run against the test database
	cfg.Database.DBName = cfg.Database.TestDBName
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ledgerbook_test"
	}

	// Use a test JWT secret
	cfg.Auth.JWTSecret = "test-secret-key"

	logger := zap.NewNop()

	db, err := config.SetupDatabase(cfg, logger)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	m := metrics.New()
	svc := service.NewDefaultService(repo, logger, m, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.JWTSecretMiddleware(cfg.Auth.JWTSecret))

	handler := api.NewHandler(svc, logger, m)
	handler.SetupRoutes(router)

	tc := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Metrics:    m,
		JWTSecret:  cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		DB:         db,
	}

	cleanupTestDatabase(t, db)
	tc.TestUserID, tc.TestUserJWT = tc.CreateUser(t, "testuser@example.com")

	return tc
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(tc *TestContext) {
	if tc.DB != nil {
		cleanupTestDatabase(nil, tc.DB)
		tc.DB.Close()
	}
}

// cleanupTestDatabase empties every table, children first
func cleanupTestDatabase(t *testing.T, db *sqlx.DB) {
	tables := []string{
		"ledger_events",
		"account_balances",
		"journal_entry_details",
		"journal_entries",
		"accounts",
		"company_sequences",
		"company_users",
		"companies",
		"users",
	}
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil && t != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

// CreateUser stores a user with password "testpassword" and returns its id
// and a signed token.
func (tc *TestContext) CreateUser(t *testing.T, email string) (string, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		Password: string(hashedPassword),
	}
	require.NoError(t, tc.Repository.CreateUser(context.Background(), user), "Failed to create test user")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(tc.JWTSecret))
	require.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// CreateCompany creates a company owned by the test user
func (tc *TestContext) CreateCompany(t *testing.T, name string) string {
	t.Helper()

	w := PerformRequest(tc.Router, http.MethodPost, "/api/companies",
		models.CreateCompanyRequest{Name: name}, AuthHeaders(tc.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var company models.Company
	DecodeJSON(t, w, &company)
	return company.ID
}

// CreateAccount creates a postable account in companyID
func (tc *TestContext) CreateAccount(t *testing.T, companyID, code, name, accountType string) string {
	t.Helper()

	w := PerformRequest(tc.Router, http.MethodPost, "/api/accounts", models.CreateAccountRequest{
		CompanyID: companyID,
		Code:      code,
		Name:      name,
		Type:      accountType,
	}, AuthHeaders(tc.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var account models.Account
	DecodeJSON(t, w, &account)
	return account.ID
}

// Line builds a journal line; pass "" for the empty side
func Line(accountID, debit, credit string) models.JournalLineRequest {
	return models.JournalLineRequest{
		AccountID: accountID,
		Debit:     amount(debit),
		Credit:    amount(credit),
	}
}

func amount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

// EntryRequest builds a post request dated 2024-01-15
func EntryRequest(companyID, number string, lines ...models.JournalLineRequest) models.PostEntryRequest {
	return models.PostEntryRequest{
		Entry: models.JournalEntryHeader{
			CompanyID:   companyID,
			EntryNumber: number,
			Date:        models.NewEntryDate(2024, 1, 15),
			Description: "entry " + number,
		},
		Details: lines,
	}
}

// PostEntry posts an entry as the test user and returns the stored entry
func (tc *TestContext) PostEntry(t *testing.T, req models.PostEntryRequest) models.JournalEntry {
	t.Helper()

	w := PerformRequest(tc.Router, http.MethodPost, "/api/journal-entries", req, AuthHeaders(tc.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry models.JournalEntry
	DecodeJSON(t, w, &entry)
	return entry
}

// Balances returns the company's balances keyed by account id
func (tc *TestContext) Balances(t *testing.T, companyID string) map[string]models.AccountBalance {
	t.Helper()

	w := PerformRequest(tc.Router, http.MethodGet, "/api/companies/"+companyID+"/account-balances",
		nil, AuthHeaders(tc.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var balances []models.AccountBalance
	DecodeJSON(t, w, &balances)

	out := make(map[string]models.AccountBalance, len(balances))
	for _, b := range balances {
		out[b.AccountID] = b
	}
	return out
}

// DecodeJSON unmarshals the recorded response body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
