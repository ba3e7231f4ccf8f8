package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rongwang/ledgerbook/internal/api/testutils"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Accounts Co")

	// Test case 1: Parent and child accounts
	parent := models.CreateAccountRequest{
		CompanyID: companyID,
		Code:      "1",
		Name:      "Assets",
		Type:      "assets",
		IsParent:  true,
	}
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/accounts",
		parent, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var parentAccount models.Account
	testutils.DecodeJSON(t, w, &parentAccount)
	assert.Equal(t, 1, parentAccount.Level)

	child := models.CreateAccountRequest{
		CompanyID: companyID,
		Code:      "1000",
		Name:      "Cash",
		Type:      "Assets",
		ParentID:  &parentAccount.ID,
	}
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/accounts",
		child, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var childAccount models.Account
	testutils.DecodeJSON(t, w, &childAccount)
	assert.Equal(t, 2, childAccount.Level)
	assert.Equal(t, "assets", childAccount.Type)
	require.NotNil(t, childAccount.ParentID)
	assert.Equal(t, parentAccount.ID, *childAccount.ParentID)

	// Test case 2: Duplicate code
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/accounts",
		child, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "DUPLICATE_CODE", errResp.Code)

	// Test case 3: Unknown account type
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/accounts", models.CreateAccountRequest{
		CompanyID: companyID,
		Code:      "9000",
		Name:      "Misc",
		Type:      "income",
	}, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Lookup by code
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/accounts/by-code/1000", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var byCode models.Account
	testutils.DecodeJSON(t, w, &byCode)
	assert.Equal(t, childAccount.ID, byCode.ID)

	// Test case 5: Accounts come back ordered by code
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/accounts", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var accounts []models.Account
	testutils.DecodeJSON(t, w, &accounts)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1", accounts[0].Code)
	assert.Equal(t, "1000", accounts[1].Code)
}

func TestUpdateAccount(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Accounts Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	testCtx.CreateAccount(t, companyID, "1010", "Bank", "assets")

	// Test case 1: Deactivate and rename
	inactive := false
	name := "Petty Cash"
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/accounts/"+cashID,
		models.UpdateAccountRequest{Name: &name, IsActive: &inactive},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var account models.Account
	testutils.DecodeJSON(t, w, &account)
	assert.Equal(t, "Petty Cash", account.Name)
	assert.False(t, account.IsActive)
	assert.Equal(t, "1000", account.Code)

	// Test case 2: Code clash with another account
	code := "1010"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/accounts/"+cashID,
		models.UpdateAccountRequest{Code: &code},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Unknown account
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/accounts/non-existent-id",
		models.UpdateAccountRequest{Name: &name},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAccount(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Accounts Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")
	unusedID := testCtx.CreateAccount(t, companyID, "5000", "Rent", "expenses")

	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "100", ""),
		testutils.Line(revenueID, "", "100"),
	))

	// Test case 1: Account with postings is refused
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/accounts/"+cashID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "ACCOUNT_IN_USE", errResp.Code)

	// Test case 2: Unused account is removed
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/accounts/"+unusedID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/accounts/"+unusedID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Test case 3: Parent with sub-accounts is refused
	parentID := testCtx.CreateAccount(t, companyID, "2", "Liabilities", "liabilities")
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/accounts", models.CreateAccountRequest{
		CompanyID: companyID,
		Code:      "2100",
		Name:      "Payables",
		Type:      "liabilities",
		ParentID:  &parentID,
	}, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/accounts/"+parentID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "ACCOUNT_HAS_CHILDREN", errResp.Code)
}
