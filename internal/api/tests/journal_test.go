package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rongwang/ledgerbook/internal/api/testutils"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got),
		append([]interface{}{fmt.Sprintf("want %s, got %s", want, got.String())}, msgAndArgs...)...)
}

func TestPostEntry(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	// Test case 1: Balanced entry updates both balances
	entry := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "1000", ""),
		testutils.Line(revenueID, "", "1000"),
	))

	assertAmount(t, "1000", entry.TotalDebit)
	assertAmount(t, "1000", entry.TotalCredit)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "1000", balances[cashID].DebitBalance)
	assertAmount(t, "1000", balances[cashID].NetBalance)
	assertAmount(t, "1000", balances[revenueID].CreditBalance)
	assertAmount(t, "-1000", balances[revenueID].NetBalance)

	// Test case 2: Round trip returns the submitted lines
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/journal-entries/"+entry.ID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.JournalEntry
	testutils.DecodeJSON(t, w, &stored)
	assertAmount(t, "1000", stored.TotalDebit)
	require.Len(t, stored.Details, 2)
	assert.Equal(t, cashID, stored.Details[0].AccountID)
	assert.Equal(t, "1000", stored.Details[0].AccountCode)
	assertAmount(t, "1000", stored.Details[0].Debit)
	assert.Equal(t, revenueID, stored.Details[1].AccountID)
	assertAmount(t, "1000", stored.Details[1].Credit)

	// Test case 3: Duplicate entry number
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/journal-entries",
		testutils.EntryRequest(companyID, "JE-1",
			testutils.Line(cashID, "5", ""),
			testutils.Line(revenueID, "", "5"),
		), testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)

	balances = testCtx.Balances(t, companyID)
	assertAmount(t, "1000", balances[cashID].DebitBalance, "rejected duplicate must not move balances")
}

func TestPostEntry_Rejected(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	otherCompanyID := testCtx.CreateCompany(t, "Other Co")
	foreignID := testCtx.CreateAccount(t, otherCompanyID, "1001", "Foreign Cash", "assets")

	tests := []struct {
		name string
		req  models.PostEntryRequest
		code string
	}{
		{
			name: "unbalanced",
			req: testutils.EntryRequest(companyID, "JE-1",
				testutils.Line(cashID, "1000", ""),
				testutils.Line(revenueID, "", "900"),
			),
			code: "UNBALANCED_ENTRY",
		},
		{
			name: "single line",
			req:  testutils.EntryRequest(companyID, "JE-2", testutils.Line(cashID, "10", "")),
			code: "VALIDATION_ERROR",
		},
		{
			name: "both sides on one line",
			req: testutils.EntryRequest(companyID, "JE-3",
				testutils.Line(cashID, "10", "10"),
				testutils.Line(revenueID, "", "0"),
			),
			code: "VALIDATION_ERROR",
		},
		{
			name: "account of another company",
			req: testutils.EntryRequest(companyID, "JE-4",
				testutils.Line(foreignID, "10", ""),
				testutils.Line(revenueID, "", "10"),
			),
			code: "VALIDATION_ERROR",
		},
		{
			name: "three decimal places",
			req: testutils.EntryRequest(companyID, "JE-5",
				testutils.Line(cashID, "10.005", ""),
				testutils.Line(revenueID, "", "10.005"),
			),
			code: "VALIDATION_ERROR",
		},
		{
			name: "line amount beyond storable range",
			req: testutils.EntryRequest(companyID, "JE-6",
				testutils.Line(cashID, "1000000000000000", ""),
				testutils.Line(revenueID, "", "1000000000000000"),
			),
			code: "VALIDATION_ERROR",
		},
		{
			name: "total beyond storable range",
			req: testutils.EntryRequest(companyID, "JE-7",
				testutils.Line(cashID, "9000000000000", ""),
				testutils.Line(cashID, "9000000000000", ""),
				testutils.Line(revenueID, "", "9000000000000"),
				testutils.Line(revenueID, "", "9000000000000"),
			),
			code: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/journal-entries",
				tt.req, testutils.AuthHeaders(testCtx.TestUserJWT))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var errResp models.ErrorResponse
			testutils.DecodeJSON(t, w, &errResp)
			assert.Equal(t, tt.code, errResp.Code)
		})
	}

	// Nothing was written
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/journal-entries", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.JournalEntry
	testutils.DecodeJSON(t, w, &entries)
	assert.Empty(t, entries)
	assert.Empty(t, testCtx.Balances(t, companyID))
}

func TestPostEntry_PlainDate(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	body := json.RawMessage(fmt.Sprintf(`{
		"entry": {"companyId": %q, "entryNumber": "JE-1", "date": "2024-01-15", "description": "cash sale"},
		"details": [
			{"accountId": %q, "debit": "40", "credit": "0"},
			{"accountId": %q, "debit": "0", "credit": "40"}
		]
	}`, companyID, cashID, revenueID))

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/journal-entries",
		body, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry models.JournalEntry
	testutils.DecodeJSON(t, w, &entry)
	assert.Equal(t, "2024-01-15", entry.Date.Format(models.DateLayout))

	// An unparseable date is a bad request
	body = json.RawMessage(fmt.Sprintf(`{
		"entry": {"companyId": %q, "entryNumber": "JE-2", "date": "15/01/2024"},
		"details": [
			{"accountId": %q, "debit": "40", "credit": "0"},
			{"accountId": %q, "debit": "0", "credit": "40"}
		]
	}`, companyID, cashID, revenueID))

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/journal-entries",
		body, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostEntry_WithinTolerance(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	entry := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "100.01", ""),
		testutils.Line(revenueID, "", "100.00"),
	))

	assertAmount(t, "100.01", entry.TotalDebit)
	assertAmount(t, "100.00", entry.TotalCredit)
}

func TestUpdateEntry(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	bankID := testCtx.CreateAccount(t, companyID, "1010", "Bank", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	entry := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "300", ""),
		testutils.Line(revenueID, "", "300"),
	))

	// Test case 1: Header only, omitted fields keep their values
	reference := "INV-7"
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/journal-entries/"+entry.ID,
		models.UpdateEntryRequest{Entry: models.JournalEntryPatch{Reference: &reference}},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.JournalEntry
	testutils.DecodeJSON(t, w, &updated)
	assert.Equal(t, "INV-7", updated.Reference)
	assert.Equal(t, "entry JE-1", updated.Description)
	assert.Equal(t, "JE-1", updated.EntryNumber)
	assert.Equal(t, "2024-01-15", updated.Date.Format(models.DateLayout))
	assertAmount(t, "300", updated.TotalDebit)

	memo := "corrected memo"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/journal-entries/"+entry.ID,
		models.UpdateEntryRequest{Entry: models.JournalEntryPatch{Description: &memo}},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	testutils.DecodeJSON(t, w, &updated)
	assert.Equal(t, "corrected memo", updated.Description)
	assert.Equal(t, "INV-7", updated.Reference)

	// Test case 2: Replacing lines moves the balance off the old account
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/journal-entries/"+entry.ID,
		models.UpdateEntryRequest{Details: []models.JournalLineRequest{
			testutils.Line(bankID, "250", ""),
			testutils.Line(revenueID, "", "250"),
		}},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/journal-entries/"+entry.ID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.JournalEntry
	testutils.DecodeJSON(t, w, &stored)
	require.Len(t, stored.Details, 2, "lines are replaced, not merged")
	assert.Equal(t, bankID, stored.Details[0].AccountID)
	assertAmount(t, "250", stored.TotalDebit)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "0", balances[cashID].DebitBalance, "old account must be recomputed")
	assertAmount(t, "250", balances[bankID].DebitBalance)
	assertAmount(t, "250", balances[revenueID].CreditBalance)

	// Test case 3: Unbalanced replacement is rejected and changes nothing
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/journal-entries/"+entry.ID,
		models.UpdateEntryRequest{Details: []models.JournalLineRequest{
			testutils.Line(cashID, "250", ""),
			testutils.Line(revenueID, "", "200"),
		}},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	balances = testCtx.Balances(t, companyID)
	assertAmount(t, "250", balances[bankID].DebitBalance)

	// Test case 4: Unknown entry
	w = testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/journal-entries/non-existent-id",
		models.UpdateEntryRequest{}, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEntry_RetractsBalance(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	first := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "700", ""),
		testutils.Line(revenueID, "", "700"),
	))
	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-2",
		testutils.Line(cashID, "45.50", ""),
		testutils.Line(revenueID, "", "45.50"),
	))

	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/journal-entries/"+first.ID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "45.50", balances[cashID].DebitBalance)
	assertAmount(t, "45.50", balances[revenueID].CreditBalance)

	// Deleting again is a not-found
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/journal-entries/"+first.ID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReverseEntry(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	original := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "120", ""),
		testutils.Line(revenueID, "", "120"),
	))

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/api/journal-entries/%s/reverse", original.ID),
		models.ReverseEntryRequest{EntryNumber: "JE-1-R"},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reversal models.JournalEntry
	testutils.DecodeJSON(t, w, &reversal)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, "JE-1", reversal.Reference)

	// Both entries stay and the balances net to zero
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/journal-entries", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.JournalEntry
	testutils.DecodeJSON(t, w, &entries)
	assert.Len(t, entries, 2)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "120", balances[cashID].DebitBalance)
	assertAmount(t, "120", balances[cashID].CreditBalance)
	assertAmount(t, "0", balances[cashID].NetBalance)
	assertAmount(t, "0", balances[revenueID].NetBalance)

	// A reversed entry cannot be reversed twice
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/api/journal-entries/%s/reverse", original.ID),
		models.ReverseEntryRequest{EntryNumber: "JE-1-R2"},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "ALREADY_REVERSED", errResp.Code)

	// Nor can the reversing entry itself
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/api/journal-entries/%s/reverse", reversal.ID),
		models.ReverseEntryRequest{EntryNumber: "JE-1-R-R"},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusConflict, w.Code)

	balances = testCtx.Balances(t, companyID)
	assertAmount(t, "120", balances[cashID].DebitBalance, "refused reversals must not move balances")
	assertAmount(t, "120", balances[cashID].CreditBalance)
}

func TestReverseEntry_AccountNoLongerPostable(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Journal Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	original := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "60", ""),
		testutils.Line(revenueID, "", "60"),
	))

	isParent := true
	w := testutils.PerformRequest(testCtx.Router, http.MethodPut, "/api/accounts/"+cashID,
		models.UpdateAccountRequest{IsParent: &isParent},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/api/journal-entries/%s/reverse", original.ID),
		models.ReverseEntryRequest{EntryNumber: "JE-1-R", Date: models.NewEntryDate(2024, 2, 1)},
		testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "60", balances[cashID].NetBalance)
}
