package api_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/rongwang/ledgerbook/internal/api/testutils"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialSummary(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Summary Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")
	expenseID := testCtx.CreateAccount(t, companyID, "5000", "Rent", "expenses")

	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "500", ""),
		testutils.Line(revenueID, "", "500"),
	))
	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-2",
		testutils.Line(expenseID, "200", ""),
		testutils.Line(cashID, "", "200"),
	))

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/financial-summary", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary models.FinancialSummary
	testutils.DecodeJSON(t, w, &summary)
	assertAmount(t, "500", summary.TotalRevenue)
	assertAmount(t, "200", summary.TotalExpenses)
	assertAmount(t, "300", summary.NetProfit)
	assert.Equal(t, int64(3), summary.TotalAccounts)
}

func TestFinancialSummary_EmptyCompany(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Empty Co")

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/financial-summary", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.FinancialSummary
	testutils.DecodeJSON(t, w, &summary)
	assertAmount(t, "0", summary.NetProfit)
	assert.Equal(t, int64(0), summary.TotalAccounts)
}

func TestReconcileBalances(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Drift Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "80", ""),
		testutils.Line(revenueID, "", "80"),
	))

	// Corrupt the cached balance behind the service's back
	_, err := testCtx.DB.Exec(
		`UPDATE account_balances SET debit_balance = 999, net_balance = 999 WHERE account_id = $1`, cashID)
	require.NoError(t, err)

	reconcile := func() models.ReconcileResponse {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/companies/%s/reconcile", companyID),
			nil, testutils.AuthHeaders(testCtx.TestUserJWT))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp models.ReconcileResponse
		testutils.DecodeJSON(t, w, &resp)
		return resp
	}

	first := reconcile()
	assert.Equal(t, 2, first.AccountsChecked)
	require.Len(t, first.Drift, 1)
	assert.Equal(t, cashID, first.Drift[0].AccountID)
	assertAmount(t, "999", first.Drift[0].Cached.DebitBalance)
	assertAmount(t, "80", first.Drift[0].Actual.DebitBalance)

	balances := testCtx.Balances(t, companyID)
	assertAmount(t, "80", balances[cashID].DebitBalance)

	// Recompute is idempotent
	second := reconcile()
	assert.Empty(t, second.Drift)

	again := testCtx.Balances(t, companyID)
	for id, b := range balances {
		assertAmount(t, b.DebitBalance.String(), again[id].DebitBalance)
		assertAmount(t, b.CreditBalance.String(), again[id].CreditBalance)
		assertAmount(t, b.NetBalance.String(), again[id].NetBalance)
	}
}

func TestRecomputeBalance(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Recompute Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")
	unusedID := testCtx.CreateAccount(t, companyID, "5000", "Rent", "expenses")

	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "150", ""),
		testutils.Line(revenueID, "", "150"),
	))
	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-2",
		testutils.Line(revenueID, "25", ""),
		testutils.Line(cashID, "", "25"),
	))

	_, err := testCtx.DB.Exec(
		`UPDATE account_balances SET debit_balance = 1, credit_balance = 1, net_balance = 0 WHERE account_id = $1`, cashID)
	require.NoError(t, err)

	recompute := func(accountID string) models.AccountBalance {
		w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
			fmt.Sprintf("/api/companies/%s/accounts/%s/recompute", companyID, accountID),
			nil, testutils.AuthHeaders(testCtx.TestUserJWT))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var balance models.AccountBalance
		testutils.DecodeJSON(t, w, &balance)
		return balance
	}

	// Test case 1: The cached row is rebuilt from the lines, twice with the same result
	first := recompute(cashID)
	second := recompute(cashID)
	for _, b := range []models.AccountBalance{first, second} {
		assert.Equal(t, cashID, b.AccountID)
		assert.Equal(t, companyID, b.CompanyID)
		assertAmount(t, "150", b.DebitBalance)
		assertAmount(t, "25", b.CreditBalance)
		assertAmount(t, "125", b.NetBalance)
	}
	assertAmount(t, "125", testCtx.Balances(t, companyID)[cashID].NetBalance)

	// Test case 2: An account without lines recomputes to zero
	zero := recompute(unusedID)
	assertAmount(t, "0", zero.DebitBalance)
	assertAmount(t, "0", zero.NetBalance)

	// Test case 3: An account of another company is not found here
	otherCompanyID := testCtx.CreateCompany(t, "Other Co")
	foreignID := testCtx.CreateAccount(t, otherCompanyID, "1001", "Foreign Cash", "assets")
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost,
		fmt.Sprintf("/api/companies/%s/accounts/%s/recompute", companyID, foreignID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerEvents(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Events Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	entry := testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "10", ""),
		testutils.Line(revenueID, "", "10"),
	))
	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-2",
		testutils.Line(cashID, "20", ""),
		testutils.Line(revenueID, "", "20"),
	))
	w := testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/journal-entries/"+entry.ID,
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	// Test case 1: Latest sequence number
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/events/latest", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var latest models.SequenceNumberResponse
	testutils.DecodeJSON(t, w, &latest)
	assert.Equal(t, int64(3), latest.LatestSequenceNumber)

	// Test case 2: Full history in order
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/events", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	var events models.GetLedgerEventsResponse
	testutils.DecodeJSON(t, w, &events)
	require.Len(t, events.Events, 3)

	actions := []string{}
	for i, e := range events.Events {
		assert.Equal(t, int64(i+1), e.SequenceNumber)
		assert.Equal(t, testCtx.TestUserID, e.UserID)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{models.ActionPost, models.ActionPost, models.ActionDelete}, actions)

	// Test case 3: Range query
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/events?from=2&to=2", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	require.Equal(t, http.StatusOK, w.Code)

	testutils.DecodeJSON(t, w, &events)
	require.Len(t, events.Events, 1)
	assert.Equal(t, "JE-2", events.Events[0].EntryNumber)

	// Test case 4: Invalid range
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		fmt.Sprintf("/api/companies/%s/events?from=abc", companyID),
		nil, testutils.AuthHeaders(testCtx.TestUserJWT))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	companyID := testCtx.CreateCompany(t, "Metrics Co")
	cashID := testCtx.CreateAccount(t, companyID, "1000", "Cash", "assets")
	revenueID := testCtx.CreateAccount(t, companyID, "4000", "Sales", "revenue")

	testCtx.PostEntry(t, testutils.EntryRequest(companyID, "JE-1",
		testutils.Line(cashID, "10", ""),
		testutils.Line(revenueID, "", "10"),
	))

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `bookkeeping_entries_total{action="post"} 1`), body)
	assert.True(t, strings.Contains(body, "bookkeeping_balance_recomputes_total 2"), body)
}
