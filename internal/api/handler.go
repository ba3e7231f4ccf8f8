package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rongwang/ledgerbook/internal/ledger"
	"github.com/rongwang/ledgerbook/internal/metrics"
	"github.com/rongwang/ledgerbook/internal/models"
	"github.com/rongwang/ledgerbook/internal/service"
	"go.uber.org/zap"
)

// Handler serves the HTTP API on top of a service.Service
type Handler struct {
	svc     service.Service
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a new Handler. m may be nil, in which case /metrics is
// not served.
func NewHandler(svc service.Service, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		logger:  logger,
		metrics: m,
	}
}

// SetupRoutes registers every route on router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
		auth.GET("/user", AuthMiddleware(), h.GetCurrentUser)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		companies := protected.Group("/companies")
		companies.GET("", h.GetCompanies)
		companies.POST("", h.CreateCompany)
		companies.GET("/:companyId", h.GetCompany)
		companies.PUT("/:companyId", h.UpdateCompany)
		companies.DELETE("/:companyId", h.DeleteCompany)
		companies.POST("/:companyId/users", h.AddUserToCompany)
		companies.GET("/:companyId/users", h.GetCompanyUsers)
		companies.GET("/:companyId/accounts", h.GetAccounts)
		companies.GET("/:companyId/accounts/by-code/:code", h.GetAccountByCode)
		companies.POST("/:companyId/accounts/:accountId/recompute", h.RecomputeBalance)
		companies.GET("/:companyId/journal-entries", h.ListJournalEntries)
		companies.GET("/:companyId/account-balances", h.GetAccountBalances)
		companies.GET("/:companyId/financial-summary", h.GetFinancialSummary)
		companies.POST("/:companyId/reconcile", h.ReconcileBalances)
		companies.GET("/:companyId/events", h.GetLedgerEvents)
		companies.GET("/:companyId/events/latest", h.GetLatestSequenceNumber)

		accounts := protected.Group("/accounts")
		accounts.POST("", h.CreateAccount)
		accounts.GET("/:id", h.GetAccount)
		accounts.PUT("/:id", h.UpdateAccount)
		accounts.DELETE("/:id", h.DeleteAccount)

		entries := protected.Group("/journal-entries")
		entries.POST("", h.PostEntry)
		entries.GET("/:id", h.GetJournalEntry)
		entries.PUT("/:id", h.UpdateEntry)
		entries.DELETE("/:id", h.DeleteEntry)
		entries.POST("/:id/reverse", h.ReverseEntry)
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}

// respondError maps a service error onto an HTTP status and error code.
// Unknown errors are logged and hidden behind a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		notFound   *ledger.NotFoundError
		unbalanced *ledger.UnbalancedEntryError
	)

	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		status, code = http.StatusConflict, "USER_EXISTS"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, ledger.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.As(err, &notFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ledger.ErrDuplicateCode):
		status, code = http.StatusConflict, "DUPLICATE_CODE"
	case errors.Is(err, ledger.ErrDuplicateEntryNumber):
		status, code = http.StatusConflict, "DUPLICATE_ENTRY_NUMBER"
	case errors.Is(err, ledger.ErrAccountInUse):
		status, code = http.StatusConflict, "ACCOUNT_IN_USE"
	case errors.Is(err, ledger.ErrAccountHasChildren):
		status, code = http.StatusConflict, "ACCOUNT_HAS_CHILDREN"
	case errors.Is(err, ledger.ErrAlreadyReversed), errors.Is(err, ledger.ErrReversalOfReversal):
		status, code = http.StatusConflict, "ALREADY_REVERSED"
	case errors.As(err, &unbalanced):
		status, code = http.StatusBadRequest, "UNBALANCED_ENTRY"
	case ledger.IsValidation(err):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "An internal error occurred"
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func userID(c *gin.Context) string {
	return c.GetString("userId")
}

func success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
