package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetAccountBalances(c *gin.Context) {
	balances, err := h.svc.GetAccountBalances(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balances)
}

func (h *Handler) GetFinancialSummary(c *gin.Context) {
	summary, err := h.svc.GetFinancialSummary(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) RecomputeBalance(c *gin.Context) {
	balance, err := h.svc.RecomputeBalance(c.Request.Context(), userID(c), c.Param("companyId"), c.Param("accountId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *Handler) ReconcileBalances(c *gin.Context) {
	resp, err := h.svc.ReconcileBalances(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetLedgerEvents(c *gin.Context) {
	fromSeq, err := parseSequence(c.Query("from"))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	toSeq, err := parseSequence(c.Query("to"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.GetLedgerEvents(c.Request.Context(), userID(c), c.Param("companyId"), fromSeq, toSeq)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetLatestSequenceNumber(c *gin.Context) {
	resp, err := h.svc.GetLatestSequenceNumber(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseSequence reads an optional sequence bound; empty means 0.
func parseSequence(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid sequence number: %s", s)
	}
	return n, nil
}
