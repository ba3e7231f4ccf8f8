package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/ledgerbook/internal/models"
)

func (h *Handler) CreateCompany(c *gin.Context) {
	var req models.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	company, err := h.svc.CreateCompany(c.Request.Context(), userID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, company)
}

func (h *Handler) GetCompanies(c *gin.Context) {
	companies, err := h.svc.GetCompanies(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, companies)
}

func (h *Handler) GetCompany(c *gin.Context) {
	company, err := h.svc.GetCompany(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *Handler) UpdateCompany(c *gin.Context) {
	var req models.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	company, err := h.svc.UpdateCompany(c.Request.Context(), userID(c), c.Param("companyId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *Handler) DeleteCompany(c *gin.Context) {
	if err := h.svc.DeleteCompany(c.Request.Context(), userID(c), c.Param("companyId")); err != nil {
		h.respondError(c, err)
		return
	}

	success(c)
}

func (h *Handler) AddUserToCompany(c *gin.Context) {
	var req models.AddUserToCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.svc.AddUserToCompany(c.Request.Context(), userID(c), c.Param("companyId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetCompanyUsers(c *gin.Context) {
	users, err := h.svc.GetCompanyUsers(c.Request.Context(), userID(c), c.Param("companyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
