package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/plan"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	guards         *middleware.Guards
}

func NewInvoiceHandler(invoiceService service.InvoiceService, guards *middleware.Guards) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, guards: guards}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	invoices.Use(
		middleware.Authenticate(),
		h.guards.TrackAPIUsage(),
		h.guards.RequireActiveSubscription(),
		middleware.TenantIsolation(),
	)
	{
		invoices.GET("", middleware.RequirePermission("invoices", "read"), h.ListInvoices)
		invoices.GET("/:id", middleware.RequirePermission("invoices", "read"), h.GetInvoice)
		invoices.POST("", middleware.RequirePermission("invoices", "create"), h.CreateInvoice)
		invoices.POST("/:id/issue", middleware.RequirePermission("invoices", "update"), h.IssueInvoice)
		invoices.POST("/:id/paid", middleware.RequirePermission("invoices", "update"), h.MarkPaid)
		invoices.PUT("/:id/branding",
			middleware.RequirePermission("invoices", "update"),
			h.guards.RequireFeature(plan.FeatureCustomInvoices),
			h.SetBranding)
	}
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	invoices, total, err := h.invoiceService.List(c.Request.Context(), identity.TenantID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"invoices": invoices,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	invoice, err := h.invoiceService.Get(c.Request.Context(), identity.TenantID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), identity.TenantID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	invoice, err := h.invoiceService.Issue(c.Request.Context(), identity.TenantID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	invoice, err := h.invoiceService.MarkPaid(c.Request.Context(), identity.TenantID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

func (h *InvoiceHandler) SetBranding(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.SetBranding(c.Request.Context(), identity.TenantID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
