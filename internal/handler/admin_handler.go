package handler

import (
	"errors"
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/permission"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes cross-tenant operations for platform staff
type AdminHandler struct {
	subscriptions service.SubscriptionService
}

func NewAdminHandler(subscriptions service.SubscriptionService) *AdminHandler {
	return &AdminHandler{subscriptions: subscriptions}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.Authenticate(), middleware.RequireRoleLevel(permission.RoleAdmin))
	{
		admin.GET("/analytics", middleware.RequirePermission("analytics", "read"), h.Analytics)
		admin.GET("/subscriptions/expiring", h.ExpiringSubscriptions)
		admin.POST("/tenants/:tenantId/suspend", middleware.RequirePermission("tenants", "suspend"), h.SuspendTenant)
		admin.POST("/tenants/:tenantId/reactivate", middleware.RequirePermission("tenants", "update"), h.ReactivateTenant)
		admin.POST("/tenants/:tenantId/extend-trial", middleware.RequirePermission("tenants", "update"), h.ExtendTrial)
		admin.POST("/tenants/:tenantId/reset-usage", middleware.RequirePermission("tenants", "update"), h.ResetUsage)
		admin.GET("/tenants/:tenantId/audit", middleware.RequirePermission("tenants", "read"), h.AuditLog)
	}
}

// Analytics aggregates subscription state across all tenants
func (h *AdminHandler) Analytics(c *gin.Context) {
	analytics, err := h.subscriptions.GetAnalytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, analytics))
}

// ExpiringSubscriptions lists active/trial tenants expiring within ?days (default 7)
func (h *AdminHandler) ExpiringSubscriptions(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "days must be a non-negative integer"))
		return
	}

	tenants, err := h.subscriptions.GetExpiringSubscriptions(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tenants))
}

func (h *AdminHandler) SuspendTenant(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	err := h.subscriptions.SuspendSubscription(c.Request.Context(), c.Param("tenantId"), body.Reason)
	if err != nil {
		h.writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tenant suspended"}))
}

func (h *AdminHandler) ReactivateTenant(c *gin.Context) {
	err := h.subscriptions.ReactivateSubscription(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		h.writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Tenant reactivated"}))
}

// ExtendTrial adds days to a trial tenant's expiry; non-trial tenants are
// returned unchanged
func (h *AdminHandler) ExtendTrial(c *gin.Context) {
	body := struct {
		Days int `json:"days"`
	}{Days: 7}
	_ = c.ShouldBindJSON(&body)
	if body.Days <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "days must be positive"))
		return
	}

	tenant, err := h.subscriptions.ExtendTrial(c.Request.Context(), c.Param("tenantId"), body.Days)
	if err != nil {
		h.writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tenant))
}

func (h *AdminHandler) ResetUsage(c *gin.Context) {
	err := h.subscriptions.ResetMonthlyUsage(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		h.writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Usage counters reset"}))
}

// AuditLog pages through a tenant's subscription lifecycle events
func (h *AdminHandler) AuditLog(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.subscriptions.GetAuditLog(c.Request.Context(), c.Param("tenantId"), params.Page, params.Limit)
	if err != nil {
		h.writeSubscriptionError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

func (h *AdminHandler) writeSubscriptionError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrTenantNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, response.Error(status, err.Error()))
}
