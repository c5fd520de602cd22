package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/plan"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	tenantService service.TenantService
	subscriptions service.SubscriptionService
	guards        *middleware.Guards
}

func NewTenantHandler(tenantService service.TenantService, subscriptions service.SubscriptionService, guards *middleware.Guards) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, subscriptions: subscriptions, guards: guards}
}

func (h *TenantHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/signup", h.Signup)
	router.GET("/api/plans", h.ListPlans)

	sub := router.Group("/api/subscription")
	sub.Use(middleware.Authenticate(), h.guards.TrackAPIUsage())
	{
		sub.GET("/usage", middleware.RequirePermission("subscription", "read"), h.GetUsage)
		sub.PUT("/plan", middleware.RequirePermission("subscription", "update"), h.ChangePlan)
		sub.DELETE("", middleware.RequirePermission("subscription", "cancel"), h.Cancel)
		sub.POST("/reactivate", middleware.RequirePermission("subscription", "update"), h.Reactivate)
	}
}

// Signup registers a new shop on a starter trial
func (h *TenantHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.tenantService.Signup(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListPlans returns the public plan catalog
func (h *TenantHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, plan.Plans()))
}

// GetUsage returns the tenant's usage snapshot against its plan limits
func (h *TenantHandler) GetUsage(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	snapshot, err := h.subscriptions.GetUsage(c.Request.Context(), identity.TenantID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}

type changePlanRequest struct {
	Plan                 string `json:"plan" binding:"required,oneof=starter professional enterprise"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
}

// ChangePlan moves the tenant to a new plan, snapshotting the plan's limits
func (h *TenantHandler) ChangePlan(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tenant, err := h.subscriptions.ChangePlan(c.Request.Context(), identity.TenantID, req.Plan, req.StripeSubscriptionID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tenant))
}

// Cancel cancels the tenant's subscription; data is retained
func (h *TenantHandler) Cancel(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.subscriptions.CancelSubscription(c.Request.Context(), identity.TenantID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Subscription cancelled"}))
}

// Reactivate restores a cancelled subscription to active
func (h *TenantHandler) Reactivate(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.subscriptions.ReactivateSubscription(c.Request.Context(), identity.TenantID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrTenantNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Subscription reactivated"}))
}
