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

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
	guards           *middleware.Guards
}

func NewWorkOrderHandler(workOrderService service.WorkOrderService, guards *middleware.Guards) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderService: workOrderService, guards: guards}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/work-orders")
	orders.Use(
		middleware.Authenticate(),
		h.guards.TrackAPIUsage(),
		h.guards.RequireActiveSubscription(),
		middleware.TenantIsolation(),
	)
	{
		orders.GET("", middleware.RequirePermission("work_orders", "read"), h.ListWorkOrders)
		orders.GET("/:id", middleware.RequirePermission("work_orders", "read"), h.GetWorkOrder)
		orders.POST("",
			middleware.RequirePermission("work_orders", "create"),
			h.guards.CheckUsageLimit(plan.LimitWorkOrders),
			h.CreateWorkOrder)
		orders.PUT("/:id",
			middleware.RequirePermission("work_orders", "update"),
			middleware.RequireOwnership(h.assignedTechnician),
			h.UpdateWorkOrder)
		orders.DELETE("/:id", middleware.RequirePermission("work_orders", "delete"), h.DeleteWorkOrder)
	}
}

// assignedTechnician resolves the work order's assignee for the ownership guard
func (h *WorkOrderHandler) assignedTechnician(c *gin.Context) (string, error) {
	identity, _ := middleware.CurrentIdentity(c)
	return h.workOrderService.OwnerOf(c.Request.Context(), identity.TenantID, c.Param("id"))
}

func (h *WorkOrderHandler) ListWorkOrders(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	orders, total, err := h.workOrderService.List(c.Request.Context(), identity.TenantID, c.Query("status"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"work_orders": orders,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

func (h *WorkOrderHandler) GetWorkOrder(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	wo, err := h.workOrderService.Get(c.Request.Context(), identity.TenantID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

func (h *WorkOrderHandler) CreateWorkOrder(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	wo, err := h.workOrderService.Create(c.Request.Context(), identity.TenantID, identity.UserID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, wo))
}

func (h *WorkOrderHandler) UpdateWorkOrder(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	wo, err := h.workOrderService.Update(c.Request.Context(), identity.TenantID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

func (h *WorkOrderHandler) DeleteWorkOrder(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.workOrderService.Delete(c.Request.Context(), identity.TenantID, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Work order deleted successfully"}))
}
