package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type VehicleHandler struct {
	vehicleService service.VehicleService
	guards         *middleware.Guards
}

func NewVehicleHandler(vehicleService service.VehicleService, guards *middleware.Guards) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService, guards: guards}
}

func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	vehicles := router.Group("/api/vehicles")
	vehicles.Use(
		middleware.Authenticate(),
		h.guards.TrackAPIUsage(),
		h.guards.RequireActiveSubscription(),
		middleware.TenantIsolation(),
	)
	{
		vehicles.GET("", middleware.RequirePermission("vehicles", "read"), h.ListVehicles)
		vehicles.GET("/:id", middleware.RequirePermission("vehicles", "read"), h.GetVehicle)
		vehicles.POST("", middleware.RequirePermission("vehicles", "create"), h.CreateVehicle)
		vehicles.PUT("/:id", middleware.RequirePermission("vehicles", "update"), h.UpdateVehicle)
		vehicles.DELETE("/:id", middleware.RequirePermission("vehicles", "delete"), h.DeleteVehicle)
	}
}

func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	vehicles, total, err := h.vehicleService.List(c.Request.Context(), identity.TenantID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"vehicles": vehicles,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	vehicle, err := h.vehicleService.Get(c.Request.Context(), identity.TenantID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.Create(c.Request.Context(), identity.TenantID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vehicle))
}

func (h *VehicleHandler) UpdateVehicle(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vehicle, err := h.vehicleService.Update(c.Request.Context(), identity.TenantID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, vehicle))
}

func (h *VehicleHandler) DeleteVehicle(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.vehicleService.Delete(c.Request.Context(), identity.TenantID, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Vehicle deleted successfully"}))
}
