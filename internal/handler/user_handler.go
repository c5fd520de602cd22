package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/permission"
	"backend/internal/plan"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	guards      *middleware.Guards
}

func NewUserHandler(userService service.UserService, guards *middleware.Guards) *UserHandler {
	return &UserHandler{userService: userService, guards: guards}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/users")
	users.Use(
		middleware.Authenticate(),
		h.guards.TrackAPIUsage(),
		h.guards.RequireActiveSubscription(),
		middleware.TenantIsolation(),
	)
	{
		users.GET("", middleware.RequirePermission("users", "read"), h.ListUsers)
		users.GET("/:id", middleware.RequirePermission("users", "read"), h.GetUser)
		users.POST("",
			middleware.RequirePermission("users", "create"),
			h.guards.CheckUsageLimit(plan.LimitUsers),
			h.CreateUser)
		users.PUT("/:id", middleware.RequirePermission("users", "update"), h.UpdateUser)
		users.DELETE("/:id", middleware.RequirePermission("users", "delete"), h.DeleteUser)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	params := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), identity.TenantID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), identity.TenantID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	// Role changes need the manage_roles permission on top of users.update
	if req.Role != "" && !permission.HasPermission(identity.Role(), "users", "manage_roles") {
		c.JSON(http.StatusForbidden, response.Denied(middleware.CodeInsufficientPermission,
			"Access denied: changing roles requires the manage_roles permission", nil))
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), identity.TenantID, c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	if err := h.userService.DeleteUser(c.Request.Context(), identity.TenantID, c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "User deleted successfully"}))
}
