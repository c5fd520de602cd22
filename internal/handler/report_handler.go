package handler

import (
	"net/http"
	"strconv"
	"time"

	"backend/internal/middleware"
	"backend/internal/plan"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	guards        *middleware.Guards
}

func NewReportHandler(reportService service.ReportService, guards *middleware.Guards) *ReportHandler {
	return &ReportHandler{reportService: reportService, guards: guards}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(
		middleware.Authenticate(),
		h.guards.TrackAPIUsage(),
		h.guards.RequireActiveSubscription(),
	)
	{
		reports.GET("/summary",
			middleware.RequirePermission("reports", "read"),
			h.guards.RequireFeature(plan.FeatureAdvancedReports),
			h.ShopSummary)
	}
}

// ShopSummary reports work order counts and paid revenue over a trailing
// window, 30 days by default.
func (h *ReportHandler) ShopSummary(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "days must be between 1 and 365"))
			return
		}
		days = parsed
	}

	report, err := h.reportService.ShopSummary(c.Request.Context(), identity.TenantID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
