package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	reportapp "github.com/prontivus/backend/internal/application/report"
)

// DashboardHandler handles financial dashboard API endpoints
type DashboardHandler struct {
	BaseHandler
	dashboardService *reportapp.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *reportapp.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard godoc
// @Summary      Get the financial dashboard
// @Description  Aggregates revenue, payments, receivables and expenses for a reporting period
// @Tags         dashboard
// @Produce      json
// @Param        from query string true "Period start" format(date)
// @Param        to query string true "Period end" format(date)
// @Success      200 {object} dto.Response{data=report.DashboardSummary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	summary, err := h.dashboardService.GetDashboard(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// parseDateQuery reads a required YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, &queryParamError{name: name, reason: "is required"}
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &queryParamError{name: name, reason: "must be a YYYY-MM-DD date"}
	}
	return parsed, nil
}

type queryParamError struct {
	name   string
	reason string
}

func (e *queryParamError) Error() string {
	return "Query parameter " + e.name + " " + e.reason
}
