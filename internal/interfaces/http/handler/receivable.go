package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	receivableapp "github.com/prontivus/backend/internal/application/receivable"
)

// ReceivableHandler handles accounts receivable API endpoints
type ReceivableHandler struct {
	BaseHandler
	agingService *receivableapp.AgingService
}

// NewReceivableHandler creates a new ReceivableHandler
func NewReceivableHandler(agingService *receivableapp.AgingService) *ReceivableHandler {
	return &ReceivableHandler{
		agingService: agingService,
	}
}

// GetAgingReport godoc
// @Summary      Get receivables aging report
// @Description  Returns open balances grouped into aging buckets as of a reference date
// @Tags         receivables
// @Produce      json
// @Param        as_of query string false "Reference date, defaults to today" format(date)
// @Success      200 {object} dto.Response{data=receivable.Report}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /receivables/aging [get]
func (h *ReceivableHandler) GetAgingReport(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	report, err := h.agingService.GetAgingReport(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
