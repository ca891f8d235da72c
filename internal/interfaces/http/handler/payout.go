package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	payoutapp "github.com/prontivus/backend/internal/application/payout"
)

// PayoutHandler handles physician payout API endpoints
type PayoutHandler struct {
	BaseHandler
	payoutService *payoutapp.Service
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *payoutapp.Service) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// CalculatePayout godoc
// @Summary      Calculate a physician payout
// @Description  Calculates and stores a payout for a doctor over a period under the given fee policy
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        request body payoutapp.CalculatePayoutRequest true "Payout calculation request"
// @Success      201 {object} dto.Response{data=payoutapp.PayoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payouts/calculate [post]
func (h *PayoutHandler) CalculatePayout(c *gin.Context) {
	var req payoutapp.CalculatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	resp, err := h.payoutService.CalculatePayout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetPayout godoc
// @Summary      Get a payout
// @Description  Retrieves a physician payout by ID
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} dto.Response{data=payoutapp.PayoutResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payouts/{id} [get]
func (h *PayoutHandler) GetPayout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payout ID format")
		return
	}

	resp, err := h.payoutService.GetPayout(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListDoctorPayouts godoc
// @Summary      List payouts for a doctor
// @Description  Returns all payouts calculated for the given doctor, newest period first
// @Tags         payouts
// @Produce      json
// @Param        doctor_id path string true "Doctor ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]payoutapp.PayoutResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payouts/doctor/{doctor_id} [get]
func (h *PayoutHandler) ListDoctorPayouts(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		h.BadRequest(c, "Invalid doctor ID format")
		return
	}

	payouts, err := h.payoutService.ListDoctorPayouts(c.Request.Context(), doctorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payouts)
}

// MarkPayoutPaid godoc
// @Summary      Settle a payout
// @Description  Marks a calculated payout as paid; settling twice is rejected
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Param        request body payoutapp.MarkPaidRequest true "Settlement details"
// @Success      200 {object} dto.Response{data=payoutapp.PayoutResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payouts/{id}/pay [post]
func (h *PayoutHandler) MarkPayoutPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payout ID format")
		return
	}

	var req payoutapp.MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	if userID, err := getUserID(c); err == nil {
		req.Actor = &userID
	}

	resp, err := h.payoutService.MarkPayoutPaid(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
