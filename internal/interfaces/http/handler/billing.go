package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/prontivus/backend/internal/application/billing"
)

// BillingHandler handles billing ledger API endpoints
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.Service
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.Service) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// ReasonRequest carries the mandatory reason for cancel, dispute and
// refund transitions.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateBilling godoc
// @Summary      Create a billing record
// @Description  Creates a billing record for a clinical encounter with its line items
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreateBillingRequest true "Billing record to create"
// @Success      201 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing [post]
func (h *BillingHandler) CreateBilling(c *gin.Context) {
	var req billingapp.CreateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil {
		req.CreatedBy = &userID
	}

	resp, err := h.billingService.CreateBilling(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// GetBilling godoc
// @Summary      Get a billing record
// @Description  Retrieves a billing record with its full payment log
// @Tags         billing
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id} [get]
func (h *BillingHandler) GetBilling(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid billing record ID format")
		return
	}

	resp, err := h.billingService.GetBilling(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetBillingByNumber godoc
// @Summary      Get a billing record by number
// @Description  Retrieves a billing record by its human-readable document number
// @Tags         billing
// @Produce      json
// @Param        number path string true "Billing number" example(FAT-2026-000123)
// @Success      200 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/number/{number} [get]
func (h *BillingHandler) GetBillingByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Billing number is required")
		return
	}

	resp, err := h.billingService.GetBillingByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ListBillings godoc
// @Summary      List billing records
// @Description  Retrieve a paginated list of billing records with filtering
// @Tags         billing
// @Produce      json
// @Param        patient_id query string false "Patient ID" format(uuid)
// @Param        doctor_id query string false "Doctor ID" format(uuid)
// @Param        type query string false "Billing type" Enums(tiss, private, cash, insurance, corporate)
// @Param        status query string false "Derived status" Enums(pending, paid, overdue, cancelled, disputed, refunded)
// @Param        date_from query string false "Billing date from" format(date)
// @Param        date_to query string false "Billing date to" format(date)
// @Param        due_from query string false "Due date from" format(date)
// @Param        due_to query string false "Due date to" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]billingapp.BillingResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing [get]
func (h *BillingHandler) ListBillings(c *gin.Context) {
	var filter billingapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.billingService.ListBillings(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AddPayment godoc
// @Summary      Apply a payment
// @Description  Applies a payment to a billing record; overpayment is flagged, not rejected
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Param        request body billingapp.AddPaymentRequest true "Payment to apply"
// @Success      201 {object} dto.Response{data=billingapp.PaymentResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id}/payments [post]
func (h *BillingHandler) AddPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid billing record ID format")
		return
	}

	var req billingapp.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil {
		req.RecordedBy = &userID
	}

	result, err := h.billingService.AddPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// AddCorrection godoc
// @Summary      Record a correction
// @Description  Records a negative adjustment against a billing record's payment log
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Param        request body billingapp.AddCorrectionRequest true "Correction to record"
// @Success      201 {object} dto.Response{data=billingapp.PaymentResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id}/corrections [post]
func (h *BillingHandler) AddCorrection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid billing record ID format")
		return
	}

	var req billingapp.AddCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil {
		req.RecordedBy = &userID
	}

	result, err := h.billingService.AddCorrection(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// CancelBilling godoc
// @Summary      Cancel a billing record
// @Description  Cancels a billing record; cancelled records accept no further mutations
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Param        request body ReasonRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id}/cancel [post]
func (h *BillingHandler) CancelBilling(c *gin.Context) {
	h.transition(c, h.billingService.CancelBilling)
}

// DisputeBilling godoc
// @Summary      Mark a billing record disputed
// @Description  Flags a billing record as disputed by the patient or insurer
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Param        request body ReasonRequest true "Dispute reason"
// @Success      200 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id}/dispute [post]
func (h *BillingHandler) DisputeBilling(c *gin.Context) {
	h.transition(c, h.billingService.DisputeBilling)
}

// RefundBilling godoc
// @Summary      Refund a billing record
// @Description  Marks a billing record refunded; refunded records accept no further payments
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Billing record ID" format(uuid)
// @Param        request body ReasonRequest true "Refund reason"
// @Success      200 {object} dto.Response{data=billingapp.BillingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/{id}/refund [post]
func (h *BillingHandler) RefundBilling(c *gin.Context) {
	h.transition(c, h.billingService.RefundBilling)
}

type transitionFunc func(ctx context.Context, id uuid.UUID, reason string, actor *uuid.UUID) (*billingapp.BillingResponse, error)

// transition handles the shared shape of cancel, dispute and refund.
func (h *BillingHandler) transition(c *gin.Context, fn transitionFunc) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid billing record ID format")
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var actor *uuid.UUID
	if userID, err := getUserID(c); err == nil {
		actor = &userID
	}

	resp, err := fn(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
