package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// Service provides application-level billing ledger operations
type Service struct {
	repo billing.BillingRecordRepository
}

// NewService creates a new billing Service
func NewService(repo billing.BillingRecordRepository) *Service {
	return &Service{repo: repo}
}

// ===================== Requests =====================

// LineItemRequest represents one line item in a create request
type LineItemRequest struct {
	ItemType       string `json:"item_type" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Quantity       int64  `json:"quantity" binding:"required,gt=0"`
	UnitPriceMinor int64  `json:"unit_price_minor" binding:"gte=0"`
}

// CreateBillingRequest represents a request to create a billing record
type CreateBillingRequest struct {
	PatientID        uuid.UUID         `json:"patient_id" binding:"required"`
	DoctorID         uuid.UUID         `json:"doctor_id" binding:"required"`
	Type             string            `json:"type" binding:"required"`
	BillingDate      time.Time         `json:"billing_date"`
	DueDate          time.Time         `json:"due_date" binding:"required"`
	Items            []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	TaxAmountMinor   int64             `json:"tax_amount_minor" binding:"gte=0"`
	DiscountMinor    int64             `json:"discount_minor" binding:"gte=0"`
	InsuranceCompany string            `json:"insurance_company"`
	InsuranceNumber  string            `json:"insurance_number"`
	Notes            string            `json:"notes"`
	CreatedBy        *uuid.UUID        `json:"-"` // Set from JWT context, not from request body
}

// AddPaymentRequest represents a request to apply a payment
type AddPaymentRequest struct {
	PaymentDate   time.Time  `json:"payment_date"`
	Method        string     `json:"method" binding:"required"`
	AmountMinor   int64      `json:"amount_minor" binding:"required"`
	TransactionID string     `json:"transaction_id"`
	BankReference string     `json:"bank_reference"`
	CheckNumber   string     `json:"check_number"`
	Notes         string     `json:"notes"`
	RecordedBy    *uuid.UUID `json:"-"`
}

// AddCorrectionRequest represents a request to record a negative adjustment
type AddCorrectionRequest struct {
	PaymentDate time.Time  `json:"payment_date"`
	Method      string     `json:"method" binding:"required"`
	AmountMinor int64      `json:"amount_minor" binding:"required"`
	Reason      string     `json:"reason" binding:"required"`
	RecordedBy  *uuid.UUID `json:"-"`
}

// ListFilter defines filtering options for billing list queries
type ListFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	DoctorID  *uuid.UUID `form:"doctor_id"`
	Type      string     `form:"type"`
	Status    string     `form:"status"`
	DateFrom  *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"date_to" time_format:"2006-01-02"`
	DueFrom   *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo     *time.Time `form:"due_to" time_format:"2006-01-02"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

// ===================== Responses =====================

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID         `json:"id"`
	PaymentDate   time.Time         `json:"payment_date"`
	Method        string            `json:"method"`
	Amount        valueobject.Money `json:"amount"`
	Kind          string            `json:"kind"`
	TransactionID string            `json:"transaction_id,omitempty"`
	BankReference string            `json:"bank_reference,omitempty"`
	CheckNumber   string            `json:"check_number,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// BillingResponse represents a billing record in API responses. Monetary
// fields serialize as integer minor units with a currency code.
type BillingResponse struct {
	ID             uuid.UUID             `json:"id"`
	BillingNumber  string                `json:"billing_number"`
	PatientID      uuid.UUID             `json:"patient_id"`
	DoctorID       uuid.UUID             `json:"doctor_id"`
	Type           string                `json:"type"`
	Status         string                `json:"status"`
	BillingDate    time.Time             `json:"billing_date"`
	DueDate        time.Time             `json:"due_date"`
	Items          []billing.LineItem    `json:"items"`
	TaxAmount      valueobject.Money     `json:"tax_amount"`
	DiscountAmount valueobject.Money     `json:"discount_amount"`
	TotalAmount    valueobject.Money     `json:"total_amount"`
	PaidAmount     valueobject.Money     `json:"paid_amount"`
	Balance        valueobject.Money     `json:"balance"`
	Overpaid       bool                  `json:"overpaid"`
	DaysOverdue    int                   `json:"days_overdue"`
	Insurance      billing.InsuranceInfo `json:"insurance"`
	Notes          string                `json:"notes,omitempty"`
	Payments       []PaymentResponse     `json:"payments,omitempty"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	CancelReason   string                `json:"cancel_reason,omitempty"`
	DisputedAt     *time.Time            `json:"disputed_at,omitempty"`
	DisputeReason  string                `json:"dispute_reason,omitempty"`
	RefundedAt     *time.Time            `json:"refunded_at,omitempty"`
	RefundReason   string                `json:"refund_reason,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int                   `json:"version"`
}

// PaymentResult is the outcome of applying a payment or correction. The
// overpayment flag is a warning, not an error: the payment is recorded
// either way.
type PaymentResult struct {
	Payment   PaymentResponse   `json:"payment"`
	Overpaid  bool              `json:"overpaid"`
	Balance   valueobject.Money `json:"balance"`
	Status    string            `json:"status"`
	BillingID uuid.UUID         `json:"billing_id"`
}

// ===================== Operations =====================

// CreateBilling creates a billing record for a clinical encounter
func (s *Service) CreateBilling(ctx context.Context, req CreateBillingRequest) (*BillingResponse, error) {
	billingNumber, err := s.repo.GenerateBillingNumber(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]billing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		item, err := billing.NewLineItem(
			billing.ItemType(it.ItemType),
			it.Name,
			it.Quantity,
			valueobject.NewMoneyBRL(it.UnitPriceMinor),
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	record, err := billing.NewBillingRecord(
		billingNumber,
		req.PatientID,
		req.DoctorID,
		billing.BillingType(req.Type),
		req.BillingDate,
		req.DueDate,
		items,
		valueobject.NewMoneyBRL(req.TaxAmountMinor),
		valueobject.NewMoneyBRL(req.DiscountMinor),
		billing.InsuranceInfo{Company: req.InsuranceCompany, Number: req.InsuranceNumber},
		req.Notes,
		req.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	return toBillingResponse(record), nil
}

// GetBilling gets a billing record by ID with its payment log
func (s *Service) GetBilling(ctx context.Context, id uuid.UUID) (*BillingResponse, error) {
	record, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBillingResponse(record), nil
}

// GetBillingByNumber gets a billing record by its billing number
func (s *Service) GetBillingByNumber(ctx context.Context, billingNumber string) (*BillingResponse, error) {
	record, err := s.repo.FindByBillingNumber(ctx, billingNumber)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Billing record not found")
	}
	return toBillingResponse(record), nil
}

// ListBillings lists billing records with filtering and pagination
func (s *Service) ListBillings(ctx context.Context, filter ListFilter) (*shared.Paginated[BillingResponse], error) {
	domainFilter := billing.BillingRecordFilter{
		Filter:    shared.DefaultFilter(),
		PatientID: filter.PatientID,
		DoctorID:  filter.DoctorID,
		DateFrom:  filter.DateFrom,
		DateTo:    filter.DateTo,
		DueFrom:   filter.DueFrom,
		DueTo:     filter.DueTo,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Type != "" {
		t := billing.BillingType(filter.Type)
		if !t.IsValid() {
			return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing type is not valid")
		}
		domainFilter.Type = &t
	}
	if filter.Status != "" {
		st := billing.BillingStatus(filter.Status)
		if !st.IsValid() {
			return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing status is not valid")
		}
		domainFilter.Status = &st
	}

	records, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]BillingResponse, 0, len(records))
	for i := range records {
		responses = append(responses, *toBillingResponse(&records[i]))
	}
	result := shared.NewPaginated(responses, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// AddPayment applies a payment to a billing record. Writes go through the
// optimistic-lock path so two concurrent payments cannot both read a
// stale balance; on a version conflict the caller re-submits.
func (s *Service) AddPayment(ctx context.Context, billingID uuid.UUID, req AddPaymentRequest) (*PaymentResult, error) {
	record, err := s.loadRecord(ctx, billingID)
	if err != nil {
		return nil, err
	}

	payment, overpaid, err := record.AddPayment(
		req.PaymentDate,
		billing.PaymentMethod(req.Method),
		valueobject.NewMoneyBRL(req.AmountMinor),
		billing.PaymentReference{
			TransactionID: req.TransactionID,
			BankReference: req.BankReference,
			CheckNumber:   req.CheckNumber,
		},
		req.Notes,
		req.RecordedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Payment:   toPaymentResponse(payment),
		Overpaid:  overpaid,
		Balance:   record.DisplayBalance(),
		Status:    record.Status().String(),
		BillingID: record.ID,
	}, nil
}

// AddCorrection records a negative adjustment against a billing record
func (s *Service) AddCorrection(ctx context.Context, billingID uuid.UUID, req AddCorrectionRequest) (*PaymentResult, error) {
	record, err := s.loadRecord(ctx, billingID)
	if err != nil {
		return nil, err
	}

	payment, err := record.AddCorrection(
		req.PaymentDate,
		billing.PaymentMethod(req.Method),
		valueobject.NewMoneyBRL(req.AmountMinor),
		req.Reason,
		req.RecordedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Payment:   toPaymentResponse(payment),
		Overpaid:  record.IsOverpaid(),
		Balance:   record.DisplayBalance(),
		Status:    record.Status().String(),
		BillingID: record.ID,
	}, nil
}

// CancelBilling cancels a billing record. Cancelling an already cancelled
// record is a no-op.
func (s *Service) CancelBilling(ctx context.Context, billingID uuid.UUID, reason string, actor *uuid.UUID) (*BillingResponse, error) {
	record, err := s.loadRecord(ctx, billingID)
	if err != nil {
		return nil, err
	}
	if err := record.Cancel(reason, actor); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}
	return toBillingResponse(record), nil
}

// DisputeBilling marks a billing record as disputed
func (s *Service) DisputeBilling(ctx context.Context, billingID uuid.UUID, reason string, actor *uuid.UUID) (*BillingResponse, error) {
	record, err := s.loadRecord(ctx, billingID)
	if err != nil {
		return nil, err
	}
	if err := record.Dispute(reason, actor); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}
	return toBillingResponse(record), nil
}

// RefundBilling marks a paid billing record as refunded
func (s *Service) RefundBilling(ctx context.Context, billingID uuid.UUID, reason string, actor *uuid.UUID) (*BillingResponse, error) {
	record, err := s.loadRecord(ctx, billingID)
	if err != nil {
		return nil, err
	}
	if err := record.Refund(reason, actor); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, record); err != nil {
		return nil, err
	}
	return toBillingResponse(record), nil
}

func (s *Service) loadRecord(ctx context.Context, id uuid.UUID) (*billing.BillingRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Billing record not found")
	}
	return record, nil
}

// ===================== Mappers =====================

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		PaymentDate:   p.PaymentDate,
		Method:        p.Method.String(),
		Amount:        p.Amount,
		Kind:          string(p.Kind),
		TransactionID: p.TransactionID,
		BankReference: p.BankReference,
		CheckNumber:   p.CheckNumber,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

func toBillingResponse(record *billing.BillingRecord) *BillingResponse {
	payments := make([]PaymentResponse, 0, len(record.Payments))
	for i := range record.Payments {
		payments = append(payments, toPaymentResponse(&record.Payments[i]))
	}
	now := time.Now()
	return &BillingResponse{
		ID:             record.ID,
		BillingNumber:  record.BillingNumber,
		PatientID:      record.PatientID,
		DoctorID:       record.DoctorID,
		Type:           record.Type.String(),
		Status:         record.Status().String(),
		BillingDate:    record.BillingDate,
		DueDate:        record.DueDate,
		Items:          record.Items,
		TaxAmount:      record.TaxAmount,
		DiscountAmount: record.DiscountAmount,
		TotalAmount:    record.TotalAmount,
		PaidAmount:     record.PaidAmount(),
		Balance:        record.DisplayBalance(),
		Overpaid:       record.IsOverpaid(),
		DaysOverdue:    record.DaysOverdue(now),
		Insurance:      record.Insurance,
		Notes:          record.Notes,
		Payments:       payments,
		CancelledAt:    record.CancelledAt,
		CancelReason:   record.CancelReason,
		DisputedAt:     record.DisputedAt,
		DisputeReason:  record.DisputeReason,
		RefundedAt:     record.RefundedAt,
		RefundReason:   record.RefundReason,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		Version:        record.Version,
	}
}
