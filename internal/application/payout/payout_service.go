package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/payout"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Service provides application-level physician payout operations
type Service struct {
	payoutRepo  payout.PayoutRepository
	billingRepo billing.BillingRecordRepository
}

// NewService creates a new payout Service
func NewService(payoutRepo payout.PayoutRepository, billingRepo billing.BillingRecordRepository) *Service {
	return &Service{
		payoutRepo:  payoutRepo,
		billingRepo: billingRepo,
	}
}

// ===================== Requests =====================

// CalculatePayoutRequest represents a request to calculate a payout
type CalculatePayoutRequest struct {
	DoctorID     uuid.UUID       `json:"doctor_id" binding:"required"`
	PeriodStart  time.Time       `json:"period_start" binding:"required"`
	PeriodEnd    time.Time       `json:"period_end" binding:"required"`
	FeeType      string          `json:"fee_type" binding:"required,oneof=percentage flat"`
	FeePercent   decimal.Decimal `json:"fee_percent"`
	FeeFlatMinor int64           `json:"fee_flat_minor"`
	CreatedBy    *uuid.UUID      `json:"-"`
}

// MarkPaidRequest represents a request to settle a payout
type MarkPaidRequest struct {
	PaymentDate time.Time  `json:"payment_date"`
	Actor       *uuid.UUID `json:"-"`
}

// ===================== Responses =====================

// PayoutResponse represents a physician payout in API responses
type PayoutResponse struct {
	ID                uuid.UUID         `json:"id"`
	PayoutNumber      string            `json:"payout_number"`
	DoctorID          uuid.UUID         `json:"doctor_id"`
	PeriodStart       time.Time         `json:"period_start"`
	PeriodEnd         time.Time         `json:"period_end"`
	GrossRevenue      valueobject.Money `json:"gross_revenue"`
	FacilityFee       valueobject.Money `json:"facility_fee"`
	NetPayout         valueobject.Money `json:"net_payout"`
	FeePolicy         string            `json:"fee_policy"`
	ConsultationCount int               `json:"consultation_count"`
	ProcedureCount    int               `json:"procedure_count"`
	BillingCount      int               `json:"billing_count"`
	Status            string            `json:"status"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Version           int               `json:"version"`
}

// ===================== Operations =====================

// CalculatePayout calculates and stores a payout for a doctor over a
// period. A period overlapping an already settled payout is rejected so
// a doctor cannot be paid twice for the same work. The calculation is
// deterministic for the records on file at the time of the call.
func (s *Service) CalculatePayout(ctx context.Context, req CalculatePayoutRequest) (*PayoutResponse, error) {
	period, err := payout.NewPeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	policy, err := s.buildPolicy(req)
	if err != nil {
		return nil, err
	}

	settled, err := s.payoutRepo.FindPaidOverlapping(ctx, req.DoctorID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	if len(settled) > 0 {
		return nil, shared.NewDomainError(shared.ErrCodeAlreadyPaid,
			fmt.Sprintf("Period overlaps settled payout %s", settled[0].PayoutNumber))
	}

	records, err := s.billingRepo.FindByDoctorInPeriod(ctx, req.DoctorID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	payoutNumber, err := s.payoutRepo.GeneratePayoutNumber(ctx)
	if err != nil {
		return nil, err
	}

	p, err := payout.Calculate(payoutNumber, req.DoctorID, period, records, policy, req.CreatedBy)
	if err != nil {
		return nil, err
	}

	if err := s.payoutRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	return toPayoutResponse(p), nil
}

// GetPayout gets a payout by ID
func (s *Service) GetPayout(ctx context.Context, id uuid.UUID) (*PayoutResponse, error) {
	p, err := s.loadPayout(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPayoutResponse(p), nil
}

// ListDoctorPayouts lists a doctor's payouts, newest period first
func (s *Service) ListDoctorPayouts(ctx context.Context, doctorID uuid.UUID) ([]PayoutResponse, error) {
	payouts, err := s.payoutRepo.FindByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	responses := make([]PayoutResponse, 0, len(payouts))
	for i := range payouts {
		responses = append(responses, *toPayoutResponse(&payouts[i]))
	}
	return responses, nil
}

// MarkPayoutPaid settles a payout exactly once. Writes go through the
// optimistic-lock path so a double submit cannot settle twice.
func (s *Service) MarkPayoutPaid(ctx context.Context, id uuid.UUID, req MarkPaidRequest) (*PayoutResponse, error) {
	p, err := s.loadPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}
	if err := p.MarkPaid(paymentDate, req.Actor); err != nil {
		return nil, err
	}

	if err := s.payoutRepo.SaveWithLock(ctx, p); err != nil {
		return nil, err
	}

	return toPayoutResponse(p), nil
}

func (s *Service) loadPayout(ctx context.Context, id uuid.UUID) (*payout.PhysicianPayout, error) {
	p, err := s.payoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payout not found")
	}
	return p, nil
}

func (s *Service) buildPolicy(req CalculatePayoutRequest) (payout.FeePolicy, error) {
	switch req.FeeType {
	case "percentage":
		return payout.NewPercentageFeePolicy(req.FeePercent)
	case "flat":
		return payout.NewFlatFeePolicy(valueobject.NewMoneyBRL(req.FeeFlatMinor))
	default:
		return nil, shared.NewDomainError(shared.ErrCodeValidation,
			fmt.Sprintf("Unknown fee policy type: %s", req.FeeType))
	}
}

// ===================== Mappers =====================

func toPayoutResponse(p *payout.PhysicianPayout) *PayoutResponse {
	return &PayoutResponse{
		ID:                p.ID,
		PayoutNumber:      p.PayoutNumber,
		DoctorID:          p.DoctorID,
		PeriodStart:       p.Period.Start,
		PeriodEnd:         p.Period.End,
		GrossRevenue:      p.GrossRevenue,
		FacilityFee:       p.FacilityFee,
		NetPayout:         p.NetPayout,
		FeePolicy:         p.FeePolicy,
		ConsultationCount: p.ConsultationCount,
		ProcedureCount:    p.ProcedureCount,
		BillingCount:      p.BillingCount,
		Status:            p.Status.String(),
		PaidAt:            p.PaidAt,
		CreatedAt:         p.CreatedAt,
		Version:           p.Version,
	}
}
