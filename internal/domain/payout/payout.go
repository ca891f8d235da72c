package payout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// PayoutStatus represents the lifecycle of a physician payout
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// IsValid checks if the status is a valid PayoutStatus
func (s PayoutStatus) IsValid() bool {
	return s == PayoutStatusPending || s == PayoutStatusPaid
}

// String returns the string representation of PayoutStatus
func (s PayoutStatus) String() string {
	return string(s)
}

// Period is a closed date interval a payout settles
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod validates and creates a payout period
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, shared.NewDomainError(shared.ErrCodeValidation, "Payout period dates cannot be empty")
	}
	if start.After(end) {
		return Period{}, shared.NewDomainError(shared.ErrCodeRange, "Payout period start is after end")
	}
	return Period{Start: start, End: end}, nil
}

// Overlaps returns true if the two periods share at least one instant
func (p Period) Overlaps(other Period) bool {
	return !p.Start.After(other.End) && !other.Start.After(p.End)
}

// Contains returns true if t falls within the period, bounds included
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// PhysicianPayout aggregates a physician's billing records over a period
// into a net payout. Once marked paid it is immutable; recalculating a
// period that overlaps a paid payout is rejected to prevent double payment.
type PhysicianPayout struct {
	shared.AuditedAggregateRoot
	PayoutNumber      string            `json:"payout_number"`
	DoctorID          uuid.UUID         `json:"doctor_id"`
	Period            Period            `json:"period"`
	GrossRevenue      valueobject.Money `json:"gross_revenue"`
	FacilityFee       valueobject.Money `json:"facility_fee"`
	NetPayout         valueobject.Money `json:"net_payout"`
	FeePolicy         string            `json:"fee_policy"`
	ConsultationCount int               `json:"consultation_count"`
	ProcedureCount    int               `json:"procedure_count"`
	BillingCount      int               `json:"billing_count"`
	Status            PayoutStatus      `json:"status"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
}

// Calculate builds a payout from the doctor's billing records for the
// period. Records outside the period or in cancelled/refunded status are
// skipped. The result is deterministic for a fixed record set: the same
// inputs always produce the same gross and net.
func Calculate(
	payoutNumber string,
	doctorID uuid.UUID,
	period Period,
	records []billing.BillingRecord,
	policy FeePolicy,
	createdBy *uuid.UUID,
) (*PhysicianPayout, error) {
	if payoutNumber == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Payout number cannot be empty")
	}
	if doctorID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Doctor ID cannot be empty")
	}
	if policy == nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Facility fee policy is required")
	}

	gross := valueobject.ZeroBRL()
	consultations := 0
	procedures := 0
	counted := 0
	for i := range records {
		br := &records[i]
		if br.DoctorID != doctorID {
			continue
		}
		if !period.Contains(br.BillingDate) {
			continue
		}
		switch br.Status() {
		case billing.BillingStatusCancelled, billing.BillingStatusRefunded:
			continue
		}
		var err error
		gross, err = gross.Add(br.TotalAmount)
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrCodeValidation, err.Error())
		}
		consultations += br.ConsultationCount()
		procedures += br.ProcedureCount()
		counted++
	}

	fee := policy.Apply(gross)
	net := gross.MustSubtract(fee)
	if net.IsNegative() {
		// A negative net means the fee policy is misconfigured; surface
		// it instead of clamping to zero.
		return nil, shared.NewDomainError(shared.ErrCodeNegativeNetPayout,
			fmt.Sprintf("Net payout is negative: gross %s, facility fee %s", gross, fee))
	}

	p := &PhysicianPayout{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		PayoutNumber:         payoutNumber,
		DoctorID:             doctorID,
		Period:               period,
		GrossRevenue:         gross,
		FacilityFee:          fee,
		NetPayout:            net,
		FeePolicy:            policy.Describe(),
		ConsultationCount:    consultations,
		ProcedureCount:       procedures,
		BillingCount:         counted,
		Status:               PayoutStatusPending,
	}

	p.AddDomainEvent(NewPayoutCalculatedEvent(p))

	return p, nil
}

// MarkPaid transitions the payout to paid exactly once
func (p *PhysicianPayout) MarkPaid(paymentDate time.Time, actor *uuid.UUID) error {
	if p.Status == PayoutStatusPaid {
		return shared.NewDomainError(shared.ErrCodeAlreadyPaid,
			fmt.Sprintf("Payout %s is already paid", p.PayoutNumber))
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	p.Status = PayoutStatusPaid
	p.PaidAt = &paymentDate
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPayoutPaidEvent(p, actor))

	return nil
}

// IsPaid returns true once the payout has been settled
func (p *PhysicianPayout) IsPaid() bool {
	return p.Status == PayoutStatusPaid
}
