package payout

import (
	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
)

// Event types for the payout aggregate
const (
	EventTypePayoutCalculated = "payout.calculated"
	EventTypePayoutPaid       = "payout.paid"
)

const aggregateTypePhysicianPayout = "PhysicianPayout"

// PayoutCalculatedEvent is raised when a payout is computed
type PayoutCalculatedEvent struct {
	shared.BaseDomainEvent
	PayoutNumber   string    `json:"payout_number"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	GrossMinor     int64     `json:"gross_minor"`
	NetMinor       int64     `json:"net_minor"`
	BillingCount   int       `json:"billing_count"`
}

// NewPayoutCalculatedEvent creates a PayoutCalculatedEvent
func NewPayoutCalculatedEvent(p *PhysicianPayout) *PayoutCalculatedEvent {
	return &PayoutCalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutCalculated, aggregateTypePhysicianPayout, p.ID),
		PayoutNumber:    p.PayoutNumber,
		DoctorID:        p.DoctorID,
		GrossMinor:      p.GrossRevenue.MinorUnits(),
		NetMinor:        p.NetPayout.MinorUnits(),
		BillingCount:    p.BillingCount,
	}
}

// PayoutPaidEvent is raised when a payout is settled
type PayoutPaidEvent struct {
	shared.BaseDomainEvent
	PayoutNumber string     `json:"payout_number"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	NetMinor     int64      `json:"net_minor"`
	Actor        *uuid.UUID `json:"actor,omitempty"`
}

// NewPayoutPaidEvent creates a PayoutPaidEvent
func NewPayoutPaidEvent(p *PhysicianPayout, actor *uuid.UUID) *PayoutPaidEvent {
	return &PayoutPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutPaid, aggregateTypePhysicianPayout, p.ID),
		PayoutNumber:    p.PayoutNumber,
		DoctorID:        p.DoctorID,
		NetMinor:        p.NetPayout.MinorUnits(),
		Actor:           actor,
	}
}
