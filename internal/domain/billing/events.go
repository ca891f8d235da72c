package billing

import (
	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
)

// Event types for the billing aggregate
const (
	EventTypeBillingRecordCreated   = "billing.record.created"
	EventTypePaymentApplied         = "billing.payment.applied"
	EventTypeBillingRecordPaid      = "billing.record.paid"
	EventTypeBillingRecordOverpaid  = "billing.record.overpaid"
	EventTypeBillingRecordCancelled = "billing.record.cancelled"
	EventTypeBillingRecordDisputed  = "billing.record.disputed"
	EventTypeBillingRecordRefunded  = "billing.record.refunded"
)

const aggregateTypeBillingRecord = "BillingRecord"

// BillingRecordCreatedEvent is raised when a billing record is posted
type BillingRecordCreatedEvent struct {
	shared.BaseDomainEvent
	BillingNumber    string    `json:"billing_number"`
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorID         uuid.UUID `json:"doctor_id"`
	TotalAmountMinor int64     `json:"total_amount_minor"`
}

// NewBillingRecordCreatedEvent creates a BillingRecordCreatedEvent
func NewBillingRecordCreatedEvent(br *BillingRecord) *BillingRecordCreatedEvent {
	return &BillingRecordCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBillingRecordCreated, aggregateTypeBillingRecord, br.ID),
		BillingNumber:    br.BillingNumber,
		PatientID:        br.PatientID,
		DoctorID:         br.DoctorID,
		TotalAmountMinor: br.TotalAmount.MinorUnits(),
	}
}

// PaymentAppliedEvent is raised for every appended payment, corrections included
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	AmountMinor  int64     `json:"amount_minor"`
	Method       string    `json:"method"`
	Correction   bool      `json:"correction"`
	BalanceMinor int64     `json:"balance_minor"`
}

// NewPaymentAppliedEvent creates a PaymentAppliedEvent
func NewPaymentAppliedEvent(br *BillingRecord, p *Payment) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, aggregateTypeBillingRecord, br.ID),
		PaymentID:       p.ID,
		AmountMinor:     p.Amount.MinorUnits(),
		Method:          p.Method.String(),
		Correction:      p.IsCorrection(),
		BalanceMinor:    br.BalanceAmount().MinorUnits(),
	}
}

// BillingRecordPaidEvent is raised when the balance reaches zero
type BillingRecordPaidEvent struct {
	shared.BaseDomainEvent
	BillingNumber string `json:"billing_number"`
}

// NewBillingRecordPaidEvent creates a BillingRecordPaidEvent
func NewBillingRecordPaidEvent(br *BillingRecord) *BillingRecordPaidEvent {
	return &BillingRecordPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingRecordPaid, aggregateTypeBillingRecord, br.ID),
		BillingNumber:   br.BillingNumber,
	}
}

// BillingRecordOverpaidEvent is raised when payments exceed the total.
// The condition needs a human financial decision, so it is surfaced as
// its own event rather than folded into the generic payment event.
type BillingRecordOverpaidEvent struct {
	shared.BaseDomainEvent
	BillingNumber   string    `json:"billing_number"`
	PaymentID       uuid.UUID `json:"payment_id"`
	OverpaidMinor   int64     `json:"overpaid_minor"`
	PaidAmountMinor int64     `json:"paid_amount_minor"`
}

// NewBillingRecordOverpaidEvent creates a BillingRecordOverpaidEvent
func NewBillingRecordOverpaidEvent(br *BillingRecord, p *Payment) *BillingRecordOverpaidEvent {
	return &BillingRecordOverpaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingRecordOverpaid, aggregateTypeBillingRecord, br.ID),
		BillingNumber:   br.BillingNumber,
		PaymentID:       p.ID,
		OverpaidMinor:   br.OverpaidAmount().MinorUnits(),
		PaidAmountMinor: br.PaidAmount().MinorUnits(),
	}
}

// BillingRecordCancelledEvent is raised when a record is cancelled
type BillingRecordCancelledEvent struct {
	shared.BaseDomainEvent
	BillingNumber string     `json:"billing_number"`
	Reason        string     `json:"reason"`
	Actor         *uuid.UUID `json:"actor,omitempty"`
}

// NewBillingRecordCancelledEvent creates a BillingRecordCancelledEvent
func NewBillingRecordCancelledEvent(br *BillingRecord, actor *uuid.UUID) *BillingRecordCancelledEvent {
	return &BillingRecordCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingRecordCancelled, aggregateTypeBillingRecord, br.ID),
		BillingNumber:   br.BillingNumber,
		Reason:          br.CancelReason,
		Actor:           actor,
	}
}

// BillingRecordDisputedEvent is raised when a record enters dispute
type BillingRecordDisputedEvent struct {
	shared.BaseDomainEvent
	BillingNumber string     `json:"billing_number"`
	Reason        string     `json:"reason"`
	Actor         *uuid.UUID `json:"actor,omitempty"`
}

// NewBillingRecordDisputedEvent creates a BillingRecordDisputedEvent
func NewBillingRecordDisputedEvent(br *BillingRecord, actor *uuid.UUID) *BillingRecordDisputedEvent {
	return &BillingRecordDisputedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingRecordDisputed, aggregateTypeBillingRecord, br.ID),
		BillingNumber:   br.BillingNumber,
		Reason:          br.DisputeReason,
		Actor:           actor,
	}
}

// BillingRecordRefundedEvent is raised when a paid record is refunded
type BillingRecordRefundedEvent struct {
	shared.BaseDomainEvent
	BillingNumber string     `json:"billing_number"`
	Reason        string     `json:"reason"`
	Actor         *uuid.UUID `json:"actor,omitempty"`
}

// NewBillingRecordRefundedEvent creates a BillingRecordRefundedEvent
func NewBillingRecordRefundedEvent(br *BillingRecord, actor *uuid.UUID) *BillingRecordRefundedEvent {
	return &BillingRecordRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingRecordRefunded, aggregateTypeBillingRecord, br.ID),
		BillingNumber:   br.BillingNumber,
		Reason:          br.RefundReason,
		Actor:           actor,
	}
}
