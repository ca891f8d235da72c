package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodPix          PaymentMethod = "pix"
	PaymentMethodBoleto       PaymentMethod = "boleto"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodPix, PaymentMethodBoleto:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentKind distinguishes normal payments from negative adjustments
type PaymentKind string

const (
	PaymentKindNormal     PaymentKind = "normal"
	PaymentKindCorrection PaymentKind = "correction"
)

// CorrectionNote is the note tag recorded on adjustment payments
const CorrectionNote = "correction"

// Payment represents one payment applied to a billing record. Payments are
// append-only and immutable once created; corrections are modeled as new
// negative-adjustment payments, never edits, preserving the audit trail.
type Payment struct {
	ID            uuid.UUID          `json:"id"`
	BillingID     uuid.UUID          `json:"billing_id"`
	PaymentDate   time.Time          `json:"payment_date"`
	Method        PaymentMethod      `json:"method"`
	Amount        valueobject.Money  `json:"amount"`
	Kind          PaymentKind        `json:"kind"`
	TransactionID string             `json:"transaction_id,omitempty"`
	BankReference string             `json:"bank_reference,omitempty"`
	CheckNumber   string             `json:"check_number,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	RecordedBy    *uuid.UUID         `json:"recorded_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// PaymentReference carries the optional external references for a payment
type PaymentReference struct {
	TransactionID string
	BankReference string
	CheckNumber   string
}

// NewPayment creates a normal payment. Amount must be strictly positive;
// the negative-adjustment path is NewCorrection.
func NewPayment(billingID uuid.UUID, date time.Time, method PaymentMethod, amount valueobject.Money, ref PaymentReference, notes string, recordedBy *uuid.UUID) (*Payment, error) {
	if billingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Payment method is not valid")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrCodeInvalidAmount, "Payment amount must be positive")
	}
	if date.IsZero() {
		date = time.Now()
	}
	return &Payment{
		ID:            uuid.New(),
		BillingID:     billingID,
		PaymentDate:   date,
		Method:        method,
		Amount:        amount,
		Kind:          PaymentKindNormal,
		TransactionID: ref.TransactionID,
		BankReference: ref.BankReference,
		CheckNumber:   ref.CheckNumber,
		Notes:         notes,
		RecordedBy:    recordedBy,
		CreatedAt:     time.Now(),
	}, nil
}

// NewCorrection creates a negative-adjustment payment. This is the only
// path that accepts a non-positive amount; the note is tagged so the
// ledger stays auditable.
func NewCorrection(billingID uuid.UUID, date time.Time, method PaymentMethod, amount valueobject.Money, reason string, recordedBy *uuid.UUID) (*Payment, error) {
	if billingID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Payment method is not valid")
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError(shared.ErrCodeInvalidAmount, "Correction amount cannot be zero")
	}
	if date.IsZero() {
		date = time.Now()
	}
	notes := CorrectionNote
	if reason != "" {
		notes = CorrectionNote + ": " + reason
	}
	return &Payment{
		ID:          uuid.New(),
		BillingID:   billingID,
		PaymentDate: date,
		Method:      method,
		Amount:      amount,
		Kind:        PaymentKindCorrection,
		Notes:       notes,
		RecordedBy:  recordedBy,
		CreatedAt:   time.Now(),
	}, nil
}

// IsCorrection returns true for negative-adjustment payments
func (p *Payment) IsCorrection() bool {
	return p.Kind == PaymentKindCorrection
}

// Payments is the ordered payment log of a billing record. Insertion
// order is the total order; entries are never reordered or removed.
type Payments []Payment

// Total returns the signed sum of all payment amounts
func (ps Payments) Total(currency valueobject.Currency) valueobject.Money {
	total := valueobject.Zero(currency)
	for _, p := range ps {
		total = total.MustAdd(p.Amount)
	}
	return total
}

// InRange returns the payments whose payment date falls within [from, to]
func (ps Payments) InRange(from, to time.Time) Payments {
	out := make(Payments, 0, len(ps))
	for _, p := range ps {
		if p.PaymentDate.Before(from) || p.PaymentDate.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
