package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// BillingType represents the billing modality of a record
type BillingType string

const (
	BillingTypeTISS      BillingType = "tiss"
	BillingTypePrivate   BillingType = "private"
	BillingTypeCash      BillingType = "cash"
	BillingTypeInsurance BillingType = "insurance"
	BillingTypeCorporate BillingType = "corporate"
)

// IsValid checks if the type is a valid BillingType
func (t BillingType) IsValid() bool {
	switch t {
	case BillingTypeTISS, BillingTypePrivate, BillingTypeCash, BillingTypeInsurance, BillingTypeCorporate:
		return true
	}
	return false
}

// String returns the string representation of BillingType
func (t BillingType) String() string {
	return string(t)
}

// BillingStatus represents the status of a billing record.
// pending, paid and overdue are derived from (balance, due date, as-of
// instant) every time status is read; cancelled, disputed and refunded
// are explicit command states.
type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusPaid      BillingStatus = "paid"
	BillingStatusOverdue   BillingStatus = "overdue"
	BillingStatusCancelled BillingStatus = "cancelled"
	BillingStatusRefunded  BillingStatus = "refunded"
	BillingStatusDisputed  BillingStatus = "disputed"
)

// IsValid checks if the status is a valid BillingStatus
func (s BillingStatus) IsValid() bool {
	switch s {
	case BillingStatusPending, BillingStatusPaid, BillingStatusOverdue,
		BillingStatusCancelled, BillingStatusRefunded, BillingStatusDisputed:
		return true
	}
	return false
}

// String returns the string representation of BillingStatus
func (s BillingStatus) String() string {
	return string(s)
}

// IsClosed returns true for states that accept no further payments
func (s BillingStatus) IsClosed() bool {
	return s == BillingStatusCancelled || s == BillingStatusRefunded
}

// ItemType classifies a billed service line
type ItemType string

const (
	ItemTypeConsultation ItemType = "consultation"
	ItemTypeProcedure    ItemType = "procedure"
	ItemTypeExam         ItemType = "exam"
	ItemTypeMaterial     ItemType = "material"
	ItemTypeOther        ItemType = "other"
)

// IsValid checks if the item type is valid
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeConsultation, ItemTypeProcedure, ItemTypeExam, ItemTypeMaterial, ItemTypeOther:
		return true
	}
	return false
}

// LineItem is one billed service within a billing record
type LineItem struct {
	ItemType  ItemType          `json:"item_type"`
	Name      string            `json:"name"`
	Quantity  int64             `json:"quantity"`
	UnitPrice valueobject.Money `json:"unit_price"`
	LineTotal valueobject.Money `json:"line_total"`
}

// NewLineItem creates a line item with its computed total
func NewLineItem(itemType ItemType, name string, quantity int64, unitPrice valueobject.Money) (LineItem, error) {
	if !itemType.IsValid() {
		return LineItem{}, shared.NewDomainError(shared.ErrCodeValidation, "Line item type is not valid")
	}
	if name == "" {
		return LineItem{}, shared.NewDomainError(shared.ErrCodeValidation, "Line item name cannot be empty")
	}
	if quantity <= 0 {
		return LineItem{}, shared.NewDomainError(shared.ErrCodeValidation, "Line item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError(shared.ErrCodeValidation, "Line item unit price cannot be negative")
	}
	return LineItem{
		ItemType:  itemType,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice.MultiplyByInt(quantity),
	}, nil
}

// InsuranceInfo holds the optional insurance references on a record
type InsuranceInfo struct {
	Company string `json:"company,omitempty"`
	Number  string `json:"number,omitempty"`
}

// BillingRecord is the aggregate root for one billable clinical
// encounter. It owns its line items and its append-only payment log;
// the payment log is the only writer of the paid amount.
type BillingRecord struct {
	shared.AuditedAggregateRoot
	BillingNumber  string            `json:"billing_number"`
	PatientID      uuid.UUID         `json:"patient_id"`
	DoctorID       uuid.UUID         `json:"doctor_id"`
	Type           BillingType       `json:"type"`
	BillingDate    time.Time         `json:"billing_date"`
	DueDate        time.Time         `json:"due_date"`
	Items          []LineItem        `json:"items"`
	TaxAmount      valueobject.Money `json:"tax_amount"`
	DiscountAmount valueobject.Money `json:"discount_amount"`
	TotalAmount    valueobject.Money `json:"total_amount"`
	Insurance      InsuranceInfo     `json:"insurance"`
	Notes          string            `json:"notes,omitempty"`
	Payments       Payments          `json:"payments"`

	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	DisputedAt    *time.Time `json:"disputed_at,omitempty"`
	DisputeReason string     `json:"dispute_reason,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	RefundReason  string     `json:"refund_reason,omitempty"`
}

// NewBillingRecord creates a billing record for an encounter. The total
// is computed deterministically from the inputs: sum of line totals plus
// tax minus discount.
func NewBillingRecord(
	billingNumber string,
	patientID, doctorID uuid.UUID,
	billingType BillingType,
	billingDate, dueDate time.Time,
	items []LineItem,
	taxAmount, discountAmount valueobject.Money,
	insurance InsuranceInfo,
	notes string,
	createdBy *uuid.UUID,
) (*BillingRecord, error) {
	if billingNumber == "" {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing number cannot be empty")
	}
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Patient ID cannot be empty")
	}
	if doctorID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Doctor ID cannot be empty")
	}
	if !billingType.IsValid() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing type is not valid")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Billing record requires at least one line item")
	}
	if taxAmount.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Tax amount cannot be negative")
	}
	if discountAmount.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Discount amount cannot be negative")
	}
	if billingDate.IsZero() {
		billingDate = time.Now()
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Due date cannot be empty")
	}

	currency := taxAmount.Currency()
	total := valueobject.Zero(currency)
	for _, item := range items {
		if item.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError(shared.ErrCodeValidation, "Line item unit price cannot be negative")
		}
		var err error
		total, err = total.Add(item.LineTotal)
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrCodeValidation, err.Error())
		}
	}
	total = total.MustAdd(taxAmount).MustSubtract(discountAmount)
	if total.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrCodeValidation, "Total amount cannot be negative")
	}

	br := &BillingRecord{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		BillingNumber:        billingNumber,
		PatientID:            patientID,
		DoctorID:             doctorID,
		Type:                 billingType,
		BillingDate:          billingDate,
		DueDate:              dueDate,
		Items:                items,
		TaxAmount:            taxAmount,
		DiscountAmount:       discountAmount,
		TotalAmount:          total,
		Insurance:            insurance,
		Notes:                notes,
		Payments:             Payments{},
	}

	br.AddDomainEvent(NewBillingRecordCreatedEvent(br))

	return br, nil
}

// Currency returns the record's currency tag
func (br *BillingRecord) Currency() valueobject.Currency {
	return br.TotalAmount.Currency()
}

// PaidAmount is derived from the payment log, never stored
// authoritatively anywhere else
func (br *BillingRecord) PaidAmount() valueobject.Money {
	return br.Payments.Total(br.Currency())
}

// BalanceAmount is the signed outstanding balance. Negative means the
// record is overpaid; use DisplayBalance for the zero-floored view.
func (br *BillingRecord) BalanceAmount() valueobject.Money {
	return br.TotalAmount.MustSubtract(br.PaidAmount())
}

// DisplayBalance returns the balance floored at zero
func (br *BillingRecord) DisplayBalance() valueobject.Money {
	return br.BalanceAmount().FloorZero()
}

// IsOverpaid returns true when the payment log exceeds the billed total.
// The excess is reported for human reconciliation, never silently absorbed.
func (br *BillingRecord) IsOverpaid() bool {
	return br.BalanceAmount().IsNegative()
}

// OverpaidAmount returns the amount paid beyond the total, zero if none
func (br *BillingRecord) OverpaidAmount() valueobject.Money {
	return br.BalanceAmount().Negate().FloorZero()
}

// Status returns the record status as of now
func (br *BillingRecord) Status() BillingStatus {
	return br.StatusAt(time.Now())
}

// StatusAt derives the record status as of the given instant. Terminal
// commands win; otherwise status is a pure function of (balance, due
// date, asOf), guaranteeing consistency without a reconciliation job.
func (br *BillingRecord) StatusAt(asOf time.Time) BillingStatus {
	switch {
	case br.CancelledAt != nil:
		return BillingStatusCancelled
	case br.RefundedAt != nil:
		return BillingStatusRefunded
	case br.DisputedAt != nil:
		return BillingStatusDisputed
	}
	if !br.BalanceAmount().IsPositive() {
		return BillingStatusPaid
	}
	if asOf.After(br.DueDate) {
		return BillingStatusOverdue
	}
	return BillingStatusPending
}

// DaysOverdue returns whole days past the due date as of the given
// instant, never negative
func (br *BillingRecord) DaysOverdue(asOf time.Time) int {
	if !asOf.After(br.DueDate) {
		return 0
	}
	return int(asOf.Sub(br.DueDate).Hours() / 24)
}

// AddPayment appends a payment to the log. Returns the created payment
// and whether the record is now overpaid. An overpayment is recorded and
// flagged, not rejected: real-world duplicate remittances happen and the
// caller decides whether to refund.
func (br *BillingRecord) AddPayment(date time.Time, method PaymentMethod, amount valueobject.Money, ref PaymentReference, notes string, recordedBy *uuid.UUID) (*Payment, bool, error) {
	if status := br.Status(); status.IsClosed() {
		return nil, false, shared.NewDomainError(shared.ErrCodeClosedBilling,
			fmt.Sprintf("Cannot apply payment to billing record in %s status", status))
	}

	payment, err := NewPayment(br.ID, date, method, amount, ref, notes, recordedBy)
	if err != nil {
		return nil, false, err
	}

	br.Payments = append(br.Payments, *payment)
	br.UpdatedAt = time.Now()
	br.IncrementVersion()

	br.AddDomainEvent(NewPaymentAppliedEvent(br, payment))
	overpaid := br.IsOverpaid()
	if overpaid {
		br.AddDomainEvent(NewBillingRecordOverpaidEvent(br, payment))
	} else if !br.BalanceAmount().IsPositive() {
		br.AddDomainEvent(NewBillingRecordPaidEvent(br))
	}

	return payment, overpaid, nil
}

// AddCorrection appends a negative-adjustment payment. This is the only
// path that accepts a negative amount.
func (br *BillingRecord) AddCorrection(date time.Time, method PaymentMethod, amount valueobject.Money, reason string, recordedBy *uuid.UUID) (*Payment, error) {
	if status := br.Status(); status.IsClosed() {
		return nil, shared.NewDomainError(shared.ErrCodeClosedBilling,
			fmt.Sprintf("Cannot apply correction to billing record in %s status", status))
	}

	correction, err := NewCorrection(br.ID, date, method, amount, reason, recordedBy)
	if err != nil {
		return nil, err
	}

	br.Payments = append(br.Payments, *correction)
	br.UpdatedAt = time.Now()
	br.IncrementVersion()

	br.AddDomainEvent(NewPaymentAppliedEvent(br, correction))

	return correction, nil
}

// Cancel marks the record cancelled. Cancellation requires a zero paid
// amount or a prior full refund; anything else must go through Dispute.
// Re-cancelling an already cancelled record is a no-op, not an error.
func (br *BillingRecord) Cancel(reason string, actor *uuid.UUID) error {
	if br.CancelledAt != nil {
		return nil
	}
	if reason == "" {
		return shared.NewDomainError(shared.ErrCodeValidation, "Cancel reason is required")
	}
	if br.PaidAmount().IsPositive() && br.RefundedAt == nil {
		return shared.NewDomainError(shared.ErrCodeConflict,
			"Cannot cancel billing record with applied payments; refund first or open a dispute")
	}

	now := time.Now()
	br.CancelledAt = &now
	br.CancelReason = reason
	br.UpdatedAt = now
	br.IncrementVersion()

	br.AddDomainEvent(NewBillingRecordCancelledEvent(br, actor))

	return nil
}

// Dispute marks the record disputed. Allowed from pending, overdue and
// paid; closed records cannot be disputed.
func (br *BillingRecord) Dispute(reason string, actor *uuid.UUID) error {
	if status := br.Status(); status.IsClosed() {
		return shared.NewDomainError(shared.ErrCodeConflict,
			fmt.Sprintf("Cannot dispute billing record in %s status", status))
	}
	if reason == "" {
		return shared.NewDomainError(shared.ErrCodeValidation, "Dispute reason is required")
	}
	if br.DisputedAt != nil {
		return nil
	}

	now := time.Now()
	br.DisputedAt = &now
	br.DisputeReason = reason
	br.UpdatedAt = now
	br.IncrementVersion()

	br.AddDomainEvent(NewBillingRecordDisputedEvent(br, actor))

	return nil
}

// Refund marks a fully paid record refunded. The refunded money itself
// is returned through the payment gateway collaborator; here only the
// ledger state changes.
func (br *BillingRecord) Refund(reason string, actor *uuid.UUID) error {
	status := br.Status()
	if status != BillingStatusPaid && status != BillingStatusDisputed {
		return shared.NewDomainError(shared.ErrCodeConflict,
			fmt.Sprintf("Cannot refund billing record in %s status", status))
	}
	if status == BillingStatusDisputed && br.BalanceAmount().IsPositive() {
		return shared.NewDomainError(shared.ErrCodeConflict,
			"Cannot refund a disputed billing record with an outstanding balance")
	}
	if reason == "" {
		return shared.NewDomainError(shared.ErrCodeValidation, "Refund reason is required")
	}

	now := time.Now()
	br.RefundedAt = &now
	br.RefundReason = reason
	br.DisputedAt = nil
	br.DisputeReason = ""
	br.UpdatedAt = now
	br.IncrementVersion()

	br.AddDomainEvent(NewBillingRecordRefundedEvent(br, actor))

	return nil
}

// ConsultationCount tallies consultation line items
func (br *BillingRecord) ConsultationCount() int {
	count := 0
	for _, item := range br.Items {
		if item.ItemType == ItemTypeConsultation {
			count += int(item.Quantity)
		}
	}
	return count
}

// ProcedureCount tallies procedure line items
func (br *BillingRecord) ProcedureCount() int {
	count := 0
	for _, item := range br.Items {
		if item.ItemType == ItemTypeProcedure {
			count += int(item.Quantity)
		}
	}
	return count
}

// Reconcile verifies the stored total against the line items. The total
// is computed at construction; a mismatch on load means the persisted
// row was tampered with or corrupted.
func (br *BillingRecord) Reconcile() error {
	total := valueobject.Zero(br.Currency())
	for _, item := range br.Items {
		var err error
		total, err = total.Add(item.LineTotal)
		if err != nil {
			return err
		}
	}
	total = total.MustAdd(br.TaxAmount).MustSubtract(br.DiscountAmount)
	if !total.Equals(br.TotalAmount) {
		return shared.NewDomainError(shared.ErrCodeConflict,
			fmt.Sprintf("Billing record %s total %s does not match line items %s",
				br.BillingNumber, br.TotalAmount, total))
	}
	return nil
}
