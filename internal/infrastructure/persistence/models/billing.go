package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// LineItemsJSON stores a record's line items as a jsonb column. Line
// items are immutable after construction, so the document form costs
// nothing in query flexibility.
type LineItemsJSON []billing.LineItem

// Value implements driver.Valuer for jsonb storage
func (l LineItemsJSON) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for jsonb storage
func (l *LineItemsJSON) Scan(value any) error {
	if value == nil {
		*l = LineItemsJSON{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for LineItemsJSON")
	}
}

// BillingRecordModel is the persistence model for the BillingRecord
// aggregate root. Paid amount and balance are denormalized from the
// payment log on every save so reporting queries can aggregate in SQL;
// the payment log stays the source of truth.
type BillingRecordModel struct {
	AuditedAggregateModel
	BillingNumber    string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	PatientID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	DoctorID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	Type             billing.BillingType `gorm:"type:varchar(20);not null;index"`
	BillingDate      time.Time           `gorm:"not null;index"`
	DueDate          time.Time           `gorm:"not null;index"`
	Items            LineItemsJSON       `gorm:"type:jsonb;default:'[]'"`
	TaxAmountMinor   int64               `gorm:"not null"`
	DiscountMinor    int64               `gorm:"not null"`
	TotalAmountMinor int64               `gorm:"not null"`
	PaidAmountMinor  int64               `gorm:"not null;default:0"`
	BalanceMinor     int64               `gorm:"not null;index"`
	Currency         string              `gorm:"type:varchar(3);not null;default:'BRL'"`
	InsuranceCompany string              `gorm:"type:varchar(200)"`
	InsuranceNumber  string              `gorm:"type:varchar(100)"`
	Notes            string              `gorm:"type:text"`
	Payments         []PaymentModel      `gorm:"foreignKey:BillingID;references:ID"`
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
	DisputedAt       *time.Time
	DisputeReason    string `gorm:"type:varchar(500)"`
	RefundedAt       *time.Time
	RefundReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BillingRecordModel) TableName() string {
	return "billing_records"
}

// ToDomain converts the persistence model to a domain BillingRecord.
func (m *BillingRecordModel) ToDomain() *billing.BillingRecord {
	currency := valueobject.Currency(m.Currency)
	br := &billing.BillingRecord{
		BillingNumber:  m.BillingNumber,
		PatientID:      m.PatientID,
		DoctorID:       m.DoctorID,
		Type:           m.Type,
		BillingDate:    m.BillingDate,
		DueDate:        m.DueDate,
		Items:          []billing.LineItem(m.Items),
		TaxAmount:      valueobject.MustNewMoney(m.TaxAmountMinor, currency),
		DiscountAmount: valueobject.MustNewMoney(m.DiscountMinor, currency),
		TotalAmount:    valueobject.MustNewMoney(m.TotalAmountMinor, currency),
		Insurance:      billing.InsuranceInfo{Company: m.InsuranceCompany, Number: m.InsuranceNumber},
		Notes:          m.Notes,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
		DisputedAt:     m.DisputedAt,
		DisputeReason:  m.DisputeReason,
		RefundedAt:     m.RefundedAt,
		RefundReason:   m.RefundReason,
		Payments:       make(billing.Payments, len(m.Payments)),
	}
	m.PopulateAuditedAggregateRoot(&br.AuditedAggregateRoot)
	for i := range m.Payments {
		br.Payments[i] = *m.Payments[i].ToDomain(currency)
	}
	return br
}

// FromDomain populates the persistence model from a domain BillingRecord.
func (m *BillingRecordModel) FromDomain(br *billing.BillingRecord) {
	m.FromDomainAuditedAggregateRoot(br.AuditedAggregateRoot)
	m.BillingNumber = br.BillingNumber
	m.PatientID = br.PatientID
	m.DoctorID = br.DoctorID
	m.Type = br.Type
	m.BillingDate = br.BillingDate
	m.DueDate = br.DueDate
	m.Items = LineItemsJSON(br.Items)
	m.TaxAmountMinor = br.TaxAmount.MinorUnits()
	m.DiscountMinor = br.DiscountAmount.MinorUnits()
	m.TotalAmountMinor = br.TotalAmount.MinorUnits()
	m.PaidAmountMinor = br.PaidAmount().MinorUnits()
	m.BalanceMinor = br.BalanceAmount().MinorUnits()
	m.Currency = string(br.Currency())
	m.InsuranceCompany = br.Insurance.Company
	m.InsuranceNumber = br.Insurance.Number
	m.Notes = br.Notes
	m.CancelledAt = br.CancelledAt
	m.CancelReason = br.CancelReason
	m.DisputedAt = br.DisputedAt
	m.DisputeReason = br.DisputeReason
	m.RefundedAt = br.RefundedAt
	m.RefundReason = br.RefundReason
	m.Payments = make([]PaymentModel, len(br.Payments))
	for i := range br.Payments {
		m.Payments[i] = *PaymentModelFromDomain(&br.Payments[i])
	}
}

// BillingRecordModelFromDomain creates a new persistence model from a domain BillingRecord.
func BillingRecordModelFromDomain(br *billing.BillingRecord) *BillingRecordModel {
	m := &BillingRecordModel{}
	m.FromDomain(br)
	return m
}

// PaymentModel is the persistence model for a payment log entry. Rows
// are insert-only; the dashboard sums them by payment date in SQL.
type PaymentModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primary_key"`
	BillingID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentDate   time.Time             `gorm:"not null;index"`
	Method        billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	AmountMinor   int64                 `gorm:"not null"`
	Kind          billing.PaymentKind   `gorm:"type:varchar(20);not null;default:'normal'"`
	TransactionID string                `gorm:"type:varchar(100)"`
	BankReference string                `gorm:"type:varchar(100)"`
	CheckNumber   string                `gorm:"type:varchar(50)"`
	Notes         string                `gorm:"type:varchar(500)"`
	RecordedBy    *uuid.UUID            `gorm:"type:uuid"`
	CreatedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "billing_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain(currency valueobject.Currency) *billing.Payment {
	return &billing.Payment{
		ID:            m.ID,
		BillingID:     m.BillingID,
		PaymentDate:   m.PaymentDate,
		Method:        m.Method,
		Amount:        valueobject.MustNewMoney(m.AmountMinor, currency),
		Kind:          m.Kind,
		TransactionID: m.TransactionID,
		BankReference: m.BankReference,
		CheckNumber:   m.CheckNumber,
		Notes:         m.Notes,
		RecordedBy:    m.RecordedBy,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	return &PaymentModel{
		ID:            p.ID,
		BillingID:     p.BillingID,
		PaymentDate:   p.PaymentDate,
		Method:        p.Method,
		AmountMinor:   p.Amount.MinorUnits(),
		Kind:          p.Kind,
		TransactionID: p.TransactionID,
		BankReference: p.BankReference,
		CheckNumber:   p.CheckNumber,
		Notes:         p.Notes,
		RecordedBy:    p.RecordedBy,
		CreatedAt:     p.CreatedAt,
	}
}
