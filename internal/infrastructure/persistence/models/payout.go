package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/payout"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// PhysicianPayoutModel is the persistence model for the PhysicianPayout
// aggregate root.
type PhysicianPayoutModel struct {
	AuditedAggregateModel
	PayoutNumber      string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	DoctorID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	PeriodStart       time.Time           `gorm:"not null;index"`
	PeriodEnd         time.Time           `gorm:"not null;index"`
	GrossRevenueMinor int64               `gorm:"not null"`
	FacilityFeeMinor  int64               `gorm:"not null"`
	NetPayoutMinor    int64               `gorm:"not null"`
	Currency          string              `gorm:"type:varchar(3);not null;default:'BRL'"`
	FeePolicy         string              `gorm:"type:varchar(100);not null"`
	ConsultationCount int                 `gorm:"not null;default:0"`
	ProcedureCount    int                 `gorm:"not null;default:0"`
	BillingCount      int                 `gorm:"not null;default:0"`
	Status            payout.PayoutStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAt            *time.Time
}

// TableName returns the table name for GORM
func (PhysicianPayoutModel) TableName() string {
	return "physician_payouts"
}

// ToDomain converts the persistence model to a domain PhysicianPayout.
func (m *PhysicianPayoutModel) ToDomain() *payout.PhysicianPayout {
	currency := valueobject.Currency(m.Currency)
	p := &payout.PhysicianPayout{
		PayoutNumber:      m.PayoutNumber,
		DoctorID:          m.DoctorID,
		Period:            payout.Period{Start: m.PeriodStart, End: m.PeriodEnd},
		GrossRevenue:      valueobject.MustNewMoney(m.GrossRevenueMinor, currency),
		FacilityFee:       valueobject.MustNewMoney(m.FacilityFeeMinor, currency),
		NetPayout:         valueobject.MustNewMoney(m.NetPayoutMinor, currency),
		FeePolicy:         m.FeePolicy,
		ConsultationCount: m.ConsultationCount,
		ProcedureCount:    m.ProcedureCount,
		BillingCount:      m.BillingCount,
		Status:            m.Status,
		PaidAt:            m.PaidAt,
	}
	m.PopulateAuditedAggregateRoot(&p.AuditedAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain PhysicianPayout.
func (m *PhysicianPayoutModel) FromDomain(p *payout.PhysicianPayout) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.PayoutNumber = p.PayoutNumber
	m.DoctorID = p.DoctorID
	m.PeriodStart = p.Period.Start
	m.PeriodEnd = p.Period.End
	m.GrossRevenueMinor = p.GrossRevenue.MinorUnits()
	m.FacilityFeeMinor = p.FacilityFee.MinorUnits()
	m.NetPayoutMinor = p.NetPayout.MinorUnits()
	m.Currency = string(p.GrossRevenue.Currency())
	m.FeePolicy = p.FeePolicy
	m.ConsultationCount = p.ConsultationCount
	m.ProcedureCount = p.ProcedureCount
	m.BillingCount = p.BillingCount
	m.Status = p.Status
	m.PaidAt = p.PaidAt
}

// PhysicianPayoutModelFromDomain creates a new persistence model from a domain PhysicianPayout.
func PhysicianPayoutModelFromDomain(p *payout.PhysicianPayout) *PhysicianPayoutModel {
	m := &PhysicianPayoutModel{}
	m.FromDomain(p)
	return m
}
