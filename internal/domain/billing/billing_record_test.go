package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func testLineItem(t *testing.T, itemType ItemType, qty, unitPriceMinor int64) LineItem {
	t.Helper()
	item, err := NewLineItem(itemType, "Consulta clínica", qty, valueobject.NewMoneyBRL(unitPriceMinor))
	require.NoError(t, err)
	return item
}

func createTestRecord(t *testing.T, totalMinor int64, dueInDays int) *BillingRecord {
	t.Helper()
	br, err := NewBillingRecord(
		"FAT-2026-00001",
		uuid.New(),
		uuid.New(),
		BillingTypePrivate,
		time.Now(),
		time.Now().AddDate(0, 0, dueInDays),
		[]LineItem{testLineItem(t, ItemTypeConsultation, 1, totalMinor)},
		valueobject.ZeroBRL(),
		valueobject.ZeroBRL(),
		InsuranceInfo{},
		"",
		nil,
	)
	require.NoError(t, err)
	return br
}

func addPayment(t *testing.T, br *BillingRecord, minor int64) *Payment {
	t.Helper()
	p, _, err := br.AddPayment(time.Now(), PaymentMethodPix, valueobject.NewMoneyBRL(minor), PaymentReference{}, "", nil)
	require.NoError(t, err)
	return p
}

// ============================================
// Enum Tests
// ============================================

func TestBillingType_IsValid(t *testing.T) {
	tests := []struct {
		billingType BillingType
		isValid     bool
	}{
		{BillingTypeTISS, true},
		{BillingTypePrivate, true},
		{BillingTypeCash, true},
		{BillingTypeInsurance, true},
		{BillingTypeCorporate, true},
		{BillingType("crypto"), false},
		{BillingType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.billingType), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.billingType.IsValid())
		})
	}
}

func TestBillingStatus_IsClosed(t *testing.T) {
	tests := []struct {
		status   BillingStatus
		isClosed bool
	}{
		{BillingStatusPending, false},
		{BillingStatusPaid, false},
		{BillingStatusOverdue, false},
		{BillingStatusDisputed, false},
		{BillingStatusCancelled, true},
		{BillingStatusRefunded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isClosed, tt.status.IsClosed())
		})
	}
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodPix.IsValid())
	assert.True(t, PaymentMethodBoleto.IsValid())
	assert.False(t, PaymentMethod("iou").IsValid())
}

// ============================================
// LineItem Tests
// ============================================

func TestNewLineItem(t *testing.T) {
	t.Run("computes line total", func(t *testing.T) {
		item, err := NewLineItem(ItemTypeProcedure, "Sutura simples", 3, valueobject.NewMoneyBRL(2500))
		require.NoError(t, err)
		assert.Equal(t, int64(7500), item.LineTotal.MinorUnits())
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		_, err := NewLineItem(ItemTypeProcedure, "Sutura", 1, valueobject.NewMoneyBRL(-1))
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeValidation, derr.Code)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewLineItem(ItemTypeProcedure, "Sutura", 0, valueobject.NewMoneyBRL(100))
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewLineItem(ItemTypeProcedure, "", 1, valueobject.NewMoneyBRL(100))
		assert.Error(t, err)
	})
}

// ============================================
// BillingRecord Construction Tests
// ============================================

func TestNewBillingRecord(t *testing.T) {
	t.Run("computes total from items tax and discount", func(t *testing.T) {
		br, err := NewBillingRecord(
			"FAT-2026-00002",
			uuid.New(), uuid.New(),
			BillingTypeInsurance,
			time.Now(), time.Now().AddDate(0, 0, 30),
			[]LineItem{
				testLineItem(t, ItemTypeConsultation, 1, 10000),
				testLineItem(t, ItemTypeProcedure, 2, 3000),
			},
			valueobject.NewMoneyBRL(500),
			valueobject.NewMoneyBRL(1500),
			InsuranceInfo{Company: "Unimed", Number: "123456"},
			"",
			nil,
		)
		require.NoError(t, err)
		// 10000 + 6000 + 500 - 1500
		assert.Equal(t, int64(15000), br.TotalAmount.MinorUnits())
		assert.Equal(t, BillingStatusPending, br.Status())
		assert.True(t, br.BalanceAmount().Equals(br.TotalAmount))
		assert.Len(t, br.GetDomainEvents(), 1)
	})

	t.Run("rejects empty items", func(t *testing.T) {
		_, err := NewBillingRecord(
			"FAT-2026-00003", uuid.New(), uuid.New(), BillingTypeCash,
			time.Now(), time.Now().AddDate(0, 0, 30),
			nil, valueobject.ZeroBRL(), valueobject.ZeroBRL(), InsuranceInfo{}, "", nil,
		)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeValidation, derr.Code)
	})

	t.Run("rejects negative total after discount", func(t *testing.T) {
		_, err := NewBillingRecord(
			"FAT-2026-00004", uuid.New(), uuid.New(), BillingTypeCash,
			time.Now(), time.Now().AddDate(0, 0, 30),
			[]LineItem{testLineItem(t, ItemTypeConsultation, 1, 1000)},
			valueobject.ZeroBRL(), valueobject.NewMoneyBRL(2000), InsuranceInfo{}, "", nil,
		)
		assert.Error(t, err)
	})

	t.Run("rejects invalid billing type", func(t *testing.T) {
		_, err := NewBillingRecord(
			"FAT-2026-00005", uuid.New(), uuid.New(), BillingType("barter"),
			time.Now(), time.Now().AddDate(0, 0, 30),
			[]LineItem{testLineItem(t, ItemTypeConsultation, 1, 1000)},
			valueobject.ZeroBRL(), valueobject.ZeroBRL(), InsuranceInfo{}, "", nil,
		)
		assert.Error(t, err)
	})
}

// ============================================
// Payment Application Tests
// ============================================

func TestBillingRecord_AddPayment(t *testing.T) {
	t.Run("partial then full payment reaches paid", func(t *testing.T) {
		// Scenario: R$150.00 due in 30 days, paid in two installments
		br := createTestRecord(t, 15000, 30)

		addPayment(t, br, 10000)
		assert.Equal(t, int64(5000), br.BalanceAmount().MinorUnits())
		assert.Equal(t, BillingStatusPending, br.Status())

		addPayment(t, br, 5000)
		assert.Equal(t, int64(0), br.BalanceAmount().MinorUnits())
		assert.Equal(t, BillingStatusPaid, br.Status())
	})

	t.Run("balance equals total minus payment sum", func(t *testing.T) {
		br := createTestRecord(t, 20000, 30)
		addPayment(t, br, 3000)
		addPayment(t, br, 7000)

		assert.Equal(t, br.TotalAmount.MinorUnits()-br.PaidAmount().MinorUnits(), br.BalanceAmount().MinorUnits())
		assert.Equal(t, int64(10000), br.PaidAmount().MinorUnits())
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		_, _, err := br.AddPayment(time.Now(), PaymentMethodCash, valueobject.ZeroBRL(), PaymentReference{}, "", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeInvalidAmount, derr.Code)

		_, _, err = br.AddPayment(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(-100), PaymentReference{}, "", nil)
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeInvalidAmount, derr.Code)
	})

	t.Run("overpayment is recorded and flagged, not rejected", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)

		p, overpaid, err := br.AddPayment(time.Now(), PaymentMethodCreditCard, valueobject.NewMoneyBRL(12000), PaymentReference{}, "", nil)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.True(t, overpaid)
		assert.True(t, br.IsOverpaid())
		assert.Equal(t, int64(2000), br.OverpaidAmount().MinorUnits())
		assert.Equal(t, int64(-2000), br.BalanceAmount().MinorUnits())
		assert.Equal(t, int64(0), br.DisplayBalance().MinorUnits())
		assert.Equal(t, BillingStatusPaid, br.Status())
	})

	t.Run("rejects payment on cancelled record", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		require.NoError(t, br.Cancel("posted in error", nil))

		_, _, err := br.AddPayment(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(100), PaymentReference{}, "", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeClosedBilling, derr.Code)
	})

	t.Run("rejects payment on refunded record", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 10000)
		require.NoError(t, br.Refund("duplicate charge", nil))

		_, _, err := br.AddPayment(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(100), PaymentReference{}, "", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeClosedBilling, derr.Code)
	})

	t.Run("payments keep insertion order", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		p1 := addPayment(t, br, 1000)
		p2 := addPayment(t, br, 2000)

		require.Len(t, br.Payments, 2)
		assert.Equal(t, p1.ID, br.Payments[0].ID)
		assert.Equal(t, p2.ID, br.Payments[1].ID)
	})
}

func TestBillingRecord_AddCorrection(t *testing.T) {
	t.Run("accepts negative adjustment and tags notes", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 10000)
		assert.Equal(t, BillingStatusPaid, br.Status())

		c, err := br.AddCorrection(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(-4000), "keyed wrong amount", nil)
		require.NoError(t, err)
		assert.True(t, c.IsCorrection())
		assert.Contains(t, c.Notes, CorrectionNote)
		assert.Equal(t, int64(4000), br.BalanceAmount().MinorUnits())
		assert.Equal(t, BillingStatusPending, br.Status())
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		_, err := br.AddCorrection(time.Now(), PaymentMethodCash, valueobject.ZeroBRL(), "", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeInvalidAmount, derr.Code)
	})

	t.Run("normal path rejects what correction path accepts", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		_, _, err := br.AddPayment(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(-4000), PaymentReference{}, "", nil)
		assert.Error(t, err)

		_, err = br.AddCorrection(time.Now(), PaymentMethodCash, valueobject.NewMoneyBRL(-4000), "", nil)
		assert.NoError(t, err)
	})
}

// ============================================
// Status Derivation Tests
// ============================================

func TestBillingRecord_StatusAt(t *testing.T) {
	t.Run("overdue is derived lazily from due date", func(t *testing.T) {
		br := createTestRecord(t, 20000, 30)
		assert.Equal(t, BillingStatusPending, br.StatusAt(time.Now()))

		future := time.Now().AddDate(0, 0, 31)
		assert.Equal(t, BillingStatusOverdue, br.StatusAt(future))
	})

	t.Run("paid record never becomes overdue", func(t *testing.T) {
		br := createTestRecord(t, 10000, -10)
		assert.Equal(t, BillingStatusOverdue, br.Status())

		addPayment(t, br, 10000)
		assert.Equal(t, BillingStatusPaid, br.Status())
		assert.Equal(t, BillingStatusPaid, br.StatusAt(time.Now().AddDate(1, 0, 0)))
	})

	t.Run("terminal flags win over derivation", func(t *testing.T) {
		br := createTestRecord(t, 10000, -10)
		require.NoError(t, br.Dispute("patient contests charge", nil))
		assert.Equal(t, BillingStatusDisputed, br.Status())

		br2 := createTestRecord(t, 10000, -10)
		require.NoError(t, br2.Cancel("duplicate", nil))
		assert.Equal(t, BillingStatusCancelled, br2.Status())
	})
}

func TestBillingRecord_DaysOverdue(t *testing.T) {
	br := createTestRecord(t, 20000, -45)
	asOf := time.Now()
	assert.Equal(t, 45, br.DaysOverdue(asOf))

	future := createTestRecord(t, 20000, 10)
	assert.Equal(t, 0, future.DaysOverdue(asOf))
}

// ============================================
// Cancel / Dispute / Refund Tests
// ============================================

func TestBillingRecord_Cancel(t *testing.T) {
	t.Run("succeeds with zero paid amount", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		require.NoError(t, br.Cancel("scheduling error", nil))
		assert.Equal(t, BillingStatusCancelled, br.Status())
		assert.NotNil(t, br.CancelledAt)
	})

	t.Run("re-cancel is a no-op", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		require.NoError(t, br.Cancel("scheduling error", nil))
		firstCancelledAt := *br.CancelledAt

		require.NoError(t, br.Cancel("again", nil))
		assert.Equal(t, firstCancelledAt, *br.CancelledAt)
		assert.Equal(t, "scheduling error", br.CancelReason)
	})

	t.Run("fails with applied payments and no refund", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 5000)

		err := br.Cancel("scheduling error", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeConflict, derr.Code)
	})

	t.Run("succeeds after full refund", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 10000)
		require.NoError(t, br.Refund("service not rendered", nil))
		require.NoError(t, br.Cancel("service not rendered", nil))
		assert.Equal(t, BillingStatusCancelled, br.Status())
	})

	t.Run("requires a reason", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		assert.Error(t, br.Cancel("", nil))
	})
}

func TestBillingRecord_Dispute(t *testing.T) {
	t.Run("allowed from paid", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 10000)
		require.NoError(t, br.Dispute("patient contests charge", nil))
		assert.Equal(t, BillingStatusDisputed, br.Status())
	})

	t.Run("rejected on cancelled record", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		require.NoError(t, br.Cancel("duplicate", nil))
		err := br.Dispute("too late", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeConflict, derr.Code)
	})
}

func TestBillingRecord_Refund(t *testing.T) {
	t.Run("only a paid record can be refunded", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		err := br.Refund("not rendered", nil)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, shared.ErrCodeConflict, derr.Code)

		addPayment(t, br, 10000)
		require.NoError(t, br.Refund("not rendered", nil))
		assert.Equal(t, BillingStatusRefunded, br.Status())
	})

	t.Run("resolves a fully paid dispute", func(t *testing.T) {
		br := createTestRecord(t, 10000, 30)
		addPayment(t, br, 10000)
		require.NoError(t, br.Dispute("contested", nil))
		require.NoError(t, br.Refund("dispute upheld", nil))
		assert.Equal(t, BillingStatusRefunded, br.Status())
		assert.Nil(t, br.DisputedAt)
	})
}

// ============================================
// Counts and Reconciliation
// ============================================

func TestBillingRecord_ItemCounts(t *testing.T) {
	br, err := NewBillingRecord(
		"FAT-2026-00010", uuid.New(), uuid.New(), BillingTypePrivate,
		time.Now(), time.Now().AddDate(0, 0, 30),
		[]LineItem{
			testLineItem(t, ItemTypeConsultation, 2, 10000),
			testLineItem(t, ItemTypeProcedure, 3, 5000),
			testLineItem(t, ItemTypeExam, 1, 2000),
		},
		valueobject.ZeroBRL(), valueobject.ZeroBRL(), InsuranceInfo{}, "", nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 2, br.ConsultationCount())
	assert.Equal(t, 3, br.ProcedureCount())
}

func TestBillingRecord_Reconcile(t *testing.T) {
	br := createTestRecord(t, 15000, 30)
	assert.NoError(t, br.Reconcile())

	br.TotalAmount = valueobject.NewMoneyBRL(99999)
	err := br.Reconcile()
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, shared.ErrCodeConflict, derr.Code)
}
