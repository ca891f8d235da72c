package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	billingapp "github.com/prontivus/backend/internal/application/billing"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/prontivus/backend/internal/interfaces/http/dto"
)

// =============================================================================
// Mock repository
// =============================================================================

type mockBillingRepo struct {
	mock.Mock
}

func (m *mockBillingRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingRecord), args.Error(1)
}

func (m *mockBillingRepo) FindByBillingNumber(ctx context.Context, billingNumber string) (*billing.BillingRecord, error) {
	args := m.Called(ctx, billingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingRecord), args.Error(1)
}

func (m *mockBillingRepo) FindAll(ctx context.Context, filter billing.BillingRecordFilter) ([]billing.BillingRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BillingRecord), args.Error(1)
}

func (m *mockBillingRepo) FindOpen(ctx context.Context) ([]billing.BillingRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BillingRecord), args.Error(1)
}

func (m *mockBillingRepo) FindByDoctorInPeriod(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]billing.BillingRecord, error) {
	args := m.Called(ctx, doctorID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BillingRecord), args.Error(1)
}

func (m *mockBillingRepo) Save(ctx context.Context, record *billing.BillingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockBillingRepo) SaveWithLock(ctx context.Context, record *billing.BillingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockBillingRepo) Count(ctx context.Context, filter billing.BillingRecordFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingRepo) SumTotalsInRange(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingRepo) SumPaymentsInRange(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingRepo) ExistsByBillingNumber(ctx context.Context, billingNumber string) (bool, error) {
	args := m.Called(ctx, billingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockBillingRepo) GenerateBillingNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

func newBillingTestRouter(repo *mockBillingRepo) *gin.Engine {
	h := NewBillingHandler(billingapp.NewService(repo))
	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/billing", h.CreateBilling)
	api.GET("/billing", h.ListBillings)
	api.GET("/billing/:id", h.GetBilling)
	api.GET("/billing/number/:number", h.GetBillingByNumber)
	api.POST("/billing/:id/payments", h.AddPayment)
	api.POST("/billing/:id/corrections", h.AddCorrection)
	api.POST("/billing/:id/cancel", h.CancelBilling)
	api.POST("/billing/:id/dispute", h.DisputeBilling)
	api.POST("/billing/:id/refund", h.RefundBilling)
	return router
}

func storedRecord(t *testing.T, totalMinor int64) *billing.BillingRecord {
	t.Helper()
	item, err := billing.NewLineItem(billing.ItemTypeConsultation, "Consulta", 1, valueobject.NewMoneyBRL(totalMinor))
	require.NoError(t, err)
	record, err := billing.NewBillingRecord(
		"FAT-2026-0042", uuid.New(), uuid.New(), billing.BillingTypePrivate,
		time.Now(), time.Now().AddDate(0, 0, 30),
		[]billing.LineItem{item},
		valueobject.ZeroBRL(), valueobject.ZeroBRL(), billing.InsuranceInfo{}, "", nil,
	)
	require.NoError(t, err)
	return record
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Tests
// =============================================================================

func TestBillingHandler_CreateBilling(t *testing.T) {
	t.Run("creates a billing record", func(t *testing.T) {
		repo := new(mockBillingRepo)
		repo.On("GenerateBillingNumber", mock.Anything).Return("FAT-2026-0099", nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*billing.BillingRecord")).Return(nil)

		body := gin.H{
			"patient_id":   uuid.New().String(),
			"doctor_id":    uuid.New().String(),
			"type":         "private",
			"billing_date": time.Now().Format(time.RFC3339),
			"due_date":     time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
			"items": []gin.H{
				{"item_type": "consultation", "name": "Consulta clinica", "quantity": 1, "unit_price_minor": 25000},
			},
		}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost, "/api/v1/billing", body)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "FAT-2026-0099", data["billing_number"])
		assert.Equal(t, "pending", data["status"])
		repo.AssertExpectations(t)
	})

	t.Run("rejects a request without items", func(t *testing.T) {
		repo := new(mockBillingRepo)
		body := gin.H{
			"patient_id": uuid.New().String(),
			"doctor_id":  uuid.New().String(),
			"type":       "private",
			"due_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
			"items":      []gin.H{},
		}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost, "/api/v1/billing", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown billing type", func(t *testing.T) {
		repo := new(mockBillingRepo)
		repo.On("GenerateBillingNumber", mock.Anything).Return("FAT-2026-0100", nil)

		body := gin.H{
			"patient_id": uuid.New().String(),
			"doctor_id":  uuid.New().String(),
			"type":       "barter",
			"due_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
			"items": []gin.H{
				{"item_type": "consultation", "name": "Consulta", "quantity": 1, "unit_price_minor": 25000},
			},
		}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost, "/api/v1/billing", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}

func TestBillingHandler_GetBilling(t *testing.T) {
	t.Run("returns the record", func(t *testing.T) {
		record := storedRecord(t, 30000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)

		w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing/"+record.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "FAT-2026-0042")
	})

	t.Run("404 when record is missing", func(t *testing.T) {
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

		w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("400 on malformed id", func(t *testing.T) {
		repo := new(mockBillingRepo)
		w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBillingHandler_GetBillingByNumber(t *testing.T) {
	record := storedRecord(t, 30000)
	repo := new(mockBillingRepo)
	repo.On("FindByBillingNumber", mock.Anything, "FAT-2026-0042").Return(record, nil)

	w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing/number/FAT-2026-0042", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), record.ID.String())
}

func TestBillingHandler_ListBillings(t *testing.T) {
	t.Run("returns paginated records", func(t *testing.T) {
		record := storedRecord(t, 30000)
		repo := new(mockBillingRepo)
		repo.On("FindAll", mock.Anything, mock.Anything).Return([]billing.BillingRecord{*record}, nil)
		repo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

		w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing?page=1&page_size=20", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("rejects an invalid status filter", func(t *testing.T) {
		repo := new(mockBillingRepo)
		w := doJSON(newBillingTestRouter(repo), http.MethodGet, "/api/v1/billing?status=bogus", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}

func TestBillingHandler_AddPayment(t *testing.T) {
	t.Run("applies a payment in full", func(t *testing.T) {
		record := storedRecord(t, 25000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		repo.On("SaveWithLock", mock.Anything, record).Return(nil)

		body := gin.H{"method": "pix", "amount_minor": 25000}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/payments", record.ID), body)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "paid", data["status"])
		assert.Equal(t, false, data["overpaid"])
	})

	t.Run("flags overpayment without rejecting it", func(t *testing.T) {
		record := storedRecord(t, 20000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		repo.On("SaveWithLock", mock.Anything, record).Return(nil)

		body := gin.H{"method": "cash", "amount_minor": 30000}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/payments", record.ID), body)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["overpaid"])
	})

	t.Run("rejects payment on a cancelled record", func(t *testing.T) {
		record := storedRecord(t, 20000)
		require.NoError(t, record.Cancel("duplicate entry", nil))

		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)

		body := gin.H{"method": "cash", "amount_minor": 5000}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/payments", record.ID), body)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "CLOSED_BILLING")
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("409 on concurrent modification", func(t *testing.T) {
		record := storedRecord(t, 20000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		repo.On("SaveWithLock", mock.Anything, record).Return(shared.ErrConcurrencyConflict)

		body := gin.H{"method": "cash", "amount_minor": 5000}
		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/payments", record.ID), body)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "CONCURRENCY_CONFLICT")
	})
}

func TestBillingHandler_AddCorrection(t *testing.T) {
	record := storedRecord(t, 25000)
	_, _, err := record.AddPayment(time.Now(), billing.PaymentMethodPix,
		valueobject.NewMoneyBRL(25000), billing.PaymentReference{}, "", nil)
	require.NoError(t, err)

	repo := new(mockBillingRepo)
	repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
	repo.On("SaveWithLock", mock.Anything, record).Return(nil)

	body := gin.H{"method": "pix", "amount_minor": 5000, "reason": "charged twice for materials"}
	w := doJSON(newBillingTestRouter(repo), http.MethodPost,
		fmt.Sprintf("/api/v1/billing/%s/corrections", record.ID), body)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, "correction", payment["kind"])
}

func TestBillingHandler_Transitions(t *testing.T) {
	t.Run("cancel requires a reason", func(t *testing.T) {
		repo := new(mockBillingRepo)
		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/cancel", uuid.New()), gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cancel closes the record", func(t *testing.T) {
		record := storedRecord(t, 25000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		repo.On("SaveWithLock", mock.Anything, record).Return(nil)

		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/cancel", record.ID), gin.H{"reason": "duplicate entry"})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "cancelled", data["status"])
	})

	t.Run("dispute marks the record disputed", func(t *testing.T) {
		record := storedRecord(t, 25000)
		repo := new(mockBillingRepo)
		repo.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		repo.On("SaveWithLock", mock.Anything, record).Return(nil)

		w := doJSON(newBillingTestRouter(repo), http.MethodPost,
			fmt.Sprintf("/api/v1/billing/%s/dispute", record.ID), gin.H{"reason": "insurer contests the procedure code"})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "disputed", data["status"])
	})
}
