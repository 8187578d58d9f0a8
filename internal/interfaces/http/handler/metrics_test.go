package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	revenueapp "github.com/propledger/backend/internal/application/revenue"
	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMetricsReader is a mock implementation of revenue.MetricsReader
type MockMetricsReader struct {
	mock.Mock
}

func (m *MockMetricsReader) PropertyExists(ctx context.Context, propertyID int64) (bool, error) {
	args := m.Called(ctx, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMetricsReader) SumRentCollected(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	args := m.Called(ctx, propertyID, window)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMetricsReader) SumRefundsPaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	args := m.Called(ctx, propertyID, window)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMetricsReader) SumAdvancePaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	args := m.Called(ctx, propertyID, window)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMetricsReader) SumExpensesPaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	args := m.Called(ctx, propertyID, window)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMetricsReader) SumMRR(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	args := m.Called(ctx, propertyID, window)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockMetricsReader) FindCyclesWithAllocations(ctx context.Context, propertyID int64, window revenue.MonthWindow) ([]revenue.CycleAllocations, error) {
	args := m.Called(ctx, propertyID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]revenue.CycleAllocations), args.Error(1)
}

var handlerNow = time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)

func handlerClock() time.Time { return handlerNow }

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func march2026() revenue.MonthWindow {
	return revenue.MonthWindow{Start: utcDay(2026, 3, 1), End: utcDay(2026, 4, 1)}
}

// expectReport primes every read of one window
func expectReport(reader *MockMetricsReader, propertyID int64, window any, cycles []revenue.CycleAllocations) {
	reader.On("SumRentCollected", mock.Anything, propertyID, window).Return(decimal.RequireFromString("1500.50"), nil)
	reader.On("SumRefundsPaid", mock.Anything, propertyID, window).Return(decimal.RequireFromString("100"), nil)
	reader.On("SumAdvancePaid", mock.Anything, propertyID, window).Return(decimal.Zero, nil)
	reader.On("SumExpensesPaid", mock.Anything, propertyID, window).Return(decimal.RequireFromString("200.25"), nil)
	reader.On("SumMRR", mock.Anything, propertyID, window).Return(decimal.RequireFromString("3100"), nil)
	reader.On("FindCyclesWithAllocations", mock.Anything, propertyID, window).Return(cycles, nil)
}

func fullMarchCycle() []revenue.CycleAllocations {
	return []revenue.CycleAllocations{{
		Cycle: revenue.BillingCycle{
			ID: 11, TenantID: 5,
			CycleStart: utcDay(2026, 3, 1), CycleEnd: utcDay(2026, 3, 31),
			CycleType: revenue.CycleTypeCalendar,
		},
		Allocations: []revenue.PriceAllocation{{
			ID: 21, TenantID: 5, BedID: 3,
			EffectiveFrom: utcDay(2026, 1, 1),
			PriceSnapshot: decimal.RequireFromString("3100"),
		}},
	}}
}

func metricsRouter(reader *MockMetricsReader) *gin.Engine {
	svc := revenueapp.NewMetricsService(reader,
		revenueapp.WithClock(handlerClock),
		revenueapp.WithTrendLimits(12, 2),
	)
	h := NewMetricsHandler(svc).WithClock(handlerClock)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/properties/:id/metrics/monthly", h.GetMonthlyMetrics)
	r.GET("/properties/:id/metrics/trend", h.GetTrend)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

type monthlyBody struct {
	Success bool                              `json:"success"`
	Data    revenueapp.MonthlyMetricsResponse `json:"data"`
	Error   *dto.ErrorInfo                    `json:"error"`
}

func TestMetricsHandler_GetMonthlyMetrics(t *testing.T) {
	reader := new(MockMetricsReader)
	reader.On("PropertyExists", mock.Anything, int64(7)).Return(true, nil)
	expectReport(reader, 7, march2026(), fullMarchCycle())

	w := get(metricsRouter(reader), "/properties/7/metrics/monthly?month=2026-03")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body monthlyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(7), body.Data.PropertyID)
	assert.Equal(t, 1500.50, body.Data.CashReceived)
	assert.Equal(t, 100.0, body.Data.RefundsPaid)
	assert.Equal(t, 200.25, body.Data.ExpensesPaid)
	assert.Equal(t, 3100.0, body.Data.MRRValue)
	assert.Equal(t, 3100.0, body.Data.RentEarned)
	require.Len(t, body.Data.Breakdown.Cycles, 1)
	assert.Equal(t, 31, body.Data.Breakdown.Cycles[0].OverlapDays)
	reader.AssertExpectations(t)
}

func TestMetricsHandler_GetMonthlyMetrics_Windows(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		window revenue.MonthWindow
	}{
		{
			name:   "defaults to current month",
			query:  "",
			window: march2026(),
		},
		{
			name:   "explicit range",
			query:  "?month_start=2026-03-15&month_end=2026-04-15",
			window: revenue.MonthWindow{Start: utcDay(2026, 3, 15), End: utcDay(2026, 4, 15)},
		},
		{
			name:   "open-ended range ends after the current month",
			query:  "?month_start=2026-02-01",
			window: revenue.MonthWindow{Start: utcDay(2026, 2, 1), End: utcDay(2026, 4, 1)},
		},
		{
			name:   "month wins over range",
			query:  "?month=2026-01&month_start=2026-03-15",
			window: revenue.MonthWindow{Start: utcDay(2026, 1, 1), End: utcDay(2026, 2, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockMetricsReader)
			reader.On("PropertyExists", mock.Anything, int64(3)).Return(true, nil)
			expectReport(reader, 3, tt.window, []revenue.CycleAllocations{})

			w := get(metricsRouter(reader), "/properties/3/metrics/monthly"+tt.query)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var body monthlyBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, body.Data.MonthStart.Equal(tt.window.Start))
			assert.True(t, body.Data.MonthEnd.Equal(tt.window.End))
			reader.AssertExpectations(t)
		})
	}
}

func TestMetricsHandler_GetMonthlyMetrics_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"non-numeric property", "/properties/abc/metrics/monthly", dto.ErrCodeValidationFormat},
		{"zero property", "/properties/0/metrics/monthly", dto.ErrCodeValidationFormat},
		{"month out of range", "/properties/1/metrics/monthly?month=2026-13", dto.ErrCodeValidation},
		{"month_start not a date", "/properties/1/metrics/monthly?month_start=03/01/2026", dto.ErrCodeValidation},
		{"month_end before start", "/properties/1/metrics/monthly?month_start=2026-03-15&month_end=2026-03-01", dto.ErrCodeValidationRange},
		{"empty range", "/properties/1/metrics/monthly?month_start=2026-03-15&month_end=2026-03-15", dto.ErrCodeValidationRange},
		{"month_end alone", "/properties/1/metrics/monthly?month_end=2026-04-01", dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockMetricsReader)

			w := get(metricsRouter(reader), tt.target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body monthlyBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
			reader.AssertNotCalled(t, "PropertyExists", mock.Anything, mock.Anything)
		})
	}
}

func TestMetricsHandler_GetMonthlyMetrics_UnknownProperty(t *testing.T) {
	reader := new(MockMetricsReader)
	reader.On("PropertyExists", mock.Anything, int64(404)).Return(false, nil)

	w := get(metricsRouter(reader), "/properties/404/metrics/monthly?month=2026-03")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body monthlyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrCodeNotFound, body.Error.Code)
	assert.Equal(t, "property 404 not found", body.Error.Message)
}

func TestMetricsHandler_GetMonthlyMetrics_ReadFailure(t *testing.T) {
	reader := new(MockMetricsReader)
	reader.On("PropertyExists", mock.Anything, int64(2)).Return(false, errors.New("connection reset"))

	w := get(metricsRouter(reader), "/properties/2/metrics/monthly?month=2026-03")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body monthlyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrCodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "connection reset")
}

type trendBody struct {
	Success bool                        `json:"success"`
	Data    []revenueapp.MonthlySummary `json:"data"`
	Meta    *dto.Meta                   `json:"meta"`
	Error   *dto.ErrorInfo              `json:"error"`
}

func TestMetricsHandler_GetTrend(t *testing.T) {
	reader := new(MockMetricsReader)
	reader.On("PropertyExists", mock.Anything, int64(7)).Return(true, nil)
	expectReport(reader, 7, mock.Anything, []revenue.CycleAllocations{})

	w := get(metricsRouter(reader), "/properties/7/metrics/trend")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body trendBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, revenueapp.DefaultTrendMonths)
	assert.Equal(t, "2025-10", body.Data[0].Month)
	assert.Equal(t, "2026-03", body.Data[5].Month)
	assert.Equal(t, 1500.50, body.Data[5].CashReceived)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(6), body.Meta.Total)
}

func TestMetricsHandler_GetTrend_Months(t *testing.T) {
	t.Run("explicit length", func(t *testing.T) {
		reader := new(MockMetricsReader)
		reader.On("PropertyExists", mock.Anything, int64(7)).Return(true, nil)
		expectReport(reader, 7, mock.Anything, []revenue.CycleAllocations{})

		w := get(metricsRouter(reader), "/properties/7/metrics/trend?months=2")

		require.Equal(t, http.StatusOK, w.Code)
		var body trendBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data, 2)
		assert.Equal(t, "2026-02", body.Data[0].Month)
	})

	t.Run("above limit", func(t *testing.T) {
		w := get(metricsRouter(new(MockMetricsReader)), "/properties/7/metrics/trend?months=13")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body trendBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, dto.ErrCodeValidationRange, body.Error.Code)
	})

	t.Run("negative", func(t *testing.T) {
		w := get(metricsRouter(new(MockMetricsReader)), "/properties/7/metrics/trend?months=-2")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not a number", func(t *testing.T) {
		w := get(metricsRouter(new(MockMetricsReader)), "/properties/7/metrics/trend?months=six")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
