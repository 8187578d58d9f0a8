package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	revenueapp "github.com/propledger/backend/internal/application/revenue"
	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
)

// MetricsHandler serves the revenue metrics endpoints of a property
type MetricsHandler struct {
	BaseHandler
	service *revenueapp.MetricsService
	now     func() time.Time
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(service *revenueapp.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: service, now: time.Now}
}

// WithClock overrides the clock used to pick the current month
func (h *MetricsHandler) WithClock(now func() time.Time) *MetricsHandler {
	h.now = now
	return h
}

// GetMonthlyMetrics handles GET /properties/:id/metrics/monthly.
//
// The window is picked from ?month=YYYY-MM, or from ?month_start=YYYY-MM-DD
// with an optional exclusive ?month_end=YYYY-MM-DD. Without either the
// current calendar month is reported.
func (h *MetricsHandler) GetMonthlyMetrics(c *gin.Context) {
	propertyID, ok := h.bindPropertyID(c)
	if !ok {
		return
	}

	var q dto.MonthlyMetricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	start, end, ok := h.resolveWindow(c, q)
	if !ok {
		return
	}

	report, err := h.service.ComputeMonthlyMetrics(c.Request.Context(), propertyID, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, revenueapp.ToMonthlyMetricsResponse(report))
}

// GetTrend handles GET /properties/:id/metrics/trend?months=N
func (h *MetricsHandler) GetTrend(c *gin.Context) {
	propertyID, ok := h.bindPropertyID(c)
	if !ok {
		return
	}

	var q dto.TrendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	months := q.Months
	if months == 0 {
		months = revenueapp.DefaultTrendMonths
	}
	if months > h.service.TrendMaxMonths() {
		h.BadRequest(c, dto.ErrCodeValidationRange,
			"months must be at most "+strconv.Itoa(h.service.TrendMaxMonths()))
		return
	}

	summaries, err := h.service.ComputeTrend(c.Request.Context(), propertyID, months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithTotal(c, summaries, int64(len(summaries)))
}

func (h *MetricsHandler) bindPropertyID(c *gin.Context) (int64, bool) {
	var uri dto.PropertyURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, dto.ErrCodeValidationFormat, "property id must be a positive integer")
		return 0, false
	}
	return uri.ID, true
}

func (h *MetricsHandler) resolveWindow(c *gin.Context, q dto.MonthlyMetricsQuery) (time.Time, *time.Time, bool) {
	if q.Month != "" {
		w, err := revenue.ParseMonth(q.Month)
		if err != nil {
			h.BadRequest(c, dto.ErrCodeValidationFormat, err.Error())
			return time.Time{}, nil, false
		}
		return w.Start, &w.End, true
	}

	if q.MonthStart == "" {
		if q.MonthEnd != "" {
			h.BadRequest(c, dto.ErrCodeValidation, "month_end requires month_start")
			return time.Time{}, nil, false
		}
		return revenue.MonthWindowContaining(h.now()).Start, nil, true
	}

	start, err := time.Parse(time.DateOnly, q.MonthStart)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeValidationFormat, "month_start must be YYYY-MM-DD")
		return time.Time{}, nil, false
	}
	if q.MonthEnd == "" {
		return start, nil, true
	}
	end, err := time.Parse(time.DateOnly, q.MonthEnd)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeValidationFormat, "month_end must be YYYY-MM-DD")
		return time.Time{}, nil, false
	}
	if !end.After(start) {
		h.BadRequest(c, dto.ErrCodeValidationRange, "month_end must be after month_start")
		return time.Time{}, nil, false
	}
	return start, &end, true
}
