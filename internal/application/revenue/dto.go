package revenue

import (
	"time"

	"github.com/propledger/backend/internal/domain/revenue"
)

// MonthlyMetricsResponse represents the monthly metrics report
type MonthlyMetricsResponse struct {
	PropertyID   int64                   `json:"property_id"`
	MonthStart   time.Time               `json:"month_start"`
	MonthEnd     time.Time               `json:"month_end"`
	CashReceived float64                 `json:"cash_received"`
	RefundsPaid  float64                 `json:"refunds_paid"`
	AdvancePaid  float64                 `json:"advance_paid"`
	ExpensesPaid float64                 `json:"expenses_paid"`
	RentEarned   float64                 `json:"rent_earned"`
	MRRValue     float64                 `json:"mrr_value"`
	Breakdown    EarnedBreakdownResponse `json:"rent_earned_breakdown"`
}

// EarnedBreakdownResponse explains how rent_earned was derived
type EarnedBreakdownResponse struct {
	Formula string                 `json:"formula"`
	Cycles  []CycleEarningResponse `json:"cycles"`
}

// CycleEarningResponse represents one billing cycle's contribution
type CycleEarningResponse struct {
	CycleID      int64                   `json:"cycle_id"`
	TenantID     int64                   `json:"tenant_id"`
	CycleType    string                  `json:"cycle_type"`
	CycleStart   string                  `json:"cycle_start"`
	CycleEnd     string                  `json:"cycle_end"`
	OverlapStart string                  `json:"overlap_start"`
	OverlapEnd   string                  `json:"overlap_end"`
	OverlapDays  int                     `json:"overlap_days"`
	CycleDays    int                     `json:"cycle_days"`
	Denominator  int                     `json:"denominator"`
	MonthlyPrice float64                 `json:"monthly_price"`
	Earned       float64                 `json:"earned"`
	Segments     []EarnedSegmentResponse `json:"segments"`
}

// EarnedSegmentResponse represents the slice of a cycle priced by one allocation
type EarnedSegmentResponse struct {
	AllocationID int64   `json:"allocation_id"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Days         int     `json:"days"`
	Price        float64 `json:"price"`
	Earned       float64 `json:"earned"`
}

// MonthlySummary is one point of the monthly trend
type MonthlySummary struct {
	Month        string  `json:"month"`
	CashReceived float64 `json:"cash_received"`
	RefundsPaid  float64 `json:"refunds_paid"`
	AdvancePaid  float64 `json:"advance_paid"`
	ExpensesPaid float64 `json:"expenses_paid"`
	RentEarned   float64 `json:"rent_earned"`
	MRRValue     float64 `json:"mrr_value"`
	CycleCount   int     `json:"cycle_count"`
}

// ToMonthlyMetricsResponse converts a report into its JSON shape
func ToMonthlyMetricsResponse(r *revenue.MonthlyMetricsReport) *MonthlyMetricsResponse {
	cycles := make([]CycleEarningResponse, 0, len(r.Breakdown.Cycles))
	for _, c := range r.Breakdown.Cycles {
		segments := make([]EarnedSegmentResponse, 0, len(c.Segments))
		for _, seg := range c.Segments {
			segments = append(segments, EarnedSegmentResponse{
				AllocationID: seg.AllocationID,
				From:         formatDay(seg.From),
				To:           formatDay(seg.To),
				Days:         seg.Days,
				Price:        revenue.MoneyToFloat(seg.Price),
				Earned:       revenue.MoneyToFloat(seg.Earned),
			})
		}
		cycles = append(cycles, CycleEarningResponse{
			CycleID:      c.CycleID,
			TenantID:     c.TenantID,
			CycleType:    string(c.CycleType),
			CycleStart:   formatDay(c.CycleStart),
			CycleEnd:     formatDay(c.CycleEnd),
			OverlapStart: formatDay(c.Overlap.Start),
			OverlapEnd:   formatDay(c.Overlap.End),
			OverlapDays:  c.OverlapDays,
			CycleDays:    c.CycleDays,
			Denominator:  c.Denominator,
			MonthlyPrice: revenue.MoneyToFloat(c.MonthlyPrice),
			Earned:       revenue.MoneyToFloat(c.Earned),
			Segments:     segments,
		})
	}

	return &MonthlyMetricsResponse{
		PropertyID:   r.PropertyID,
		MonthStart:   r.MonthStart,
		MonthEnd:     r.MonthEnd,
		CashReceived: revenue.MoneyToFloat(r.CashReceived),
		RefundsPaid:  revenue.MoneyToFloat(r.RefundsPaid),
		AdvancePaid:  revenue.MoneyToFloat(r.AdvancePaid),
		ExpensesPaid: revenue.MoneyToFloat(r.ExpensesPaid),
		RentEarned:   revenue.MoneyToFloat(r.RentEarned),
		MRRValue:     revenue.MoneyToFloat(r.MRRValue),
		Breakdown: EarnedBreakdownResponse{
			Formula: r.Breakdown.Formula,
			Cycles:  cycles,
		},
	}
}

// ToMonthlySummary reduces a report to a trend point
func ToMonthlySummary(r *revenue.MonthlyMetricsReport) MonthlySummary {
	return MonthlySummary{
		Month:        revenue.MonthWindow{Start: r.MonthStart, End: r.MonthEnd}.Label(),
		CashReceived: revenue.MoneyToFloat(r.CashReceived),
		RefundsPaid:  revenue.MoneyToFloat(r.RefundsPaid),
		AdvancePaid:  revenue.MoneyToFloat(r.AdvancePaid),
		ExpensesPaid: revenue.MoneyToFloat(r.ExpensesPaid),
		RentEarned:   revenue.MoneyToFloat(r.RentEarned),
		MRRValue:     revenue.MoneyToFloat(r.MRRValue),
		CycleCount:   len(r.Breakdown.Cycles),
	}
}

func formatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}
