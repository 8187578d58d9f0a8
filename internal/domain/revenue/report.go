package revenue

import (
	"time"

	"github.com/shopspring/decimal"
)

// EarnedFormula documents the accrual formula in every report for audit.
const EarnedFormula = "rent_earned = round2(sum of cycle_earned); " +
	"cycle_earned = sum over price segments of round2(price_snapshot * segment_days / denominator); " +
	"denominator = days in reporting month for CALENDAR cycles, inclusive cycle length otherwise"

// MonthlyMetricsReport is the engine's output for one property and window.
// It is computed on demand and never stored.
type MonthlyMetricsReport struct {
	PropertyID   int64
	MonthStart   time.Time
	MonthEnd     time.Time
	CashReceived decimal.Decimal
	RefundsPaid  decimal.Decimal
	AdvancePaid  decimal.Decimal
	ExpensesPaid decimal.Decimal
	RentEarned   decimal.Decimal
	MRRValue     decimal.Decimal
	Breakdown    EarnedBreakdown
}

// EarnedBreakdown lists the per-cycle computations behind RentEarned
type EarnedBreakdown struct {
	Formula string
	Cycles  []CycleEarning
}

// CycleEarning is the earned-revenue computation for one billing cycle
type CycleEarning struct {
	CycleID      int64
	TenantID     int64
	CycleType    CycleType
	CycleStart   time.Time
	CycleEnd     time.Time
	Overlap      Interval
	OverlapDays  int
	CycleDays    int
	Denominator  int
	MonthlyPrice decimal.Decimal
	Earned       decimal.Decimal
	Segments     []EarnedSegment
}

// SegmentDays sums the days of all segments.
func (c CycleEarning) SegmentDays() int {
	total := 0
	for _, s := range c.Segments {
		total += s.Days
	}
	return total
}

// EarnedSegment is the part of a cycle's overlap priced by a single allocation
type EarnedSegment struct {
	AllocationID int64
	From         time.Time
	To           time.Time
	Days         int
	Price        decimal.Decimal
	Earned       decimal.Decimal
}

// BuildReport assembles the final report. Every monetary field is rounded
// to cents; absent values are zero, never null.
func BuildReport(propertyID int64, window MonthWindow, cash CashTotals, mrr decimal.Decimal, accrual AccrualResult) *MonthlyMetricsReport {
	cycles := accrual.Cycles
	if cycles == nil {
		cycles = []CycleEarning{}
	}
	return &MonthlyMetricsReport{
		PropertyID:   propertyID,
		MonthStart:   window.Start,
		MonthEnd:     window.End,
		CashReceived: RoundMoney(cash.CashReceived),
		RefundsPaid:  RoundMoney(cash.RefundsPaid),
		AdvancePaid:  RoundMoney(cash.AdvancePaid),
		ExpensesPaid: RoundMoney(cash.ExpensesPaid),
		RentEarned:   RoundMoney(accrual.RentEarned),
		MRRValue:     RoundMoney(mrr),
		Breakdown: EarnedBreakdown{
			Formula: EarnedFormula,
			Cycles:  cycles,
		},
	}
}
