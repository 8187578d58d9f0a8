package revenue

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// SuppressReason explains why a cycle contributed nothing to rent_earned
type SuppressReason string

const (
	// SuppressNone means the cycle was prorated normally
	SuppressNone SuppressReason = ""
	// SuppressReversedCycle marks a cycle whose end precedes its start
	SuppressReversedCycle SuppressReason = "reversed_cycle"
	// SuppressNoOverlap marks a cycle entirely outside the window
	SuppressNoOverlap SuppressReason = "no_overlap"
	// SuppressNonPositiveDenominator marks a cycle with no weighting basis
	SuppressNonPositiveDenominator SuppressReason = "non_positive_denominator"
)

// CycleDenominator returns the day basis a cycle's overlap is weighted
// against. CALENDAR cycles use the length of the reporting month, not the
// cycle's own span; every other cycle uses its inclusive length.
func CycleDenominator(cycle BillingCycle, window MonthWindow) int {
	if cycle.CycleType.UsesReportingMonth() {
		return window.ReportingMonthDays()
	}
	return InclusiveDayCount(cycle.CycleStart, cycle.CycleEnd)
}

// sortedAllocations returns a copy of allocations ordered by EffectiveFrom.
// The caller's slice is never reordered.
func sortedAllocations(allocations []PriceAllocation) []PriceAllocation {
	out := slices.Clone(allocations)
	slices.SortStableFunc(out, func(a, b PriceAllocation) int {
		return ToCalendarDay(a.EffectiveFrom).Compare(ToCalendarDay(b.EffectiveFrom))
	})
	return out
}

// PickCurrentPrice returns the earliest allocation in effect on the given
// day. It is used for display only and never feeds the earned amount.
func PickCurrentPrice(allocations []PriceAllocation, at time.Time) (PriceAllocation, bool) {
	for _, a := range sortedAllocations(allocations) {
		if a.Covers(at) {
			return a, true
		}
	}
	return PriceAllocation{}, false
}

// SegmentOverlap splits overlap into one segment per allocation in effect
// during it and prices each segment against denominator. Each segment is
// rounded on its own so that the breakdown adds up to the cycle total.
func SegmentOverlap(overlap Interval, allocations []PriceAllocation, denominator int) []EarnedSegment {
	if denominator <= 0 || overlap.IsEmpty() {
		return nil
	}
	base := decimal.NewFromInt(int64(denominator))

	var segments []EarnedSegment
	for _, a := range sortedAllocations(allocations) {
		clipped, ok := a.Clip(overlap)
		if !ok {
			continue
		}
		days := clipped.Days()
		earned := a.PriceSnapshot.Mul(decimal.NewFromInt(int64(days))).Div(base)
		segments = append(segments, EarnedSegment{
			AllocationID: a.ID,
			From:         clipped.Start,
			To:           clipped.End,
			Days:         days,
			Price:        a.PriceSnapshot,
			Earned:       RoundMoney(earned),
		})
	}
	return segments
}

// ProrateCycle computes what one cycle earned inside window. When the cycle
// cannot contribute, the returned reason says why and the earning is zero.
func ProrateCycle(ca CycleAllocations, window MonthWindow) (CycleEarning, SuppressReason) {
	cycle := ca.Cycle
	cycleIv := cycle.Interval()
	if cycleIv.IsEmpty() {
		return CycleEarning{}, SuppressReversedCycle
	}

	overlap, ok := Intersect(cycleIv, window.Days())
	if !ok {
		return CycleEarning{}, SuppressNoOverlap
	}

	denominator := CycleDenominator(cycle, window)
	if denominator <= 0 {
		return CycleEarning{}, SuppressNonPositiveDenominator
	}

	segments := SegmentOverlap(overlap, ca.Allocations, denominator)
	earned := decimal.Zero
	for _, s := range segments {
		earned = earned.Add(s.Earned)
	}
	if segments == nil {
		segments = []EarnedSegment{}
	}

	monthlyPrice := decimal.Zero
	if current, found := PickCurrentPrice(ca.Allocations, cycleIv.Start); found {
		monthlyPrice = current.PriceSnapshot
	}

	return CycleEarning{
		CycleID:      cycle.ID,
		TenantID:     cycle.TenantID,
		CycleType:    cycle.CycleType,
		CycleStart:   cycleIv.Start,
		CycleEnd:     cycleIv.End,
		Overlap:      overlap,
		OverlapDays:  overlap.Days(),
		CycleDays:    cycleIv.Days(),
		Denominator:  denominator,
		MonthlyPrice: monthlyPrice,
		Earned:       earned,
		Segments:     segments,
	}, SuppressNone
}
