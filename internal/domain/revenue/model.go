package revenue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CycleType determines how a billing cycle is weighted against a reporting month
type CycleType string

const (
	// CycleTypeCalendar cycles are billed per standard calendar month
	CycleTypeCalendar CycleType = "CALENDAR"
	// CycleTypeMidMonth cycles run for a custom period anchored on the move-in day
	CycleTypeMidMonth CycleType = "MIDMONTH"
)

// UsesReportingMonth reports whether the cycle is weighted against the length
// of the reporting month. Every other value, including unknown or empty
// types, is weighted like MIDMONTH.
func (t CycleType) UsesReportingMonth() bool {
	return t == CycleTypeCalendar
}

// Payment statuses used by the cash-basis filters
const (
	PaymentStatusPaid    = "PAID"
	PaymentStatusPartial = "PARTIAL"
	PaymentStatusPending = "PENDING"
)

// TenantStatusActive marks a tenant that currently occupies a bed
const TenantStatusActive = "ACTIVE"

// BillingCycle is one tenant's billing period. CycleStart and CycleEnd are
// inclusive calendar days.
type BillingCycle struct {
	ID         int64
	TenantID   int64
	CycleStart time.Time
	CycleEnd   time.Time
	CycleType  CycleType
}

// Interval returns the cycle's inclusive day range.
func (c BillingCycle) Interval() Interval {
	return NewInterval(c.CycleStart, c.CycleEnd)
}

// PriceAllocation is the price locked for a tenant's bed over
// [EffectiveFrom, EffectiveTo]. A nil EffectiveTo means the allocation is
// still current.
type PriceAllocation struct {
	ID            int64
	TenantID      int64
	BedID         int64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	PriceSnapshot decimal.Decimal
}

// IsOpen reports whether the allocation has no end date.
func (a PriceAllocation) IsOpen() bool {
	return a.EffectiveTo == nil
}

// Covers reports whether the calendar day of t falls within the allocation.
func (a PriceAllocation) Covers(t time.Time) bool {
	d := ToCalendarDay(t)
	if d.Before(ToCalendarDay(a.EffectiveFrom)) {
		return false
	}
	return a.EffectiveTo == nil || !d.After(ToCalendarDay(*a.EffectiveTo))
}

// Clip returns the part of iv during which the allocation was in effect.
func (a PriceAllocation) Clip(iv Interval) (Interval, bool) {
	end := iv.End
	if a.EffectiveTo != nil {
		end = ToCalendarDay(*a.EffectiveTo)
	}
	return Intersect(iv, NewInterval(a.EffectiveFrom, end))
}

// CycleAllocations pairs a billing cycle with its tenant's full allocation
// history, ordered by EffectiveFrom.
type CycleAllocations struct {
	Cycle       BillingCycle
	Allocations []PriceAllocation
}

// MonthWindow is the half-open reporting interval [Start, End).
type MonthWindow struct {
	Start time.Time
	End   time.Time
}

// NewMonthWindow returns the window covering one calendar month.
func NewMonthWindow(year int, month time.Month) MonthWindow {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return MonthWindow{Start: start, End: start.AddDate(0, 1, 0)}
}

// MonthWindowContaining returns the calendar month window that contains t.
func MonthWindowContaining(t time.Time) MonthWindow {
	d := ToCalendarDay(t)
	return NewMonthWindow(d.Year(), d.Month())
}

// StartOfNextMonth returns midnight UTC on the first day of the month after t.
func StartOfNextMonth(t time.Time) time.Time {
	return MonthWindowContaining(t).End
}

// ParseMonth parses a "YYYY-MM" month specifier.
func ParseMonth(s string) (MonthWindow, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthWindow{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return NewMonthWindow(t.Year(), t.Month()), nil
}

// Days returns the window as an inclusive calendar-day interval. The
// exclusive End is converted to the last day it still covers.
func (w MonthWindow) Days() Interval {
	return NewInterval(w.Start, w.End.Add(-time.Nanosecond))
}

// IsEmpty reports whether the window covers no time at all.
func (w MonthWindow) IsEmpty() bool {
	return !w.End.After(w.Start)
}

// ReportingMonthDays is the length of the calendar month that contains the
// window start. CALENDAR cycles are weighted against it.
func (w MonthWindow) ReportingMonthDays() int {
	return DaysInMonth(ToCalendarDay(w.Start))
}

// Label formats the window start as YYYY-MM.
func (w MonthWindow) Label() string {
	return ToCalendarDay(w.Start).Format("2006-01")
}

// CashTotals holds the cash-basis sums for a window
type CashTotals struct {
	CashReceived decimal.Decimal
	RefundsPaid  decimal.Decimal
	AdvancePaid  decimal.Decimal
	ExpensesPaid decimal.Decimal
}
