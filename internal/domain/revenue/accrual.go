package revenue

import "github.com/shopspring/decimal"

// SuppressedCycle records a cycle that was skipped during accrual
type SuppressedCycle struct {
	CycleID  int64
	TenantID int64
	Reason   SuppressReason
}

// AccrualResult is the accrual-basis part of a monthly report
type AccrualResult struct {
	RentEarned decimal.Decimal
	Cycles     []CycleEarning
	Suppressed []SuppressedCycle
}

// ComputeRentEarned prorates every cycle against window and folds the
// results. A malformed cycle is skipped and recorded in Suppressed; it never
// prevents the remaining cycles from being counted.
func ComputeRentEarned(cycles []CycleAllocations, window MonthWindow) AccrualResult {
	result := AccrualResult{
		RentEarned: decimal.Zero,
		Cycles:     make([]CycleEarning, 0, len(cycles)),
	}
	if window.IsEmpty() {
		return result
	}

	total := decimal.Zero
	for _, ca := range cycles {
		earning, reason := ProrateCycle(ca, window)
		if reason != SuppressNone {
			// Cycles outside the window are expected from loose queries and are not anomalies.
			if reason != SuppressNoOverlap {
				result.Suppressed = append(result.Suppressed, SuppressedCycle{
					CycleID:  ca.Cycle.ID,
					TenantID: ca.Cycle.TenantID,
					Reason:   reason,
				})
			}
			continue
		}
		total = total.Add(earning.Earned)
		result.Cycles = append(result.Cycles, earning)
	}

	result.RentEarned = RoundMoney(total)
	return result
}
