package revenue

import (
	"context"

	"github.com/shopspring/decimal"
)

// MetricsReader is the read-only data access the metrics engine depends on.
// Every method is independent of the others and safe to call concurrently.
type MetricsReader interface {
	// PropertyExists reports whether the property is known and not deleted
	PropertyExists(ctx context.Context, propertyID int64) (bool, error)

	// SumRentCollected sums PAID and PARTIAL rent payments dated inside the window
	SumRentCollected(ctx context.Context, propertyID int64, window MonthWindow) (decimal.Decimal, error)

	// SumRefundsPaid sums refunds dated inside the window
	SumRefundsPaid(ctx context.Context, propertyID int64, window MonthWindow) (decimal.Decimal, error)

	// SumAdvancePaid sums PAID advances dated inside the window
	SumAdvancePaid(ctx context.Context, propertyID int64, window MonthWindow) (decimal.Decimal, error)

	// SumExpensesPaid sums expenses dated inside the window
	SumExpensesPaid(ctx context.Context, propertyID int64, window MonthWindow) (decimal.Decimal, error)

	// SumMRR sums the price snapshots of allocations effective in the window
	// for active, non-deleted tenants
	SumMRR(ctx context.Context, propertyID int64, window MonthWindow) (decimal.Decimal, error)

	// FindCyclesWithAllocations returns the billing cycles intersecting the
	// window, each with its tenant's full allocation history
	FindCyclesWithAllocations(ctx context.Context, propertyID int64, window MonthWindow) ([]CycleAllocations, error)
}
