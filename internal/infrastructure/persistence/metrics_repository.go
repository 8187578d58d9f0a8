package persistence

import (
	"context"
	"fmt"

	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const notDeleted = "COALESCE(is_deleted, false) = false"

// GormMetricsRepository implements revenue.MetricsReader using GORM.
// All queries are reads scoped to a single property.
type GormMetricsRepository struct {
	db *gorm.DB
}

// NewGormMetricsRepository creates a new GormMetricsRepository
func NewGormMetricsRepository(db *gorm.DB) *GormMetricsRepository {
	return &GormMetricsRepository{db: db}
}

var _ revenue.MetricsReader = (*GormMetricsRepository)(nil)

// PropertyExists reports whether the property exists and is not soft-deleted
func (r *GormMetricsRepository) PropertyExists(ctx context.Context, propertyID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", propertyID).
		Where(notDeleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumRentCollected sums PAID and PARTIAL rent payments dated inside the window
func (r *GormMetricsRepository) SumRentCollected(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	return r.sumPayments(ctx, models.TableRentPayments, propertyID, window,
		revenue.PaymentStatusPaid, revenue.PaymentStatusPartial)
}

// SumRefundsPaid sums refunds dated inside the window regardless of status
func (r *GormMetricsRepository) SumRefundsPaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	return r.sumPayments(ctx, models.TableRefunds, propertyID, window)
}

// SumAdvancePaid sums PAID advances dated inside the window
func (r *GormMetricsRepository) SumAdvancePaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	return r.sumPayments(ctx, models.TableAdvances, propertyID, window, revenue.PaymentStatusPaid)
}

// SumExpensesPaid sums expenses dated inside the window regardless of status
func (r *GormMetricsRepository) SumExpensesPaid(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	return r.sumPayments(ctx, models.TableExpenses, propertyID, window)
}

// sumPayments totals amount over [window.Start, window.End). An empty statuses
// list means the table has no status gate.
func (r *GormMetricsRepository) sumPayments(ctx context.Context, table string, propertyID int64, window revenue.MonthWindow, statuses ...string) (decimal.Decimal, error) {
	q := r.db.WithContext(ctx).
		Table(table).
		Select("COALESCE(SUM(amount), 0)").
		Where("property_id = ?", propertyID).
		Where("payment_date >= ? AND payment_date < ?", window.Start, window.End).
		Where(notDeleted)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var total decimal.Decimal
	if err := q.Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", table, err)
	}
	return total, nil
}

// SumMRR sums the price snapshots of allocations that start before the window
// ends and are not closed before it starts, for active non-deleted tenants.
func (r *GormMetricsRepository) SumMRR(ctx context.Context, propertyID int64, window revenue.MonthWindow) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Table("price_allocations pa").
		Select("COALESCE(SUM(pa.price_snapshot), 0)").
		Joins("JOIN tenants t ON t.id = pa.tenant_id").
		Where("t.property_id = ?", propertyID).
		Where("t.status = ?", revenue.TenantStatusActive).
		Where("COALESCE(t.is_deleted, false) = false").
		Where("pa.effective_from < ?", window.End).
		Where("pa.effective_to IS NULL OR pa.effective_to >= ?", window.Start).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum mrr: %w", err)
	}
	return total, nil
}

// FindCyclesWithAllocations returns the cycles of non-deleted tenants that
// intersect the window. Each cycle carries its tenant's full allocation
// history ordered by EffectiveFrom, since a cycle may straddle price changes
// that began long before the window.
func (r *GormMetricsRepository) FindCyclesWithAllocations(ctx context.Context, propertyID int64, window revenue.MonthWindow) ([]revenue.CycleAllocations, error) {
	var cycleRows []models.BillingCycle
	err := r.db.WithContext(ctx).
		Table("billing_cycles bc").
		Select("bc.*").
		Joins("JOIN tenants t ON t.id = bc.tenant_id").
		Where("t.property_id = ?", propertyID).
		Where("COALESCE(t.is_deleted, false) = false").
		Where("bc.cycle_start < ? AND bc.cycle_end >= ?", window.End, window.Start).
		Order("bc.cycle_start, bc.id").
		Find(&cycleRows).Error
	if err != nil {
		return nil, fmt.Errorf("find billing cycles: %w", err)
	}
	if len(cycleRows) == 0 {
		return []revenue.CycleAllocations{}, nil
	}

	tenantIDs := make([]int64, 0, len(cycleRows))
	seen := make(map[int64]struct{}, len(cycleRows))
	for _, c := range cycleRows {
		if _, ok := seen[c.TenantID]; !ok {
			seen[c.TenantID] = struct{}{}
			tenantIDs = append(tenantIDs, c.TenantID)
		}
	}

	var allocRows []models.PriceAllocation
	err = r.db.WithContext(ctx).
		Where("tenant_id IN ?", tenantIDs).
		Order("tenant_id, effective_from, id").
		Find(&allocRows).Error
	if err != nil {
		return nil, fmt.Errorf("find price allocations: %w", err)
	}

	byTenant := make(map[int64][]revenue.PriceAllocation, len(tenantIDs))
	for _, a := range allocRows {
		byTenant[a.TenantID] = append(byTenant[a.TenantID], a.ToDomain())
	}

	result := make([]revenue.CycleAllocations, 0, len(cycleRows))
	for _, row := range cycleRows {
		cycle := row.ToDomain()
		result = append(result, revenue.CycleAllocations{
			Cycle:       cycle,
			Allocations: byTenant[cycle.TenantID],
		})
	}
	return result, nil
}
