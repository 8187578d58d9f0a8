package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/propledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ledgerFixture seeds one reported property (March 2026) plus the rows the
// report must ignore.
type ledgerFixture struct {
	db       *gorm.DB
	property models.Property
	tenants  map[string]models.Tenant
}

func setupLedgerDB(t *testing.T) *ledgerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	f := &ledgerFixture{db: db, tenants: map[string]models.Tenant{}}
	f.property = models.Property{Name: "Maple House"}
	require.NoError(t, db.Create(&f.property).Error)
	deletedProperty := models.Property{Name: "Closed", SoftDeletable: deleted()}
	require.NoError(t, db.Create(&deletedProperty).Error)

	for _, tn := range []struct {
		key    string
		status string
		del    models.SoftDeletable
	}{
		{"calendar", "ACTIVE", models.SoftDeletable{}},
		{"midmonth", "ACTIVE", models.SoftDeletable{}},
		{"moved_out", "MOVED_OUT", models.SoftDeletable{}},
		{"deleted", "ACTIVE", deleted()},
	} {
		tenant := models.Tenant{PropertyID: f.property.ID, BedID: 1, Name: tn.key, Status: tn.status, SoftDeletable: tn.del}
		require.NoError(t, db.Create(&tenant).Error)
		f.tenants[tn.key] = tenant
	}
	other := models.Tenant{PropertyID: deletedProperty.ID, BedID: 9, Name: "elsewhere", Status: "ACTIVE"}
	require.NoError(t, db.Create(&other).Error)

	f.allocate("calendar", date(2026, 1, 1), datePtr(2026, 2, 28), "5000")
	f.allocate("calendar", date(2026, 3, 1), nil, "6000")
	f.allocate("midmonth", date(2026, 2, 15), datePtr(2026, 3, 9), "3100")
	f.allocate("midmonth", date(2026, 3, 10), nil, "4650")
	f.allocate("moved_out", date(2026, 3, 1), nil, "9999")
	f.allocate("deleted", date(2026, 3, 1), nil, "7777")
	require.NoError(t, db.Create(&models.PriceAllocation{TenantID: other.ID, EffectiveFrom: date(2026, 3, 1), PriceSnapshot: decimal.NewFromInt(1234)}).Error)

	f.cycle("calendar", date(2026, 2, 1), date(2026, 2, 28), "CALENDAR")
	f.cycle("calendar", date(2026, 3, 1), date(2026, 3, 31), "CALENDAR")
	f.cycle("midmonth", date(2026, 2, 15), date(2026, 3, 14), "MIDMONTH")
	f.cycle("midmonth", date(2026, 3, 15), date(2026, 4, 14), "MIDMONTH")
	f.cycle("moved_out", date(2026, 4, 1), date(2026, 4, 30), "CALENDAR")
	f.cycle("deleted", date(2026, 3, 1), date(2026, 3, 31), "CALENDAR")

	rent := func(amount string, on time.Time, status string, del models.SoftDeletable) *models.RentPayment {
		return &models.RentPayment{
			PaymentModel: f.payment(amount, on, status, del),
			TenantID:     f.tenants["calendar"].ID,
		}
	}
	require.NoError(t, db.Create(rent("1000", date(2026, 3, 5), "PAID", models.SoftDeletable{})).Error)
	require.NoError(t, db.Create(rent("500.5", date(2026, 3, 31), "PARTIAL", models.SoftDeletable{})).Error)
	require.NoError(t, db.Create(rent("200", date(2026, 3, 6), "PENDING", models.SoftDeletable{})).Error)
	require.NoError(t, db.Create(rent("300", date(2026, 4, 1), "PAID", models.SoftDeletable{})).Error)
	require.NoError(t, db.Create(rent("400", date(2026, 2, 28), "PAID", models.SoftDeletable{})).Error)
	require.NoError(t, db.Create(rent("250", date(2026, 3, 10), "PAID", deleted())).Error)
	nullFlag := rent("125.25", date(2026, 3, 12), "PAID", models.SoftDeletable{})
	require.NoError(t, db.Create(nullFlag).Error)
	require.NoError(t, db.Exec("UPDATE rent_payments SET is_deleted = NULL WHERE id = ?", nullFlag.ID).Error)

	require.NoError(t, db.Create(&models.Refund{PaymentModel: f.payment("100", date(2026, 3, 3), "PENDING", models.SoftDeletable{})}).Error)
	require.NoError(t, db.Create(&models.Refund{PaymentModel: f.payment("50", date(2026, 3, 20), "PAID", deleted())}).Error)

	require.NoError(t, db.Create(&models.Advance{PaymentModel: f.payment("2000", date(2026, 3, 1), "PAID", models.SoftDeletable{})}).Error)
	require.NoError(t, db.Create(&models.Advance{PaymentModel: f.payment("999", date(2026, 3, 2), "PENDING", models.SoftDeletable{})}).Error)

	require.NoError(t, db.Create(&models.Expense{PaymentModel: f.payment("300.25", date(2026, 3, 15), "PENDING", models.SoftDeletable{}), Category: "repairs"}).Error)
	otherExpense := f.payment("5000", date(2026, 3, 15), "PAID", models.SoftDeletable{})
	otherExpense.PropertyID = deletedProperty.ID
	require.NoError(t, db.Create(&models.Expense{PaymentModel: otherExpense}).Error)

	return f
}

func (f *ledgerFixture) allocate(tenant string, from time.Time, to *time.Time, price string) {
	tn := f.tenants[tenant]
	err := f.db.Create(&models.PriceAllocation{
		TenantID:      tn.ID,
		BedID:         tn.BedID,
		EffectiveFrom: from,
		EffectiveTo:   to,
		PriceSnapshot: decimal.RequireFromString(price),
	}).Error
	if err != nil {
		panic(err)
	}
}

func (f *ledgerFixture) cycle(tenant string, start, end time.Time, cycleType string) {
	err := f.db.Create(&models.BillingCycle{
		TenantID:   f.tenants[tenant].ID,
		CycleStart: start,
		CycleEnd:   end,
		CycleType:  cycleType,
	}).Error
	if err != nil {
		panic(err)
	}
}

func (f *ledgerFixture) payment(amount string, on time.Time, status string, del models.SoftDeletable) models.PaymentModel {
	return models.PaymentModel{
		SoftDeletable: del,
		PropertyID:    f.property.ID,
		Amount:        decimal.RequireFromString(amount),
		PaymentDate:   on,
		Status:        status,
	}
}

func deleted() models.SoftDeletable {
	yes := true
	return models.SoftDeletable{IsDeleted: &yes}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestGormMetricsRepository_SQLite(t *testing.T) {
	f := setupLedgerDB(t)
	repo := NewGormMetricsRepository(f.db)
	ctx := context.Background()
	pid := f.property.ID

	t.Run("property lookup honours soft delete", func(t *testing.T) {
		ok, err := repo.PropertyExists(ctx, pid)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.PropertyExists(ctx, pid+1)
		require.NoError(t, err)
		assert.False(t, ok, "soft-deleted property")

		ok, err = repo.PropertyExists(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("cash sums", func(t *testing.T) {
		rent, err := repo.SumRentCollected(ctx, pid, march2026)
		require.NoError(t, err)
		assertDecimal(t, "1625.75", rent)

		refunds, err := repo.SumRefundsPaid(ctx, pid, march2026)
		require.NoError(t, err)
		assertDecimal(t, "100", refunds)

		advances, err := repo.SumAdvancePaid(ctx, pid, march2026)
		require.NoError(t, err)
		assertDecimal(t, "2000", advances)

		expenses, err := repo.SumExpensesPaid(ctx, pid, march2026)
		require.NoError(t, err)
		assertDecimal(t, "300.25", expenses)
	})

	t.Run("empty month sums to zero", func(t *testing.T) {
		rent, err := repo.SumRentCollected(ctx, pid, revenue.NewMonthWindow(2025, time.June))
		require.NoError(t, err)
		assert.True(t, rent.IsZero())
	})

	t.Run("mrr counts active tenants only", func(t *testing.T) {
		mrr, err := repo.SumMRR(ctx, pid, march2026)
		require.NoError(t, err)
		assertDecimal(t, "13750", mrr)
	})

	t.Run("cycles intersecting the window", func(t *testing.T) {
		cycles, err := repo.FindCyclesWithAllocations(ctx, pid, march2026)
		require.NoError(t, err)
		require.Len(t, cycles, 3)

		assert.Equal(t, date(2026, 2, 15), cycles[0].Cycle.CycleStart)
		assert.Equal(t, date(2026, 3, 1), cycles[1].Cycle.CycleStart)
		assert.Equal(t, date(2026, 3, 15), cycles[2].Cycle.CycleStart)
		for _, c := range cycles {
			require.Len(t, c.Allocations, 2)
			assert.True(t, c.Allocations[0].EffectiveFrom.Before(c.Allocations[1].EffectiveFrom))
		}

		accrual := revenue.ComputeRentEarned(cycles, march2026)
		assert.Empty(t, accrual.Suppressed)
		assert.True(t, accrual.RentEarned.IsPositive())
	})
	t.Run("unrecognised cycle type does not drop other cycles", func(t *testing.T) {
		f.cycle("midmonth", date(2026, 3, 1), date(2026, 3, 10), "calendar")

		cycles, err := repo.FindCyclesWithAllocations(ctx, pid, march2026)
		require.NoError(t, err)
		require.Len(t, cycles, 4)

		var odd *revenue.CycleAllocations
		for i := range cycles {
			if cycles[i].Cycle.CycleType == "calendar" {
				odd = &cycles[i]
			}
		}
		require.NotNil(t, odd)

		earning, reason := revenue.ProrateCycle(*odd, march2026)
		require.Equal(t, revenue.SuppressNone, reason)
		assert.Equal(t, 10, earning.Denominator)
		assertDecimal(t, "3255", earning.Earned)
	})
}
