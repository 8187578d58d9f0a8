package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2026 = revenue.NewMonthWindow(2026, time.March)

func newMockMetricsRepository(t *testing.T) (*GormMetricsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDatabase(t)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return NewGormMetricsRepository(db.DB), mock
}

func TestGormMetricsRepository_PropertyExists(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT count(*) FROM "properties" WHERE id = $1 AND COALESCE(is_deleted, false) = false`)

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(query).WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		ok, err := repo.PropertyExists(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(query).WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		ok, err := repo.PropertyExists(context.Background(), 8)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("error", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(query).WillReturnError(errors.New("connection refused"))

		_, err := repo.PropertyExists(context.Background(), 9)
		assert.EqualError(t, err, "connection refused")
	})
}

func TestGormMetricsRepository_CashSums(t *testing.T) {
	ctx := context.Background()
	start, end := march2026.Start, march2026.End

	tests := []struct {
		name  string
		table string
		args  []any
		call  func(*GormMetricsRepository) (decimal.Decimal, error)
	}{
		{
			name:  "rent gated on PAID and PARTIAL",
			table: "rent_payments",
			args:  []any{int64(1), start, end, "PAID", "PARTIAL"},
			call: func(r *GormMetricsRepository) (decimal.Decimal, error) {
				return r.SumRentCollected(ctx, 1, march2026)
			},
		},
		{
			name:  "refunds have no status gate",
			table: "refunds",
			args:  []any{int64(1), start, end},
			call: func(r *GormMetricsRepository) (decimal.Decimal, error) {
				return r.SumRefundsPaid(ctx, 1, march2026)
			},
		},
		{
			name:  "advances gated on PAID",
			table: "advances",
			args:  []any{int64(1), start, end, "PAID"},
			call: func(r *GormMetricsRepository) (decimal.Decimal, error) {
				return r.SumAdvancePaid(ctx, 1, march2026)
			},
		},
		{
			name:  "expenses have no status gate",
			table: "expenses",
			args:  []any{int64(1), start, end},
			call: func(r *GormMetricsRepository) (decimal.Decimal, error) {
				return r.SumExpensesPaid(ctx, 1, march2026)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockMetricsRepository(t)
			args := make([]driver.Value, len(tt.args))
			for i, a := range tt.args {
				args[i] = a
			}
			mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM "` + tt.table + `" WHERE property_id = \$1 .*COALESCE\(is_deleted, false\) = false`).
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("1250.75"))

			got, err := tt.call(repo)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString("1250.75").Equal(got), got.String())
		})

		t.Run(tt.name+" wraps errors", func(t *testing.T) {
			repo, mock := newMockMetricsRepository(t)
			mock.ExpectQuery(`FROM "` + tt.table + `"`).WillReturnError(errors.New("timeout"))

			_, err := tt.call(repo)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "sum "+tt.table)
		})
	}
}

func TestGormMetricsRepository_SumMRR(t *testing.T) {
	repo, mock := newMockMetricsRepository(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(pa.price_snapshot\), 0\) FROM price_allocations pa JOIN tenants t ON t.id = pa.tenant_id WHERE t.property_id = \$1 AND t.status = \$2 .*pa.effective_from < \$3 AND \(pa.effective_to IS NULL OR pa.effective_to >= \$4\)`).
		WithArgs(int64(3), "ACTIVE", march2026.End, march2026.Start).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("13750.00"))

	got, err := repo.SumMRR(context.Background(), 3, march2026)
	require.NoError(t, err)
	assert.Equal(t, "13750", got.String())
}

func TestGormMetricsRepository_FindCyclesWithAllocations(t *testing.T) {
	cyclesQuery := `SELECT bc.\* FROM billing_cycles bc JOIN tenants t ON t.id = bc.tenant_id WHERE t.property_id = \$1 .* ORDER BY bc.cycle_start, bc.id`
	allocQuery := regexp.QuoteMeta(`SELECT * FROM "price_allocations" WHERE tenant_id IN ($1,$2) ORDER BY tenant_id, effective_from, id`)
	cycleCols := []string{"id", "tenant_id", "cycle_start", "cycle_end", "cycle_type"}
	allocCols := []string{"id", "tenant_id", "bed_id", "effective_from", "effective_to", "price_snapshot"}

	t.Run("groups allocations by tenant", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(cyclesQuery).
			WithArgs(int64(1), march2026.End, march2026.Start).
			WillReturnRows(sqlmock.NewRows(cycleCols).
				AddRow(11, 100, date(2026, 2, 15), date(2026, 3, 14), "MIDMONTH").
				AddRow(12, 200, date(2026, 3, 1), date(2026, 3, 31), "CALENDAR").
				AddRow(13, 100, date(2026, 3, 15), date(2026, 4, 14), "MIDMONTH"))
		mock.ExpectQuery(allocQuery).
			WithArgs(int64(100), int64(200)).
			WillReturnRows(sqlmock.NewRows(allocCols).
				AddRow(1, 100, 5, date(2026, 2, 15), date(2026, 3, 9), "3100.00").
				AddRow(2, 100, 5, date(2026, 3, 10), nil, "4650.00").
				AddRow(3, 200, 6, time.Date(2026, 1, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800)), nil, "6000.00"))

		got, err := repo.FindCyclesWithAllocations(context.Background(), 1, march2026)
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, int64(11), got[0].Cycle.ID)
		assert.Equal(t, revenue.CycleTypeMidMonth, got[0].Cycle.CycleType)
		require.Len(t, got[0].Allocations, 2)
		assert.Equal(t, date(2026, 3, 9), *got[0].Allocations[0].EffectiveTo)
		assert.True(t, got[0].Allocations[1].IsOpen())
		assert.Len(t, got[2].Allocations, 2)

		require.Len(t, got[1].Allocations, 1)
		assert.Equal(t, date(2026, 1, 1), got[1].Allocations[0].EffectiveFrom)
		assert.Equal(t, "6000", got[1].Allocations[0].PriceSnapshot.String())
	})

	t.Run("no cycles skips allocation lookup", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(cyclesQuery).WillReturnRows(sqlmock.NewRows(cycleCols))

		got, err := repo.FindCyclesWithAllocations(context.Background(), 1, march2026)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unknown cycle type is kept alongside valid cycles", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(cyclesQuery).
			WillReturnRows(sqlmock.NewRows(cycleCols).
				AddRow(21, 100, date(2026, 3, 1), date(2026, 3, 31), "WEEKLY").
				AddRow(22, 100, date(2026, 3, 1), date(2026, 3, 31), "CALENDAR"))
		mock.ExpectQuery(`FROM "price_allocations"`).
			WillReturnRows(sqlmock.NewRows(allocCols).AddRow(1, 100, 5, date(2026, 3, 1), nil, "3100.00"))

		got, err := repo.FindCyclesWithAllocations(context.Background(), 1, march2026)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, revenue.CycleType("WEEKLY"), got[0].Cycle.CycleType)
		assert.Equal(t, revenue.CycleTypeCalendar, got[1].Cycle.CycleType)
		assert.Len(t, got[0].Allocations, 1)
	})

	t.Run("allocation query error", func(t *testing.T) {
		repo, mock := newMockMetricsRepository(t)
		mock.ExpectQuery(cyclesQuery).
			WillReturnRows(sqlmock.NewRows(cycleCols).AddRow(21, 100, date(2026, 3, 1), date(2026, 3, 31), "CALENDAR"))
		mock.ExpectQuery(`FROM "price_allocations"`).WillReturnError(errors.New("canceled"))

		_, err := repo.FindCyclesWithAllocations(context.Background(), 1, march2026)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "find price allocations")
	})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
