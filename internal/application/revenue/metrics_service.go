package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "revenue_metrics"

	// DefaultTrendMonths is used when a trend request does not name a length
	DefaultTrendMonths = 6

	defaultTrendMaxMonths   = 24
	defaultTrendConcurrency = 4
)

// MetricsService computes monthly revenue reports for a property.
// It owns no state besides its collaborators and can be shared across requests.
type MetricsService struct {
	reader           revenue.MetricsReader
	logger           *zap.Logger
	metrics          *telemetry.ReportMetrics
	now              func() time.Time
	trendMaxMonths   int
	trendConcurrency int
}

// MetricsServiceOption is a functional option for configuring MetricsService
type MetricsServiceOption func(*MetricsService)

// WithClock overrides the clock used to resolve default windows
func WithClock(now func() time.Time) MetricsServiceOption {
	return func(s *MetricsService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for audit entries about suppressed cycles
func WithLogger(l *zap.Logger) MetricsServiceOption {
	return func(s *MetricsService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReportMetrics attaches OpenTelemetry instruments for report computations
func WithReportMetrics(m *telemetry.ReportMetrics) MetricsServiceOption {
	return func(s *MetricsService) {
		s.metrics = m
	}
}

// WithTrendLimits bounds the trend length and how many months are computed at once
func WithTrendLimits(maxMonths, concurrency int) MetricsServiceOption {
	return func(s *MetricsService) {
		if maxMonths > 0 {
			s.trendMaxMonths = maxMonths
		}
		if concurrency > 0 {
			s.trendConcurrency = concurrency
		}
	}
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(reader revenue.MetricsReader, opts ...MetricsServiceOption) *MetricsService {
	s := &MetricsService{
		reader:           reader,
		logger:           zap.NewNop(),
		now:              time.Now,
		trendMaxMonths:   defaultTrendMaxMonths,
		trendConcurrency: defaultTrendConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrendMaxMonths returns the longest trend the service will compute
func (s *MetricsService) TrendMaxMonths() int {
	return s.trendMaxMonths
}

// ComputeMonthlyMetrics builds the cash and accrual report for propertyID over
// [monthStart, monthEnd). A nil monthEnd defaults to the first day of the
// month after the current one.
func (s *MetricsService) ComputeMonthlyMetrics(ctx context.Context, propertyID int64, monthStart time.Time, monthEnd *time.Time) (*revenue.MonthlyMetricsReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "compute_monthly",
		telemetry.WithAttribute("property_id", propertyID),
	)
	defer span.End()

	window := s.resolveWindow(monthStart, monthEnd)
	telemetry.SetAttributes(span,
		"month_start", window.Start.Format(time.DateOnly),
		"month_end", window.End.Format(time.DateOnly),
	)

	if err := s.ensureProperty(ctx, propertyID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	began := time.Now()
	report, err := s.compute(ctx, propertyID, window)
	s.metrics.RecordComputation(ctx, telemetry.ReportKindMonthly, time.Since(began), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "cycles_count", len(report.Breakdown.Cycles))
	return report, nil
}

// ComputeTrend returns one summary per calendar month for the given number of
// months ending with the current one, oldest first.
func (s *MetricsService) ComputeTrend(ctx context.Context, propertyID int64, months int) ([]MonthlySummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "compute_trend",
		telemetry.WithAttribute("property_id", propertyID),
		telemetry.WithAttribute("months", months),
	)
	defer span.End()

	if months <= 0 || months > s.trendMaxMonths {
		err := shared.ErrInvalidInput.WithMessage("months must be between 1 and %d", s.trendMaxMonths)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.ensureProperty(ctx, propertyID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	current := revenue.MonthWindowContaining(s.now())
	windows := make([]revenue.MonthWindow, months)
	for i := range windows {
		start := current.Start.AddDate(0, i-(months-1), 0)
		windows[i] = revenue.NewMonthWindow(start.Year(), start.Month())
	}

	began := time.Now()
	summaries := make([]MonthlySummary, months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.trendConcurrency)
	for i, w := range windows {
		g.Go(func() error {
			report, err := s.compute(gctx, propertyID, w)
			if err != nil {
				return fmt.Errorf("compute %s: %w", w.Label(), err)
			}
			summaries[i] = ToMonthlySummary(report)
			return nil
		})
	}
	err := g.Wait()
	s.metrics.RecordComputation(ctx, telemetry.ReportKindTrend, time.Since(began), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return summaries, nil
}

func (s *MetricsService) resolveWindow(monthStart time.Time, monthEnd *time.Time) revenue.MonthWindow {
	end := revenue.StartOfNextMonth(s.now())
	if monthEnd != nil {
		end = *monthEnd
	}
	return revenue.MonthWindow{Start: revenue.ToCalendarDay(monthStart), End: revenue.ToCalendarDay(end)}
}

func (s *MetricsService) ensureProperty(ctx context.Context, propertyID int64) error {
	exists, err := s.reader.PropertyExists(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("check property %d: %w", propertyID, err)
	}
	if !exists {
		return shared.ErrNotFound.WithMessage("property %d not found", propertyID)
	}
	return nil
}

// compute runs the six independent reads concurrently and folds them into a report.
func (s *MetricsService) compute(ctx context.Context, propertyID int64, window revenue.MonthWindow) (*revenue.MonthlyMetricsReport, error) {
	var (
		cash   revenue.CashTotals
		mrr    decimal.Decimal
		cycles []revenue.CycleAllocations
	)

	g, gctx := errgroup.WithContext(ctx)
	sum := func(name string, fetch func(context.Context, int64, revenue.MonthWindow) (decimal.Decimal, error), dst *decimal.Decimal) {
		g.Go(func() error {
			v, err := fetch(gctx, propertyID, window)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			*dst = v
			return nil
		})
	}
	sum("cash received", s.reader.SumRentCollected, &cash.CashReceived)
	sum("refunds paid", s.reader.SumRefundsPaid, &cash.RefundsPaid)
	sum("advance paid", s.reader.SumAdvancePaid, &cash.AdvancePaid)
	sum("expenses paid", s.reader.SumExpensesPaid, &cash.ExpensesPaid)
	sum("mrr", s.reader.SumMRR, &mrr)
	g.Go(func() error {
		found, err := s.reader.FindCyclesWithAllocations(gctx, propertyID, window)
		if err != nil {
			return fmt.Errorf("fetch billing cycles: %w", err)
		}
		cycles = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var accrual revenue.AccrualResult
	telemetry.WithProfilingLabels(ctx, map[string]string{"operation": "rent_accrual"}, func(context.Context) {
		accrual = revenue.ComputeRentEarned(cycles, window)
	})
	s.auditSuppressed(ctx, propertyID, window, accrual.Suppressed)

	return revenue.BuildReport(propertyID, window, cash, mrr, accrual), nil
}

func (s *MetricsService) auditSuppressed(ctx context.Context, propertyID int64, window revenue.MonthWindow, suppressed []revenue.SuppressedCycle) {
	if len(suppressed) == 0 {
		return
	}
	log := logger.WithLogger(ctx, s.logger)
	for _, sc := range suppressed {
		s.metrics.RecordSuppressedCycle(ctx, string(sc.Reason))
		log.Debug("billing cycle suppressed from rent earned",
			zap.Int64("property_id", propertyID),
			zap.Int64("cycle_id", sc.CycleID),
			zap.Int64("tenant_id", sc.TenantID),
			zap.String("reason", string(sc.Reason)),
			zap.String("month", window.Label()),
		)
	}
}
