package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReportKind labels which report a computation produced
type ReportKind string

const (
	ReportKindMonthly ReportKind = "monthly"
	ReportKindTrend   ReportKind = "trend"
)

// ReportMetrics instruments revenue report computations.
// A nil *ReportMetrics is valid and records nothing.
type ReportMetrics struct {
	computeTotal     *Counter
	computeDuration  *Histogram
	suppressedCycles *Counter
	logger           *zap.Logger
}

// ReportMetricsConfig holds configuration for report metrics.
type ReportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewReportMetrics creates the report instruments on cfg.Meter.
func NewReportMetrics(cfg ReportMetricsConfig) (*ReportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	computeTotal, err := NewCounter(cfg.Meter,
		"propledger_report_compute_total",
		"Total number of revenue report computations",
		"{reports}",
	)
	if err != nil {
		return nil, err
	}

	computeDuration, err := NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "propledger_report_compute_duration_seconds",
		Description: "Revenue report computation latency in seconds",
		Unit:        "s",
		Boundaries:  ReportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	suppressedCycles, err := NewCounter(cfg.Meter,
		"propledger_report_suppressed_cycles_total",
		"Billing cycles skipped during accrual because their data was malformed",
		"{cycles}",
	)
	if err != nil {
		return nil, err
	}

	return &ReportMetrics{
		computeTotal:     computeTotal,
		computeDuration:  computeDuration,
		suppressedCycles: suppressedCycles,
		logger:           logger,
	}, nil
}

// RecordComputation records one report computation and its outcome.
func (rm *ReportMetrics) RecordComputation(ctx context.Context, kind ReportKind, d time.Duration, err error) {
	if rm == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	rm.computeTotal.Inc(ctx, AttrReportKind.String(string(kind)), AttrOutcome.String(outcome))
	rm.computeDuration.RecordDuration(ctx, d, AttrReportKind.String(string(kind)))
}

// RecordSuppressedCycle counts a billing cycle excluded from rent earned.
func (rm *ReportMetrics) RecordSuppressedCycle(ctx context.Context, reason string) {
	if rm == nil {
		return
	}
	rm.suppressedCycles.Inc(ctx, AttrSuppressReason.String(reason))
}

// ErrMeterNil is returned when an instrument set is built without a meter.
var ErrMeterNil = &MetricsError{Op: "NewReportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
