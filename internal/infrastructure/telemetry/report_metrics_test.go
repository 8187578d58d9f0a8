package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewReportMetrics_NilMeter(t *testing.T) {
	rm, err := telemetry.NewReportMetrics(telemetry.ReportMetricsConfig{})
	require.Error(t, err)
	assert.Nil(t, rm)
	assert.Equal(t, "NewReportMetrics: meter cannot be nil", err.Error())
}

func TestReportMetrics_RecordComputation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	rm, err := telemetry.NewReportMetrics(telemetry.ReportMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	rm.RecordComputation(ctx, telemetry.ReportKindMonthly, 40*time.Millisecond, nil)
	rm.RecordComputation(ctx, telemetry.ReportKindMonthly, 60*time.Millisecond, nil)
	rm.RecordComputation(ctx, telemetry.ReportKindTrend, time.Second, errors.New("db down"))

	metrics := collect(t, reader)

	total, ok := metrics["propledger_report_compute_total"]
	require.True(t, ok)
	sum := total.Data.(metricdata.Sum[int64])
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("report_kind"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[kind.AsString()+"/"+outcome.AsString()] = dp.Value
	}
	assert.Equal(t, int64(2), counts["monthly/success"])
	assert.Equal(t, int64(1), counts["trend/error"])

	duration, ok := metrics["propledger_report_compute_duration_seconds"]
	require.True(t, ok)
	hist := duration.Data.(metricdata.Histogram[float64])
	var observations uint64
	for _, dp := range hist.DataPoints {
		observations += dp.Count
	}
	assert.Equal(t, uint64(3), observations)
}

func TestReportMetrics_RecordSuppressedCycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	rm, err := telemetry.NewReportMetrics(telemetry.ReportMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	rm.RecordSuppressedCycle(context.Background(), "reversed_cycle")
	rm.RecordSuppressedCycle(context.Background(), "reversed_cycle")

	metrics := collect(t, reader)
	sum := metrics["propledger_report_suppressed_cycles_total"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestReportMetrics_NilIsNoop(t *testing.T) {
	var rm *telemetry.ReportMetrics
	assert.NotPanics(t, func() {
		rm.RecordComputation(context.Background(), telemetry.ReportKindMonthly, time.Millisecond, nil)
		rm.RecordSuppressedCycle(context.Background(), "reversed_cycle")
	})
}
