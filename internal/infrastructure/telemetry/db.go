package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation.
type DBConfig struct {
	TracingEnabled     bool
	MetricsEnabled     bool
	DBSystem           string
	LogFullSQL         bool          // include bind variables in spans; development only
	SlowQueryThreshold time.Duration // default 200ms
	PoolStatsInterval  time.Duration // default 15s
}

type dbContextKey struct{}

// DBObserver is a GORM plugin that adds spans, query metrics, slow query
// events and connection pool gauges to a *gorm.DB.
type DBObserver struct {
	config DBConfig
	meter  metric.Meter
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBObserver builds the plugin. meter may be nil when metrics are disabled.
func NewDBObserver(cfg DBConfig, meter metric.Meter, logger *zap.Logger) (*DBObserver, error) {
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &DBObserver{config: cfg, meter: meter, logger: logger, stopCh: make(chan struct{})}
	if !cfg.MetricsEnabled || meter == nil {
		return o, nil
	}

	var err error
	if o.queryTotal, err = NewCounter(meter, "db_query_total", "Total number of database queries", "{query}"); err != nil {
		return nil, err
	}
	if o.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if o.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Total number of slow database queries", "{query}"); err != nil {
		return nil, err
	}
	if o.poolConns, err = NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	return o, nil
}

// Name implements gorm.Plugin.
func (o *DBObserver) Name() string {
	return "db_observer"
}

// Initialize implements gorm.Plugin. Only read paths are instrumented.
func (o *DBObserver) Initialize(db *gorm.DB) error {
	if o.config.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(o.config.DBSystem)}
		if !o.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	if err := errors.Join(
		cb.Query().Before("gorm:query").Register("db_observer:before_query", o.before),
		cb.Row().Before("gorm:row").Register("db_observer:before_row", o.before),
		cb.Raw().Before("gorm:raw").Register("db_observer:before_raw", o.before),
		cb.Query().After("gorm:query").Register("db_observer:after_query", o.after),
		cb.Row().After("gorm:row").Register("db_observer:after_row", o.after),
		cb.Raw().After("gorm:raw").Register("db_observer:after_raw", o.after),
	); err != nil {
		return err
	}

	o.logger.Info("Database instrumentation registered",
		zap.Bool("tracing", o.config.TracingEnabled),
		zap.Bool("metrics", o.queryTotal != nil),
		zap.Duration("slow_query_threshold", o.config.SlowQueryThreshold),
	)
	return nil
}

func (o *DBObserver) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbContextKey{}, time.Now())
}

func (o *DBObserver) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	started, ok := ctx.Value(dbContextKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	operation := operationOf(db.Statement.SQL.String())
	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	slow := elapsed > o.config.SlowQueryThreshold

	if o.queryTotal != nil {
		o.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
		o.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))
		if slow {
			o.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		}
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String("db.sql.table", table))
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}
	if slow {
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", o.config.SlowQueryThreshold.Milliseconds()),
		))
	}
}

// StartPoolStats periodically records connection pool usage until Stop or ctx ends.
func (o *DBObserver) StartPoolStats(ctx context.Context, db *gorm.DB) {
	if o.poolConns == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		o.logger.Warn("Pool stats unavailable", zap.Error(err))
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.config.PoolStatsInterval)
		defer ticker.Stop()
		for {
			stats := sqlDB.Stats()
			o.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
			o.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
			o.poolConns.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))

			select {
			case <-ticker.C:
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends pool stats collection. It is safe to call more than once.
func (o *DBObserver) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		o.wg.Wait()
	})
}

func operationOf(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"} {
		if strings.HasPrefix(sql, op) {
			if op == "WITH" {
				return "SELECT"
			}
			return op
		}
	}
	return "OTHER"
}
