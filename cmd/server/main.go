// Command server runs the propledger revenue metrics API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	revenueapp "github.com/propledger/backend/internal/application/revenue"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/infrastructure/persistence"
	"github.com/propledger/backend/internal/infrastructure/telemetry"
	"github.com/propledger/backend/internal/interfaces/http/handler"
	"github.com/propledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default: ./config.toml or /app/config.toml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	baseLog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = baseLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, log, err := setupTelemetry(ctx, cfg, baseLog)
	if err != nil {
		return err
	}
	defer tel.shutdown(log)

	log.Info("Starting propledger backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	dbObserver, err := telemetry.NewDBObserver(telemetry.DBConfig{
		TracingEnabled:     cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		MetricsEnabled:     cfg.Telemetry.MetricsEnabled && cfg.Telemetry.DBMetricsEnabled,
		DBSystem:           dbSystem(cfg.Database.Driver),
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, tel.meter.Meter("propledger/db"), log.Named("db"))
	if err != nil {
		return fmt.Errorf("create database observer: %w", err)
	}

	gormLog := logger.NewGormLogger(log, logger.ParseGormLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(ctx, &cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugins(dbObserver),
	)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		dbObserver.Stop()
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbObserver.StartPoolStats(ctx, db.DB)
	log.Info("Database connected")

	system := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion).AddCheck("database", db)

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		client, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		redisBlacklist := auth.NewRedisTokenBlacklist(client)
		system.AddCheck("redis", redisBlacklist)
		blacklist = redisBlacklist
		log.Info("Token revocation enabled", zap.String("redis", cfg.Redis.Addr()))
	}

	reportMetrics, err := telemetry.NewReportMetrics(telemetry.ReportMetricsConfig{
		Meter:  tel.meter.Meter("propledger/revenue"),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("create report metrics: %w", err)
	}

	metricsService := revenueapp.NewMetricsService(
		persistence.NewGormMetricsRepository(db.DB),
		revenueapp.WithLogger(log.Named("revenue")),
		revenueapp.WithReportMetrics(reportMetrics),
		revenueapp.WithTrendLimits(cfg.Report.TrendMaxMonths, cfg.Report.TrendConcurrency),
	)

	engine, err := router.NewEngine(router.Deps{
		Config:         cfg,
		Logger:         log,
		Metrics:        handler.NewMetricsHandler(metricsService),
		System:         system,
		JWTService:     auth.NewJWTService(cfg.JWT),
		TokenBlacklist: blacklist,
		Meter:          tel.meter.Meter("propledger/http"),
	})
	if err != nil {
		return fmt.Errorf("build http engine: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// telemetryStack holds the providers started for the process
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// setupTelemetry starts tracing, metrics, log export and profiling. The
// returned logger also ships entries to the OTLP collector when log export
// is enabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, *zap.Logger, error) {
	tc := cfg.Telemetry
	tel := &telemetryStack{}
	var err error

	tel.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize tracer: %w", err)
	}

	tel.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize meter: %w", err)
	}

	tel.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize log export: %w", err)
	}
	if tel.logs.IsEnabled() {
		log = telemetry.NewBridgedLogger(log,
			telemetry.NewZapOTELCore(tc.ServiceName, tel.logs, logger.ParseLevel(tc.LogsLevel)))
	}

	tel.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.ProfilingServer,
		ApplicationName: tc.ServiceName,
		ProfileTypes:    tc.ProfileTypes,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize profiler: %w", err)
	}
	if tel.profiler.IsEnabled() {
		tel.tracer.EnableSpanProfiles()
	}

	return tel, log, nil
}

// shutdown flushes exporters in reverse start order
func (t *telemetryStack) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Warn("Log exporter shutdown failed", zap.Error(err))
	}
	if err := t.meter.Shutdown(ctx); err != nil {
		log.Warn("Meter shutdown failed", zap.Error(err))
	}
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
}
