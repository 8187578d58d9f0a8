package router

import (
	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/interfaces/http/handler"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// healthPath is served outside the versioned API and without auth
const healthPath = "/health"

// Deps are the collaborators the HTTP surface is assembled from
type Deps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *handler.MetricsHandler
	System         *handler.SystemHandler
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist
	// Meter records HTTP server metrics; nil disables them
	Meter          metric.Meter
}

// NewEngine builds the gin engine with the middleware chain and every route.
//
// Chain order: recovery, request id, tracing, HTTP metrics, access log,
// profiling labels, CORS, security headers. The metrics routes additionally require a JWT with the
// metrics:read scope when JWT is enabled.
func NewEngine(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   []string{healthPath},
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(deps.Meter, deps.Logger),
		logger.GinMiddleware(deps.Logger, healthPath),
		middleware.Profiling(middleware.ProfilingConfig{
			Enabled:   cfg.Telemetry.ProfilingEnabled,
			SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
		}),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.Secure(),
	)

	engine.GET(healthPath, deps.System.Health)

	paths := NewAPI(engine).
		Add(SystemRoutes(deps.System), MetricsRoutes(deps.Metrics, metricsGuards(deps)...)).
		Mount()
	deps.Logger.Debug("API routes mounted", zap.Strings("paths", paths))

	return engine, nil
}

func metricsGuards(deps Deps) []gin.HandlerFunc {
	if !deps.Config.JWT.Enabled {
		return []gin.HandlerFunc{middleware.SpanAttributes()}
	}
	jwtCfg := middleware.DefaultJWTConfig(deps.JWTService)
	jwtCfg.TokenBlacklist = deps.TokenBlacklist
	jwtCfg.Logger = deps.Logger.Named("auth")
	return []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.SpanAttributes(),
		middleware.RequireScope(auth.ScopeMetricsRead),
		middleware.RequirePropertyAccess("id"),
	}
}
