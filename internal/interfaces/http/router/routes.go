package router

import (
	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/interfaces/http/handler"
)

// MetricsRoutes serves the revenue metrics of a property:
//
//	GET /properties/:id/metrics/monthly
//	GET /properties/:id/metrics/trend
func MetricsRoutes(h *handler.MetricsHandler, guards ...gin.HandlerFunc) *ReadGroup {
	return NewReadGroup("/properties/:id/metrics", guards...).
		Get("/monthly", h.GetMonthlyMetrics).
		Get("/trend", h.GetTrend)
}

// SystemRoutes serves the unauthenticated system endpoints
func SystemRoutes(h *handler.SystemHandler) *ReadGroup {
	return NewReadGroup("/system").
		Get("/ping", h.Ping).
		Get("/info", h.GetSystemInfo)
}
