// Package http exposes the codec over a gin HTTP API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil members are skipped.
type RouterConfig struct {
	FeaturizationHandler *handlers.FeaturizationHandler
	HealthHandler        *handlers.HealthHandler

	Logger      logging.Logger
	Metrics     *prometheus.CodecMetrics
	RateLimiter middleware.RateLimiter
	CORS        *middleware.CORSConfig

	// MetricsHandler is served on MetricsPath (default "/metrics").
	MetricsHandler http.Handler
	MetricsPath    string

	// MaxBodySize caps request bodies; 0 disables the cap.
	MaxBodySize int64
}

// NewRouter builds the engine.  Middleware order: request id, recovery,
// logging, CORS, metrics, rate limit.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger, "/healthz", "/readyz", cfg.MetricsPath))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(bodyLimit(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.FeaturizationHandler != nil {
		cfg.FeaturizationHandler.RegisterRoutes(api)
	}
	return r
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

//Personal.AI order the ending
