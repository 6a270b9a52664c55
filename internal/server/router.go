package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the HTTP-surface knobs from the config file.
type RouterConfig struct {
	CORSOrigins  []string
	RateLimitRPS int
}

// NewRouter builds the Gin engine with metrics, rate limiting, CORS, and all
// API routes registered.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(PrometheusMiddleware())

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 20
	}

	r.GET("/healthz", h.Health)
	r.GET("/readyz", h.Ready)
	r.GET("/metrics", MetricsHandler())

	api := r.Group("/api")
	api.Use(RateLimiter(rps, rps*2))
	{
		api.POST("/ingest", h.Ingest)
		api.GET("/alerts", h.ListAlerts)
		api.GET("/alerts/:id", h.GetAlert)
	}

	return r
}
