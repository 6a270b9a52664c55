// Package server exposes the ingestion pipeline over HTTP: one write
// endpoint feeding the gate, read endpoints for alerts, plus health and
// metrics. The pipeline itself lives in internal/pipeline; handlers only
// translate between JSON and the gate.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/health"
	"github.com/northstar-intel/northstar/internal/ingest"
	"github.com/northstar-intel/northstar/internal/vulnrisk"
)

// Handler serves the ingestion and alert API.
type Handler struct {
	gate    *ingest.Gate
	store   ingest.Store
	checker *health.Checker
	logger  *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(gate *ingest.Gate, store ingest.Store, checker *health.Checker, logger *zap.Logger) *Handler {
	return &Handler{gate: gate, store: store, checker: checker, logger: logger}
}

// ingestRequest is the POST /api/ingest body.
type ingestRequest struct {
	Source       string             `json:"source" binding:"required"`
	URL          string             `json:"url" binding:"required"`
	Title        string             `json:"title"`
	Author       string             `json:"author"`
	CreatedAt    *time.Time         `json:"created_at"`
	Text         string             `json:"text" binding:"required"`
	VulnFeatures *vulnrisk.Features `json:"vuln_features"`
}

// Ingest handles POST /api/ingest.
func (h *Handler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		nsPostsIngestedTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.gate.Ingest(c.Request.Context(), ingest.RawPost{
		Source:    req.Source,
		URL:       req.URL,
		Title:     req.Title,
		Author:    req.Author,
		CreatedAt: req.CreatedAt,
		Text:      req.Text,
	}, req.VulnFeatures)
	if err != nil {
		nsPostsIngestedTotal.WithLabelValues("error").Inc()
		h.logger.Error("ingest failed", zap.String("source", req.Source), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}

	if res.Duplicate {
		nsPostsIngestedTotal.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, res)
		return
	}

	nsPostsIngestedTotal.WithLabelValues("new").Inc()
	if alert, err := h.store.GetAlert(c.Request.Context(), res.AlertID); err == nil {
		nsAlertsTotal.WithLabelValues(alert.Category).Inc()
	}
	c.JSON(http.StatusCreated, res)
}

// GetAlert handles GET /api/alerts/:id.
func (h *Handler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := h.store.GetAlert(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		h.logger.Error("get alert", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ListAlerts handles GET /api/alerts?limit=.
func (h *Handler) ListAlerts(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-500"})
			return
		}
		limit = n
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list alerts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if alerts == nil {
		alerts = []*ingest.AlertRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// Health handles GET /healthz. Liveness only; readiness is /readyz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /readyz by running the dependency probes.
func (h *Handler) Ready(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
