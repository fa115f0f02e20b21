package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"foodmap-api/internal/boundary"
	"foodmap-api/internal/models"
	"foodmap-api/internal/repository"
)

// StatsService is the boundary-counting dependency.
type StatsService interface {
	BoundaryStats(ctx context.Context, q models.StatsQuery) (models.BoundaryStats, error)
	Artifact(ctx context.Context, name string) (*geojson.FeatureCollection, error)
}

// StatsHandler serves per-boundary statistics and persisted artifacts.
type StatsHandler struct {
	service StatsService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Stats handles GET /api/stats requests. A boundary that cannot be resolved
// is a 404 "unknown", which callers must not confuse with a zero count.
func (h *StatsHandler) Stats(c *gin.Context) {
	county := c.Query("county")
	if county == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing required query parameter 'county'"})
		return
	}

	q := models.StatsQuery{
		County:   county,
		Zip:      c.Query("zip"),
		Artifact: c.Query("artifact"),
	}
	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "k must be a positive integer"})
			return
		}
		q.K = k
	}

	stats, err := h.service.BoundaryStats(c.Request.Context(), q)
	if errors.Is(err, boundary.ErrNotFound) || errors.Is(err, boundary.ErrBadGeometry) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "boundary not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Artifact handles GET /data/:name requests, serving a persisted heatmap
// FeatureCollection.
func (h *StatsHandler) Artifact(c *gin.Context) {
	fc, err := h.service.Artifact(c.Request.Context(), c.Param("name"))
	if errors.Is(err, repository.ErrArtifactNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "artifact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, fc)
}
