package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"foodmap-api/internal/geocoder"
	"foodmap-api/internal/models"
)

// PipelineService is the orchestration dependency of the upload endpoints.
type PipelineService interface {
	Run(ctx context.Context, filename, csvText string, opts models.RunOptions) (models.PipelineResult, error)
	DryRun(filename, csvText string) models.DryRunResult
}

// PipelineHandler handles CSV geocode upload requests.
type PipelineHandler struct {
	service PipelineService
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(svc PipelineService) *PipelineHandler {
	return &PipelineHandler{service: svc}
}

// Run handles POST /api/heatmap requests: the full
// parse -> filter -> geocode -> bin -> persist pipeline.
func (h *PipelineHandler) Run(c *gin.Context) {
	opts, err := parseRunOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	filename, text, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	result, err := h.service.Run(c.Request.Context(), filename, text, opts)
	if errors.Is(err, geocoder.ErrMissingAPIKey) {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "geocoding credential not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "pipeline failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// DryRun handles POST /api/heatmap/dry-run requests. It never invokes the
// geocoding provider; it only projects the unique addresses a run would send.
func (h *PipelineHandler) DryRun(c *gin.Context) {
	filename, text, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.DryRun(filename, text))
}

func parseRunOptions(c *gin.Context) (models.RunOptions, error) {
	opts := models.RunOptions{CapPerAddress: c.Query("cap") == "1"}

	if raw := c.Query("rps"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return models.RunOptions{}, errors.New("rps must be a positive number")
		}
		opts.RPS = rps
	}
	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			return models.RunOptions{}, errors.New("k must be a positive integer")
		}
		opts.KAnonymity = k
	}
	return opts, nil
}

func readUpload(c *gin.Context) (filename, text string, err error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", errors.New("no CSV uploaded")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return "", "", errors.New("no CSV uploaded")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", errors.New("could not read upload")
	}
	return fileHeader.Filename, string(data), nil
}
