package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/store"
)

// RunReader reads stored runs
type RunReader interface {
	GetRun(id string) (models.Report, error)
	ListRuns(limit int) ([]models.Report, error)
}

type AnalyticsHandler struct {
	reportPath string
	runs       RunReader
}

func NewAnalyticsHandler(reportPath string, runs RunReader) *AnalyticsHandler {
	return &AnalyticsHandler{reportPath: reportPath, runs: runs}
}

type RunsResponse struct {
	Count int             `json:"count"`
	Runs  []models.Report `json:"runs"`
}

// GetAnalytics godoc
// @Summary Latest counts
// @Description Returns the report written by the most recent run
// @Tags analytics
// @Produce json
// @Success 200 {object} models.Report
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	data, err := os.ReadFile(h.reportPath)
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "counts.json not found. Run the counting script first."})
		return
	}
	if err != nil {
		logging.Error(c).Err(err).Str("path", h.reportPath).Msg("Failed to read analytics")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if !json.Valid(data) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Invalid JSON in counts.json"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ListRuns godoc
// @Summary Run history
// @Description Lists stored runs, newest first
// @Tags analytics
// @Produce json
// @Param limit query int false "Maximum number of runs (default: 50)"
// @Success 200 {object} RunsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/runs [get]
func (h *AnalyticsHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "run history is not available"})
		return
	}

	limit := store.DefaultListLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RunsResponse{Count: len(runs), Runs: runs})
}

// GetRun godoc
// @Summary One run
// @Tags analytics
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} models.Report
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/runs/{id} [get]
func (h *AnalyticsHandler) GetRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "run history is not available"})
		return
	}

	run, err := h.runs.GetRun(c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to load run")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
