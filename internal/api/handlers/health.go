package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BusyReporter tells whether a counting job is running
type BusyReporter interface {
	Busy() bool
}

type HealthHandler struct {
	WorkerID string
	Version  string
	jobs     BusyReporter
}

func NewHealthHandler(workerID, version string, jobs BusyReporter) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, jobs: jobs}
}

type HealthResponse struct {
	OK       bool   `json:"ok" example:"true"`
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"counter-1"`
	Busy     bool   `json:"busy" example:"false"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"counter-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	busy := false
	if h.jobs != nil {
		busy = h.jobs.Busy()
	}
	c.JSON(http.StatusOK, HealthResponse{
		OK:       true,
		Status:   "healthy",
		WorkerID: h.WorkerID,
		Busy:     busy,
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"vehicle_counting",
			"detection_replay",
			"run_history",
			"live_counts",
		},
	})
}
