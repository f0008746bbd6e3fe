package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler reports process statistics
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	jobs      BusyReporter
	clients   func() int
	nats      func() bool
}

// NewSystemHandler creates a new system handler. clients and nats may be nil.
func NewSystemHandler(workerID string, startedAt time.Time, jobs BusyReporter, clients func() int, nats func() bool) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: startedAt,
		jobs:      jobs,
		clients:   clients,
		nats:      nats,
	}
}

type SystemStats struct {
	WorkerID      string `json:"worker_id"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryMB      uint64 `json:"memory_mb"`
	CPUCores      int    `json:"cpu_cores"`
	Goroutines    int    `json:"goroutines"`
	GoVersion     string `json:"go_version"`
	Busy          bool   `json:"busy"`
	LiveClients   int    `json:"live_clients"`
	NatsConnected bool   `json:"nats_connected"`
}

// @Summary Get system stats
// @Description Get process statistics, job state and connected clients
// @Tags system
// @Produce json
// @Success 200 {object} SystemStats
// @Router /api/system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := SystemStats{
		WorkerID:      h.WorkerID,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		MemoryMB:      m.Alloc / 1024 / 1024,
		CPUCores:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}
	if h.jobs != nil {
		stats.Busy = h.jobs.Busy()
	}
	if h.clients != nil {
		stats.LiveClients = h.clients()
	}
	if h.nats != nil {
		stats.NatsConnected = h.nats()
	}

	c.JSON(http.StatusOK, stats)
}
