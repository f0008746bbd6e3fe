package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/jobs"
)

// JobRunner runs counting jobs
type JobRunner interface {
	CheckVideoPath(raw string) models.PathCheck
	Process(ctx context.Context, req models.JobRequest) (models.Report, error)
}

type VideoHandler struct {
	jobs JobRunner
}

func NewVideoHandler(jobs JobRunner) *VideoHandler {
	return &VideoHandler{jobs: jobs}
}

type ErrorResponse struct {
	Error string `json:"error" example:"video not found"`
}

type CheckVideoPathRequest struct {
	VideoPath string `json:"video_path" binding:"required" example:"/data/traffic.mp4"`
}

// CheckVideoPath godoc
// @Summary Check a video path
// @Description Resolve a path on the worker filesystem and report whether it is an existing file
// @Tags videos
// @Accept json
// @Produce json
// @Param request body CheckVideoPathRequest true "Path to check"
// @Success 200 {object} models.PathCheck
// @Failure 400 {object} ErrorResponse
// @Router /api/check-video-path [post]
func (h *VideoHandler) CheckVideoPath(c *gin.Context) {
	var req CheckVideoPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.jobs.CheckVideoPath(req.VideoPath))
}

// ProcessVideo godoc
// @Summary Count vehicles in a video
// @Description Runs detection, tracking and line counting over the whole video and returns the report. One job runs at a time.
// @Tags videos
// @Accept json
// @Produce json
// @Param request body models.JobRequest true "Job parameters"
// @Success 200 {object} models.Report
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/process-video [post]
func (h *VideoHandler) ProcessVideo(c *gin.Context) {
	var req models.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	report, err := h.jobs.Process(c.Request.Context(), req)
	if err != nil {
		status := statusForJobError(err)
		if status >= http.StatusInternalServerError {
			logging.Error(c).Err(err).Str("video", req.VideoPath).Msg("Video processing failed")
		} else {
			logging.Warn(c).Err(err).Int("status", status).Msg("Video processing rejected")
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	logging.SetRunID(c, report.RunID)
	logging.Info(c).
		Int("total", report.Counts.Total).
		Int64("frames", report.FramesProcessed).
		Msg("Video processed")

	c.JSON(http.StatusOK, report)
}

func statusForJobError(err error) int {
	switch {
	case errors.Is(err, jobs.ErrInvalidRequest), errors.Is(err, jobs.ErrNotAFile):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
