// Package jobs runs one counting job at a time from a request to a stored
// report.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/logging"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/pipeline"
	"vehicle-counter-go/internal/services/store"
	"vehicle-counter-go/internal/services/tracking"
)

var (
	ErrBusy           = errors.New("another video is being processed")
	ErrVideoNotFound  = errors.New("video not found")
	ErrNotAFile       = errors.New("path is not a file")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoVideoSupport = errors.New("video decoding is not available")
)

// SourceFactory opens a decoded video as a frame source. Observers returned
// alongside the source (annotated output, preview window) are attached to
// the session and closed after the run when they implement io.Closer.
type SourceFactory interface {
	Open(ctx context.Context, req models.JobRequest) (pipeline.FrameSource, []pipeline.FrameObserver, error)
}

// RunStore persists finished runs
type RunStore interface {
	CreateRun(report models.Report) error
}

// Runner executes counting jobs
type Runner struct {
	cfg       *config.Config
	runs      RunStore
	publisher models.MessagePublisher
	videos    SourceFactory
	validate  *validator.Validate
	logger    zerolog.Logger

	mu   sync.Mutex
	busy bool
}

// NewRunner creates a job runner. runs and videos may be nil.
func NewRunner(cfg *config.Config, runs RunStore, publisher models.MessagePublisher, videos SourceFactory, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		runs:      runs,
		publisher: publisher,
		videos:    videos,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Busy reports whether a job is running
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return false
	}
	r.busy = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

// NormalizePath trims whitespace and one pair of matching surrounding quotes
func NormalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 {
		if (p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'') {
			p = strings.TrimSpace(p[1 : len(p)-1])
		}
	}
	return p
}

// CheckVideoPath reports whether a path exists on this machine and is a file
func (r *Runner) CheckVideoPath(raw string) models.PathCheck {
	check := models.PathCheck{OriginalPath: raw}

	p := NormalizePath(raw)
	if p == "" {
		check.Error = "empty path"
		return check
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.ResolvedPath = &abs

	info, err := os.Stat(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			check.Error = err.Error()
		}
		return check
	}
	check.Exists = true
	check.IsFile = info.Mode().IsRegular()
	return check
}

func (r *Runner) resolveFile(raw string) (string, error) {
	check := r.CheckVideoPath(raw)
	switch {
	case check.Error != "" && check.ResolvedPath == nil:
		return "", fmt.Errorf("%w: %s", ErrInvalidRequest, check.Error)
	case !check.Exists:
		return "", fmt.Errorf("%w: %s", ErrVideoNotFound, NormalizePath(raw))
	case !check.IsFile:
		return "", fmt.Errorf("%w: %s", ErrNotAFile, *check.ResolvedPath)
	}
	return *check.ResolvedPath, nil
}

// WithDefaults fills unset request fields from the configuration
func (r *Runner) WithDefaults(req models.JobRequest) models.JobRequest {
	if req.Model == "" {
		req.Model = r.cfg.ModelPath
	}
	if req.LineY == nil {
		v := r.cfg.LineY
		req.LineY = &v
	}
	if req.MarginPx == nil {
		req.MarginPx = r.cfg.MarginPx()
	}
	if req.Confidence == nil {
		v := r.cfg.DetectionConfidence
		req.Confidence = &v
	}
	if req.Anchor == "" {
		req.Anchor = models.AnchorMode(r.cfg.AnchorMode)
	}
	req.InvertDirections = req.InvertDirections || r.cfg.InvertDirections
	return req
}

// Process runs one job synchronously and returns its report. Only one job
// runs at a time; concurrent calls get ErrBusy.
func (r *Runner) Process(ctx context.Context, req models.JobRequest) (models.Report, error) {
	return r.Run(ctx, req)
}

// Run is Process with additional frame observers. Observers passed here are
// owned by the caller and are not closed.
func (r *Runner) Run(ctx context.Context, req models.JobRequest, extra ...pipeline.FrameObserver) (models.Report, error) {
	req.VideoPath = NormalizePath(req.VideoPath)
	req.DetectionsPath = NormalizePath(req.DetectionsPath)
	if err := r.validate.Struct(req); err != nil {
		return models.Report{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if !r.acquire() {
		return models.Report{}, ErrBusy
	}
	defer r.release()

	req = r.WithDefaults(req)
	runID := uuid.NewString()
	logger := logging.WithRun(r.logger, runID)

	source, observers, err := r.open(ctx, &req)
	if err != nil {
		return models.Report{}, err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close frame source")
		}
		for _, o := range observers {
			if c, ok := o.(io.Closer); ok {
				if err := c.Close(); err != nil {
					logger.Warn().Err(err).Msg("Failed to close frame observer")
				}
			}
		}
	}()

	info := source.Info()
	if info.Height <= 0 {
		return models.Report{}, fmt.Errorf("%w: %s has no frame height", ErrInvalidRequest, info.Name)
	}

	videoName := req.VideoPath
	if videoName == "" {
		videoName = req.DetectionsPath
	}

	logger.Info().
		Str("video", videoName).
		Str("model", info.Model).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("line_y", *req.LineY).
		Msg("Starting counting run")

	session := pipeline.NewSession(pipeline.SessionConfig{
		Line:          pipeline.ResolveLine(*req.LineY, req.MarginPx, info.Height, req.InvertDirections),
		Tracker:       tracking.Config{MaxAgeFrames: r.cfg.TrackerMaxAgeFrames, MaxMatchDistancePx: r.cfg.TrackerMaxMatchDistancePx},
		AnchorMode:    req.Anchor,
		MinConfidence: *req.Confidence,
	}, logger, observers...)
	for _, o := range extra {
		session.AddObserver(o)
	}

	if r.publisher != nil {
		session.AddObserver(pipeline.NewPublishingObserver(r.publisher, r.cfg.CrossingsSubject, runID, videoName, logger))
		session.AddObserver(pipeline.NewProgressObserver(r.publisher, r.cfg.ProgressSubject, runID, videoName, r.cfg.ProgressEvery, logger))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.ProcessingTimeout)
	defer cancel()

	summary, err := session.Run(runCtx, source, req.MaxFrames)
	if err != nil {
		logger.Error().Err(err).Int64("frames", summary.Frames).Msg("Counting run failed")
		return models.Report{}, fmt.Errorf("counting run %s failed: %w", runID, err)
	}

	report := session.Report(pipeline.ReportMeta{
		RunID:    runID,
		Video:    videoName,
		Model:    info.Model,
		LineY:    *req.LineY,
		Duration: summary.Duration,
	})

	if err := r.persist(req, report, logger); err != nil {
		return report, err
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(r.cfg.ReportsSubject, report); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish report")
		}
	}

	return report, nil
}

func (r *Runner) open(ctx context.Context, req *models.JobRequest) (pipeline.FrameSource, []pipeline.FrameObserver, error) {
	if req.DetectionsPath != "" {
		path, err := r.resolveFile(req.DetectionsPath)
		if err != nil {
			return nil, nil, err
		}
		req.DetectionsPath = path
		src, err := pipeline.OpenJSONLSource(path)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	}

	path, err := r.resolveFile(req.VideoPath)
	if err != nil {
		return nil, nil, err
	}
	req.VideoPath = path

	if r.videos == nil {
		return nil, nil, ErrNoVideoSupport
	}
	return r.videos.Open(ctx, *req)
}

func (r *Runner) persist(req models.JobRequest, report models.Report, logger zerolog.Logger) error {
	start := time.Now()

	paths := []string{r.cfg.OutputJSONPath}
	if req.SaveJSON != "" && filepath.Clean(req.SaveJSON) != filepath.Clean(r.cfg.OutputJSONPath) {
		paths = append(paths, req.SaveJSON)
	}
	for _, p := range paths {
		if err := store.WriteReportFile(p, report); err != nil {
			return err
		}
	}

	if r.runs != nil {
		if err := r.runs.CreateRun(report); err != nil {
			// the JSON report is already written
			logger.Error().Err(err).Msg("Failed to store run")
		}
	}

	logger.Info().
		Strs("paths", paths).
		Int("total", report.Counts.Total).
		Dur("persist_duration", time.Since(start)).
		Msg("Report saved")
	return nil
}
