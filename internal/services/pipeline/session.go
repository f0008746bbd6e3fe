// Package pipeline runs detections through the tracker and the line counter
// frame by frame.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"

	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/counting"
	"vehicle-counter-go/internal/services/tracking"
)

var (
	// ErrFrameOutOfOrder is returned when a frame index does not increase
	ErrFrameOutOfOrder = errors.New("frame index out of order")
	// ErrInvalidFrame is returned for frames with a negative index
	ErrInvalidFrame = errors.New("invalid frame")
)

// SessionConfig holds everything a counting session needs
type SessionConfig struct {
	Line          counting.Line
	Tracker       tracking.Config
	AnchorMode    models.AnchorMode
	MinConfidence float64
}

// FrameResult is what one frame produced
type FrameResult struct {
	Assignments []models.Assignment
	Events      []models.CountEvent
	// Rejected counts malformed detections dropped before tracking
	Rejected int
	// Filtered counts detections below the confidence threshold
	Filtered int
}

// Summary describes a finished Run
type Summary struct {
	Frames   int64
	Duration time.Duration
}

// Session owns the tracker and counter of one counting run
type Session struct {
	cfg       SessionConfig
	tracker   *tracking.Tracker
	counter   *counting.LineCounter
	logger    zerolog.Logger
	observers []FrameObserver

	started    bool
	lastFrame  int64
	frames     int64
	eventsSeen int
}

// NewSession creates a session with a fresh tracker and counter
func NewSession(cfg SessionConfig, logger zerolog.Logger, observers ...FrameObserver) *Session {
	if !cfg.AnchorMode.IsValid() {
		cfg.AnchorMode = models.AnchorCenter
	}
	return &Session{
		cfg:       cfg,
		tracker:   tracking.NewTracker(cfg.Tracker),
		counter:   counting.NewLineCounter(cfg.Line),
		logger:    logger,
		observers: observers,
	}
}

// AddObserver registers another frame observer
func (s *Session) AddObserver(o FrameObserver) {
	s.observers = append(s.observers, o)
}

// Config returns the session configuration
func (s *Session) Config() SessionConfig { return s.cfg }

// Counter exposes the line counter for read access
func (s *Session) Counter() *counting.LineCounter { return s.counter }

// Tracker exposes the tracker for read access
func (s *Session) Tracker() *tracking.Tracker { return s.tracker }

// Frames returns the number of frames processed
func (s *Session) Frames() int64 { return s.frames }

// ProcessFrame validates a frame, tracks its detections and updates the counts
func (s *Session) ProcessFrame(frame models.Frame) (FrameResult, error) {
	var result FrameResult

	if frame.Index < 0 {
		return result, fmt.Errorf("%w: negative index %d", ErrInvalidFrame, frame.Index)
	}
	if s.started && frame.Index <= s.lastFrame {
		return result, fmt.Errorf("%w: got %d after %d", ErrFrameOutOfOrder, frame.Index, s.lastFrame)
	}
	s.started = true
	s.lastFrame = frame.Index
	s.frames++

	detections := make([]models.Detection, 0, len(frame.Detections))
	for _, det := range frame.Detections {
		if !det.Box.IsWellFormed() || det.Label == "" || math.IsNaN(det.Confidence) {
			result.Rejected++
			continue
		}
		if det.Confidence < s.cfg.MinConfidence {
			result.Filtered++
			continue
		}
		det.Anchor = det.Box.Anchor(s.cfg.AnchorMode)
		detections = append(detections, det)
	}
	if result.Rejected > 0 {
		s.logger.Debug().Int64("frame", frame.Index).Int("rejected", result.Rejected).Msg("Dropped malformed detections")
	}

	result.Assignments = s.tracker.Update(detections, frame.Index)

	observations := make([]models.TrackObservation, len(result.Assignments))
	for i, a := range result.Assignments {
		observations[i] = models.TrackObservation{
			TrackID:   a.TrackID,
			Anchor:    a.Detection.Anchor,
			Label:     a.Detection.Label,
			Confirmed: a.Matched,
		}
	}

	s.counter.UpdateFrame(frame.Index, observations)
	result.Events = s.counter.EventsSince(s.eventsSeen)
	s.eventsSeen += len(result.Events)

	for _, ev := range result.Events {
		s.logger.Debug().
			Int64("frame", ev.Frame).
			Int64("track_id", ev.TrackID).
			Str("category", string(ev.Category)).
			Str("direction", string(ev.Direction)).
			Msg("Vehicle counted")
	}

	counts := s.counter.Counts()
	for _, o := range s.observers {
		o.OnFrame(frame, result, counts)
	}

	return result, nil
}

// Run processes frames from the source until it is exhausted, maxFrames
// frames were processed (0 means no limit) or the context is cancelled
func (s *Session) Run(ctx context.Context, source FrameSource, maxFrames int) (Summary, error) {
	start := time.Now()
	var processed int64

	summary := func() Summary {
		return Summary{Frames: processed, Duration: time.Since(start)}
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary(), err
		}
		if maxFrames > 0 && processed >= int64(maxFrames) {
			break
		}

		frame, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary(), fmt.Errorf("failed to read frame %d: %w", processed+1, err)
		}

		if _, err := s.ProcessFrame(frame); err != nil {
			return summary(), err
		}
		processed++
	}

	counts := s.counter.Counts()
	s.logger.Info().
		Int64("frames", processed).
		Int("total", counts.Total).
		Int("in", counts.In.Total).
		Int("out", counts.Out.Total).
		Dur("duration", time.Since(start)).
		Msg("Counting run finished")

	return summary(), nil
}

// ReportMeta is the run metadata stored alongside the counts
type ReportMeta struct {
	RunID    string
	Video    string
	Model    string
	LineY    float64
	Duration time.Duration
}

// Report builds the persisted report for the current state
func (s *Session) Report(meta ReportMeta) models.Report {
	line := s.counter.Line()
	return models.Report{
		RunID:            meta.RunID,
		Video:            meta.Video,
		Model:            meta.Model,
		LineY:            meta.LineY,
		LineYPx:          line.Y,
		MarginPx:         line.Margin,
		InvertDirections: line.InvertDirections,
		AnchorMode:       s.cfg.AnchorMode,
		FramesProcessed:  s.frames,
		Counts:           s.counter.Counts(),
		CountedTrackIDs:  s.counter.CountedTrackIDs(),
		GeneratedAt:      time.Now().UTC(),
		DurationMs:       meta.Duration.Milliseconds(),
	}
}

// DefaultMarginPx returns the dead-zone margin used when none is configured:
// 1% of the frame height, at least 2 pixels
func DefaultMarginPx(frameHeight int) float64 {
	return math.Max(2, 0.01*float64(frameHeight))
}

// ResolveLine converts a line position given as a fraction of the frame
// height into a pixel line
func ResolveLine(lineYFraction float64, marginPx *float64, frameHeight int, invert bool) counting.Line {
	margin := DefaultMarginPx(frameHeight)
	if marginPx != nil && *marginPx >= 0 {
		margin = *marginPx
	}
	return counting.Line{
		Y:                lineYFraction * float64(frameHeight),
		Margin:           margin,
		InvertDirections: invert,
	}
}
