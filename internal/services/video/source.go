// Package video decodes video files with OpenCV and runs a detector on
// every frame.
package video

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/pipeline"
)

// Detector finds objects in a decoded frame
type Detector interface {
	Name() string
	Detect(img gocv.Mat) ([]models.Detection, error)
	Close() error
}

// Source reads a video file frame by frame. Frame indices start at 1.
type Source struct {
	capture  *gocv.VideoCapture
	detector Detector
	img      gocv.Mat
	info     pipeline.SourceInfo
	index    int64
	opened   time.Time
	logger   zerolog.Logger
}

// Open opens the video at path. The source owns the detector and closes it.
func Open(path string, detector Detector, logger zerolog.Logger) (*Source, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open video %s", path)
	}

	info := pipeline.SourceInfo{
		Name:   filepath.Base(path),
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    capture.Get(gocv.VideoCaptureFPS),
		Model:  detector.Name(),
	}

	logger.Info().
		Str("video", path).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Float64("frame_count", capture.Get(gocv.VideoCaptureFrameCount)).
		Msg("Video opened")

	return &Source{
		capture:  capture,
		detector: detector,
		img:      gocv.NewMat(),
		info:     info,
		opened:   time.Now(),
		logger:   logger,
	}, nil
}

// Info returns the stream properties
func (s *Source) Info() pipeline.SourceInfo {
	return s.info
}

// Next decodes the next frame and runs the detector on it
func (s *Source) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}

	if ok := s.capture.Read(&s.img); !ok || s.img.Empty() {
		return models.Frame{}, io.EOF
	}
	s.index++

	detections, err := s.detector.Detect(s.img)
	if err != nil {
		return models.Frame{}, fmt.Errorf("detection failed on frame %d: %w", s.index, err)
	}

	return models.Frame{
		Index:      s.index,
		Width:      s.img.Cols(),
		Height:     s.img.Rows(),
		Timestamp:  s.opened.Add(time.Duration(s.capture.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond))),
		Detections: detections,
	}, nil
}

// Current returns the most recently decoded image. It stays valid until
// the next call to Next.
func (s *Source) Current() *gocv.Mat {
	return &s.img
}

// Close releases the capture, the frame buffer and the detector
func (s *Source) Close() error {
	s.img.Close()
	err := s.capture.Close()
	if derr := s.detector.Close(); derr != nil && err == nil {
		err = derr
	}
	return err
}
