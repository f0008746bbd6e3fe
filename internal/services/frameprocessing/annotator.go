// Package frameprocessing draws counting overlays on decoded frames and
// writes them to a video file, a preview window or a preview stream.
package frameprocessing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/counting"
	"vehicle-counter-go/internal/services/pipeline"
)

// ImageSource exposes the image behind the last frame read
type ImageSource interface {
	Current() *gocv.Mat
}

// FrameSink receives every annotated frame
type FrameSink interface {
	PublishFrame(img gocv.Mat) error
}

// Options selects the annotator outputs
type Options struct {
	OutputPath string
	FPS        float64
	Show       bool
	WindowName string
	Preview    FrameSink
}

// Annotator is a frame observer drawing the overlay on the source image
type Annotator struct {
	images  ImageSource
	line    counting.Line
	opts    Options
	writer  *gocv.VideoWriter
	window  *gocv.Window
	canvas  gocv.Mat
	counted map[int64]struct{}
	logger  zerolog.Logger
}

// NewAnnotator creates an annotator. The video writer is opened lazily on
// the first frame, once the frame size is known.
func NewAnnotator(images ImageSource, line counting.Line, opts Options, logger zerolog.Logger) *Annotator {
	if opts.FPS <= 0 {
		opts.FPS = 25
	}
	if opts.WindowName == "" {
		opts.WindowName = "vehicle-counter"
	}

	a := &Annotator{
		images:  images,
		line:    line,
		opts:    opts,
		canvas:  gocv.NewMat(),
		counted: make(map[int64]struct{}),
		logger:  logger,
	}
	if opts.Show {
		a.window = gocv.NewWindow(opts.WindowName)
	}
	return a
}

func (a *Annotator) openWriter(width, height int) error {
	if dir := filepath.Dir(a.opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	w, err := gocv.VideoWriterFile(a.opts.OutputPath, "mp4v", a.opts.FPS, width, height, true)
	if err != nil {
		return fmt.Errorf("failed to open annotated output %s: %w", a.opts.OutputPath, err)
	}
	a.writer = w
	a.logger.Info().Str("path", a.opts.OutputPath).Int("width", width).Int("height", height).Msg("Writing annotated video")
	return nil
}

// OnFrame draws the overlay and emits the annotated frame
func (a *Annotator) OnFrame(frame models.Frame, result pipeline.FrameResult, counts models.Counts) {
	img := a.images.Current()
	if img == nil || img.Empty() {
		return
	}
	img.CopyTo(&a.canvas)

	for _, ev := range result.Events {
		a.counted[ev.TrackID] = struct{}{}
	}

	DrawCountingLine(&a.canvas, a.line.Y, a.line.Margin)
	for _, asg := range result.Assignments {
		_, counted := a.counted[asg.TrackID]
		DrawTrack(&a.canvas, asg, counted)
	}
	DrawCounterPanel(&a.canvas, counts, frame.Index)

	if a.opts.OutputPath != "" {
		if a.writer == nil {
			if err := a.openWriter(a.canvas.Cols(), a.canvas.Rows()); err != nil {
				a.logger.Error().Err(err).Msg("Annotated output disabled")
				a.opts.OutputPath = ""
			}
		}
		if a.writer != nil {
			if err := a.writer.Write(a.canvas); err != nil {
				a.logger.Warn().Err(err).Int64("frame", frame.Index).Msg("Failed to write annotated frame")
			}
		}
	}

	if a.opts.Preview != nil {
		if err := a.opts.Preview.PublishFrame(a.canvas); err != nil {
			a.logger.Debug().Err(err).Int64("frame", frame.Index).Msg("Failed to publish preview frame")
		}
	}

	if a.window != nil {
		a.window.IMShow(a.canvas)
		a.window.WaitKey(1)
	}
}

// Close flushes the video file and closes the preview window
func (a *Annotator) Close() error {
	var errs []error
	if a.writer != nil {
		errs = append(errs, a.writer.Close())
	}
	if a.window != nil {
		errs = append(errs, a.window.Close())
	}
	errs = append(errs, a.canvas.Close())
	return errors.Join(errs...)
}
