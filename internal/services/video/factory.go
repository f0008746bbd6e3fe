package video

import (
	"context"

	"github.com/rs/zerolog"

	"vehicle-counter-go/internal/config"
	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/detection"
	"vehicle-counter-go/internal/services/frameprocessing"
	"vehicle-counter-go/internal/services/pipeline"
)

// Factory opens video files with a YOLO detector attached. It expects a
// request with defaults already applied.
type Factory struct {
	cfg     *config.Config
	preview frameprocessing.FrameSink
	logger  zerolog.Logger
}

func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// WithPreview annotates every job and sends the frames to sink
func (f *Factory) WithPreview(sink frameprocessing.FrameSink) *Factory {
	f.preview = sink
	return f
}

// Open loads the model, opens the video and, when requested, an annotator
func (f *Factory) Open(_ context.Context, req models.JobRequest) (pipeline.FrameSource, []pipeline.FrameObserver, error) {
	conf := f.cfg.DetectionConfidence
	if req.Confidence != nil {
		conf = *req.Confidence
	}
	model := req.Model
	if model == "" {
		model = f.cfg.ModelPath
	}

	detector, err := detection.NewYOLODetector(detection.Config{
		ModelPath:     model,
		InputSize:     f.cfg.DetectorInputSize,
		Confidence:    conf,
		NMSThreshold:  f.cfg.NMSThreshold,
		PreferredCUDA: f.cfg.DetectorCUDA,
	}, f.logger)
	if err != nil {
		return nil, nil, err
	}

	src, err := Open(req.VideoPath, detector, f.logger)
	if err != nil {
		detector.Close()
		return nil, nil, err
	}

	if req.AnnotatedOutput == "" && !req.Show && f.preview == nil {
		return src, nil, nil
	}

	lineY := f.cfg.LineY
	if req.LineY != nil {
		lineY = *req.LineY
	}
	margin := req.MarginPx
	if margin == nil {
		margin = f.cfg.MarginPx()
	}
	info := src.Info()
	line := pipeline.ResolveLine(lineY, margin, info.Height, req.InvertDirections)

	annotator := frameprocessing.NewAnnotator(src, line, frameprocessing.Options{
		OutputPath: req.AnnotatedOutput,
		FPS:        info.FPS,
		Show:       req.Show,
		Preview:    f.preview,
	}, f.logger)

	return src, []pipeline.FrameObserver{annotator}, nil
}
