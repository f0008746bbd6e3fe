// Package detection runs a YOLOv8 ONNX model through the OpenCV DNN module.
package detection

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"vehicle-counter-go/internal/models"
)

// Config for the YOLO detector
type Config struct {
	ModelPath     string
	InputSize     int
	Confidence    float64
	NMSThreshold  float64
	PreferredCUDA bool
}

// YOLODetector wraps a loaded network. Not safe for concurrent use.
type YOLODetector struct {
	net    gocv.Net
	cfg    Config
	logger zerolog.Logger
}

// NewYOLODetector loads the ONNX model at cfg.ModelPath
func NewYOLODetector(cfg Config, logger zerolog.Logger) (*YOLODetector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model %s: %w", cfg.ModelPath, err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", cfg.ModelPath)
	}

	if cfg.PreferredCUDA {
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err != nil {
			logger.Warn().Err(err).Msg("CUDA backend unavailable, using default")
		} else if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
			logger.Warn().Err(err).Msg("CUDA target unavailable, using default")
		}
	}

	logger.Info().
		Str("model", cfg.ModelPath).
		Int("input_size", cfg.InputSize).
		Float64("confidence", cfg.Confidence).
		Msg("YOLO detector loaded")

	return &YOLODetector{net: net, cfg: cfg, logger: logger}, nil
}

// Name returns the model path
func (d *YOLODetector) Name() string {
	return d.cfg.ModelPath
}

// Detect runs the model on a BGR frame and returns boxes in frame pixels
func (d *YOLODetector) Detect(img gocv.Mat) ([]models.Detection, error) {
	if img.Empty() {
		return nil, errors.New("empty frame")
	}

	height, width := img.Rows(), img.Cols()
	maxDim := max(height, width)

	// letterbox into the top-left corner of a square canvas
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), maxDim, maxDim, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, width, height))
	img.CopyTo(&roi)
	roi.Close()

	size := d.cfg.InputSize
	scale := float64(maxDim) / float64(size)

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.decode(&output, scale, width, height)
}

// decode reads a [1, 4+classes, N] YOLOv8 output
func (d *YOLODetector) decode(out *gocv.Mat, scale float64, width, height int) ([]models.Detection, error) {
	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	rows, candidates := dims[1], dims[2]
	classes := rows - 4

	var (
		boxes  []image.Rectangle
		scores []float32
		labels []int
	)

	for i := 0; i < candidates; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := out.GetFloatAt3(0, 4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) < d.cfg.Confidence {
			continue
		}

		cx := float64(out.GetFloatAt3(0, 0, i))
		cy := float64(out.GetFloatAt3(0, 1, i))
		w := float64(out.GetFloatAt3(0, 2, i))
		h := float64(out.GetFloatAt3(0, 3, i))

		x1 := clamp((cx-w/2)*scale, width)
		y1 := clamp((cy-h/2)*scale, height)
		x2 := clamp((cx+w/2)*scale, width)
		y2 := clamp((cy+h/2)*scale, height)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		scores = append(scores, bestScore)
		labels = append(labels, best)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.cfg.Confidence), float32(d.cfg.NMSThreshold))
	detections := make([]models.Detection, 0, len(keep))
	for _, idx := range keep {
		b := boxes[idx]
		box := models.BBox{X1: float64(b.Min.X), Y1: float64(b.Min.Y), X2: float64(b.Max.X), Y2: float64(b.Max.Y)}
		detections = append(detections, models.NewDetection(box, Label(labels[idx]), float64(scores[idx]), models.AnchorCenter))
	}
	return detections, nil
}

func clamp(v float64, limit int) int {
	switch {
	case v < 0:
		return 0
	case v > float64(limit):
		return limit
	}
	return int(v)
}

// Close releases the network
func (d *YOLODetector) Close() error {
	return d.net.Close()
}
