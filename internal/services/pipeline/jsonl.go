package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vehicle-counter-go/internal/models"
)

// maxRecordSize bounds a single JSONL line
const maxRecordSize = 16 * 1024 * 1024

type jsonlDetection struct {
	BBox       []float64 `json:"bbox"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
}

type jsonlRecord struct {
	Frame      int64            `json:"frame"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Detections []jsonlDetection `json:"detections"`
}

// JSONLSource replays recorded detections, one JSON frame record per line
type JSONLSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	info    SourceInfo
	pending *jsonlRecord
	line    int
}

// OpenJSONLSource opens a detection replay file
func OpenJSONLSource(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detections file %s: %w", path, err)
	}
	src, err := NewJSONLSource(f, filepath.Base(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// NewJSONLSource reads frame records from r. The first record is read
// eagerly to learn the frame dimensions.
func NewJSONLSource(r io.Reader, name string) (*JSONLSource, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	src := &JSONLSource{
		scanner: scanner,
		info:    SourceInfo{Name: name, Model: "replay"},
	}

	first, err := src.read()
	if err != nil && err != io.EOF {
		return nil, err
	}
	if first != nil {
		src.pending = first
		src.info.Width = first.Width
		src.info.Height = first.Height
	}
	return src, nil
}

func (s *JSONLSource) read() (*jsonlRecord, error) {
	for s.scanner.Scan() {
		s.line++
		raw := bytes.TrimSpace(s.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("invalid detection record on line %d: %w", s.line, err)
		}
		return &rec, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	return nil, io.EOF
}

// Info returns the replay dimensions taken from the first record
func (s *JSONLSource) Info() SourceInfo {
	return s.info
}

// Next returns the next recorded frame
func (s *JSONLSource) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}

	rec := s.pending
	s.pending = nil
	if rec == nil {
		var err error
		if rec, err = s.read(); err != nil {
			return models.Frame{}, err
		}
	}

	frame := models.Frame{
		Index:      rec.Frame,
		Width:      rec.Width,
		Height:     rec.Height,
		Detections: make([]models.Detection, 0, len(rec.Detections)),
	}
	if frame.Width == 0 {
		frame.Width = s.info.Width
	}
	if frame.Height == 0 {
		frame.Height = s.info.Height
	}

	for i, d := range rec.Detections {
		box, ok := models.NewBBoxFromSlice(d.BBox)
		if !ok {
			return models.Frame{}, fmt.Errorf("frame %d detection %d: bbox needs 4 values, got %d", rec.Frame, i, len(d.BBox))
		}
		frame.Detections = append(frame.Detections, models.NewDetection(box, d.Label, d.Confidence, models.AnchorCenter))
	}

	return frame, nil
}

// Close releases the underlying file, if any
func (s *JSONLSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// WriteJSONLFrame appends one frame record to w in the replay format
func WriteJSONLFrame(w io.Writer, frame models.Frame) error {
	rec := jsonlRecord{
		Frame:      frame.Index,
		Width:      frame.Width,
		Height:     frame.Height,
		Detections: make([]jsonlDetection, len(frame.Detections)),
	}
	for i, d := range frame.Detections {
		rec.Detections[i] = jsonlDetection{
			BBox:       []float64{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
			Label:      d.Label,
			Confidence: d.Confidence,
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
