package models

import (
	"math"
	"time"
)

// AnchorMode selects which point of a bounding box represents the object
type AnchorMode string

const (
	AnchorCenter       AnchorMode = "center"
	AnchorBottomCenter AnchorMode = "bottom_center"
)

// IsValid reports whether the anchor mode is one of the supported modes
func (m AnchorMode) IsValid() bool {
	return m == AnchorCenter || m == AnchorBottomCenter
}

// Point is a pixel position in processing-frame coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// BBox is an axis-aligned box with x1<=x2 and y1<=y2
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBBoxFromSlice builds a box from an [x1, y1, x2, y2] slice
func NewBBoxFromSlice(v []float64) (BBox, bool) {
	if len(v) != 4 {
		return BBox{}, false
	}
	return BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, true
}

// Anchor returns the anchor point of the box for the given mode.
// Unknown modes fall back to the box center.
func (b BBox) Anchor(mode AnchorMode) Point {
	x := (b.X1 + b.X2) / 2
	if mode == AnchorBottomCenter {
		return Point{X: x, Y: b.Y2}
	}
	return Point{X: x, Y: (b.Y1 + b.Y2) / 2}
}

// IsWellFormed reports whether all coordinates are finite and ordered
func (b BBox) IsWellFormed() bool {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 <= b.X2 && b.Y1 <= b.Y2
}

// Detection represents one object reported by the detector for a single frame
type Detection struct {
	Box        BBox    `json:"bbox"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Anchor     Point   `json:"anchor"`
}

// NewDetection creates a detection and derives its anchor from the box
func NewDetection(box BBox, label string, confidence float64, mode AnchorMode) Detection {
	return Detection{
		Box:        box,
		Label:      label,
		Confidence: confidence,
		Anchor:     box.Anchor(mode),
	}
}

// Track is the tracker's persistent identity for one physical object
type Track struct {
	ID            int64  `json:"id"`
	Anchor        Point  `json:"anchor"`
	Label         string `json:"label"`
	LastSeenFrame int64  `json:"last_seen_frame"`
}

// Assignment pairs an input detection with the track identity it was given
type Assignment struct {
	TrackID   int64     `json:"track_id"`
	Detection Detection `json:"detection"`
	// Matched is false when the detection created a new track this frame
	Matched bool `json:"matched"`
}

// TrackObservation is the counter's input for one track in one frame
type TrackObservation struct {
	TrackID   int64  `json:"track_id"`
	Anchor    Point  `json:"anchor"`
	Label     string `json:"label"`
	Confirmed bool   `json:"confirmed"`
}

// Frame holds the detections produced for one video frame
type Frame struct {
	Index      int64       `json:"frame"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
}
