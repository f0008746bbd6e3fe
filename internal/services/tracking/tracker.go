// Package tracking assigns persistent identities to per-frame detections
// using greedy nearest-neighbour matching.
package tracking

import (
	"math"

	"vehicle-counter-go/internal/models"
)

// Config holds the tracker thresholds
type Config struct {
	// MaxAgeFrames is how many frames a track may go unseen before it is deleted
	MaxAgeFrames int `json:"max_age_frames" yaml:"max_age_frames" validate:"gte=0"`
	// MaxMatchDistancePx is the largest anchor distance accepted as a match
	MaxMatchDistancePx float64 `json:"max_match_distance_px" yaml:"max_match_distance_px" validate:"gte=0"`
}

// DefaultConfig returns the default tracker thresholds
func DefaultConfig() Config {
	return Config{
		MaxAgeFrames:       30,
		MaxMatchDistancePx: 60,
	}
}

// Tracker matches detections against the tracks seen in previous frames.
// It is not safe for concurrent use.
type Tracker struct {
	cfg    Config
	nextID int64
	// tracks is kept in ascending id order so equal distances resolve
	// to the oldest track
	tracks []*models.Track
}

// NewTracker creates a tracker with the given thresholds
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:    cfg,
		nextID: 1,
	}
}

// Config returns the tracker thresholds
func (t *Tracker) Config() Config {
	return t.cfg
}

// Update expires stale tracks, then assigns every detection to exactly one
// track identity. Detections are processed in input order: the first
// detection claims its nearest same-label track, later ones can only use
// what is left or start a new track.
func (t *Tracker) Update(detections []models.Detection, frameIndex int64) []models.Assignment {
	t.expire(frameIndex)

	assignments := make([]models.Assignment, 0, len(detections))
	used := make(map[int64]struct{}, len(detections))

	for _, det := range detections {
		best := t.nearest(det, used)
		if best != nil {
			best.Anchor = det.Anchor
			best.Label = det.Label
			best.LastSeenFrame = frameIndex
			used[best.ID] = struct{}{}
			assignments = append(assignments, models.Assignment{TrackID: best.ID, Detection: det, Matched: true})
			continue
		}

		trk := &models.Track{
			ID:            t.nextID,
			Anchor:        det.Anchor,
			Label:         det.Label,
			LastSeenFrame: frameIndex,
		}
		t.nextID++
		t.tracks = append(t.tracks, trk)
		used[trk.ID] = struct{}{}
		assignments = append(assignments, models.Assignment{TrackID: trk.ID, Detection: det})
	}

	return assignments
}

// nearest returns the closest unused track with the detection's label that
// lies within the match distance, or nil
func (t *Tracker) nearest(det models.Detection, used map[int64]struct{}) *models.Track {
	var best *models.Track
	bestDist := math.Inf(1)

	for _, trk := range t.tracks {
		if _, taken := used[trk.ID]; taken {
			continue
		}
		if trk.Label != det.Label {
			continue
		}
		if d := trk.Anchor.Distance(det.Anchor); d < bestDist {
			bestDist = d
			best = trk
		}
	}

	if best == nil || bestDist > t.cfg.MaxMatchDistancePx {
		return nil
	}
	return best
}

// expire drops tracks whose age exceeds MaxAgeFrames
func (t *Tracker) expire(frameIndex int64) {
	kept := t.tracks[:0]
	for _, trk := range t.tracks {
		if frameIndex-trk.LastSeenFrame > int64(t.cfg.MaxAgeFrames) {
			continue
		}
		kept = append(kept, trk)
	}
	// clear the tail so expired tracks can be collected
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
}

// Tracks returns a snapshot of the live tracks ordered by id
func (t *Tracker) Tracks() []models.Track {
	out := make([]models.Track, len(t.tracks))
	for i, trk := range t.tracks {
		out[i] = *trk
	}
	return out
}

// Len returns the number of live tracks
func (t *Tracker) Len() int {
	return len(t.tracks)
}
