// Package counting turns per-track positions into a one-shot, categorised,
// directional count of objects crossing a horizontal line.
package counting

import (
	"sort"

	"vehicle-counter-go/internal/models"
)

// Side is a track's position relative to the counting line
type Side int

const (
	SideUnknown Side = iota
	SideAbove
	SideBelow
)

func (s Side) String() string {
	switch s {
	case SideAbove:
		return "above"
	case SideBelow:
		return "below"
	}
	return "unknown"
}

// Line is a horizontal counting line with a dead-zone margin on both sides
type Line struct {
	// Y is the line position in processing-frame pixels
	Y float64 `json:"y"`
	// Margin is the half-height of the dead zone around Y
	Margin float64 `json:"margin"`
	// InvertDirections swaps the in and out labels
	InvertDirections bool `json:"invert_directions"`
}

// Classify returns the side of the line for a vertical position.
// Positions inside [Y-Margin, Y+Margin] are SideUnknown.
func (l Line) Classify(y float64) Side {
	switch {
	case y < l.Y-l.Margin:
		return SideAbove
	case y > l.Y+l.Margin:
		return SideBelow
	}
	return SideUnknown
}

// direction maps a transition to in/out. Above to below is "in" unless
// directions are inverted.
func (l Line) direction(from, to Side) models.Direction {
	in := from == SideAbove && to == SideBelow
	if l.InvertDirections {
		in = !in
	}
	if in {
		return models.DirectionIn
	}
	return models.DirectionOut
}

// LineCounter counts each track at most once, the first time it moves from
// one side of the line to the other. Not safe for concurrent use.
type LineCounter struct {
	line    Line
	sides   map[int64]Side
	votes   map[int64]*votes
	counted map[int64]struct{}
	counts  models.Counts
	events  []models.CountEvent
}

// NewLineCounter creates a counter for the given line
func NewLineCounter(line Line) *LineCounter {
	return &LineCounter{
		line:    line,
		sides:   make(map[int64]Side),
		votes:   make(map[int64]*votes),
		counted: make(map[int64]struct{}),
	}
}

// Update processes one frame's observations
func (c *LineCounter) Update(observations []models.TrackObservation) {
	c.UpdateFrame(0, observations)
}

// UpdateFrame processes one frame's observations and tags any resulting
// count events with the frame index
func (c *LineCounter) UpdateFrame(frame int64, observations []models.TrackObservation) {
	for _, obs := range observations {
		c.vote(obs)

		side := c.line.Classify(obs.Anchor.Y)
		if side == SideUnknown {
			continue
		}

		prev := c.sides[obs.TrackID]
		c.sides[obs.TrackID] = side
		if prev == SideUnknown || prev == side {
			continue
		}

		c.count(obs.TrackID, prev, side, frame)
	}
}

func (c *LineCounter) vote(obs models.TrackObservation) {
	category, ok := models.CategoryForLabel(obs.Label)
	if !ok {
		return
	}
	v := c.votes[obs.TrackID]
	if v == nil {
		v = &votes{}
		c.votes[obs.TrackID] = v
	}
	v.add(category)
}

func (c *LineCounter) count(trackID int64, from, to Side, frame int64) {
	if _, done := c.counted[trackID]; done {
		return
	}
	category, ok := c.votes[trackID].best()
	if !ok {
		// never observed with a mapped label
		return
	}

	c.counted[trackID] = struct{}{}
	direction := c.line.direction(from, to)
	c.counts.Record(category, direction)
	c.events = append(c.events, models.CountEvent{
		TrackID:   trackID,
		Category:  category,
		Direction: direction,
		Frame:     frame,
	})
}

// Line returns the counting line
func (c *LineCounter) Line() Line {
	return c.line
}

// Counts returns a copy of the aggregate counts
func (c *LineCounter) Counts() models.Counts {
	return c.counts
}

// CountedTrackIDs returns the counted track identities in ascending order
func (c *LineCounter) CountedTrackIDs() []int64 {
	ids := make([]int64, 0, len(c.counted))
	for id := range c.counted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsCounted reports whether a track has already been counted
func (c *LineCounter) IsCounted(trackID int64) bool {
	_, ok := c.counted[trackID]
	return ok
}

// Side returns the last recorded side of a track
func (c *LineCounter) Side(trackID int64) Side {
	return c.sides[trackID]
}

// Votes returns the number of votes a track has for a category
func (c *LineCounter) Votes(trackID int64, category models.Category) int {
	v := c.votes[trackID]
	if v == nil {
		return 0
	}
	return v.get(category)
}

// Events returns a copy of every count event so far, in counting order
func (c *LineCounter) Events() []models.CountEvent {
	return c.EventsSince(0)
}

// EventsSince returns the events recorded after the first n
func (c *LineCounter) EventsSince(n int) []models.CountEvent {
	if n >= len(c.events) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]models.CountEvent, len(c.events)-n)
	copy(out, c.events[n:])
	return out
}
