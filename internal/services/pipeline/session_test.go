package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/counting"
	"vehicle-counter-go/internal/services/tracking"
)

type fakePublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func box(cx, cy float64) models.BBox {
	return models.BBox{X1: cx - 2, Y1: cy - 2, X2: cx + 2, Y2: cy + 2}
}

func frame(idx int64, dets ...models.Detection) models.Frame {
	return models.Frame{Index: idx, Width: 100, Height: 100, Detections: dets}
}

func carAt(cx, cy float64) models.Detection {
	return models.NewDetection(box(cx, cy), "car", 0.9, models.AnchorCenter)
}

func newTestSession(observers ...FrameObserver) *Session {
	return NewSession(SessionConfig{
		Line:          counting.Line{Y: 10},
		Tracker:       tracking.Config{MaxAgeFrames: 3, MaxMatchDistancePx: 20},
		AnchorMode:    models.AnchorCenter,
		MinConfidence: 0.25,
	}, zerolog.Nop(), observers...)
}

func TestSessionEndToEnd(t *testing.T) {
	s := newTestSession()

	_, err := s.ProcessFrame(frame(1, carAt(5, 5)))
	require.NoError(t, err)
	res, err := s.ProcessFrame(frame(2, carAt(5, 15)))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, models.DirectionIn, res.Events[0].Direction)
	assert.Equal(t, int64(2), res.Events[0].Frame)

	res, err = s.ProcessFrame(frame(3, carAt(5, 5)))
	require.NoError(t, err)
	assert.Empty(t, res.Events)

	report := s.Report(ReportMeta{RunID: "run-1", Video: "clip.mp4", Model: "replay", LineY: 0.1})
	assert.Equal(t, 1, report.Counts.Total)
	assert.Equal(t, 1, report.Counts.ByCategory.Car)
	assert.Equal(t, []int64{1}, report.CountedTrackIDs)
	assert.Equal(t, int64(3), report.FramesProcessed)
	assert.Equal(t, 10.0, report.LineYPx)
}

func TestSessionRejectsOutOfOrderFrames(t *testing.T) {
	s := newTestSession()

	_, err := s.ProcessFrame(frame(5, carAt(5, 5)))
	require.NoError(t, err)

	_, err = s.ProcessFrame(frame(5, carAt(5, 15)))
	assert.ErrorIs(t, err, ErrFrameOutOfOrder)
	_, err = s.ProcessFrame(frame(4, carAt(5, 15)))
	assert.ErrorIs(t, err, ErrFrameOutOfOrder)

	// state untouched by the rejected frames
	assert.Zero(t, s.Counter().Counts().Total)
	assert.Equal(t, int64(1), s.Frames())

	_, err = s.ProcessFrame(frame(-1))
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestSessionDropsMalformedDetections(t *testing.T) {
	s := newTestSession()

	nan := models.Detection{Box: models.BBox{X1: math.NaN(), Y1: 0, X2: 1, Y2: 1}, Label: "car", Confidence: 0.9}
	inverted := models.Detection{Box: models.BBox{X1: 10, Y1: 10, X2: 0, Y2: 0}, Label: "car", Confidence: 0.9}
	noLabel := models.Detection{Box: box(1, 1), Confidence: 0.9}
	nanConf := models.Detection{Box: box(30, 30), Label: "car", Confidence: math.NaN()}

	res, err := s.ProcessFrame(frame(1, nan, inverted, noLabel, nanConf, carAt(5, 5)))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rejected)
	assert.Zero(t, res.Filtered)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, 1, s.Tracker().Len())
}

func TestSessionFiltersLowConfidenceBeforeTracking(t *testing.T) {
	s := newTestSession()

	weak := models.NewDetection(box(50, 50), "car", 0.1, models.AnchorCenter)
	res, err := s.ProcessFrame(frame(1, weak))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Filtered)
	assert.Empty(t, res.Assignments)
	assert.Zero(t, s.Tracker().Len())
}

func TestSessionRecomputesAnchorWithMode(t *testing.T) {
	s := NewSession(SessionConfig{
		Line:       counting.Line{Y: 10},
		Tracker:    tracking.DefaultConfig(),
		AnchorMode: models.AnchorBottomCenter,
	}, zerolog.Nop())

	// center is above the line but the bottom edge is below it
	d := models.NewDetection(models.BBox{X1: 0, Y1: 0, X2: 10, Y2: 12}, "car", 0.9, models.AnchorCenter)
	res, err := s.ProcessFrame(frame(1, d))
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 5, Y: 12}, res.Assignments[0].Detection.Anchor)
	assert.Equal(t, counting.SideBelow, s.Counter().Side(res.Assignments[0].TrackID))
}

func TestSessionNotifiesObserversAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	var seen []int64
	s := newTestSession(
		ObserverFunc(func(f models.Frame, _ FrameResult, _ models.Counts) { seen = append(seen, f.Index) }),
		NewPublishingObserver(pub, "vehicles.crossings", "run-1", "clip.mp4", zerolog.Nop()),
	)

	for i, y := range []float64{5, 15, 25} {
		_, err := s.ProcessFrame(frame(int64(i+1), carAt(5, y)))
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{1, 2, 3}, seen)
	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "vehicles.crossings", pub.subjects[0])
	msg, ok := pub.payloads[0].(CrossingMessage)
	require.True(t, ok)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, int64(1), msg.Event.TrackID)
	assert.Equal(t, 1, msg.Counts.Total)
}

func TestPublishFailureDoesNotStopSession(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	s := newTestSession(NewPublishingObserver(pub, "x", "r", "s", zerolog.Nop()))

	_, err := s.ProcessFrame(frame(1, carAt(5, 5)))
	require.NoError(t, err)
	_, err = s.ProcessFrame(frame(2, carAt(5, 15)))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Counter().Counts().Total)
}

const replay = `{"frame":1,"width":100,"height":20,"detections":[{"bbox":[3,3,7,7],"label":"car","confidence":0.9}]}

{"frame":2,"detections":[{"bbox":[3,13,7,17],"label":"car","confidence":0.9},{"bbox":[50,0,60,4],"label":"person","confidence":0.8}]}
{"frame":3,"detections":[{"bbox":[3,3,7,7],"label":"car","confidence":0.9},{"bbox":[50,16,60,20],"label":"person","confidence":0.8}]}
`

func TestRunWithJSONLSource(t *testing.T) {
	src, err := NewJSONLSource(strings.NewReader(replay), "replay.jsonl")
	require.NoError(t, err)
	defer src.Close()

	info := src.Info()
	assert.Equal(t, 100, info.Width)
	assert.Equal(t, 20, info.Height)

	zero := 0.0
	s := NewSession(SessionConfig{
		Line:    ResolveLine(0.5, &zero, info.Height, false),
		Tracker: tracking.DefaultConfig(),
	}, zerolog.Nop())

	summary, err := s.Run(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Frames)

	counts := s.Counter().Counts()
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.In.ByCategory.Car)
	assert.Equal(t, []int64{1}, s.Counter().CountedTrackIDs())
}

func TestRunHonoursMaxFrames(t *testing.T) {
	src, err := NewJSONLSource(strings.NewReader(replay), "replay.jsonl")
	require.NoError(t, err)

	s := NewSession(SessionConfig{Line: counting.Line{Y: 10}, Tracker: tracking.DefaultConfig()}, zerolog.Nop())
	summary, err := s.Run(context.Background(), src, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Frames)
	assert.Zero(t, s.Counter().Counts().Total)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	src, err := NewJSONLSource(strings.NewReader(replay), "replay.jsonl")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(SessionConfig{Line: counting.Line{Y: 10}, Tracker: tracking.DefaultConfig()}, zerolog.Nop())
	_, err = s.Run(ctx, src, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Frames())
}

func TestJSONLSourceRejectsBadRecords(t *testing.T) {
	_, err := NewJSONLSource(strings.NewReader("{not json}\n"), "bad")
	assert.Error(t, err)

	src, err := NewJSONLSource(strings.NewReader(`{"frame":1,"detections":[{"bbox":[1,2,3],"label":"car"}]}`), "short")
	require.NoError(t, err)
	_, err = src.Next(context.Background())
	assert.Error(t, err)
}

func TestRecordingObserverRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecordingObserver(&buf, zerolog.Nop())
	s := newTestSession(rec)

	_, err := s.ProcessFrame(frame(1, carAt(5, 5)))
	require.NoError(t, err)
	_, err = s.ProcessFrame(frame(2, carAt(5, 15)))
	require.NoError(t, err)

	src, err := NewJSONLSource(&buf, "recorded")
	require.NoError(t, err)
	replayed := newTestSession()
	_, err = replayed.Run(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Equal(t, s.Counter().Counts(), replayed.Counter().Counts())
}

func TestResolveLine(t *testing.T) {
	l := ResolveLine(0.5, nil, 720, true)
	assert.Equal(t, 360.0, l.Y)
	assert.InDelta(t, 7.2, l.Margin, 1e-9)
	assert.True(t, l.InvertDirections)

	small := ResolveLine(0.5, nil, 100, false)
	assert.Equal(t, 2.0, small.Margin)

	m := 5.0
	assert.Equal(t, 5.0, ResolveLine(0.25, &m, 400, false).Margin)
}

func TestProgressObserverPublishesEveryN(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestSession(NewProgressObserver(pub, "vehicles.progress", "run-1", "clip", 2, zerolog.Nop()))

	for i := int64(1); i <= 5; i++ {
		_, err := s.ProcessFrame(frame(i))
		require.NoError(t, err)
	}

	require.Len(t, pub.payloads, 2)
	last := pub.payloads[1].(ProgressMessage)
	assert.Equal(t, int64(4), last.Frame)
	assert.Equal(t, int64(4), last.Frames)
}
