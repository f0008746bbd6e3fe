package pipeline

import (
	"io"

	"github.com/rs/zerolog"

	"vehicle-counter-go/internal/models"
)

// CrossingMessage is published for every counted vehicle
type CrossingMessage struct {
	RunID  string            `json:"run_id"`
	Source string            `json:"source"`
	Event  models.CountEvent `json:"event"`
	Counts models.Counts     `json:"counts"`
}

// PublishingObserver publishes each count event to a subject
type PublishingObserver struct {
	publisher models.MessagePublisher
	subject   string
	runID     string
	source    string
	logger    zerolog.Logger
}

// NewPublishingObserver creates an observer that publishes count events
func NewPublishingObserver(publisher models.MessagePublisher, subject, runID, source string, logger zerolog.Logger) *PublishingObserver {
	return &PublishingObserver{
		publisher: publisher,
		subject:   subject,
		runID:     runID,
		source:    source,
		logger:    logger,
	}
}

// OnFrame publishes the frame's count events. Publish failures are logged
// and never stop the run.
func (p *PublishingObserver) OnFrame(_ models.Frame, result FrameResult, counts models.Counts) {
	for _, ev := range result.Events {
		msg := CrossingMessage{RunID: p.runID, Source: p.source, Event: ev, Counts: counts}
		if err := p.publisher.Publish(p.subject, msg); err != nil {
			p.logger.Warn().Err(err).Str("subject", p.subject).Int64("track_id", ev.TrackID).Msg("Failed to publish crossing")
		}
	}
}

// RecordingObserver writes every processed frame in the JSONL replay format
type RecordingObserver struct {
	w      io.Writer
	logger zerolog.Logger
	failed bool
}

// NewRecordingObserver creates an observer writing replay records to w
func NewRecordingObserver(w io.Writer, logger zerolog.Logger) *RecordingObserver {
	return &RecordingObserver{w: w, logger: logger}
}

// OnFrame appends the frame to the recording. After the first write error
// recording stops.
func (r *RecordingObserver) OnFrame(frame models.Frame, _ FrameResult, _ models.Counts) {
	if r.failed {
		return
	}
	if err := WriteJSONLFrame(r.w, frame); err != nil {
		r.failed = true
		r.logger.Error().Err(err).Int64("frame", frame.Index).Msg("Failed to record detections, recording stopped")
	}
}

// ProgressMessage reports how far a run has got
type ProgressMessage struct {
	RunID  string        `json:"run_id"`
	Source string        `json:"source"`
	Frame  int64         `json:"frame"`
	Frames int64         `json:"frames_processed"`
	Counts models.Counts `json:"counts"`
}

// ProgressObserver publishes a progress message every n frames
type ProgressObserver struct {
	publisher models.MessagePublisher
	subject   string
	runID     string
	source    string
	every     int64
	frames    int64
	logger    zerolog.Logger
}

// NewProgressObserver creates a progress observer. every <= 0 means every frame.
func NewProgressObserver(publisher models.MessagePublisher, subject, runID, source string, every int, logger zerolog.Logger) *ProgressObserver {
	if every <= 0 {
		every = 1
	}
	return &ProgressObserver{
		publisher: publisher,
		subject:   subject,
		runID:     runID,
		source:    source,
		every:     int64(every),
		logger:    logger,
	}
}

func (p *ProgressObserver) OnFrame(frame models.Frame, _ FrameResult, counts models.Counts) {
	p.frames++
	if p.frames%p.every != 0 {
		return
	}
	msg := ProgressMessage{RunID: p.runID, Source: p.source, Frame: frame.Index, Frames: p.frames, Counts: counts}
	if err := p.publisher.Publish(p.subject, msg); err != nil {
		p.logger.Debug().Err(err).Str("subject", p.subject).Msg("Failed to publish progress")
	}
}
