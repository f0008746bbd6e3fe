package pipeline

import (
	"context"

	"vehicle-counter-go/internal/models"
)

// SourceInfo describes the frames a source produces
type SourceInfo struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	Model  string  `json:"model"`
}

// FrameSource yields frames with their detections in playback order.
// Next returns io.EOF once the source is exhausted.
type FrameSource interface {
	Info() SourceInfo
	Next(ctx context.Context) (models.Frame, error)
	Close() error
}

// FrameObserver is notified after every processed frame
type FrameObserver interface {
	OnFrame(frame models.Frame, result FrameResult, counts models.Counts)
}

// ObserverFunc adapts a function to FrameObserver
type ObserverFunc func(frame models.Frame, result FrameResult, counts models.Counts)

func (f ObserverFunc) OnFrame(frame models.Frame, result FrameResult, counts models.Counts) {
	f(frame, result, counts)
}
