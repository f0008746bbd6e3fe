package models

import "time"

// JobRequest describes one counting run over a video or a detection replay
type JobRequest struct {
	VideoPath        string     `json:"video_path" yaml:"video_path" validate:"required_without=DetectionsPath"`
	DetectionsPath   string     `json:"detections_path,omitempty" yaml:"detections_path"`
	Model            string     `json:"model,omitempty" yaml:"model"`
	LineY            *float64   `json:"line_y,omitempty" yaml:"line_y" validate:"omitempty,gte=0,lte=1"`
	MarginPx         *float64   `json:"margin_px,omitempty" yaml:"margin_px" validate:"omitempty,gte=0"`
	InvertDirections bool       `json:"invert_directions,omitempty" yaml:"invert_directions"`
	Confidence       *float64   `json:"conf,omitempty" yaml:"conf" validate:"omitempty,gte=0,lte=1"`
	MaxFrames        int        `json:"max_frames,omitempty" yaml:"max_frames" validate:"gte=0"`
	Anchor           AnchorMode `json:"anchor,omitempty" yaml:"anchor" validate:"omitempty,oneof=center bottom_center"`
	SaveJSON         string     `json:"save_json,omitempty" yaml:"save_json"`
	AnnotatedOutput  string     `json:"annotated_output,omitempty" yaml:"annotated_output"`
	Show             bool       `json:"-" yaml:"show"`
}

// Report is the persisted result of a counting run
type Report struct {
	RunID            string     `json:"run_id"`
	Video            string     `json:"video"`
	Model            string     `json:"model"`
	LineY            float64    `json:"line_y"`
	LineYPx          float64    `json:"line_y_px"`
	MarginPx         float64    `json:"margin_px"`
	InvertDirections bool       `json:"invert_directions"`
	AnchorMode       AnchorMode `json:"anchor"`
	FramesProcessed  int64      `json:"frames_processed"`
	Counts           Counts     `json:"counts"`
	CountedTrackIDs  []int64    `json:"counted_track_ids"`
	GeneratedAt      time.Time  `json:"generated_at"`
	DurationMs       int64      `json:"duration_ms"`
}

// PathCheck is the result of checking a video path on the worker filesystem
type PathCheck struct {
	Exists       bool    `json:"exists"`
	IsFile       bool    `json:"is_file"`
	ResolvedPath *string `json:"resolved_path"`
	OriginalPath string  `json:"original_path"`
	Error        string  `json:"error,omitempty"`
}
