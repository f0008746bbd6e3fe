package config

import (
	"flag"

	"vehicle-counter-go/internal/models"
)

// JobFlags are the command-line counterparts of a job file
type JobFlags struct {
	fs *flag.FlagSet

	VideoPath        *string
	DetectionsPath   *string
	Model            *string
	LineY            *float64
	MarginPx         *float64
	Confidence       *float64
	InvertDirections *bool
	Anchor           *string
	SaveJSON         *string
	MaxFrames        *int
	Show             *bool
	AnnotatedOutput  *string
}

// RegisterJobFlags defines the job flags on fs
func RegisterJobFlags(fs *flag.FlagSet) *JobFlags {
	return &JobFlags{
		fs:               fs,
		VideoPath:        fs.String("video", "", "Path to input video file"),
		DetectionsPath:   fs.String("detections", "", "Replay recorded detections (JSONL) instead of decoding a video"),
		Model:            fs.String("model", "", "ONNX detection model (default from MODEL_PATH)"),
		LineY:            fs.Float64("line-y", 0.5, "Horizontal line position as fraction of frame height (0..1)"),
		MarginPx:         fs.Float64("margin-px", -1, "Dead zone around the line in pixels (negative = 1% of frame height, at least 2)"),
		Confidence:       fs.Float64("conf", 0.25, "Detection confidence threshold"),
		InvertDirections: fs.Bool("invert-directions", false, "Count top-to-bottom crossings as out"),
		Anchor:           fs.String("anchor", "center", "Track anchor: center or bottom_center"),
		SaveJSON:         fs.String("save-json", "", "Where to write output JSON (default from OUTPUT_JSON_PATH)"),
		MaxFrames:        fs.Int("max-frames", 0, "Optional limit for faster testing (0 = no limit)"),
		Show:             fs.Bool("show", false, "Show a preview window with the virtual line and live counts"),
		AnnotatedOutput:  fs.String("annotated-output", "", "Write an annotated copy of the video"),
	}
}

// Apply merges the parsed flags into req. Without a job file every flag
// applies; with one, only flags set on the command line replace its values.
func (f *JobFlags) Apply(req models.JobRequest, fromFile bool) models.JobRequest {
	set := map[string]bool{}
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	use := func(name string) bool { return !fromFile || set[name] }

	if use("video") && *f.VideoPath != "" {
		req.VideoPath = *f.VideoPath
	}
	if use("detections") && *f.DetectionsPath != "" {
		req.DetectionsPath = *f.DetectionsPath
	}
	if use("model") && *f.Model != "" {
		req.Model = *f.Model
	}
	if use("line-y") {
		v := *f.LineY
		req.LineY = &v
	}
	if use("margin-px") && *f.MarginPx >= 0 {
		v := *f.MarginPx
		req.MarginPx = &v
	}
	if use("conf") {
		v := *f.Confidence
		req.Confidence = &v
	}
	if use("invert-directions") {
		req.InvertDirections = *f.InvertDirections
	}
	if use("anchor") {
		req.Anchor = models.AnchorMode(*f.Anchor)
	}
	if use("save-json") && *f.SaveJSON != "" {
		req.SaveJSON = *f.SaveJSON
	}
	if use("max-frames") && *f.MaxFrames > 0 {
		req.MaxFrames = *f.MaxFrames
	}
	if use("show") {
		req.Show = *f.Show
	}
	if use("annotated-output") && *f.AnnotatedOutput != "" {
		req.AnnotatedOutput = *f.AnnotatedOutput
	}
	return req
}
