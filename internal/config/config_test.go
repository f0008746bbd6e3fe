package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.5, cfg.LineY)
	assert.Equal(t, 0.25, cfg.DetectionConfidence)
	assert.Equal(t, 30, cfg.TrackerMaxAgeFrames)
	assert.Equal(t, 60.0, cfg.TrackerMaxMatchDistancePx)
	assert.Equal(t, "backend/output/counts.json", cfg.OutputJSONPath)
	assert.Equal(t, "vehicles.crossings", cfg.CrossingsSubject)
	assert.Equal(t, time.Hour, cfg.ProcessingTimeout)
	assert.Nil(t, cfg.MarginPx())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LINE_Y", "0.6")
	t.Setenv("LINE_MARGIN_PX", "4")
	t.Setenv("INVERT_DIRECTIONS", "true")
	t.Setenv("TRACKER_MAX_AGE_FRAMES", "10")
	t.Setenv("PROCESSING_TIMEOUT", "5m")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.6, cfg.LineY)
	require.NotNil(t, cfg.MarginPx())
	assert.Equal(t, 4.0, *cfg.MarginPx())
	assert.True(t, cfg.InvertDirections)
	assert.Equal(t, 10, cfg.TrackerMaxAgeFrames)
	assert.Equal(t, 5*time.Minute, cfg.ProcessingTimeout)
	// unparsable values fall back to the default
	assert.Equal(t, 8000, cfg.Port)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ANCHOR_MODE=bottom_center\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ANCHOR_MODE") })

	cfg := Load()
	assert.Equal(t, "bottom_center", cfg.AnchorMode)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()
	cfg.LineY = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.AnchorMode = "top"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.ProcessingTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadJobFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	content := `video_path: /data/traffic.mp4
line_y: 0.4
margin_px: 3
invert_directions: true
conf: 0.5
max_frames: 100
anchor: bottom_center
save_json: out/counts.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	req, err := LoadJobFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/traffic.mp4", req.VideoPath)
	require.NotNil(t, req.LineY)
	assert.Equal(t, 0.4, *req.LineY)
	require.NotNil(t, req.MarginPx)
	assert.Equal(t, 3.0, *req.MarginPx)
	assert.True(t, req.InvertDirections)
	assert.Equal(t, 100, req.MaxFrames)
	assert.Equal(t, models.AnchorBottomCenter, req.Anchor)
	assert.Equal(t, "out/counts.json", req.SaveJSON)
}

func TestLoadJobFileValidation(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.yaml")
	require.NoError(t, os.WriteFile(missing, []byte("line_y: 0.5\n"), 0o644))
	_, err := LoadJobFile(missing)
	assert.Error(t, err)

	badLine := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badLine, []byte("video_path: a.mp4\nline_y: 2\n"), 0o644))
	_, err = LoadJobFile(badLine)
	assert.Error(t, err)

	_, err = LoadJobFile(filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
