package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/models"
	"vehicle-counter-go/internal/services/jobs"
	"vehicle-counter-go/internal/services/live"
	"vehicle-counter-go/internal/services/store"
)

type fakeJobs struct {
	busy   bool
	report models.Report
	err    error
	got    models.JobRequest
}

func (f *fakeJobs) Busy() bool { return f.busy }

func (f *fakeJobs) CheckVideoPath(raw string) models.PathCheck {
	resolved := "/data/" + raw
	return models.PathCheck{Exists: true, IsFile: true, ResolvedPath: &resolved, OriginalPath: raw}
}

func (f *fakeJobs) Process(_ context.Context, req models.JobRequest) (models.Report, error) {
	f.got = req
	return f.report, f.err
}

type fakeRuns struct {
	runs map[string]models.Report
	err  error
}

func (f *fakeRuns) GetRun(id string) (models.Report, error) {
	if f.err != nil {
		return models.Report{}, f.err
	}
	r, ok := f.runs[id]
	if !ok {
		return models.Report{}, fmt.Errorf("run %s: %w", id, store.ErrRunNotFound)
	}
	return r, nil
}

func (f *fakeRuns) ListRuns(limit int) ([]models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Report, 0, len(f.runs))
	for _, r := range f.runs {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func serve(t *testing.T, method, path, body string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler("counter-7", "1.2.3", &fakeJobs{busy: true})

	w := serve(t, http.MethodGet, "/health", "", func(r *gin.Engine) { r.GET("/health", h.HealthCheck) })
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.True(t, resp.Busy)
	assert.Equal(t, "counter-7", resp.WorkerID)
}

func TestCheckVideoPath(t *testing.T) {
	h := NewVideoHandler(&fakeJobs{})
	register := func(r *gin.Engine) { r.POST("/check", h.CheckVideoPath) }

	w := serve(t, http.MethodPost, "/check", `{"video_path":"a.mp4"}`, register)
	require.Equal(t, http.StatusOK, w.Code)
	var check models.PathCheck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.True(t, check.IsFile)
	require.NotNil(t, check.ResolvedPath)
	assert.Equal(t, "/data/a.mp4", *check.ResolvedPath)

	w = serve(t, http.MethodPost, "/check", `{}`, register)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessVideoStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("%w: video_path required", jobs.ErrInvalidRequest), http.StatusBadRequest},
		{"not a file", fmt.Errorf("%w: /tmp", jobs.ErrNotAFile), http.StatusBadRequest},
		{"missing", fmt.Errorf("%w: x.mp4", jobs.ErrVideoNotFound), http.StatusNotFound},
		{"busy", jobs.ErrBusy, http.StatusConflict},
		{"timeout", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("decoder crashed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewVideoHandler(&fakeJobs{err: tc.err})
			w := serve(t, http.MethodPost, "/process", `{"video_path":"x.mp4"}`, func(r *gin.Engine) {
				r.POST("/process", h.ProcessVideo)
			})
			assert.Equal(t, tc.want, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.err.Error(), resp.Error)
		})
	}
}

func TestProcessVideoReturnsReport(t *testing.T) {
	fj := &fakeJobs{report: models.Report{RunID: "run-1", FramesProcessed: 12, Counts: models.Counts{Total: 3}}}
	h := NewVideoHandler(fj)

	w := serve(t, http.MethodPost, "/process", `{"video_path":"x.mp4","line_y":0.4,"conf":0.3}`, func(r *gin.Engine) {
		r.POST("/process", h.ProcessVideo)
	})
	require.Equal(t, http.StatusOK, w.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 3, report.Counts.Total)

	require.NotNil(t, fj.got.LineY)
	assert.InDelta(t, 0.4, *fj.got.LineY, 1e-9)
	require.NotNil(t, fj.got.Confidence)
	assert.InDelta(t, 0.3, *fj.got.Confidence, 1e-9)
}

func TestGetAnalytics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counts.json")
	h := NewAnalyticsHandler(path, nil)
	register := func(r *gin.Engine) { r.GET("/analytics", h.GetAnalytics) }

	w := serve(t, http.MethodGet, "/analytics", "", register)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	w = serve(t, http.MethodGet, "/analytics", "", register)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.NoError(t, os.WriteFile(path, []byte(`{"run_id":"r1","counts":{"total":2}}`), 0o644))
	w = serve(t, http.MethodGet, "/analytics", "", register)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"run_id":"r1","counts":{"total":2}}`, w.Body.String())
}

func TestRuns(t *testing.T) {
	runs := &fakeRuns{runs: map[string]models.Report{
		"a": {RunID: "a"},
		"b": {RunID: "b"},
	}}
	h := NewAnalyticsHandler("", runs)
	register := func(r *gin.Engine) {
		r.GET("/runs", h.ListRuns)
		r.GET("/runs/:id", h.GetRun)
	}

	w := serve(t, http.MethodGet, "/runs", "", register)
	require.Equal(t, http.StatusOK, w.Code)
	var list RunsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	w = serve(t, http.MethodGet, "/runs?limit=1", "", register)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = serve(t, http.MethodGet, "/runs?limit=zero", "", register)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, http.MethodGet, "/runs/a", "", register)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"a"`)

	w = serve(t, http.MethodGet, "/runs/missing", "", register)
	assert.Equal(t, http.StatusNotFound, w.Code)

	runs.err = errors.New("disk I/O error")
	w = serve(t, http.MethodGet, "/runs", "", register)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunsWithoutStore(t *testing.T) {
	h := NewAnalyticsHandler("", nil)
	w := serve(t, http.MethodGet, "/runs", "", func(r *gin.Engine) { r.GET("/runs", h.ListRuns) })
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := live.NewHub(map[string]string{"vehicles.crossings": live.TypeCount}, zerolog.Nop())
	h := NewLiveHandler(hub)

	r := gin.New()
	r.GET("/ws/counts", h.StreamCounts)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/counts"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	event := models.CountEvent{TrackID: 4, Category: models.CategoryCar, Direction: models.DirectionIn, Frame: 9}
	require.NoError(t, hub.Publish("vehicles.crossings", event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string            `json:"type"`
		Data models.CountEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, live.TypeCount, msg.Type)
	assert.Equal(t, int64(4), msg.Data.TrackID)
	assert.Equal(t, models.DirectionIn, msg.Data.Direction)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSystemStats(t *testing.T) {
	h := NewSystemHandler("counter-1", time.Now().Add(-time.Minute), &fakeJobs{busy: true}, func() int { return 3 }, nil)

	w := serve(t, http.MethodGet, "/stats", "", func(r *gin.Engine) { r.GET("/stats", h.GetStats) })
	require.Equal(t, http.StatusOK, w.Code)

	var stats SystemStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.True(t, stats.Busy)
	assert.Equal(t, 3, stats.LiveClients)
	assert.False(t, stats.NatsConnected)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, int64(59))
}

type fakeStream struct{}

func (fakeStream) StreamMJPEG(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)
}

func TestStreamPreview(t *testing.T) {
	disabled := NewPreviewHandler(nil)
	w := serve(t, http.MethodGet, "/preview", "", func(r *gin.Engine) { r.GET("/preview", disabled.StreamPreview) })
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	enabled := NewPreviewHandler(fakeStream{})
	w = serve(t, http.MethodGet, "/preview", "", func(r *gin.Engine) { r.GET("/preview", enabled.StreamPreview) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "multipart/x-mixed-replace")
}
