package logging

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-counter-go/internal/config"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestGinContextFields(t *testing.T) {
	buf := captureGlobal(t)
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(RequestIDKey, "req-1")
	c.Set(StartTimeKey, time.Now())
	SetRunID(c, "run-9")

	Info(c).Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "run-9", entry["run_id"])
	assert.Contains(t, entry, "duration")
	assert.Equal(t, "hello", entry["message"])
}

func TestNilContextIsAllowed(t *testing.T) {
	buf := captureGlobal(t)
	Warn(nil).Msg("plain")
	assert.Contains(t, buf.String(), `"plain"`)
}

func TestServiceLoggerFields(t *testing.T) {
	buf := captureGlobal(t)

	logger := WithRun(NewServiceLogger(&config.Config{WorkerID: "w-1"}, "jobs"), "run-1")
	logger.Info().Msg("started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "w-1", entry["worker_id"])
	assert.Equal(t, "jobs", entry["service"])
	assert.Equal(t, "run-1", entry["run_id"])
}
