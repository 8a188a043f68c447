package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUIMode(t *testing.T) {
	require.NoError(t, Init(Options{Level: "DEBUG", Format: "text", Buffer: true}))

	slog.Info("Initial log")

	var tuiPane bytes.Buffer
	require.NoError(t, SetOutput(&tuiPane))
	assert.Contains(t, tuiPane.String(), "Initial log", "buffered lines are flushed into the pane")

	slog.Debug("Live log")
	assert.Contains(t, tuiPane.String(), "Live log")

	BufferOutput()
	slog.Info("Buffered log")
	assert.NotContains(t, tuiPane.String(), "Buffered log")

	require.NoError(t, SetOutput(&tuiPane))
	assert.Contains(t, tuiPane.String(), "Buffered log")
	require.NoError(t, Close())
}

func TestFileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "eyedancer.log")
	require.NoError(t, Init(Options{Level: "INFO", Format: "json", File: logFile}))

	slog.Info("Curtain running", "direction", "raise")
	slog.Debug("not at info level")
	require.NoError(t, Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"Curtain running"`)
	assert.Contains(t, string(content), `"direction":"raise"`)
	assert.NotContains(t, string(content), "not at info level")
}

func TestStderrFallback(t *testing.T) {
	require.NoError(t, Init(Options{Level: "DEBUG", Buffer: true}))
	slog.Info("Shutdown log")

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w

	var wg sync.WaitGroup
	wg.Add(1)
	var captured string
	go func() {
		defer wg.Done()
		buf := make([]byte, 4096)
		n, _ := r.Read(buf)
		captured = string(buf[:n])
	}()

	require.NoError(t, Close())
	w.Close()
	wg.Wait()
	os.Stderr = oldStderr

	assert.Contains(t, captured, "Shutdown log")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestInit_BadFile(t *testing.T) {
	err := Init(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
