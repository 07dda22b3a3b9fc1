package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	originalFormat := format
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		format = originalFormat
		mu.Unlock()
		reconfigure()
	}
	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		levelVar.Set(mustLevel(t, "DEBUG"))

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		levelVar.Set(mustLevel(t, "WARN"))

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})
}

func TestTextFormat(t *testing.T) {
	t.Run("IncludesLevelAndFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		levelVar.Set(mustLevel(t, "INFO"))
		Info("client connected", "client", "alice", "room_id", 42)

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "client connected")
		assert.Contains(t, out, "client=alice")
		assert.Contains(t, out, "room_id=42")
	})
}

func TestJSONFormat(t *testing.T) {
	t.Run("ProducesValidJSON", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		mu.Lock()
		format = "json"
		mu.Unlock()
		reconfigure()
		levelVar.Set(mustLevel(t, "INFO"))

		Info("test message", "key1", "value1", "key2", 42)

		var entry map[string]any
		err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry)
		require.NoError(t, err, "output should be valid JSON: %s", buf.String())

		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "test message", entry["msg"])
		assert.Equal(t, "value1", entry["key1"])
		assert.Equal(t, float64(42), entry["key2"])
		assert.Contains(t, entry, "time")
	})
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"DEBUG", "INFO", "WARN", "ERROR", "debug", "info"} {
		_, err := parseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := parseLevel("TRACE")
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	t.Run("RejectsUnknownLevel", func(t *testing.T) {
		assert.Error(t, Init(Config{Level: "TRACE"}))
	})

	t.Run("RejectsUnknownFormat", func(t *testing.T) {
		assert.Error(t, Init(Config{Format: "xml"}))
	})

	t.Run("EmptyConfigKeepsDefaults", func(t *testing.T) {
		require.NoError(t, Init(Config{}))

		// Reset to a discard writer so later tests stay quiet.
		InitWithWriter(io.Discard, "INFO", "text")
	})

	t.Run("InitWithWriter", func(t *testing.T) {
		buf := new(bytes.Buffer)
		InitWithWriter(buf, "DEBUG", "text")

		Debug("test message")
		assert.Contains(t, buf.String(), "test message")

		mu.Lock()
		output = os.Stderr
		mu.Unlock()
		reconfigure()
	})
}

func TestConcurrentLogging(t *testing.T) {
	InitWithWriter(io.Discard, "DEBUG", "text")

	const numGoroutines = 10
	const logsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				Info("goroutine log", "id", id, "iteration", j)
			}
		}(i)
	}

	require.NotPanics(t, func() { wg.Wait() })
}

func mustLevel(t *testing.T, name string) slog.Level {
	t.Helper()
	lvl, err := parseLevel(name)
	require.NoError(t, err)
	return lvl
}
