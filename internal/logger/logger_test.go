package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer in text format without
// color and restores the previous sink afterwards.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.RLock()
	saved := current
	mu.RUnlock()

	InitWithWriter(buf, "INFO", "text", false)

	t.Cleanup(func() {
		mu.Lock()
		current = saved
		mu.Unlock()
		level.Set(slog.LevelInfo)
		rebuild()
	})

	return buf
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	return entry
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("IsCaseInsensitive", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("debug")
		Debug("lowercase works")
		assert.Contains(t, buf.String(), "lowercase works")
	})

	t.Run("IgnoresInvalidValues", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("WARN")
		SetLevel("VERBOSE")
		Info("hidden")
		Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

// ============================================================================
// Text Handler Tests
// ============================================================================

func TestTextFormatting(t *testing.T) {
	t.Run("TimestampAndLevel", func(t *testing.T) {
		buf := captureOutput(t)
		Info("test message")
		assert.Regexp(t, `\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[INFO\] test message`, buf.String())
	})

	t.Run("StructuredFields", func(t *testing.T) {
		buf := captureOutput(t)
		Info("directory created", KeyActor, "alice@example.com", KeyEntries, 3)
		out := buf.String()
		assert.Contains(t, out, "actor=alice@example.com")
		assert.Contains(t, out, "entries=3")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := captureOutput(t)
		Info("upload", KeyFilename, "my report.txt")
		assert.Contains(t, buf.String(), `filename="my report.txt"`)
	})

	t.Run("GroupsPrefixKeys", func(t *testing.T) {
		buf := captureOutput(t)
		With(KeyRoot, "/srv").WithGroup("index").Info("opened", "type", "sqlite")
		out := buf.String()
		assert.Contains(t, out, "root=/srv")
		assert.Contains(t, out, "index.type=sqlite")
	})

	t.Run("ColorDisabledHasNoEscapes", func(t *testing.T) {
		buf := captureOutput(t)
		Error("plain")
		assert.NotContains(t, buf.String(), "\033[")
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

// ============================================================================
// JSON Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Info("test message", "key1", "value1", "key2", 42)

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitchingIgnoresInvalid(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("xml")
	Info("still text")
	assert.Contains(t, buf.String(), "[INFO]")
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		lc := NewLogContext("alice@example.com").
			WithOperation("rename", "alice@example.com/docs").
			WithTrace("abc123", "xyz789")
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "operation completed", "extra_field", "value")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "rename", entry[KeyOperation])
		assert.Equal(t, "alice@example.com", entry[KeyActor])
		assert.Equal(t, "alice@example.com/docs", entry[KeyPath])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf := captureOutput(t)
		require.NotPanics(t, func() {
			//nolint:staticcheck // exercising nil context tolerance
			InfoCtx(nil, "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf := captureOutput(t)
		WarnCtx(context.Background(), "test message")
		assert.Contains(t, buf.String(), "test message")
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContext", func(t *testing.T) {
		lc := NewLogContext("bob")
		assert.Equal(t, "bob", lc.Actor)
		assert.False(t, lc.StartTime.IsZero())
		assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)
	})

	t.Run("WithOperationLeavesOriginalUntouched", func(t *testing.T) {
		lc := NewLogContext("bob")
		lc2 := lc.WithOperation("delete", "bob/tmp")

		assert.Equal(t, "delete", lc2.Operation)
		assert.Equal(t, "bob/tmp", lc2.Path)
		assert.Empty(t, lc.Operation)
		assert.Empty(t, lc.Path)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithTrace("a", "b"))
		assert.Zero(t, lc.DurationMs())
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.Attr{}, Err(nil))
	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
	assert.Equal(t, KeyUUID, UUID("x").Key)
	assert.Equal(t, KeyKind, Kind("NotFound").Key)
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warn")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		captureOutput(t)
		buf := new(bytes.Buffer)
		InitWithWriter(buf, "DEBUG", "text", false)
		Debug("test message")
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("InitWithLogFile", func(t *testing.T) {
		captureOutput(t)
		path := t.TempDir() + "/dittobox.log"
		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file")
	})

	t.Run("InitWithEmptyConfig", func(t *testing.T) {
		require.NoError(t, Init(Config{}))
	})
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("concurrent", "goroutine", id, "iteration", j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, strings.Count(buf.String(), "concurrent"))
}

func BenchmarkLogCtx(b *testing.B) {
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "DEBUG", "json", false)

	ctx := WithContext(context.Background(), NewLogContext("alice").WithOperation("list", "alice"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "test message", "count", i)
	}
}
