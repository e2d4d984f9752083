package log

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

func newBufferLogger(buf *bytes.Buffer, level Level, format Format) *Logger {
	return New(Config{
		Level:  level,
		Format: format,
		Output: buf,
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(""))
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelWarn, FormatJSON)

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Zero(t, buf.Len(), "debug/info must be filtered at warn level")

	logger.Warn("warn message")
	assert.NotZero(t, buf.Len())
}

func TestJSONFormatOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf, ServiceName: "ciforge"})

	logger.Info("phase finished", "phase", "build", "run_id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "phase finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "build", entry["phase"])
	assert.Equal(t, "ciforge", entry["service"])
}

func TestTextFormatOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo, FormatText)

	logger.Info("patched", "file", "gradle.properties")

	out := buf.String()
	assert.Contains(t, out, "msg=patched")
	assert.Contains(t, out, "file=gradle.properties")
}

func TestWithErrorExpandsDriverError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo, FormatJSON)

	err := errors.NewBuildExitError("./gradlew", 2, fmt.Errorf("exit status 2"))
	logger.WithError(fmt.Errorf("lifecycle: %w", err)).Error("gradle build failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "BUILD-001", entry["error_code"])
	assert.Equal(t, "exit status 2", entry["cause"])
	assert.NotEmpty(t, entry["suggestions"])
}

func TestLogErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, LevelInfo, FormatText)

	logger.LogError("upload failed", fmt.Errorf("connection reset"))
	assert.True(t, strings.Contains(buf.String(), "connection reset"))

	buf.Reset()
	logger.LogError("nothing", nil)
	assert.Zero(t, buf.Len())
}

func TestErrorAttrsKeepsSuggestionsStructured(t *testing.T) {
	err := errors.NewBuildExitError("./gradlew", 1, fmt.Errorf("exit status 1"))

	attrs := ErrorAttrs(stderrors.Join(err, fmt.Errorf("offline")))
	require.Zero(t, len(attrs)%2)

	fields := map[string]any{}
	for i := 0; i < len(attrs); i += 2 {
		fields[attrs[i].(string)] = attrs[i+1]
	}
	assert.Equal(t, "BUILD-001", fields["error_code"])
	assert.Equal(t, "exit status 1", fields["cause"])
	assert.IsType(t, []string{}, fields["suggestions"])
	assert.NotContains(t, fields["error"], "Suggestions:")

	assert.Equal(t, []any{"error", "plain"}, ErrorAttrs(fmt.Errorf("plain")))
	assert.Nil(t, ErrorAttrs(nil))
}

func TestDefaultLogger(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() { defaultLogger = original })

	defaultLogger = nil
	created := DefaultLogger()
	require.NotNil(t, created)
	assert.Same(t, created, DefaultLogger())

	custom := New(DevelopmentConfig())
	SetDefaultLogger(custom)
	assert.Same(t, custom, DefaultLogger())
	assert.Equal(t, LevelDebug, custom.Config().Level)
}
