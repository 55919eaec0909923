package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerDefaultConfig(t *testing.T) {
	logger := NewLogger(nil)
	assert.NotNil(t, logger)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	assert.Empty(t, buf.String())

	logger.Warn("warning", "handle", 1)
	assert.Contains(t, buf.String(), "warning")
	assert.Contains(t, buf.String(), "handle=1")
}

func TestLoggerErrorIncludesArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Error("transaction failed", "code", 42, "errno", "ESTALE")
	out := buf.String()
	assert.True(t, strings.Contains(out, "[ERROR]"))
	assert.Contains(t, out, "code=42")
	assert.Contains(t, out, "errno=ESTALE")
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	Info("info message")
	assert.Contains(t, buf.String(), "info message")

	buf.Reset()
	Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")

	buf.Reset()
	Error("error message")
	assert.Contains(t, buf.String(), "error message")
}
