package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesReadableLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.DebugLevel).WithField("component", "pipeline")

	log.Info().Int("page", 2).Msg("Loading page")

	out := buf.String()
	assert.Contains(t, out, "Loading page")
	assert.Contains(t, out, "page=2")
	assert.Contains(t, out, "component=pipeline")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Warn().Err(errors.New("boom")).Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "boom")
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("APP_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("APP_ENVIRONMENT", "development")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}
