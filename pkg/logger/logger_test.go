package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goesbot/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "bot.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"chatty", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestWriterOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	l.WithField("sector", "CONUS").InfoWithFields("index fetched", map[string]interface{}{
		"entries": 42,
	})

	out := buf.String()
	assert.Contains(t, out, "index fetched")
	assert.Contains(t, out, "sector")
	assert.Contains(t, out, "CONUS")
	assert.Contains(t, out, "42")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	l.Info("written to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written to both"`)
	assert.Contains(t, buf.String(), "written to both")
}

func TestWithFieldsDoesNotLeak(t *testing.T) {
	l := NewTestLogger()
	child := l.WithField("a", 1)
	child.WithField("b", 2).Info("child")
	l.Info("parent")

	msgs := l.Entries()
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, msgs[0].Fields)
	assert.Empty(t, msgs[1].Fields)
}

func TestHelpers(t *testing.T) {
	l := NewTestLogger()

	LogRequest(l, "GET", "http://x/", 200, time.Millisecond)
	LogRequest(l, "GET", "http://x/missing", 404, time.Millisecond)
	LogRequest(l, "GET", "http://x/boom", 503, time.Millisecond)
	LogFrame(l, 3, "a.jpg", 10, nil)
	LogFrame(l, 4, "b.jpg", 0, errors.New("timeout"))
	LogStage(l, "encode", nil)

	assert.Len(t, l.AtLevel("DEBUG"), 1)
	assert.Len(t, l.AtLevel("WARN"), 1)
	assert.Len(t, l.AtLevel("ERROR"), 2)
	assert.True(t, l.HasMessage("Frame downloaded"))
	assert.True(t, l.HasMessage("Stage started"))

	failed := l.AtLevel("ERROR")[1]
	assert.Equal(t, "timeout", failed.Error)
	assert.Equal(t, 4, failed.Fields["index"])
}

func TestWithErrorBindsError(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("disk full")).WithField("frame", 7).Warn("frame skipped")
	out := buf.String()
	assert.Contains(t, out, "frame skipped")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "frame")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	l.DebugWithFields("hidden", map[string]interface{}{"k": "v"})
	l.InfoWithFields("shown", map[string]interface{}{"took": time.Second})
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.WithField("k", "v").WithError(errors.New("x")).Error("ignored")
		l.WarnWithFields("ignored", nil)
	})
}
