package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iggraph/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "DEBUG"}, false},
		{"warning alias", &config.LoggingConfig{Level: "WARNING"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewWithWriter(tt.cfg, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWithWriter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && log == nil {
				t.Error("NewWithWriter() returned nil logger")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"CRITICAL", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.level)
		require.NoError(t, err, tt.level)
		assert.Equal(t, tt.expected, got, tt.level)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Info("quiet message")
	log.Warn("loud message")

	out := buf.String()
	assert.NotContains(t, out, "quiet message")
	assert.Contains(t, out, "loud message")
}

func TestFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	log.WithField("account_id", "4242").WithError(errors.New("boom")).Info("expanded")

	out := buf.String()
	assert.Contains(t, out, "expanded")
	assert.Contains(t, out, "4242")
	assert.Contains(t, out, "boom")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	child := log.WithField("component", "crawler")
	_ = child.WithField("extra", "x")
	log.Info("parent")

	assert.NotContains(t, buf.String(), "crawler")
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crawl.log")
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info", File: path}, &bytes.Buffer{})
	require.NoError(t, err)

	log.InfoWithFields("persisted", map[string]interface{}{"nodes": 4})
	require.NoError(t, log.(Closer).Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "persisted", entry["message"])
	assert.Equal(t, float64(4), entry["nodes"])
	assert.Equal(t, "iggraph", entry["app"])
}

func TestTestLoggerCapturesDerivedFields(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("round", 3).WithError(errors.New("not converged")).Warn("falling back")

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, 3, warns[0].Fields["round"])
	assert.EqualError(t, warns[0].Error, "not converged")
	assert.True(t, tl.HasMessage("falling"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}
