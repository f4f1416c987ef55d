package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		wantDebug bool
	}{
		{
			name:      "debug enabled",
			envValue:  "1",
			wantDebug: true,
		},
		{
			name:      "debug disabled",
			envValue:  "",
			wantDebug: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PMX_DEBUG", tt.envValue)

			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			l := NewEnvLogger("[test]")
			l.Debug("debug message %d", 42)

			if tt.wantDebug {
				assert.Contains(t, buf.String(), "debug message 42")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewEnvLogger("[cache]")
	l.Info("info %s", "one")
	l.Warn("warn %s", "two")
	l.Error("error %s", "three")

	out := buf.String()
	assert.Contains(t, out, "[cache] info one")
	assert.Contains(t, out, "WARN: warn two")
	assert.Contains(t, out, "ERROR: error three")
}

func TestNoopLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := Noop()
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	require.Len(t, l.Messages, 4)
	assert.Equal(t, "debug 1", l.Messages[0].Message)
	assert.Equal(t, "info", l.Messages[1].Level)
	assert.True(t, l.HasLevel("error"))
	assert.False(t, l.HasLevel("fatal"))

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)

	Default().Info("via default")
	require.Len(t, buf.Messages, 1)
	assert.Equal(t, "via default", buf.Messages[0].Message)
}

func TestFileLogger_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	l, err := NewFileLogger(path)
	require.NoError(t, err)

	l.Info("cache refreshed: %d vms", 7)
	l.Warn("no contexts configured")
	l.Error("refresh failed: %s", "connection refused")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	// Each line follows "<timestamp> - <LEVEL> - <message>"
	lineRe := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} - (INFO|WARNING|ERROR) - .+$`)
	for _, line := range lines {
		assert.Regexp(t, lineRe, line)
	}
	assert.Contains(t, lines[0], "INFO - cache refreshed: 7 vms")
	assert.Contains(t, lines[1], "WARNING - no contexts configured")
	assert.Contains(t, lines[2], "ERROR - refresh failed: connection refused")
}

func TestFileLogger_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	l1, err := NewFileLogger(path)
	require.NoError(t, err)
	l1.Info("first run")
	require.NoError(t, l1.Close())

	l2, err := NewFileLogger(path)
	require.NoError(t, err)
	l2.Info("second run")
	require.NoError(t, l2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestFileLogger_DebugGated(t *testing.T) {
	t.Setenv("PMX_DEBUG", "")
	path := filepath.Join(t.TempDir(), "daemon.log")

	l, err := NewFileLogger(path)
	require.NoError(t, err)
	l.Debug("should not appear")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(data)))
}
