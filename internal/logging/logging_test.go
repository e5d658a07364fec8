package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, closeLog, err := build(Config{Level: "info", Format: "json"}, &stdout, &stderr)
	require.NoError(t, err)
	defer closeLog()

	logger.Debug("hidden")
	logger.Info("started")
	logger.Warn("slow")
	logger.Error("broken")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "started")
	assert.Contains(t, stdout.String(), "slow")
	assert.NotContains(t, stdout.String(), "broken")

	assert.Contains(t, stderr.String(), "broken")
	assert.NotContains(t, stderr.String(), "started")
}

func TestFileReceivesEveryLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trgovina.log")
	var stdout, stderr bytes.Buffer
	logger, closeLog, err := build(Config{Level: "info", File: path}, &stdout, &stderr)
	require.NoError(t, err)

	logger.Info("to stdout")
	logger.Error("to stderr")
	closeLog()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"to stdout"`)
	assert.Contains(t, lines[1], `"msg":"to stderr"`)
}

func TestQuietWithoutFileIsNop(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, closeLog, err := build(Config{Quiet: true}, &stdout, &stderr)
	require.NoError(t, err)
	defer closeLog()

	logger.Error("nothing")
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestBadFile(t *testing.T) {
	_, _, err := build(Config{File: filepath.Join(t.TempDir(), "missing", "x.log")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}
