package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketpages/internal/logger"
)

func TestMake_WritesJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New().FromWriter(&buf).Make()
	require.NoError(t, err)

	l.Info().Str("page", "p1").Msg("saved")

	out := buf.String()
	assert.Contains(t, out, `"page":"p1"`)
	assert.Contains(t, out, `"message":"saved"`)
	assert.Contains(t, out, `"time"`)
}

func TestWithLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New().FromWriter(&buf).WithLevel("warn").Make()
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithLevel_UnknownKeepsDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New().FromWriter(&buf).WithLevel("chatty").Make()
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromPath_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pocketpages.log")
	l, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)

	l.Info().Msg("first")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
}
