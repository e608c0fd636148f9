package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectserver/internal/config"
)

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestLogger_LevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := New(config.LogConfig{Dir: dir})
	require.NoError(t, err)

	log.Info("saved %s", "a.png")
	log.Warning("slow model: %dms", 900)
	log.Error("boom")
	log.Debug("hidden")
	require.NoError(t, log.Close())

	info := readLog(t, dir, "info.log")
	assert.Contains(t, info, "saved a.png")
	assert.NotContains(t, info, "slow model")
	assert.NotContains(t, info, "hidden")

	assert.Contains(t, readLog(t, dir, "warning.log"), "slow model: 900ms")
	assert.NotContains(t, readLog(t, dir, "warning.log"), "boom")
	assert.Contains(t, readLog(t, dir, "error.log"), "boom")
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	log, err := New(config.LogConfig{Dir: dir})
	require.NoError(t, err)
	defer log.Close()

	log.Info("before")
	require.NoError(t, log.CleanLogs("info.log"))
	log.Info("after")

	info := readLog(t, dir, "info.log")
	assert.NotContains(t, info, "before")
	assert.Contains(t, info, "after")
	assert.Equal(t, dir, log.Dir())

	assert.Error(t, log.CleanLogs("debug.log"))
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info("x")
		log.Zap().Info("y")
		log.Sugar().Infow("z")
	})
	assert.NoError(t, log.Close())
}
