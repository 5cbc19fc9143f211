package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledDiscards(t *testing.T) {
	require.NoError(t, Init(Options{Enabled: false}))
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInitWriter(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, Level: slog.LevelDebug}))
	Debug("grow", "extra", 42)
	assert.Contains(t, out.String(), "msg=grow")
	assert.Contains(t, out.String(), "extra=42")
}

func TestInitJSON(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, JSON: true}))
	Info("snapshot written", "len", 7)
	assert.Contains(t, out.String(), `"msg":"snapshot written"`)
}

func TestInitLogDirCleansOldLogs(t *testing.T) {
	t.Cleanup(func() { _ = Init(Options{}) })

	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -retentionDays-2).Format("2006-01-02")+logSuffix)
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))

	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	Warn("hello")

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "stale log should be removed")

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	_, err = os.Stat(today)
	assert.NoError(t, err)
}
