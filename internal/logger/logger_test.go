// internal/logger/logger_test.go
package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var console bytes.Buffer

	cfg := DefaultConfig()
	cfg.File = path
	l, err := newWithConsole(cfg, &console)
	require.NoError(t, err)

	l.Named("seller").Info("Sell executed", zap.String("token", "0xabc"))
	l.Debug("hidden at info level")
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "Sell executed")
	assert.NotContains(t, console.String(), "hidden at info level")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "seller", line["logger"])
	assert.Equal(t, "0xabc", line["token"])
	assert.NotEmpty(t, line["timestamp"])
	assert.False(t, sc.Scan())
}

func TestNew_DevelopmentPretty(t *testing.T) {
	var console bytes.Buffer
	l, err := newWithConsole(Config{Development: true, Pretty: true}, &console)
	require.NoError(t, err)

	l.Debug("debug visible")
	require.NoError(t, l.Sync())

	out := console.String()
	assert.Contains(t, out, "debug visible")
	assert.Contains(t, out, "[DEBUG]")
}

func TestWithOperation_CorrelationID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithOperation(base, "flush").Info("one")
	WithOperation(base, "flush").Info("two")

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	second := entries[1].ContextMap()
	assert.Equal(t, "flush", first["operation"])
	assert.NotEmpty(t, first["correlation_id"])
	assert.NotEqual(t, first["correlation_id"], second["correlation_id"])
}

func TestTrackPerformance(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	end := l.TrackPerformance("snapshot")
	end()

	entries := logs.FilterMessage("Operation completed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap(), "duration")
}
