package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHonoursLevelAndEncoding(t *testing.T) {
	l, err := New(Config{Level: "WARN", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestAdapterWritesKeyValues(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	a := Adapt(zap.New(obsCore)).Named("core")

	a.Debug("core operation committed", "operation", "create_shift", "duration_ms", int64(3))
	a.Info("audit", "actor", "ana")
	a.Warn("rule warning", "rule", "shift_duration")
	a.Error("core operation failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "core", entries[0].LoggerName)
	assert.Equal(t, "create_shift", entries[0].ContextMap()["operation"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestAdaptNilIsSafe(t *testing.T) {
	Adapt(nil).Info("dropped", "k", "v")
}
