package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithCoreForwardsAttributes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore(core)

	log.InfoContext(context.Background(), "document executed", "document_number", int64(7), "type", "transfer")
	log.DebugContext(context.Background(), "dropped")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "document executed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, int64(7), fields["document_number"])
	assert.Equal(t, "transfer", fields["type"])
}

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = parseLevel("loud")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	log, sync, err := New("warn")
	require.NoError(t, err)
	require.NotNil(t, log)
	require.NotNil(t, sync)
}
