package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
	require.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestFromFallsBackToShared(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	From(context.Background()).Info("shared")
	require.Equal(t, 1, logs.Len())
}

func TestFromUsesScopedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(ListName("L1")))

	FromWithFields(ctx, Operation("delete")).Info("scoped")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "L1", fields["list"])
	require.Equal(t, "delete", fields["op"])
}
