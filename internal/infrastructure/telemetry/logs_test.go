package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "billing-engine",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, provider.IsEnabled())
	assert.Nil(t, provider.GetLoggerProvider())

	assert.NoError(t, provider.ForceFlush(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.Shutdown(ctx), "repeated shutdown should be safe")
}

func TestNewLoggerProvider_EnabledWithoutCollector(t *testing.T) {
	ctx := context.Background()

	// The OTLP exporter dials lazily, so setup succeeds with no collector
	// listening; records buffer until the endpoint comes up.
	provider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "billing-engine",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, provider.IsEnabled())
	assert.NotNil(t, provider.GetLoggerProvider())

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestLoggerProvider_GetConfig(t *testing.T) {
	cfg := LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "billing-engine",
		Insecure:          true,
	}

	provider, err := NewLoggerProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, cfg, provider.GetConfig())
}

func TestNewZapOTELCore_DisabledProviderIsNop(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "billing-engine",
		LoggerProvider: nil,
		Level:          zapcore.InfoLevel,
	})
	assert.False(t, core.Enabled(zapcore.InfoLevel), "nil provider should yield a nop core")

	disabled, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	core = NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "billing-engine",
		LoggerProvider: disabled,
		Level:          zapcore.InfoLevel,
	})
	assert.False(t, core.Enabled(zapcore.InfoLevel), "disabled provider should yield a nop core")
}

func TestNewZapOTELCore_LevelFiltering(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "billing-engine",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer provider.Shutdown(ctx)

	t.Run("debug level passes everything through unwrapped", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "billing-engine",
			LoggerProvider: provider,
			Level:          zapcore.DebugLevel,
		})
		assert.True(t, core.Enabled(zapcore.DebugLevel))
		assert.True(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("warn level drops info entries", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "billing-engine",
			LoggerProvider: provider,
			Level:          zapcore.WarnLevel,
		})
		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.WarnLevel))
	})
}

func TestLevelFilterCore(t *testing.T) {
	observed, entries := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel}

	logger := zap.New(filtered)
	logger.Info("payment recorded")
	logger.Warn("payment retried")
	logger.Error("payment failed")

	logs := entries.All()
	require.Len(t, logs, 2, "entries below warn should be dropped")
	assert.Equal(t, "payment retried", logs[0].Message)
	assert.Equal(t, "payment failed", logs[1].Message)
}

func TestLevelFilterCore_WithKeepsFilter(t *testing.T) {
	observed, entries := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel}

	child := filtered.With([]zapcore.Field{zap.String("invoice_number", "INV-2026-0001")})
	wrapped, ok := child.(*levelFilterCore)
	require.True(t, ok, "With must preserve the level gate")
	assert.Equal(t, zapcore.WarnLevel, wrapped.minLevel)

	zap.New(child).Warn("overdue")

	logs := entries.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Context, zap.String("invoice_number", "INV-2026-0001"))
}

func TestNewBridgedLogger_WritesBothCores(t *testing.T) {
	stdoutCore, stdoutEntries := observer.New(zapcore.InfoLevel)
	otelCore, otelEntries := observer.New(zapcore.InfoLevel)

	logger := NewBridgedLogger(stdoutCore, otelCore)
	logger.Info("transaction matched", zap.String("matching_token", "QR4F7A2B9C"))

	require.Len(t, stdoutEntries.All(), 1)
	require.Len(t, otelEntries.All(), 1)
	assert.Equal(t, "transaction matched", otelEntries.All()[0].Message)
}

func TestAttachOTELBridge_DisabledReturnsBaseUnchanged(t *testing.T) {
	base := zap.NewNop()

	disabled, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.Same(t, base, AttachOTELBridge(base, disabled, "billing-engine", "info"))
	assert.Same(t, base, AttachOTELBridge(base, nil, "billing-engine", "info"))
}

func TestAttachOTELBridge_EnabledWrapsLogger(t *testing.T) {
	ctx := context.Background()
	provider, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "billing-engine",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer provider.Shutdown(ctx)

	base := zap.NewNop()
	bridged := AttachOTELBridge(base, provider, "billing-engine", "warn")
	assert.NotSame(t, base, bridged)
}

func TestParseBridgeLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, parseBridgeLevel(tc.input), "level %q", tc.input)
	}
}
