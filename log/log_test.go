package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCloudLoggingHandlerTo(&buf, slog.LevelInfo)).With(slog.String(UserIDLogField, "u1"))

	ctx := WithTrace(context.Background(), "diet-prod", "105445aa7843bc8bf206b12000100000/1;o=1")
	logger.DebugContext(ctx, "hidden")
	logger.WarnContext(ctx, "water goal missing", slog.Int("goalMl", 0))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARNING", entry["severity"])
	assert.Equal(t, "water goal missing", entry["message"])
	assert.Equal(t, "u1", entry[UserIDLogField])
	assert.Equal(t, float64(0), entry["goalMl"])
	assert.Equal(t, "projects/diet-prod/traces/105445aa7843bc8bf206b12000100000", entry[traceLogField])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARNING", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestWithTraceIgnoresMissingProject(t *testing.T) {
	ctx := WithTrace(context.Background(), "", "abc/1")
	assert.Empty(t, TraceFromContext(ctx))
}
