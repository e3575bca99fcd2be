package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", true)

	ctx := WithLogger(context.Background(), log)
	FromContext(ctx).Info("archived", "problem_id", 7)

	assert.Contains(t, buf.String(), `"problem_id":7`)
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
