package common

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Run("fallback with run id", func(t *testing.T) {
		buf.Reset()
		ctx := WithRunID(context.Background(), "run-42")
		LoggerFromContext(ctx, fallback).Info("hello")
		assert.Contains(t, buf.String(), `"run_id":"run-42"`)
	})

	t.Run("context logger wins", func(t *testing.T) {
		var own bytes.Buffer
		ctx := WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&own, nil)))
		buf.Reset()
		LoggerFromContext(ctx, fallback).Info("hello")
		assert.Empty(t, buf.String())
		assert.Contains(t, own.String(), "hello")
		assert.Empty(t, RunIDFromContext(ctx))
	})

	t.Run("nil fallback", func(t *testing.T) {
		assert.NotNil(t, LoggerFromContext(context.Background(), nil))
	})
}
