// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("source", "lichess").Msg("import started")

	out := buf.String()
	if !strings.Contains(out, `"message":"import started"`) {
		t.Errorf("output missing message: %s", out)
	}
	if !strings.Contains(out, `"source":"lichess"`) {
		t.Errorf("output missing field: %s", out)
	}
}

func TestCtx_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithUserID(ctx, "user-1")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"correlation_id":"corr-1"`, `"user_id":"user-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("CorrelationIDFromContext() = %q, want empty", got)
	}
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", got)
	}
}

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := slog.New(NewSlogHandler()).With("service", "scheduler").WithGroup("cycle")
	logger.Warn("service restarted", "attempt", 2)

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("output missing warn level: %s", out)
	}
	if !strings.Contains(out, `"cycle.attempt":2`) {
		t.Errorf("output missing grouped attr: %s", out)
	}
	if !strings.Contains(out, `"service":"scheduler"`) {
		t.Errorf("output missing attr: %s", out)
	}
}

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { Init(DefaultConfig()) })

	var adapter watermill.LoggerAdapter = NewWatermillLoggerWith(NewTestLogger(&buf))
	adapter = adapter.With(watermill.LogFields{"topic": "import.completed"})
	adapter.Error("handler failed", errors.New("boom"), watermill.LogFields{"attempt": 1})

	out := buf.String()
	for _, want := range []string{`"topic":"import.completed"`, `"error":"boom"`, `"attempt":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
