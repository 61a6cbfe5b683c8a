//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"media-courier-bot/internal/config"
)

func TestWithAttachesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithConvID(ctx, 42)
	ctx = WithSessID(ctx, "42-yt-01H")

	With(ctx, base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if got["trace_id"] != "tr-1" || got["session_id"] != "42-yt-01H" {
		t.Errorf("missing string ids: %v", got)
	}
	if got["conv_id"] != float64(42) {
		t.Errorf("expected conv_id 42, got %v", got["conv_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("123456:ABCDEFGHIJ", false); got != "1234...IJ" {
		t.Errorf("got %q", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("got %q", got)
	}
	if got := Redact("visible", true); got != "visible" {
		t.Errorf("got %q", got)
	}
}
