package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger(opts Options) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	opts.ServiceName = "test"
	opts.Output = buf
	if opts.Level == 0 {
		opts.Level = ParseLevel("debug")
	}
	return New(opts), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	entry := map[string]any{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("log entry is not json: %v; raw=%s", err, buf.String())
	}
	return entry
}

func TestErrorCarriesContextFields(t *testing.T) {
	log, buf := testLogger(Options{})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderNumber(ctx, "A1B2C3D4E5F6A7B8")
	ctx = log.WithUserID(ctx, "user-9")
	log.Error(ctx, "boom", errors.New("kaput"))

	entry := lastEntry(t, buf)
	if entry["request_id"] != "req-123" {
		t.Fatalf("request_id missing: %v", entry)
	}
	if entry["order_number"] != "A1B2C3D4E5F6A7B8" {
		t.Fatalf("order_number missing: %v", entry)
	}
	if entry["user_id"] != "user-9" {
		t.Fatalf("user_id missing: %v", entry)
	}
	if entry["error"] != "kaput" {
		t.Fatalf("error field missing: %v", entry)
	}
}

func TestWithFieldsAccumulate(t *testing.T) {
	log, buf := testLogger(Options{})

	ctx := log.WithFields(context.Background(), map[string]any{"a": "1"})
	ctx = log.WithField(ctx, "b", "2")
	log.Info(ctx, "hello")

	entry := lastEntry(t, buf)
	if entry["a"] != "1" || entry["b"] != "2" {
		t.Fatalf("expected accumulated fields, got %v", entry)
	}
}

func TestWarnStackToggle(t *testing.T) {
	log, buf := testLogger(Options{WarnStack: true})

	log.Warn(context.Background(), "warny")
	if entry := lastEntry(t, buf); entry["message"] != "warny" {
		t.Fatalf("expected warn entry, got %v", entry)
	}
}

func TestParseLevelDefaults(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
