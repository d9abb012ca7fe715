package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentBank,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)
	l.Info("hello", "k", "v")
	out := buf.String()
	if !strings.Contains(out, "component=bank") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected output %q", out)
	}
	if l.WithComponent(ComponentHTTP).Component() != ComponentHTTP {
		t.Fatal("WithComponent did not switch component")
	}
}

func TestLogTransferCompleted(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogTransferCompleted(context.Background(), "tr-1", "1", "2", 20000)
	out := buf.String()
	for _, want := range []string{"transfer_id=tr-1", "from_account=1", "to_account=2", "amount_cents=20000", "operation=transfer"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestLogTransferRejected(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogTransferRejected(context.Background(), "1", "1", "Cannot transfer to the same account")
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `reason="Cannot transfer to the same account"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFieldsWithError(t *testing.T) {
	f := NewFields().WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Fatal("nil error should not be recorded")
	}
	f.WithError(errors.New("x"))
	if f[FieldError] != "x" {
		t.Fatalf("unexpected error field %v", f[FieldError])
	}
}
