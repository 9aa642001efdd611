package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{in: "debug", want: LevelDebug, ok: true},
		{in: " WARNING ", want: LevelWarn, ok: true},
		{in: "error", want: LevelError, ok: true},
		{in: "verbose", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseLevel(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestServiceApplySwapsLevel(t *testing.T) {
	var buf bytes.Buffer
	svc, log := NewTo(Config{Level: "INFO", Console: true}, &buf)
	defer svc.Close()

	log.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line written at INFO level: %q", buf.String())
	}

	svc.Apply(Config{Level: "DEBUG", Console: true})
	log.Component("test").Debug("visible", String("k", "v"))
	out := buf.String()
	if !strings.Contains(out, "visible") || !strings.Contains(out, "comp=") {
		t.Fatalf("expected debug line with comp field, got %q", out)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	l.Info("nothing happens")
}
