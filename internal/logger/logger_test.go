package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestForComponentFollowsLaterInit(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	log := ForComponent("router")

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelDebug, Format: "text", Output: &buf})

	log.Debug("classified", "department", "food_delay_agent")

	out := buf.String()
	if !strings.Contains(out, "component=router") {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "department=food_delay_agent") {
		t.Fatalf("expected record attribute, got %q", out)
	}
}

func TestForComponentRespectsLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	log := ForComponent("host")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, `"component":"host"`) {
		t.Errorf("expected json component field: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
