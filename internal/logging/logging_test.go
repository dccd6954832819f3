package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"":        zapcore.WarnLevel,
		"verbose": zapcore.WarnLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("WARN", FormatConsole, &buf)
	logger.Info("hidden")
	logger.Warn("shown", zap.String("path", "a.osf"))
	_ = logger.Sync()

	text := buf.String()
	if strings.Contains(text, "hidden") {
		t.Fatalf("info message should be filtered: %q", text)
	}
	if !strings.Contains(text, "WARN | shown") || !strings.Contains(text, "a.osf") {
		t.Fatalf("unexpected console output %q", text)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", FormatJSON, &buf)
	logger.Debug("cache hit", zap.Int("entries", 2))
	_ = logger.Sync()

	text := buf.String()
	if !strings.Contains(text, `"msg":"cache hit"`) || !strings.Contains(text, `"entries":2`) {
		t.Fatalf("unexpected json output %q", text)
	}
}
