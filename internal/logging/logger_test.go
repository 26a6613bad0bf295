package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		suppressed []string
		logged     []string
	}{
		{
			level:      "debug",
			suppressed: []string{"trace message"},
			logged:     []string{"debug message", "info message"},
		},
		{
			level:      "info",
			suppressed: []string{"trace message", "debug message"},
			logged:     []string{"info message", "warn message"},
		},
		{
			level:      "error",
			suppressed: []string{"info message", "warn message"},
			logged:     []string{"error message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			logger.Trace().Msg("trace message")
			logger.Debug().Msg("debug message")
			logger.Info().Msg("info message")
			logger.Warn().Msg("warn message")
			logger.Error().Msg("error message")

			output := buf.String()
			for _, msg := range tt.suppressed {
				if strings.Contains(output, msg) {
					t.Errorf("level %s: %q should be suppressed", tt.level, msg)
				}
			}
			for _, msg := range tt.logged {
				if !strings.Contains(output, msg) {
					t.Errorf("level %s: %q should be logged", tt.level, msg)
				}
			}
		})
	}
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Str("token", "tok-1").Msg("verified")

	if !strings.Contains(buf.String(), "verified") {
		t.Error("expected pretty output to contain the message")
	}
}

func TestNew_NilOutputDoesNotPanic(t *testing.T) {
	logger := New(Config{Level: "info"})
	logger.Info().Msg("goes to stderr")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty = false, want true")
	}
}
