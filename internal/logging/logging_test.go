package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuildWritesConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	logger := build(&console, &file)
	logger.Info().Str("device", "USB Mic").Msg("default input changed")

	if !strings.Contains(console.String(), "default input changed") {
		t.Errorf("console output missing message: %q", console.String())
	}
	if !strings.Contains(file.String(), `"device":"USB Mic"`) {
		t.Errorf("file output should be JSON: %q", file.String())
	}
}

func TestBuildWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger := build(&console, nil)
	logger.Info().Msg("hello")
	if !strings.Contains(console.String(), "hello") {
		t.Fatalf("console output missing message: %q", console.String())
	}
}

func TestNewWithLevel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("LOCALAPPDATA", dir)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := NewWithLevel(tt.level).GetLevel(); got != tt.want {
				t.Errorf("NewWithLevel(%q) level = %v, want %v", tt.level, got, tt.want)
			}
		})
	}

	if _, err := os.Stat(getLogPath()); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if filepath.Base(getLogPath()) != "micwatch.log" {
		t.Fatalf("unexpected log file %s", getLogPath())
	}
}
