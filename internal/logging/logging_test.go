package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("hidden")
	log.Warn("shown", "plugin", "Echo")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "plugin=Echo") {
		t.Errorf("warn message missing or without context: %q", out)
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", &buf)

	log.Debug("debug-line")
	log.Info("info-line")

	out := buf.String()
	if strings.Contains(out, "debug-line") {
		t.Errorf("debug logged with default level: %q", out)
	}
	if !strings.Contains(out, "info-line") {
		t.Errorf("info not logged with default level: %q", out)
	}
}
