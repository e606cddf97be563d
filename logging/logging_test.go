package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("shown", "query", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "query=3") {
		t.Errorf("warn line missing: %q", out)
	}
	if !strings.Contains(out, "restgpt") {
		t.Errorf("default prefix missing: %q", out)
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "chatty"})
	logger.Debug("dbg")
	logger.Info("inf")
	if strings.Contains(buf.String(), "dbg") || !strings.Contains(buf.String(), "inf") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
