package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNoopBeforeInit(t *testing.T) {
	Close()
	// Must not panic without a logger.
	Info("ignored")
	Warn("ignored", "k", 1)
	if WithPrefix("x") != nil {
		t.Error("WithPrefix before Init should be nil")
	}
}

func TestInitWriterLevels(t *testing.T) {
	defer Close()

	var buf bytes.Buffer
	InitWriter(&buf, false)
	Debug("hidden")
	Info("page fetched", "source", "items")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "page fetched") || !strings.Contains(out, "source=items") {
		t.Errorf("info line missing: %q", out)
	}

	buf.Reset()
	InitWriter(&buf, true)
	Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug line missing at debug level: %q", buf.String())
	}
}

func TestInitCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Error("mirror write failed", "key", "items")
	Close()

	matches, err := filepath.Glob(filepath.Join(dir, "logs", "universal-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "mirror write failed") {
		t.Errorf("log file missing entry: %q", data)
	}
}
