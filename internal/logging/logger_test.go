package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("broadcasting value", zap.String("dest", "n2"), zap.Int("value", 5))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected json entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "broadcasting value" || entry["dest"] != "n2" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts field, got %v", entry)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("topology applied")
	if !strings.Contains(buf.String(), "INFO") || !strings.Contains(buf.String(), "topology applied") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	logger, closeFn, err := New(Options{FilePath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.With(zap.String("node_id", "n1")).Info("init complete")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"node_id":"n1"`) {
		t.Fatalf("expected node_id in log file, got %q", data)
	}
}
