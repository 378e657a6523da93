package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "topic", "t1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "topic=t1") {
		t.Errorf("missing warn line: %q", out)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examprep.log")
	l, c, err := File(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	l.Info("hello")
	c.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "msg=hello") {
		t.Errorf("log file = %q", b)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
}
