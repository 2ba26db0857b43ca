// internal/logging/logging_test.go
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestZapSink_Fields(t *testing.T) {
	l, logs := NewObserved()
	s := NewZapSink(l)

	s.Log(Error, Network, "sam-01", "heartbeat lost", "aborting")
	s.Log(Success, Valves, "sam-01", "valve 3", "powered")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	e := entries[0]
	if e.Level != zapcore.ErrorLevel || e.Message != "aborting" {
		t.Fatalf("unexpected entry %+v", e.Entry)
	}
	fields := e.ContextMap()
	if fields["category"] != "network" || fields["source"] != "sam-01" || fields["header"] != "heartbeat lost" {
		t.Fatalf("unexpected fields %v", fields)
	}

	if entries[1].Level != zapcore.InfoLevel || entries[1].ContextMap()["severity"] != "success" {
		t.Fatalf("success should log at info, got %+v", entries[1])
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.log")
	l, closer, err := New(Config{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	l.Debug("rotated file line")
	if err := closer(); err != nil {
		t.Fatalf("close err=%v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "rotated file line") || !strings.Contains(string(b), "DEBUG") {
		t.Fatalf("unexpected log file content %q", b)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for bad level")
	}
}
