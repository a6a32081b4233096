package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wisp-protocol/wisp-go/pkg/log"
)

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	logger.Log(log.Event{
		Timestamp:  base,
		Category:   log.CategoryStack,
		DeviceName: "WISP Test dd00",
		Stack:      &log.StackEvent{Namespace: "WIFI", Kind: "STA_START"},
	})
	logger.Log(log.Event{
		Timestamp:  base.Add(time.Second),
		Category:   log.CategorySession,
		DeviceName: "WISP Test dd00",
		Session:    &log.SessionEvent{Step: log.SessionSecured, Peer: "10.0.0.9"},
	})
	logger.Log(log.Event{
		Timestamp:  base.Add(2 * time.Second),
		Category:   log.CategoryState,
		DeviceName: "WISP Test dd00",
		StateChange: &log.StateChangeEvent{
			OldState: "Connecting", NewState: "Running", Reason: "IP address acquired",
		},
	})
	logger.Log(log.Event{
		Timestamp: base.Add(3 * time.Second),
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: "boom", Context: "decoding provisioning frame"},
	})
	return path
}

func TestBuildFilter(t *testing.T) {
	filter, err := BuildFilter("session", "dev")
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if filter.Category == nil || *filter.Category != log.CategorySession {
		t.Error("category filter not set")
	}
	if filter.DeviceName != "dev" {
		t.Errorf("DeviceName = %q, want %q", filter.DeviceName, "dev")
	}

	if _, err := BuildFilter("bogus", ""); err == nil {
		t.Error("BuildFilter should reject unknown categories")
	}
}

func TestRunView(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"WIFI/STA_START",
		"SECURED  peer=10.0.0.9",
		"Connecting -> Running",
		"boom  while decoding provisioning frame",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view output missing %q:\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeCapture(t)

	filter, err := BuildFilter("error", "")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if strings.Contains(buf.String(), "STA_START") {
		t.Error("filtered view should not contain stack events")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Error("filtered view should contain the error event")
	}
}

func TestRunExport(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunExport(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("exported %d lines, want 4", len(lines))
	}
	if !strings.Contains(lines[1], `"step":"SECURED"`) {
		t.Errorf("session line missing step name: %s", lines[1])
	}
	if !strings.Contains(lines[0], `"category":"STACK"`) {
		t.Errorf("stack line missing category: %s", lines[0])
	}
}

func TestRunFilter(t *testing.T) {
	path := writeCapture(t)
	outPath := filepath.Join(t.TempDir(), "out.wlog")

	filter, err := BuildFilter("session", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := RunFilter(path, outPath, filter); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(outPath, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView on filtered file failed: %v", err)
	}
	if !strings.Contains(buf.String(), "SECURED") {
		t.Error("filtered file missing session event")
	}
	if strings.Contains(buf.String(), "boom") {
		t.Error("filtered file should not contain error events")
	}
}

func TestRunStats(t *testing.T) {
	path := writeCapture(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total events: 4",
		"STACK",
		"SESSION",
		"WISP Test dd00",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}
