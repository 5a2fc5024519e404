package alert

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oszuidwest/zwfm-levelmeter/internal/types"
)

func readLogEntries(t *testing.T, path string) []types.AlertLogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []types.AlertLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry types.AlertLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestAlertLogAppends verifies events accumulate as JSON lines.
func TestAlertLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")

	if err := logSilenceStart(path, -40); err != nil {
		t.Fatalf("logSilenceStart: %v", err)
	}
	if err := logSilenceEnd(path, 23.5, -40); err != nil {
		t.Fatalf("logSilenceEnd: %v", err)
	}
	if err := logOverload(path, 1.2); err != nil {
		t.Fatalf("logOverload: %v", err)
	}

	entries := readLogEntries(t, path)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].Event != "silence_start" || entries[0].ThresholdDB != -40 {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Event != "silence_end" || entries[1].DurationSec != 23.5 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
	if entries[2].Event != "overload" || entries[2].PeakDB != 1.2 {
		t.Errorf("entry 2 = %+v", entries[2])
	}
	for i, e := range entries {
		if e.Timestamp == "" {
			t.Errorf("entry %d has no timestamp", i)
		}
	}
}

// TestAlertLogUnconfiguredPath verifies an empty path is a silent no-op
// for regular events but an error for the explicit test entry.
func TestAlertLogUnconfiguredPath(t *testing.T) {
	if err := logSilenceStart("", -40); err != nil {
		t.Errorf("logSilenceStart with empty path: %v", err)
	}
	if err := writeTestLog(""); err == nil {
		t.Error("writeTestLog with empty path succeeded, want error")
	}
}

// TestWriteTestLog verifies the configuration test entry.
func TestWriteTestLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	if err := writeTestLog(path); err != nil {
		t.Fatalf("writeTestLog: %v", err)
	}

	entries := readLogEntries(t, path)
	if len(entries) != 1 || entries[0].Event != "test" {
		t.Fatalf("entries = %+v, want one test entry", entries)
	}
}
