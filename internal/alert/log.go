package alert

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oszuidwest/zwfm-levelmeter/internal/types"
	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
)

// logSilenceStart records the beginning of a silence event.
func logSilenceStart(logPath string, threshold float64) error {
	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp:   util.RFC3339Now(),
		Event:       "silence_start",
		ThresholdDB: threshold,
	})
}

// logSilenceEnd records the end of a silence event with its total duration.
func logSilenceEnd(logPath string, silenceDuration, threshold float64) error {
	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp:   util.RFC3339Now(),
		Event:       "silence_end",
		DurationSec: silenceDuration,
		ThresholdDB: threshold,
	})
}

// logOverload records an overload event with the triggering peak level.
func logOverload(logPath string, peakDB float64) error {
	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "overload",
		PeakDB:    peakDB,
	})
}

// writeTestLog writes a test entry to verify log file configuration.
func writeTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "test",
	})
}

// appendLogEntry appends a JSON log entry to the file.
func appendLogEntry(logPath string, entry types.AlertLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open alert log", err)
	}
	defer util.SafeCloseFunc(f, "alert log")()

	if _, err := f.Write(append(jsonData, '\n')); err != nil {
		return util.WrapError("write alert log entry", err)
	}
	return nil
}
