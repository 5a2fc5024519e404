// Package types provides shared type definitions used across the level meter.
package types

// VersionInfo contains version information for the frontend.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitempty"`
	UpdateAvail bool   `json:"update_available"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
}

// ChannelLevels is the rendered state of one meter channel, with bar
// positions pre-mapped to display proportions.
type ChannelLevels struct {
	Peak       float64 `json:"peak"`
	PeakHold   float64 `json:"peak_hold"`
	PeakDB     float64 `json:"peak_db"`
	PeakHoldDB float64 `json:"peak_hold_db"`
	Overloaded bool    `json:"overloaded"`
}

// LevelSnapshot is one frame of meter state as streamed to the web UI.
type LevelSnapshot struct {
	Channels []ChannelLevels `json:"channels"`
	Silence  bool            `json:"silence"`
	Dropped  uint64          `json:"dropped"`
}

// AlertLogEntry represents a single alert log entry written as JSON.
type AlertLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	DurationSec float64 `json:"duration_seconds,omitempty"`
	ThresholdDB float64 `json:"threshold_db,omitempty"`
	PeakDB      float64 `json:"peak_db,omitempty"`
}
