// Package alert provides silence and overload alerting over the
// measurement stream of a level meter.
package alert

import "time"

// SilenceConfig holds the configurable thresholds for silence detection.
type SilenceConfig struct {
	ThresholdDB float64 // dB level below which audio is considered silent
	Duration    float64 // seconds of silence before alerting
	Recovery    float64 // seconds of audio before considering recovered
}

// Detector tracks silence state with hysteresis. It only reports "in
// silence" after Duration seconds of continuous silence, and only reports
// "recovered" after Recovery seconds of continuous audio.
type Detector struct {
	silenceStart  time.Time // when the current silence period started
	recoveryStart time.Time // when audio returned after silence
	inSilence     bool      // currently in confirmed silence state
}

// NewDetector creates a new silence detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Event is the result of one detector update.
type Event struct {
	InSilence     bool    // true while in confirmed silence state
	Duration      float64 // seconds in the current silence (0 if not silent)
	JustEntered   bool    // true on the update that confirms silence
	JustRecovered bool    // true on the update that confirms recovery
	TotalDuration float64 // full silence span, set with JustRecovered
}

// Update feeds the current peak level in dBFS and returns the silence
// state for this instant.
func (d *Detector) Update(levelDB float64, cfg SilenceConfig, now time.Time) Event {
	var ev Event

	if levelDB < cfg.ThresholdDB {
		d.recoveryStart = time.Time{}

		if d.silenceStart.IsZero() {
			d.silenceStart = now
		}
		duration := now.Sub(d.silenceStart).Seconds()

		if d.inSilence {
			ev.InSilence = true
			ev.Duration = duration
		} else if duration >= cfg.Duration {
			d.inSilence = true
			ev.InSilence = true
			ev.Duration = duration
			ev.JustEntered = true
		}
		return ev
	}

	// Audio is above threshold.
	if !d.inSilence {
		d.silenceStart = time.Time{}
		return ev
	}

	if d.recoveryStart.IsZero() {
		d.recoveryStart = now
	}

	if now.Sub(d.recoveryStart).Seconds() >= cfg.Recovery {
		ev.JustRecovered = true
		ev.TotalDuration = d.recoveryStart.Sub(d.silenceStart).Seconds()
		d.inSilence = false
		d.silenceStart = time.Time{}
		d.recoveryStart = time.Time{}
	} else {
		// Still inside the recovery window.
		ev.InSilence = true
		ev.Duration = now.Sub(d.silenceStart).Seconds()
	}
	return ev
}

// InSilence reports whether the detector is in confirmed silence state.
func (d *Detector) InSilence() bool {
	return d.inSilence
}

// Reset clears the silence detection state.
func (d *Detector) Reset() {
	d.silenceStart = time.Time{}
	d.recoveryStart = time.Time{}
	d.inSilence = false
}
