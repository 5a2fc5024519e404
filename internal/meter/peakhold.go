package meter

import (
	"math"
	"time"
)

// DecayDBPerSecond is the rate at which a peak value declines once its
// hold window has elapsed.
const DecayDBPerSecond = 20.0

// PeakHoldValue is a decaying scalar with attack/hold/release ballistics.
// A higher incoming level is adopted immediately and restarts the hold
// window; once the window elapses the value declines toward the incoming
// level at DecayDBPerSecond. A hold time of zero gives the fast-responding
// bar, a longer hold time the slow-declining peak marker.
type PeakHoldValue struct {
	value      float64
	holdTime   time.Duration
	peakTime   time.Time
	lastUpdate time.Time
}

func newPeakHoldValue(holdTime time.Duration) PeakHoldValue {
	return PeakHoldValue{holdTime: holdTime}
}

// Update feeds a new level into the value at the given time.
func (p *PeakHoldValue) Update(level float64, now time.Time) {
	if level >= p.value {
		p.value = level
		p.peakTime = now
		p.lastUpdate = now
		return
	}

	elapsed := now.Sub(p.lastUpdate)
	p.lastUpdate = now

	// Hold window still open: keep the value unchanged.
	if now.Sub(p.peakTime) <= p.holdTime {
		return
	}

	if p.value <= 0 {
		p.value = level
		return
	}
	decayedDB := 20*math.Log10(p.value) - DecayDBPerSecond*elapsed.Seconds()
	decayed := math.Pow(10, decayedDB/20)
	if decayed < level {
		decayed = level
	}
	p.value = decayed
}

// Get returns the current value in linear level units.
func (p *PeakHoldValue) Get() float64 {
	return p.value
}

// Reset returns the value to silence and clears the hold timer.
func (p *PeakHoldValue) Reset() {
	p.value = 0
	p.peakTime = time.Time{}
	p.lastUpdate = time.Time{}
}
