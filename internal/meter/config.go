package meter

import "time"

// Metering defaults. These match common meter ballistics: a 30 Hz refresh,
// a two second peak hold and an overload trigger at digital full scale.
const (
	DefaultRefreshRateHz        = 30
	DefaultPeakHoldTime         = 2 * time.Second
	DefaultOverloadTriggerLevel = 1.0
	DefaultQueueCapacity        = 100
)

// Config holds the tunable parameters of a level meter. The zero value is
// valid; unset fields fall back to the defaults above.
type Config struct {
	// RefreshRateHz is the dispatcher tick rate shared by all meters.
	RefreshRateHz int

	// PeakHoldTime is how long a held peak stays before declining.
	PeakHoldTime time.Duration

	// OverloadTriggerLevel is the linear level that latches the
	// overload indicator.
	OverloadTriggerLevel float64

	// QueueCapacity is the number of measurements the handoff queue can
	// hold before new measurements are dropped.
	QueueCapacity int
}

// withDefaults returns a copy with zero-value fields filled in.
func (c Config) withDefaults() Config {
	if c.RefreshRateHz <= 0 {
		c.RefreshRateHz = DefaultRefreshRateHz
	}
	if c.PeakHoldTime <= 0 {
		c.PeakHoldTime = DefaultPeakHoldTime
	}
	if c.OverloadTriggerLevel <= 0 {
		c.OverloadTriggerLevel = DefaultOverloadTriggerLevel
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	return c
}
