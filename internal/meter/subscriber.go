package meter

import (
	"fmt"
	"time"
)

// Hooks is the capability set a subscriber owner provides. Prepared is the
// one mandatory hook: it fires whenever the subscriber is prepared for a
// new channel count so the owner can resize its visual state. Measurement
// is optional and fires after each measurement has been applied to the
// channel state. MeasurementsFinished is optional and fires once per
// dispatch tick after all queued measurements have been applied; a
// rendering layer should use it to decide whether to repaint.
type Hooks struct {
	Prepared             func(numChannels int)
	Measurement          func(Measurement)
	MeasurementsFinished func()
}

// channelData holds the metering state for one channel.
type channelData struct {
	peak       PeakHoldValue
	peakHold   PeakHoldValue
	overloaded bool
}

// Subscriber consumes measurements from a level meter and maintains
// per-channel peak, peak-hold and overload state for a consumer such as a
// rendering widget. All methods and accessors are consumer-context only;
// state reflects the last completed dispatch tick.
//
// A subscriber holds at most one subscription; subscribing to another
// meter replaces the previous subscription.
type Subscriber struct {
	scale *Scale
	hooks Hooks
	cfg   Config

	channels []channelData

	meter  *LevelMeter
	handle int
}

// NewSubscriber builds a subscriber using the given scale and hooks. A nil
// scale falls back to DefaultScale. The Prepared hook is required.
func NewSubscriber(scale *Scale, hooks Hooks, cfg Config) (*Subscriber, error) {
	if hooks.Prepared == nil {
		return nil, fmt.Errorf("prepared hook is required")
	}
	if scale == nil {
		scale = DefaultScale()
	}
	return &Subscriber{
		scale: scale,
		hooks: hooks,
		cfg:   cfg.withDefaults(),
	}, nil
}

// PrepareToPlay re-creates the per-channel state for the given channel
// count, resets every channel to silence and invokes the Prepared hook.
func (s *Subscriber) PrepareToPlay(numChannels int) {
	if numChannels < 0 {
		numChannels = 0
	}
	s.channels = make([]channelData, numChannels)
	for i := range s.channels {
		s.channels[i].peak = newPeakHoldValue(0)
		s.channels[i].peakHold = newPeakHoldValue(s.cfg.PeakHoldTime)
	}
	s.hooks.Prepared(numChannels)
}

// UpdateWithMeasurement routes a measurement into the channel's peak and
// peak-hold values and latches the overload flag when the peak reaches the
// trigger level. Measurements for channels outside the prepared range are
// discarded.
func (s *Subscriber) UpdateWithMeasurement(m Measurement) {
	s.updateWithMeasurementAt(m, time.Now())
}

func (s *Subscriber) updateWithMeasurementAt(m Measurement, now time.Time) {
	if m.Channel < 0 || m.Channel >= len(s.channels) {
		return
	}
	ch := &s.channels[m.Channel]
	ch.peak.Update(m.Peak, now)
	ch.peakHold.Update(m.Peak, now)
	if m.Peak >= s.cfg.OverloadTriggerLevel {
		ch.overloaded = true
	}
	if s.hooks.Measurement != nil {
		s.hooks.Measurement(m)
	}
}

// measurementUpdatesFinished fires the optional per-tick hook.
func (s *Subscriber) measurementUpdatesFinished() {
	if s.hooks.MeasurementsFinished != nil {
		s.hooks.MeasurementsFinished()
	}
}

// Reset returns every channel to silence and fires MeasurementsFinished
// once so the owner can update itself.
func (s *Subscriber) Reset() {
	for i := range s.channels {
		s.channels[i].peak.Reset()
		s.channels[i].peakHold.Reset()
		s.channels[i].overloaded = false
	}
	s.measurementUpdatesFinished()
}

// ResetOverloaded clears the overload flag on every channel.
func (s *Subscriber) ResetOverloaded() {
	for i := range s.channels {
		s.channels[i].overloaded = false
	}
}

// SubscribeToLevelMeter subscribes to the given meter, replacing any
// previous subscription. The meter must outlive the subscription.
func (s *Subscriber) SubscribeToLevelMeter(m *LevelMeter) {
	s.UnsubscribeFromLevelMeter()
	if m == nil {
		return
	}
	if handle, ok := m.addSubscriber(s); ok {
		s.meter = m
		s.handle = handle
	}
}

// UnsubscribeFromLevelMeter ends the current subscription. It is safe to
// call while not subscribed, and safe to call from within this
// subscriber's own hooks: no further calls are delivered afterwards.
func (s *Subscriber) UnsubscribeFromLevelMeter() {
	if s.meter == nil {
		return
	}
	s.meter.removeSubscriber(s.handle)
	s.meter = nil
	s.handle = 0
}

// PeakValue returns the current peak level for a channel, or silence for a
// channel outside the prepared range.
func (s *Subscriber) PeakValue(channel int) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return 0
	}
	return s.channels[channel].peak.Get()
}

// PeakHoldValue returns the current held peak level for a channel, or
// silence for a channel outside the prepared range.
func (s *Subscriber) PeakHoldValue(channel int) float64 {
	if channel < 0 || channel >= len(s.channels) {
		return 0
	}
	return s.channels[channel].peakHold.Get()
}

// Overloaded reports whether the channel has latched an overload since the
// last ResetOverloaded.
func (s *Subscriber) Overloaded(channel int) bool {
	if channel < 0 || channel >= len(s.channels) {
		return false
	}
	return s.channels[channel].overloaded
}

// NumChannels returns the channel count from the last PrepareToPlay.
func (s *Subscriber) NumChannels() int {
	return len(s.channels)
}

// Scale returns the scale this subscriber renders against.
func (s *Subscriber) Scale() *Scale {
	return s.scale
}
