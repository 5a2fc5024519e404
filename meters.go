package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/oszuidwest/zwfm-levelmeter/internal/meter"
	"github.com/oszuidwest/zwfm-levelmeter/internal/types"
)

// LevelPublisher is the meter subscriber behind the web UI. Once per
// dispatch tick it renders the per-channel state into a snapshot that the
// WebSocket handler can read from any goroutine.
type LevelPublisher struct {
	sub *meter.Subscriber
	lm  *meter.LevelMeter

	mu       sync.RWMutex
	snapshot types.LevelSnapshot

	// Reset requests from the web interface are applied on the next
	// dispatch tick so all subscriber state stays on the consumer
	// context.
	resetPending         atomic.Bool
	overloadResetPending atomic.Bool
}

// NewLevelPublisher builds a publisher rendering against the given scale.
func NewLevelPublisher(scale *meter.Scale, meterCfg meter.Config, lm *meter.LevelMeter) (*LevelPublisher, error) {
	p := &LevelPublisher{lm: lm}
	sub, err := meter.NewSubscriber(scale, meter.Hooks{
		Prepared:             p.prepared,
		MeasurementsFinished: p.publish,
	}, meterCfg)
	if err != nil {
		return nil, err
	}
	p.sub = sub
	return p, nil
}

// Subscriber returns the underlying meter subscriber.
func (p *LevelPublisher) Subscriber() *meter.Subscriber {
	return p.sub
}

// Snapshot returns the most recently published meter state.
func (p *LevelPublisher) Snapshot() types.LevelSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// RequestReset schedules a full meter reset for the next dispatch tick.
func (p *LevelPublisher) RequestReset() {
	p.resetPending.Store(true)
}

// RequestOverloadReset schedules clearing of the overload indicators.
func (p *LevelPublisher) RequestOverloadReset() {
	p.overloadResetPending.Store(true)
}

func (p *LevelPublisher) prepared(numChannels int) {
	p.mu.Lock()
	p.snapshot = types.LevelSnapshot{Channels: make([]types.ChannelLevels, numChannels)}
	p.mu.Unlock()
}

// publish runs on the dispatcher tick after all measurements have been
// applied.
func (p *LevelPublisher) publish() {
	if p.resetPending.CompareAndSwap(true, false) {
		// Reset fires MeasurementsFinished again, which publishes
		// the silent state.
		p.sub.Reset()
		return
	}
	if p.overloadResetPending.CompareAndSwap(true, false) {
		p.sub.ResetOverloaded()
	}

	scale := p.sub.Scale()
	floor := scale.MinusInfinityDB()
	channels := make([]types.ChannelLevels, p.sub.NumChannels())
	for ch := range channels {
		peak := p.sub.PeakValue(ch)
		hold := p.sub.PeakHoldValue(ch)
		channels[ch] = types.ChannelLevels{
			Peak:       scale.ProportionForLevel(peak),
			PeakHold:   scale.ProportionForLevel(hold),
			PeakDB:     levelDB(peak, floor),
			PeakHoldDB: levelDB(hold, floor),
			Overloaded: p.sub.Overloaded(ch),
		}
	}

	p.mu.Lock()
	p.snapshot = types.LevelSnapshot{
		Channels: channels,
		Dropped:  p.lm.DroppedMeasurements(),
	}
	p.mu.Unlock()
}

// levelDB converts a linear level to dBFS, floored for display.
func levelDB(level, floor float64) float64 {
	if level <= 0 {
		return floor
	}
	return math.Max(20*math.Log10(level), floor)
}
