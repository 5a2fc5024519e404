package alert

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
	"github.com/oszuidwest/zwfm-levelmeter/internal/meter"
)

// Watcher ties the detector and notifier to a level meter: it subscribes
// like any other observer and evaluates the signal once per dispatch tick.
type Watcher struct {
	cfg      *config.Config
	detector *Detector
	notifier *Notifier
	sub      *meter.Subscriber

	// overloaded mirrors the subscriber's latched state so overload
	// notifications fire on the rising edge only.
	overloaded bool

	// inSilence and overloadActive mirror the per-tick state for
	// readers outside the consumer context, such as the status payload.
	inSilence      atomic.Bool
	overloadActive atomic.Bool

	// overloadResetPending defers reset requests from the web
	// interface to the next dispatch tick.
	overloadResetPending atomic.Bool
}

// NewWatcher builds a watcher rendering against the given scale and meter
// configuration. Subscribe its Subscriber to a meter to activate it.
func NewWatcher(cfg *config.Config, scale *meter.Scale, meterCfg meter.Config) (*Watcher, error) {
	w := &Watcher{
		cfg:      cfg,
		detector: NewDetector(),
		notifier: NewNotifier(cfg),
	}

	sub, err := meter.NewSubscriber(scale, meter.Hooks{
		Prepared: func(int) {
			w.detector.Reset()
			w.inSilence.Store(false)
			w.overloadActive.Store(false)
		},
		MeasurementsFinished: w.evaluate,
	}, meterCfg)
	if err != nil {
		return nil, err
	}
	w.sub = sub
	return w, nil
}

// Subscriber returns the meter subscriber driving this watcher.
func (w *Watcher) Subscriber() *meter.Subscriber {
	return w.sub
}

// Notifier returns the notifier, for wiring test triggers.
func (w *Watcher) Notifier() *Notifier {
	return w.notifier
}

// InSilence reports whether the watcher currently sees confirmed silence.
// Safe to call from any goroutine.
func (w *Watcher) InSilence() bool {
	return w.inSilence.Load()
}

// OverloadActive reports whether any channel has a latched overload. Safe
// to call from any goroutine.
func (w *Watcher) OverloadActive() bool {
	return w.overloadActive.Load()
}

// RequestOverloadReset schedules clearing of the overload indicators and
// re-arming of overload notifications for the next dispatch tick.
func (w *Watcher) RequestOverloadReset() {
	w.overloadResetPending.Store(true)
}

// evaluate runs once per dispatch tick, after all measurements for the
// tick have been applied.
func (w *Watcher) evaluate() {
	if w.overloadResetPending.CompareAndSwap(true, false) {
		w.sub.ResetOverloaded()
		w.overloaded = false
		w.notifier.ClearOverload()
	}

	var peak float64
	overloaded := false
	for ch := 0; ch < w.sub.NumChannels(); ch++ {
		if v := w.sub.PeakValue(ch); v > peak {
			peak = v
		}
		if w.sub.Overloaded(ch) {
			overloaded = true
		}
	}

	floor := w.sub.Scale().MinusInfinityDB()
	peakDB := floor
	if peak > 0 {
		peakDB = math.Max(20*math.Log10(peak), floor)
	}

	snap := w.cfg.Snapshot()
	ev := w.detector.Update(peakDB, SilenceConfig{
		ThresholdDB: snap.SilenceThreshold,
		Duration:    snap.SilenceDuration,
		Recovery:    snap.SilenceRecovery,
	}, time.Now())
	w.inSilence.Store(w.detector.InSilence())
	w.notifier.HandleSilence(ev)

	if overloaded && !w.overloaded {
		w.notifier.HandleOverload(peakDB)
	}
	w.overloaded = overloaded
	w.overloadActive.Store(overloaded)
}
