package meter

import (
	"sync"
	"time"
)

// Dispatcher is the shared periodic ticker behind every level meter. One
// dispatcher serves the whole process: its single goroutine is the
// consumer context on which all draining and fan-out happens, one meter at
// a time, so ticks never overlap. The ticker only runs while at least one
// meter has at least one subscriber; it stops as soon as the last meter
// detaches.
type Dispatcher struct {
	interval time.Duration

	mu     sync.Mutex
	meters map[*LevelMeter]struct{}
	stop   chan struct{}
}

// NewDispatcher builds a dispatcher ticking at the given rate. A rate of
// zero or less falls back to DefaultRefreshRateHz.
func NewDispatcher(refreshRateHz int) *Dispatcher {
	if refreshRateHz <= 0 {
		refreshRateHz = DefaultRefreshRateHz
	}
	return &Dispatcher{
		interval: time.Second / time.Duration(refreshRateHz),
		meters:   make(map[*LevelMeter]struct{}),
	}
}

// attach registers a meter and starts the ticker if it was idle.
func (d *Dispatcher) attach(m *LevelMeter) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.meters[m] = struct{}{}
	if d.stop == nil {
		d.stop = make(chan struct{})
		go d.run(d.stop)
	}
}

// detach removes a meter and stops the ticker when no meters remain.
func (d *Dispatcher) detach(m *LevelMeter) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.meters, m)
	if len(d.meters) == 0 && d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

// Running reports whether the ticker is currently active.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil
}

// Close stops the ticker regardless of attached meters. Meant for final
// process shutdown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.meters = make(map[*LevelMeter]struct{})
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

func (d *Dispatcher) run(stop chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			d.mu.Lock()
			snapshot := make([]*LevelMeter, 0, len(d.meters))
			for m := range d.meters {
				snapshot = append(snapshot, m)
			}
			d.mu.Unlock()

			for _, m := range snapshot {
				m.timerCallback(now)
			}
		}
	}
}
