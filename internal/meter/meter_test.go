package meter

import (
	"testing"
	"time"
)

// newIdleMeter returns a meter on a dispatcher whose ticker can never
// fire within the test, so timerCallback is driven by hand.
func newIdleMeter(t *testing.T, cfg Config) (*LevelMeter, *Dispatcher) {
	t.Helper()
	d := NewDispatcher(DefaultRefreshRateHz)
	d.interval = time.Hour
	m := NewLevelMeter(d, cfg)
	t.Cleanup(func() {
		m.Close()
		d.Close()
	})
	return m, d
}

type recordingSubscriber struct {
	sub      *Subscriber
	peaks    map[int][]float64
	finished int
}

func newRecordingSubscriber(t *testing.T, cfg Config) *recordingSubscriber {
	t.Helper()
	r := &recordingSubscriber{peaks: make(map[int][]float64)}
	sub, err := NewSubscriber(nil, Hooks{
		Prepared:             func(int) {},
		MeasurementsFinished: func() { r.finished++ },
	}, cfg)
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	r.sub = sub
	return r
}

// TestMeasureBlockQueuesPerChannel verifies one measurement per prepared
// channel with the block's absolute peak.
func TestMeasureBlockQueuesPerChannel(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(2)

	MeasureBlock(m, [][]float64{
		{0.1, -0.7, 0.3},
		{0.0, 0.2, -0.9},
	})

	if got := m.queue.size(); got != 2 {
		t.Fatalf("queue size = %d, want 2", got)
	}

	first, _ := m.queue.pop()
	second, _ := m.queue.pop()
	if first.Channel != 0 || first.Peak != 0.7 {
		t.Errorf("channel 0 measurement = %+v, want peak 0.7", first)
	}
	if second.Channel != 1 || second.Peak != 0.9 {
		t.Errorf("channel 1 measurement = %+v, want peak 0.9", second)
	}
}

// TestMeasureBlockClampsToPrepared verifies extra block channels are
// ignored.
func TestMeasureBlockClampsToPrepared(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(1)

	MeasureBlock(m, [][]float64{{0.5}, {0.8}, {0.9}})
	if got := m.queue.size(); got != 1 {
		t.Errorf("queue size = %d, want 1", got)
	}

	// Fewer block channels than prepared is fine too.
	m.PrepareToPlay(4)
	MeasureBlock(m, [][]float64{{0.5}})
	if got := m.queue.size(); got != 2 {
		t.Errorf("queue size = %d, want 2", got)
	}
}

// TestMeasureBlockFloat32 verifies the generic entry point accepts
// float32 sample buffers.
func TestMeasureBlockFloat32(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(1)

	MeasureBlock(m, [][]float32{{0.25, -0.5}})
	meas, ok := m.queue.pop()
	if !ok {
		t.Fatal("no measurement queued")
	}
	if meas.Peak != 0.5 {
		t.Errorf("peak = %v, want 0.5", meas.Peak)
	}
}

type sliceBuffer struct {
	channels [][]float64
}

func (b sliceBuffer) NumChannels() int            { return len(b.channels) }
func (b sliceBuffer) Channel(index int) []float64 { return b.channels[index] }

// TestMeasureBlockBuffer verifies the buffer-shaped entry point.
func TestMeasureBlockBuffer(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(2)

	MeasureBlockBuffer[float64](m, sliceBuffer{channels: [][]float64{{0.1}, {-0.6}}})
	if got := m.queue.size(); got != 2 {
		t.Fatalf("queue size = %d, want 2", got)
	}
	m.queue.pop()
	meas, _ := m.queue.pop()
	if meas.Peak != 0.6 {
		t.Errorf("channel 1 peak = %v, want 0.6", meas.Peak)
	}
}

// TestMeterBackpressure verifies measurements beyond the queue capacity
// are dropped and counted, never blocking the producer.
func TestMeterBackpressure(t *testing.T) {
	m, _ := newIdleMeter(t, Config{QueueCapacity: 4})
	m.PrepareToPlay(1)

	for i := 0; i < 10; i++ {
		MeasureBlock(m, [][]float64{{0.5}})
	}

	if got := m.queue.size(); got != 4 {
		t.Errorf("queue size = %d, want 4", got)
	}
	if got := m.DroppedMeasurements(); got != 6 {
		t.Errorf("DroppedMeasurements = %d, want 6", got)
	}
}

// TestTimerCallbackFanOut verifies every subscriber receives every queued
// measurement and MeasurementsFinished exactly once per tick.
func TestTimerCallbackFanOut(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(2)

	a := newRecordingSubscriber(t, Config{})
	b := newRecordingSubscriber(t, Config{})
	a.sub.PrepareToPlay(2)
	b.sub.PrepareToPlay(2)
	a.sub.SubscribeToLevelMeter(m)
	b.sub.SubscribeToLevelMeter(m)

	MeasureBlock(m, [][]float64{{0.5}, {0.8}})
	m.timerCallback(time.Now())

	for name, r := range map[string]*recordingSubscriber{"a": a, "b": b} {
		if got := r.sub.PeakValue(0); got != 0.5 {
			t.Errorf("subscriber %s channel 0 peak = %v, want 0.5", name, got)
		}
		if got := r.sub.PeakValue(1); got != 0.8 {
			t.Errorf("subscriber %s channel 1 peak = %v, want 0.8", name, got)
		}
		if r.finished != 1 {
			t.Errorf("subscriber %s MeasurementsFinished fired %d times, want 1", name, r.finished)
		}
	}

	// An empty tick still fires MeasurementsFinished.
	m.timerCallback(time.Now())
	if a.finished != 2 {
		t.Errorf("MeasurementsFinished fired %d times after empty tick, want 2", a.finished)
	}

	if got := m.queue.size(); got != 0 {
		t.Errorf("queue not drained, size = %d", got)
	}
}

// TestUnsubscribeDuringCallback verifies a subscriber that unsubscribes
// inside its own hook receives nothing further, without deadlocking the
// tick.
func TestUnsubscribeDuringCallback(t *testing.T) {
	m, d := newIdleMeter(t, Config{})
	m.PrepareToPlay(1)

	finished := 0
	var sub *Subscriber
	sub, err := NewSubscriber(nil, Hooks{
		Prepared: func(int) {},
		MeasurementsFinished: func() {
			finished++
			sub.UnsubscribeFromLevelMeter()
		},
	}, Config{})
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	sub.PrepareToPlay(1)
	sub.SubscribeToLevelMeter(m)

	m.timerCallback(time.Now())
	if finished != 1 {
		t.Fatalf("MeasurementsFinished fired %d times, want 1", finished)
	}
	if d.Running() {
		t.Error("dispatcher still running after last subscriber left")
	}

	// Subsequent ticks deliver nothing.
	MeasureBlock(m, [][]float64{{0.9}})
	m.timerCallback(time.Now())
	if finished != 1 {
		t.Errorf("unsubscribed hook fired again, count = %d", finished)
	}
	if got := sub.PeakValue(0); got != 0 {
		t.Errorf("unsubscribed subscriber received a measurement: %v", got)
	}
}

// TestUnsubscribeDuringMeasurement verifies a subscriber leaving inside
// its measurement hook receives no further deliveries in the same tick.
func TestUnsubscribeDuringMeasurement(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(1)

	delivered := 0
	var sub *Subscriber
	sub, err := NewSubscriber(nil, Hooks{
		Prepared: func(int) {},
		Measurement: func(Measurement) {
			delivered++
			sub.UnsubscribeFromLevelMeter()
		},
	}, Config{})
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	sub.PrepareToPlay(1)
	sub.SubscribeToLevelMeter(m)

	// Three queued measurements; the first delivery unsubscribes.
	MeasureBlock(m, [][]float64{{0.3}})
	MeasureBlock(m, [][]float64{{0.5}})
	MeasureBlock(m, [][]float64{{0.7}})
	m.timerCallback(time.Now())

	if delivered != 1 {
		t.Errorf("measurement hook fired %d times, want 1", delivered)
	}
	if got := sub.PeakValue(0); got != 0.3 {
		t.Errorf("peak = %v, want only the first measurement applied", got)
	}
}

// TestMeasurementHookContent verifies the hook sees each measurement as
// delivered.
func TestMeasurementHookContent(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(2)

	var seen []Measurement
	sub, err := NewSubscriber(nil, Hooks{
		Prepared:    func(int) {},
		Measurement: func(meas Measurement) { seen = append(seen, meas) },
	}, Config{})
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	sub.PrepareToPlay(2)
	sub.SubscribeToLevelMeter(m)

	MeasureBlock(m, [][]float64{{0.5}, {0.8}})
	m.timerCallback(time.Now())

	want := []Measurement{{Channel: 0, Peak: 0.5}, {Channel: 1, Peak: 0.8}}
	if len(seen) != len(want) {
		t.Fatalf("hook fired %d times, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("measurement %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

// TestUnsubscribeOtherDuringCallback verifies a hook can remove a peer
// subscriber and the peer receives no further calls in the same tick.
func TestUnsubscribeOtherDuringCallback(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	m.PrepareToPlay(1)

	victim := newRecordingSubscriber(t, Config{})
	victim.sub.PrepareToPlay(1)

	remover, err := NewSubscriber(nil, Hooks{
		Prepared:             func(int) {},
		MeasurementsFinished: func() { victim.sub.UnsubscribeFromLevelMeter() },
	}, Config{})
	if err != nil {
		t.Fatalf("NewSubscriber failed: %v", err)
	}
	remover.PrepareToPlay(1)

	remover.SubscribeToLevelMeter(m)
	victim.sub.SubscribeToLevelMeter(m)

	// Two ticks: whichever fan-out order the first tick uses, by the
	// second tick the victim is certainly gone.
	m.timerCallback(time.Now())
	after := victim.finished
	m.timerCallback(time.Now())
	if victim.finished != after {
		t.Errorf("removed subscriber still invoked: %d then %d", after, victim.finished)
	}
}

// TestSubscribeReplacesPrevious verifies subscribing to a second meter
// ends the first subscription.
func TestSubscribeReplacesPrevious(t *testing.T) {
	m1, _ := newIdleMeter(t, Config{})
	m2, _ := newIdleMeter(t, Config{})
	m1.PrepareToPlay(1)
	m2.PrepareToPlay(1)

	r := newRecordingSubscriber(t, Config{})
	r.sub.PrepareToPlay(1)
	r.sub.SubscribeToLevelMeter(m1)
	r.sub.SubscribeToLevelMeter(m2)

	MeasureBlock(m1, [][]float64{{0.9}})
	m1.timerCallback(time.Now())
	if got := r.sub.PeakValue(0); got != 0 {
		t.Errorf("subscriber still receiving from the first meter: %v", got)
	}

	MeasureBlock(m2, [][]float64{{0.4}})
	m2.timerCallback(time.Now())
	if got := r.sub.PeakValue(0); got != 0.4 {
		t.Errorf("subscriber not receiving from the second meter: %v", got)
	}
}

// TestMeterClose verifies Close ends all subscriptions and refuses new
// ones.
func TestMeterClose(t *testing.T) {
	d := NewDispatcher(DefaultRefreshRateHz)
	d.interval = time.Hour
	defer d.Close()
	m := NewLevelMeter(d, Config{})
	m.PrepareToPlay(1)

	r := newRecordingSubscriber(t, Config{})
	r.sub.PrepareToPlay(1)
	r.sub.SubscribeToLevelMeter(m)

	m.Close()
	if d.Running() {
		t.Error("dispatcher running after meter closed")
	}

	// Unsubscribe after close is a no-op, not a panic.
	r.sub.UnsubscribeFromLevelMeter()

	late := newRecordingSubscriber(t, Config{})
	late.sub.PrepareToPlay(1)
	late.sub.SubscribeToLevelMeter(m)
	if d.Running() {
		t.Error("closed meter accepted a new subscriber")
	}
}

// TestConfigDefaults verifies zero-value configuration picks up the
// documented defaults.
func TestConfigDefaults(t *testing.T) {
	m, _ := newIdleMeter(t, Config{})
	cfg := m.Config()

	if cfg.RefreshRateHz != DefaultRefreshRateHz {
		t.Errorf("RefreshRateHz = %d, want %d", cfg.RefreshRateHz, DefaultRefreshRateHz)
	}
	if cfg.PeakHoldTime != DefaultPeakHoldTime {
		t.Errorf("PeakHoldTime = %v, want %v", cfg.PeakHoldTime, DefaultPeakHoldTime)
	}
	if cfg.OverloadTriggerLevel != DefaultOverloadTriggerLevel {
		t.Errorf("OverloadTriggerLevel = %v, want %v", cfg.OverloadTriggerLevel, DefaultOverloadTriggerLevel)
	}
	if cfg.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("QueueCapacity = %d, want %d", cfg.QueueCapacity, DefaultQueueCapacity)
	}
}
