package meter

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sample is the closed set of sample formats a block measurement accepts.
type Sample interface {
	~float32 | ~float64
}

// AudioBuffer is the minimal per-channel view of an audio block that
// MeasureBlockBuffer reads from. Host buffer types satisfy it with thin
// adapters.
type AudioBuffer[S Sample] interface {
	NumChannels() int
	Channel(index int) []S
}

// LevelMeter accepts raw audio blocks on a single producer context and
// fans per-channel peak measurements out to its subscribers on the shared
// dispatcher tick. The producer path never blocks, locks or allocates;
// when the handoff queue is full the newest measurement is dropped.
type LevelMeter struct {
	cfg        Config
	dispatcher *Dispatcher
	queue      *measurementQueue
	prepared   atomic.Int32

	// mu guards the subscriber registry. It is consumer-context only;
	// the producer path never takes it.
	mu          sync.Mutex
	subscribers map[int]*Subscriber
	nextHandle  int
	closed      bool
}

// NewLevelMeter builds a meter bound to the given dispatcher. The
// dispatcher starts ticking when the first subscriber subscribes and stops
// when the last meter loses its last subscriber.
func NewLevelMeter(d *Dispatcher, cfg Config) *LevelMeter {
	cfg = cfg.withDefaults()
	return &LevelMeter{
		cfg:         cfg,
		dispatcher:  d,
		queue:       newMeasurementQueue(cfg.QueueCapacity),
		subscribers: make(map[int]*Subscriber),
		nextHandle:  1,
	}
}

// PrepareToPlay records the channel count used to bound subsequent block
// measurements. Queue contents are unaffected.
func (m *LevelMeter) PrepareToPlay(numChannels int) {
	if numChannels < 0 {
		numChannels = 0
	}
	m.prepared.Store(int32(numChannels))
}

// NumPreparedChannels returns the channel count from the last
// PrepareToPlay.
func (m *LevelMeter) NumPreparedChannels() int {
	return int(m.prepared.Load())
}

// DroppedMeasurements returns how many measurements were lost to queue
// backpressure. Purely observational; dropping is a normal outcome.
func (m *LevelMeter) DroppedMeasurements() uint64 {
	return m.queue.droppedCount()
}

// Config returns the meter's effective configuration.
func (m *LevelMeter) Config() Config {
	return m.cfg
}

// MeasureBlock extracts the absolute peak of each channel in the block and
// queues one measurement per channel. Realtime safe as long as it is
// called from a single producer context; measurements are silently lost
// when the queue is full.
func MeasureBlock[S Sample](m *LevelMeter, channels [][]S) {
	n := m.NumPreparedChannels()
	if len(channels) < n {
		n = len(channels)
	}
	for ch := 0; ch < n; ch++ {
		m.queue.push(Measurement{Channel: ch, Peak: blockPeak(channels[ch])})
	}
}

// MeasureBlockBuffer is MeasureBlock for host buffer abstractions.
func MeasureBlockBuffer[S Sample](m *LevelMeter, buf AudioBuffer[S]) {
	n := m.NumPreparedChannels()
	if buf.NumChannels() < n {
		n = buf.NumChannels()
	}
	for ch := 0; ch < n; ch++ {
		m.queue.push(Measurement{Channel: ch, Peak: blockPeak(buf.Channel(ch))})
	}
}

func blockPeak[S Sample](samples []S) float64 {
	var peak float64
	for _, s := range samples {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// addSubscriber registers a subscriber and attaches the meter to the
// dispatcher when the registry goes from empty to non-empty.
func (m *LevelMeter) addSubscriber(s *Subscriber) (int, bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, false
	}
	handle := m.nextHandle
	m.nextHandle++
	m.subscribers[handle] = s
	first := len(m.subscribers) == 1
	m.mu.Unlock()

	if first {
		m.dispatcher.attach(m)
	}
	return handle, true
}

// removeSubscriber drops a subscription handle and detaches the meter from
// the dispatcher when the registry empties.
func (m *LevelMeter) removeSubscriber(handle int) {
	m.mu.Lock()
	if _, ok := m.subscribers[handle]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.subscribers, handle)
	last := len(m.subscribers) == 0 && !m.closed
	m.mu.Unlock()

	if last {
		m.dispatcher.detach(m)
	}
}

func (m *LevelMeter) subscribed(handle int) bool {
	m.mu.Lock()
	_, ok := m.subscribers[handle]
	m.mu.Unlock()
	return ok
}

type subscriberEntry struct {
	handle int
	sub    *Subscriber
}

// timerCallback drains every measurement queued at the start of the tick
// and fans each out to the subscribers, then fires MeasurementsFinished
// once per subscriber. Invoked by the dispatcher on the consumer context;
// ticks never overlap. Liveness is re-checked before every delivery so a
// subscriber that unsubscribes inside its own callback receives nothing
// further.
func (m *LevelMeter) timerCallback(now time.Time) {
	m.mu.Lock()
	snapshot := make([]subscriberEntry, 0, len(m.subscribers))
	for handle, sub := range m.subscribers {
		snapshot = append(snapshot, subscriberEntry{handle, sub})
	}
	m.mu.Unlock()

	// Bounded by the queue size: measurements pushed during the drain
	// wait for the next tick.
	for pending := m.queue.size(); pending > 0; pending-- {
		meas, ok := m.queue.pop()
		if !ok {
			break
		}
		for _, e := range snapshot {
			if !m.subscribed(e.handle) {
				continue
			}
			e.sub.updateWithMeasurementAt(meas, now)
		}
	}

	for _, e := range snapshot {
		if !m.subscribed(e.handle) {
			continue
		}
		e.sub.measurementUpdatesFinished()
	}
}

// Close unsubscribes all remaining subscribers and releases the meter's
// dispatcher reference, stopping the shared tick if this meter was the
// last one holding it. The meter must not be used afterwards.
func (m *LevelMeter) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	had := len(m.subscribers) > 0
	subs := make([]*Subscriber, 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		subs = append(subs, sub)
	}
	m.subscribers = make(map[int]*Subscriber)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.meter = nil
		sub.handle = 0
	}
	if had {
		m.dispatcher.detach(m)
	}
}
