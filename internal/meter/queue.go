package meter

import "sync/atomic"

// measurementQueue is a bounded single-producer/single-consumer queue.
// push is only called from the audio context, pop only from the dispatcher
// tick. Neither side blocks or allocates; when the queue is full the new
// measurement is dropped.
type measurementQueue struct {
	slots    []Measurement
	readPos  atomic.Uint64
	writePos atomic.Uint64
	dropped  atomic.Uint64
}

func newMeasurementQueue(capacity int) *measurementQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &measurementQueue{slots: make([]Measurement, capacity)}
}

// push appends a measurement. Producer side only. Returns false when the
// queue is full, in which case the measurement is lost.
func (q *measurementQueue) push(m Measurement) bool {
	w := q.writePos.Load()
	r := q.readPos.Load()
	if w-r >= uint64(len(q.slots)) {
		q.dropped.Add(1)
		return false
	}
	q.slots[w%uint64(len(q.slots))] = m
	q.writePos.Store(w + 1)
	return true
}

// pop removes the oldest measurement. Consumer side only.
func (q *measurementQueue) pop() (Measurement, bool) {
	r := q.readPos.Load()
	if r == q.writePos.Load() {
		return Measurement{}, false
	}
	m := q.slots[r%uint64(len(q.slots))]
	q.readPos.Store(r + 1)
	return m, true
}

// size returns the number of queued measurements.
func (q *measurementQueue) size() int {
	return int(q.writePos.Load() - q.readPos.Load())
}

func (q *measurementQueue) capacity() int {
	return len(q.slots)
}

// droppedCount returns how many measurements were lost to a full queue.
func (q *measurementQueue) droppedCount() uint64 {
	return q.dropped.Load()
}
