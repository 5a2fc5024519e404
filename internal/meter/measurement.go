// Package meter provides realtime-safe audio level metering. A LevelMeter
// can be fed peak measurements from an audio thread and read from a
// consumer (UI) context without the audio thread ever blocking or
// allocating.
package meter

// Measurement is a single peak reading for one channel, taken over one
// audio block. Measurements are copied by value through the handoff queue.
type Measurement struct {
	Channel int
	Peak    float64
}
