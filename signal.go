package main

import (
	"math"
	"time"

	"github.com/oszuidwest/zwfm-levelmeter/internal/meter"
)

// Test signal parameters. The amplitude sweeps slowly so the meters move
// across their full range, with a short full-scale burst every few seconds
// to exercise the peak-hold and overload indicators.
const (
	signalSampleRate = 48000
	signalBlockSize  = 480 // 10 ms blocks
	signalToneHz     = 440.0
	signalSweepHz    = 0.1
	burstInterval    = 9 * time.Second
	burstLength      = 3 // blocks
	burstLevel       = 1.02
)

// SignalGenerator stands in for the audio thread: it produces tone blocks
// at audio-block rate on its own goroutine and feeds them to the meter.
// It is the meter's single producer context.
type SignalGenerator struct {
	lm          *meter.LevelMeter
	numChannels int

	stop chan struct{}
	done chan struct{}
}

// NewSignalGenerator creates a generator for the given channel count.
func NewSignalGenerator(lm *meter.LevelMeter, numChannels int) *SignalGenerator {
	return &SignalGenerator{
		lm:          lm,
		numChannels: numChannels,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins producing blocks.
func (g *SignalGenerator) Start() {
	go g.run()
}

// Stop ends production and waits for the producer goroutine to exit.
func (g *SignalGenerator) Stop() {
	close(g.stop)
	<-g.done
}

func (g *SignalGenerator) run() {
	defer close(g.done)

	// All buffers are allocated up front; the block loop is
	// allocation-free like a real audio callback.
	block := make([][]float64, g.numChannels)
	for ch := range block {
		block[ch] = make([]float64, signalBlockSize)
	}

	blockDur := time.Second * signalBlockSize / signalSampleRate
	ticker := time.NewTicker(blockDur)
	defer ticker.Stop()

	var phase, sweepPhase float64
	phaseInc := 2 * math.Pi * signalToneHz / signalSampleRate
	sweepInc := 2 * math.Pi * signalSweepHz / signalSampleRate

	lastBurst := time.Now()
	burstRemaining := 0

	for {
		select {
		case <-g.stop:
			return
		case now := <-ticker.C:
			if burstRemaining == 0 && now.Sub(lastBurst) >= burstInterval {
				lastBurst = now
				burstRemaining = burstLength
			}

			for i := 0; i < signalBlockSize; i++ {
				amp := 0.05 + 0.85*(0.5+0.5*math.Sin(sweepPhase))
				if burstRemaining > 0 {
					amp = burstLevel
				}
				sample := amp * math.Sin(phase)
				for ch := range block {
					// Slightly different gain per channel so
					// the bars are distinguishable.
					gain := 1.0 - 0.15*float64(ch)
					block[ch][i] = sample * gain
				}
				phase += phaseInc
				sweepPhase += sweepInc
			}
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
			if burstRemaining > 0 {
				burstRemaining--
			}

			meter.MeasureBlock(g.lm, block)
		}
	}
}
