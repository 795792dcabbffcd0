// Package beep plays short audible cues when recording starts and stops.
package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"ptt/session"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// start: high, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// end: lower, a little longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// error: low double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
	soundOnce    sync.Once
)

func initSamples() {
	startSamples = tick(startFreq, 0.08, startVolume, startDecay)
	endSamples = tick(endFreq, 0.1, endVolume, endDecay)
	errorSamples = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// tick renders a mono sine with exponential decay.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * math.MaxInt16 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

func Init() {
	soundOnce.Do(func() {
		initSamples()
		initPlayer()
	})
}

func play(samples func() []int16) {
	if disabled.Load() {
		return
	}
	Init()
	go playSamples(samples())
}

func PlayStart() { play(func() []int16 { return startSamples }) }
func PlayEnd()   { play(func() []int16 { return endSamples }) }
func PlayError() { play(func() []int16 { return errorSamples }) }

// Cues is a session.Sink that beeps on entering Recording and on leaving
// it, whether towards Processing or straight back to Idle.
type Cues struct {
	prev  session.State
	start func()
	end   func()
}

func NewCues() *Cues {
	return &Cues{start: PlayStart, end: PlayEnd}
}

func (c *Cues) HandleEvent(e session.Event) {
	if e.Kind != session.EventState || e.State == c.prev {
		return
	}
	switch {
	case e.State == session.Recording:
		c.start()
	case c.prev == session.Recording:
		c.end()
	}
	c.prev = e.State
}
