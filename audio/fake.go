package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"ptt/encoder"
)

const fakeChunk = 1024

// FakeContext replays a WAV file (or raw samples) as if it were a microphone.
// After the file is exhausted it keeps delivering silence.
type FakeContext struct {
	samples  []float32
	realtime bool
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	w, err := encoder.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wavPath, err)
	}
	if w.SampleRate != encoder.SampleRate || w.Channels != encoder.Channels {
		return nil, fmt.Errorf("%s: want %d Hz mono, got %d Hz %d ch", wavPath, encoder.SampleRate, w.SampleRate, w.Channels)
	}
	return NewFakeContextSamples(w.Float32(), realtime), nil
}

func NewFakeContextSamples(samples []float32, realtime bool) *FakeContext {
	return &FakeContext{samples: samples, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{samples: f.samples, realtime: f.realtime, audioDone: make(chan struct{})}, nil
}

type FakeCapture struct {
	samples   []float32
	realtime  bool
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once every sample of the source has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

// Start begins delivery. In non-realtime mode the audio is pushed at full
// speed, but only once a callback is installed.
func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeChunk) * time.Second / encoder.SampleRate
	}

	go func() {
		defer close(f.feedDone)
		pos := 0
		finished := false
		silence := make([]float32, fakeChunk)
		for {
			select {
			case <-f.stopCh:
				return
			default:
			}

			cb := f.callback()
			if cb == nil {
				time.Sleep(time.Millisecond)
				continue
			}

			if pos < len(f.samples) {
				end := min(pos+fakeChunk, len(f.samples))
				chunk := make([]float32, end-pos)
				copy(chunk, f.samples[pos:end])
				cb(chunk)
				pos = end
				if !f.realtime {
					continue
				}
			} else {
				if !finished {
					finished = true
					close(f.audioDone)
				}
				cb(silence)
			}

			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
