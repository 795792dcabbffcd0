package doctor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"ptt/audio"
	"ptt/encoder"
	"ptt/hotkey"
	"ptt/transcriber"
	"ptt/typer"
	"ptt/window"
)

// Options selects what the default checks exercise.
type Options struct {
	Hotkey      hotkey.Spec
	Device      string
	Transcriber transcriber.Config
	// Sample, if set, is a 16 kHz mono WAV sent for a full transcription.
	Sample string
}

func Checks(opts Options) []Check {
	return []Check{
		{
			Name: "Hotkey",
			Hint: hotkeyHint,
			Run:  func(ctx context.Context) (string, error) { return checkHotkey(ctx, opts.Hotkey) },
		},
		{
			Name: "Microphone",
			Run:  func(ctx context.Context) (string, error) { return checkMic(ctx, opts.Device) },
		},
		{
			Name: "Transcription endpoint",
			Run: func(ctx context.Context) (string, error) {
				tr, err := transcriber.New(opts.Transcriber)
				if err != nil {
					return "", err
				}
				return CheckTranscriber(ctx, tr, opts.Sample)
			},
		},
		{
			Name: "Focused window",
			Hint: focusHint,
			Run: func(ctx context.Context) (string, error) {
				r, err := window.New()
				if err != nil {
					return "", err
				}
				return CheckFocus(r)
			},
		},
		{
			Name: "Keystroke output",
			Hint: typerHint,
			Run:  func(context.Context) (string, error) { return typer.Verify() },
		},
	}
}

func checkHotkey(ctx context.Context, spec hotkey.Spec) (string, error) {
	msg, err := hotkey.Diagnose(spec)
	if err != nil {
		return "", err
	}
	hk, err := hotkey.New(spec)
	if err != nil {
		return "", err
	}
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("register %s: %w", spec, err)
	}
	defer hk.Unregister()

	fmt.Printf("  %s\n  Press %s...\n", msg, spec)
	select {
	case <-hk.Keydown():
	case <-time.After(10 * time.Second):
		return "", errors.New("timeout waiting for hotkey")
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case <-hk.Keyup():
	case <-time.After(5 * time.Second):
	}
	return spec.String() + " detected", nil
}

func checkMic(ctx context.Context, name string) (string, error) {
	actx, err := audio.NewContext()
	if err != nil {
		return "", fmt.Errorf("cannot connect to audio: %w", err)
	}
	defer actx.Close()

	dev, err := audio.FindDevice(actx, name)
	if err != nil {
		return "", err
	}
	capture, err := actx.NewCapture(dev, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
	if err != nil {
		return "", err
	}
	defer capture.Close()

	fmt.Println("  Speak for 2 seconds...")
	samples, err := Record(ctx, capture, 2*time.Second)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", errors.New("no audio captured")
	}
	peak := Peak(samples)
	detail := fmt.Sprintf("%s: %.1fs captured, peak %.2f", capture.DeviceName(),
		float64(len(samples))/encoder.SampleRate, peak)
	if peak < 0.01 {
		return "", fmt.Errorf("%s (silent; is the microphone muted?)", detail)
	}
	return detail, nil
}

// Record captures for d and returns the concatenated samples.
func Record(ctx context.Context, capture audio.CaptureDevice, d time.Duration) ([]float32, error) {
	var mu sync.Mutex
	var samples []float32
	capture.SetCallback(func(s []float32) {
		mu.Lock()
		samples = append(samples, s...)
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		return nil, err
	}

	t := time.NewTimer(d)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}
	capture.Stop()
	capture.ClearCallback()

	mu.Lock()
	defer mu.Unlock()
	return samples, ctx.Err()
}

func Peak(samples []float32) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}

// CheckTranscriber warms the provider's connection and, given a sample,
// runs a full transcription.
func CheckTranscriber(ctx context.Context, tr transcriber.Transcriber, sample string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	detail := tr.Name() + " reachable"
	if w, ok := tr.(transcriber.Warmer); ok {
		if err := w.Warm(ctx); err != nil {
			return "", fmt.Errorf("%s unreachable: %w", tr.Name(), err)
		}
	}
	if sample == "" {
		return detail, nil
	}

	fake, err := audio.NewFakeContext(sample, false)
	if err != nil {
		return "", err
	}
	capture, _ := fake.NewCapture(nil, audio.CaptureConfig{})
	defer capture.Close()

	fc := capture.(*audio.FakeCapture)
	var mu sync.Mutex
	var samples []float32
	fc.SetCallback(func(s []float32) {
		mu.Lock()
		samples = append(samples, s...)
		mu.Unlock()
	})
	if err := fc.Start(); err != nil {
		return "", err
	}
	select {
	case <-fc.AudioDone():
	case <-ctx.Done():
		return "", ctx.Err()
	}
	fc.Stop()

	mu.Lock()
	data, err := encoder.Encode(encoder.FormatWAV, [][]float32{samples})
	mu.Unlock()
	if err != nil {
		return "", err
	}
	res, err := tr.Transcribe(ctx, transcriber.Audio{Data: data, Format: encoder.FormatWAV})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return fmt.Sprintf("%s transcribed %q", tr.Name(), res.Text), nil
}

func CheckFocus(r window.Resolver) (string, error) {
	t, ok := r.Focused()
	if !ok || !t.Valid() {
		return "", errors.New("no focused window outside this terminal could be resolved")
	}
	return "focused " + t.String(), nil
}
