package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ptt/audio"
	"ptt/config"
	"ptt/encoder"
	"ptt/hotkey"
	"ptt/session"
	"ptt/transcriber"
	"ptt/typer"
	"ptt/window"
)

func writeToneWAV(t *testing.T, seconds float64) string {
	t.Helper()
	n := int(seconds * encoder.SampleRate)
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/encoder.SampleRate))
	}
	data, err := encoder.Encode(encoder.FormatWAV, [][]float32{samples})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Provider = transcriber.ProviderFake
	cfg.Settle = "1ms"
	cfg.CharDelay = "0s"
	return cfg
}

func TestTestModeTypesTranscript(t *testing.T) {
	wav := writeToneWAV(t, 1)
	var out bytes.Buffer
	script := strings.NewReader("KEYDOWN\nSLEEP 300\nKEYUP\nWAIT\nQUIT\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := runTestMode(ctx, testConfig(), transcriber.NewFake("hello   from\ttest ", nil), wav, script, &out)
	if err != nil {
		t.Fatalf("runTestMode: %v", err)
	}
	if got := out.String(); got != "TYPED hello from test\n" {
		t.Errorf("output = %q", got)
	}
}

func TestTestModeTwoSessions(t *testing.T) {
	wav := writeToneWAV(t, 0.5)
	var out bytes.Buffer
	script := strings.NewReader("KEYDOWN\nSLEEP 100\nKEYUP\nWAIT\nKEYDOWN\nSLEEP 100\nKEYUP\nWAIT\nQUIT\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tr := transcriber.NewFake("again", nil)
	if err := runTestMode(ctx, testConfig(), tr, wav, script, &out); err != nil {
		t.Fatalf("runTestMode: %v", err)
	}
	if got := strings.Count(out.String(), "TYPED again\n"); got != 2 {
		t.Errorf("typed %d times, output %q", got, out.String())
	}
	if len(tr.Calls()) != 2 {
		t.Errorf("transcriber calls = %d", len(tr.Calls()))
	}
}

func TestTestModeTranscriptionFailureTypesNothing(t *testing.T) {
	wav := writeToneWAV(t, 0.5)
	var out bytes.Buffer
	script := strings.NewReader("KEYDOWN\nSLEEP 100\nKEYUP\nWAIT\nQUIT\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tr := transcriber.NewFake("", io.ErrUnexpectedEOF)
	if err := runTestMode(ctx, testConfig(), tr, wav, script, &out); err != nil {
		t.Fatalf("runTestMode: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing typed", out.String())
	}
}

func TestTestModeBadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("not a wav"), 0o644)
	err := runTestMode(context.Background(), testConfig(), transcriber.NewEcho(), path, strings.NewReader("QUIT\n"), io.Discard)
	if err == nil {
		t.Fatal("expected error for invalid WAV")
	}
}

func TestRunScriptRejectsUnknownCommand(t *testing.T) {
	hk := hotkey.NewFake()
	err := runScript(context.Background(), strings.NewReader("JUMP\n"), hk, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "JUMP") {
		t.Fatalf("err = %v", err)
	}
	if err := runScript(context.Background(), strings.NewReader("SLEEP x\n"), hk, nil, nil); err == nil {
		t.Fatal("expected error for bad SLEEP")
	}
}

func TestRunScriptWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := runScript(ctx, strings.NewReader("WAIT\n"), hotkey.NewFake(), make(chan struct{}), nil)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v", err)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	fs := flag.NewFlagSet("ptt", flag.ContinueOnError)
	f, err := parseFlags(fs, []string{"-provider", "groq", "-format", "flac", "-tray=false", "-hotkey", "ctrl+alt+d"})
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROQ_API_KEY", "gsk")

	cfg := config.Defaults()
	cfg.Model = "from-file"
	f.apply(&cfg)

	if cfg.Provider != "groq" || cfg.Format != "flac" || cfg.Tray || cfg.Hotkey != "ctrl+alt+d" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Model != "from-file" {
		t.Errorf("unset flag overrode model: %q", cfg.Model)
	}
	if !cfg.TUI || !cfg.Beep {
		t.Error("unset bool flags must keep config values")
	}
	if cfg.APIKey != "gsk" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
}

func TestLevelMeter(t *testing.T) {
	var m levelMeter
	if m.Load() != 0 {
		t.Fatal("initial level not zero")
	}
	m.observe([]float32{0.5, -0.5, 0.5, -0.5})
	if got := m.Load(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("level = %v, want 0.5", got)
	}
	m.observe(nil)
	if got := m.Load(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("empty chunk changed level to %v", got)
	}
}

func TestTUIModelFollowsSession(t *testing.T) {
	var m tea.Model = tuiModel{hotkey: "ctrl+shift+space"}
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = m.Update(stateMsg{State: session.Recording, At: time.Now()})
	m, _ = m.Update(targetMsg{Label: "Untitled - Notepad"})

	view := m.View()
	if !strings.Contains(view, "REC") || !strings.Contains(view, "Untitled - Notepad") {
		t.Errorf("recording view missing status or target")
	}

	m, _ = m.Update(stateMsg{State: session.Processing, At: time.Now()})
	if !strings.Contains(m.View(), "PROCESSING") {
		t.Error("processing view missing status")
	}

	m, _ = m.Update(reportMsg{Text: "hello world", Outcome: "typed", Audio: time.Second})
	m, _ = m.Update(stateMsg{State: session.Idle, At: time.Now()})
	view = m.View()
	if !strings.Contains(view, "STANDBY") || !strings.Contains(view, "hello world") {
		t.Error("idle view missing status or last transcript")
	}
	if strings.Contains(view, "→ Untitled") {
		t.Error("target still shown after session ended")
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than 10", l)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps" {
		t.Errorf("lines = %q", lines)
	}
}

func TestShutdownDeliversFinalIdle(t *testing.T) {
	rec := &typer.Recorder{}
	a := newApp(testConfig(), components{
		Resolver:    window.NewFake(testTarget),
		Typer:       rec,
		Transcriber: transcriber.NewFake("late words", nil).WithDelay(300 * time.Millisecond),
	})

	var mu sync.Mutex
	var states []session.State
	processing := make(chan struct{}, 1)
	a.queue.AddSink(session.SinkFunc(func(e session.Event) {
		if e.Kind != session.EventState {
			return
		}
		mu.Lock()
		states = append(states, e.State)
		mu.Unlock()
		if e.State == session.Processing {
			select {
			case processing <- struct{}{}:
			default:
			}
		}
	}))

	capture, err := audio.NewFakeContextSamples(nil, true).NewCapture(nil, audio.CaptureConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer capture.Close()
	hk := hotkey.NewFake()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, hk, capture) }()

	hk.SimKeydown()
	time.Sleep(200 * time.Millisecond)
	hk.SimKeyup()
	select {
	case <-processing:
	case <-time.After(5 * time.Second):
		t.Fatal("never reached processing")
	}

	// stop while the worker is still transcribing
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != session.Idle {
		t.Fatalf("states = %v, want last Idle", states)
	}
	if got := rec.Calls(); len(got) != 1 || got[0] != "late words" {
		t.Errorf("typed %q", got)
	}
}
