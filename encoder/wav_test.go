package encoder

import (
	"math"
	"testing"
)

func TestWavRoundTrip440(t *testing.T) {
	frame := make([]float32, SampleRate)
	for i := range frame {
		frame[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	// split into uneven capture chunks
	frames := [][]float32{frame[:1000], frame[1000:1001], frame[1001:]}

	data, err := Encode(FormatWAV, frames)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := len(data), 44+2*SampleRate; got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:16]) != "WAVEfmt " || string(data[36:40]) != "data" {
		t.Fatalf("bad header: %q", data[:44])
	}

	w, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if w.SampleRate != SampleRate || w.Channels != Channels {
		t.Errorf("format = %d Hz / %d ch", w.SampleRate, w.Channels)
	}
	got := w.Float32()
	if len(got) != len(frame) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(frame))
	}
	for i := range got {
		if d := math.Abs(float64(got[i] - frame[i])); d > 2.0/32767 {
			t.Fatalf("sample %d: got %f want %f", i, got[i], frame[i])
		}
	}
}

func TestToPCM16Clips(t *testing.T) {
	got := ToPCM16([][]float32{{2, -2, 0, float32(math.NaN())}})
	want := []int16{32767, -32767, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("not audio at all")); err != ErrNotWAV {
		t.Errorf("err = %v, want ErrNotWAV", err)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New("mp3"); err == nil {
		t.Error("expected error for mp3")
	}
}
