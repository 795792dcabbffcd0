package encoder

import (
	"fmt"
	"math"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
}

func New(format string) (Encoder, error) {
	switch format {
	case FormatWAV, "":
		return NewWav(), nil
	case FormatFLAC:
		return NewFlac()
	default:
		return nil, fmt.Errorf("unknown audio format %q", format)
	}
}

// ToPCM16 flattens captured float frames into 16-bit PCM. Samples outside
// [-1, 1] are clipped.
func ToPCM16(frames [][]float32) []int16 {
	n := 0
	for _, f := range frames {
		n += len(f)
	}
	out := make([]int16, 0, n)
	for _, f := range frames {
		for _, s := range f {
			v := float64(s)
			if math.IsNaN(v) {
				v = 0
			}
			v = max(-1, min(1, v))
			out = append(out, int16(v*math.MaxInt16))
		}
	}
	return out
}

// Encode converts captured frames into a complete audio file.
func Encode(format string, frames [][]float32) ([]byte, error) {
	enc, err := New(format)
	if err != nil {
		return nil, err
	}
	samples := ToPCM16(frames)
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing %s encoder: %w", format, err)
	}
	return enc.Bytes(), nil
}

func Ext(format string) string {
	if format == FormatFLAC {
		return ".flac"
	}
	return ".wav"
}

func ContentType(format string) string {
	if format == FormatFLAC {
		return "audio/flac"
	}
	return "audio/wav"
}
