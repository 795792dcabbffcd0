package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const wavHeaderSize = 44

var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// WavEncoder accumulates PCM and emits a canonical 44-byte-header WAV on Close.
type WavEncoder struct {
	samples []int16
	buf     bytes.Buffer
	closed  bool
}

func NewWav() *WavEncoder {
	return &WavEncoder{}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	if e.closed {
		return errors.New("wav encoder closed")
	}
	e.samples = append(e.samples, block...)
	return nil
}

func (e *WavEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	dataSize := uint32(len(e.samples) * 2)
	byteRate := uint32(SampleRate * Channels * BitsPerSample / 8)
	blockAlign := uint16(Channels * BitsPerSample / 8)

	e.buf.Grow(wavHeaderSize + int(dataSize))
	e.buf.WriteString("RIFF")
	binary.Write(&e.buf, binary.LittleEndian, 36+dataSize)
	e.buf.WriteString("WAVEfmt ")
	binary.Write(&e.buf, binary.LittleEndian, uint32(16))
	binary.Write(&e.buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&e.buf, binary.LittleEndian, uint16(Channels))
	binary.Write(&e.buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&e.buf, binary.LittleEndian, byteRate)
	binary.Write(&e.buf, binary.LittleEndian, blockAlign)
	binary.Write(&e.buf, binary.LittleEndian, uint16(BitsPerSample))
	e.buf.WriteString("data")
	binary.Write(&e.buf, binary.LittleEndian, dataSize)
	binary.Write(&e.buf, binary.LittleEndian, e.samples)
	return nil
}

func (e *WavEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *WavEncoder) TotalFrames() uint64 {
	return uint64(len(e.samples))
}

// WAV describes a decoded 16-bit PCM file.
type WAV struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// DecodeWAV parses a 16-bit PCM RIFF file, walking chunks so files with
// LIST or fact chunks before "data" are accepted.
func DecodeWAV(data []byte) (*WAV, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}
	w := &WAV{}
	var bits int
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if size > len(body) {
			size = len(body)
		}
		body = body[:size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("short fmt chunk (%d bytes)", size)
			}
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != 1 {
				return nil, fmt.Errorf("unsupported wav format tag %d", tag)
			}
			w.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			w.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			if bits != 16 {
				return nil, fmt.Errorf("unsupported bits per sample %d", bits)
			}
			w.Samples = make([]int16, size/2)
			for i := range w.Samples {
				w.Samples[i] = int16(binary.LittleEndian.Uint16(body[i*2:]))
			}
			return w, nil
		}
		pos += 8 + size + size%2
	}
	return nil, errors.New("wav data chunk not found")
}

// Float32 returns the samples scaled back into [-1, 1].
func (w *WAV) Float32() []float32 {
	out := make([]float32, len(w.Samples))
	for i, s := range w.Samples {
		out[i] = float32(s) / 32767
	}
	return out
}
