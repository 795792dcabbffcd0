//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"ptt/log"
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	playMu   sync.Mutex

	// read by the device callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
)

func initPlayer() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: %v", err)
		return
	}
	if err := initDevice(); err != nil {
		log.Warnf("beep: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func initDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, cfg, malgo.DeviceCallbacks{Data: fill})
	return err
}

func fill(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	n := uint32(0)
	if b := current.Load(); b != nil {
		p := pos.Load()
		if p < uint32(len(*b)) {
			n = uint32(copy(out[:want], (*b)[p:]))
			pos.Store(p + n)
		}
	}
	clear(out[n:want])
}

func playSamples(samples []int16) {
	if malgoCtx == nil || len(samples) == 0 {
		return
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}
	device.Stop()
	pos.Store(0)
	current.Store(&buf)
	if err := device.Start(); err != nil {
		// the device can go stale across sleep/wake; rebuild once
		device.Uninit()
		if err := initDevice(); err != nil {
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
