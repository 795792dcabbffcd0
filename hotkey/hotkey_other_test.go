//go:build !linux

package hotkey

import (
	"sync"
	"testing"
)

func TestUnregisterConcurrent(t *testing.T) {
	spec, _ := ParseSpec("ctrl+shift+space")
	hk, err := New(spec)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hk.Unregister()
		}()
	}
	wg.Wait()

	select {
	case <-hk.(*xHotkey).stop:
	default:
		t.Error("stop channel not closed")
	}
}
