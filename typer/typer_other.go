//go:build windows || darwin

package typer

import (
	"fmt"
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	bondOnce sync.Once
	bondErr  error
	bond     keybd_event.KeyBonding
)

type keybd struct {
	mu sync.Mutex
}

// New returns a Keyboard that synthesizes OS key events. Only letters,
// digits and space are typed directly; everything else needs the paste path.
func New(paste bool) (*Keyboard, error) {
	bondOnce.Do(func() { bond, bondErr = keybd_event.NewKeyBonding() })
	if bondErr != nil {
		return nil, fmt.Errorf("keyboard events: %w", bondErr)
	}
	return newKeyboard(&keybd{}, paste), nil
}

var letterVK = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digitVK = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}

func runeToVK(r rune) (vk int, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return letterVK[r-'a'], false, true
	case r >= 'A' && r <= 'Z':
		return letterVK[r-'A'], true, true
	case r >= '0' && r <= '9':
		return digitVK[r-'0'], false, true
	case r == ' ':
		return keybd_event.VK_SPACE, false, true
	}
	return 0, false, false
}

func (k *keybd) mapped(r rune) bool {
	_, _, ok := runeToVK(r)
	return ok
}

func (k *keybd) tap(r rune) error {
	vk, shift, ok := runeToVK(r)
	if !ok {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	bond.Clear()
	bond.SetKeys(vk)
	bond.HasSHIFT(shift)
	return bond.Launching()
}

func (k *keybd) paste() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	bond.Clear()
	bond.SetKeys(keybd_event.VK_V)
	pasteModifier(&bond)
	return bond.Launching()
}

func Verify() (string, error) {
	if _, err := New(false); err != nil {
		return "", err
	}
	return "keyboard event binding OK", nil
}
