package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	grey   = color.RGBA{R: 142, G: 142, B: 147, A: 255}
	red    = color.RGBA{R: 255, G: 59, B: 48, A: 255}
	orange = color.RGBA{R: 255, G: 149, B: 0, A: 255}

	iconIdle       = renderIcon(44, grey)
	iconRecording  = renderIcon(44, red)
	iconProcessing = renderIcon(44, orange)
)

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

// renderIcon draws a filled dot inside a dark ring.
func renderIcon(size int, dot color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cx, cy := float64(size)/2, float64(size)/2
	r := float64(size)/2 - 1
	dotR := r * 0.7
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d <= dotR {
				img.Set(x, y, dot)
			} else if d <= r {
				img.Set(x, y, color.Black)
			}
		}
	}
	return encodePNG(img)
}
