package ledview

import (
	"image/color"

	"dev.acmcsuf.com/christmas/lib/xcolor"
)

// Color is the color of a single LED.
type Color xcolor.RGB

var _ color.Color = Color{}

// ColorFromPacked unpacks a 24-bit 0xRRGGBB value. Bits above the lowest 24
// are ignored.
func ColorFromPacked(v uint32) Color {
	return Color(xcolor.RGBFromUint(v & maxPacked))
}

// Packed returns the color packed as 0xRRGGBB.
func (c Color) Packed() uint32 {
	return xcolor.RGB(c).ToUint()
}

// RGB returns the color as an xcolor.RGB.
func (c Color) RGB() xcolor.RGB {
	return xcolor.RGB(c)
}

// RGBA implements color.Color. LEDs are always opaque.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.ToRGBA().RGBA()
}

// ToRGBA returns the color as an opaque color.RGBA.
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

// Frame is the color of every LED at one point in time, ordered by LED
// index.
type Frame []Color

// RGB returns the frame as a slice of xcolor.RGB.
func (f Frame) RGB() []xcolor.RGB {
	strip := make([]xcolor.RGB, len(f))
	for i, c := range f {
		strip[i] = xcolor.RGB(c)
	}
	return strip
}
