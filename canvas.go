package ledview

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// CanvasOpts are options for a Canvas. Zero values are replaced with the
// defaults from DefaultCanvasOpts.
type CanvasOpts struct {
	// Width and Height are the size of the canvas in pixels.
	Width  int
	Height int
	// Scale is the number of pixels per layout unit.
	Scale float64
	// Radius is the radius of an LED marker in pixels.
	Radius int
	// Background fills the canvas. Border outlines it.
	Background color.RGBA
	Border     color.RGBA
}

// DefaultCanvasOpts are the default canvas options.
var DefaultCanvasOpts = CanvasOpts{
	Width:      1000,
	Height:     600,
	Scale:      120,
	Radius:     3,
	Background: color.RGBA{0, 0, 0, 0xFF},
	Border:     color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
}

func (o CanvasOpts) withDefaults() CanvasOpts {
	d := DefaultCanvasOpts
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = d.Width, d.Height
	}
	if o.Scale == 0 {
		o.Scale = d.Scale
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Background == (color.RGBA{}) {
		o.Background = d.Background
	}
	if o.Border == (color.RGBA{}) {
		o.Border = d.Border
	}
	return o
}

// Canvas is the drawing surface LEDs are rendered on.
type Canvas struct {
	img  *image.RGBA
	opts CanvasOpts
}

// NewCanvas creates a canvas and paints its background and border.
func NewCanvas(opts CanvasOpts) *Canvas {
	opts = opts.withDefaults()

	c := &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		opts: opts,
	}
	c.Clear()
	return c
}

// Opts returns the options the canvas was created with, defaults applied.
func (c *Canvas) Opts() CanvasOpts {
	return c.opts
}

// Bounds returns the bounds of the canvas.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Rect
}

// Clear paints the background and the border, erasing all markers.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Rect, image.NewUniform(c.opts.Background), image.Point{}, draw.Src)

	// 1px outline inset by one pixel.
	r := image.Rect(1, 1, c.opts.Width-1, c.opts.Height-1)
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		c.img.SetRGBA(x, r.Min.Y, c.opts.Border)
		c.img.SetRGBA(x, r.Max.Y-1, c.opts.Border)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		c.img.SetRGBA(r.Min.X, y, c.opts.Border)
		c.img.SetRGBA(r.Max.X-1, y, c.opts.Border)
	}
}

// Project converts a unit position into pixel coordinates. The origin of the
// layout is the center of the canvas and Y is flipped to grow upwards.
func (c *Canvas) Project(p Position) image.Point {
	return image.Point{
		X: int(math.Round(p.X*c.opts.Scale + float64(c.opts.Width)/2)),
		Y: int(math.Round(-p.Y*c.opts.Scale + float64(c.opts.Height)/2)),
	}
}

// FillCircle paints a filled LED marker centered at pt. Parts outside the
// canvas are clipped.
func (c *Canvas) FillCircle(pt image.Point, col color.RGBA) {
	r := c.opts.Radius
	area := image.Rect(pt.X-r, pt.Y-r, pt.X+r+1, pt.Y+r+1).Intersect(c.img.Rect)

	for y := area.Min.Y; y < area.Max.Y; y++ {
		dy := y - pt.Y
		for x := area.Min.X; x < area.Max.X; x++ {
			dx := x - pt.X
			if dx*dx+dy*dy <= r*r {
				c.img.SetRGBA(x, y, col)
			}
		}
	}
}

// Image returns the image backing the canvas. It must not be modified or
// retained across renders.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Snapshot returns a copy of the canvas image.
func (c *Canvas) Snapshot() *image.RGBA {
	img := &image.RGBA{
		Pix:    make([]byte, len(c.img.Pix)),
		Stride: c.img.Stride,
		Rect:   c.img.Rect,
	}
	copy(img.Pix, c.img.Pix)
	return img
}
