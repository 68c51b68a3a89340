package main

import (
	"math"
	"time"

	"dev.acmcsuf.com/ledview"
	"github.com/lucasb-eyer/go-colorful"
)

// hueSweep is a rainbow moving diagonally across the LED layout.
type hueSweep struct {
	positions []ledview.Position
	// Speed is in degrees of hue per second.
	Speed float64
}

func newHueSweep(mapper ledview.Mapper) *hueSweep {
	return &hueSweep{
		positions: mapper.Positions(),
		Speed:     90,
	}
}

// Len returns the number of LEDs in a frame.
func (p *hueSweep) Len() int {
	return len(p.positions)
}

// Frame computes the frame at elapsed time t into dst.
func (p *hueSweep) Frame(t time.Duration, dst ledview.Frame) ledview.Frame {
	dst = dst[:0]
	for _, pos := range p.positions {
		hue := math.Mod(pos.X*60+pos.Y*30+t.Seconds()*p.Speed, 360)
		if hue < 0 {
			hue += 360
		}

		r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
		dst = append(dst, ledview.Color{R: r, G: g, B: b})
	}
	return dst
}
