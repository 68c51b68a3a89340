package ledview

import (
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	// maxAxisSteps bounds the number of steps along a single grid axis.
	maxAxisSteps = 1 << 20
	// maxGridPositions bounds the number of positions a grid may produce.
	maxGridPositions = 1 << 20
)

// Position is the location of an LED in the unit layout space. X grows to
// the right and Y grows upwards.
type Position struct {
	X, Y float64
}

// Mapper assigns a position to every LED index. Positions()[i] is the
// position of LED i, so the order must match the order in which the feed
// emits LEDs.
type Mapper interface {
	Positions() []Position
}

// Axis is one axis of a grid scan. It covers [Start, End) in Step
// increments.
type Axis struct {
	Start float64
	End   float64
	Step  float64
}

// count returns the number of steps in the axis. It accumulates the same way
// GridMapper.Positions does, so the two always agree.
func (a Axis) count() int {
	var n int
	for v := a.Start; v < a.End; v += a.Step {
		n++
	}
	return n
}

func (a Axis) validate() error {
	for _, v := range [...]float64{a.Start, a.End, a.Step} {
		if !isFinite(v) {
			return fmt.Errorf("%v is not a finite number", v)
		}
	}
	if a.Step <= 0 {
		return fmt.Errorf("step %v is not positive", a.Step)
	}
	if a.End <= a.Start {
		return fmt.Errorf("end %v is not after start %v", a.End, a.Start)
	}

	// Every value in the scan is at most edge in magnitude. A step of at
	// least one ulp of edge always moves the scan forward.
	edge := math.Max(math.Abs(a.Start), math.Abs(a.End))
	if ulp := math.Nextafter(edge, math.Inf(1)) - edge; !(a.Step >= ulp) {
		return fmt.Errorf("step %v is too small to advance past %v", a.Step, edge)
	}
	if steps := (a.End - a.Start) / a.Step; !(steps <= maxAxisSteps) {
		return fmt.Errorf("axis has %.0f steps, more than %d", steps, maxAxisSteps)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateDivisor(divisor float64) error {
	if divisor == 0 {
		return errors.New("divisor is zero")
	}
	if !isFinite(divisor) {
		return fmt.Errorf("divisor %v is not a finite number", divisor)
	}
	return nil
}

// GridMapper lays LEDs out on a grid in raster order: the outer axis is Y
// and the inner axis is X, so LED 0 is at (Inner.Start, Outer.Start), LED 1
// is one Inner.Step to its right, and so on until the row is done. Layout
// coordinates are divided by Divisor to get unit positions.
//
// Values are accumulated by repeated addition. A feed enumerating its LEDs
// with the same loops produces the same count and order.
type GridMapper struct {
	Outer   Axis
	Inner   Axis
	Divisor float64
}

// DefaultGrid is the layout of the LED wall: 40 rows of 50 LEDs.
var DefaultGrid = GridMapper{
	Outer:   Axis{Start: -73, End: 80, Step: 3.88},
	Inner:   Axis{Start: -100, End: 120, Step: 4.4},
	Divisor: 40,
}

var _ Mapper = GridMapper{}

// Validate checks that the grid is finite and that its positions can be
// computed. A valid grid always terminates.
func (m GridMapper) Validate() error {
	_, err := m.validate()
	return err
}

func (m GridMapper) validate() (int, error) {
	if err := m.Outer.validate(); err != nil {
		return 0, fmt.Errorf("outer axis: %w", err)
	}
	if err := m.Inner.validate(); err != nil {
		return 0, fmt.Errorf("inner axis: %w", err)
	}
	if err := validateDivisor(m.Divisor); err != nil {
		return 0, err
	}
	n := m.Outer.count() * m.Inner.count()
	if n > maxGridPositions {
		return 0, fmt.Errorf("grid has %d positions, more than %d", n, maxGridPositions)
	}
	return n, nil
}

// Count returns the number of positions the grid produces.
func (m GridMapper) Count() int {
	n, err := m.validate()
	if err != nil {
		return 0
	}
	return n
}

// Positions implements Mapper. An invalid grid has no positions.
func (m GridMapper) Positions() []Position {
	n, err := m.validate()
	if err != nil {
		return nil
	}

	positions := make([]Position, 0, n)
	for y := m.Outer.Start; y < m.Outer.End; y += m.Outer.Step {
		for x := m.Inner.Start; x < m.Inner.End; x += m.Inner.Step {
			positions = append(positions, Position{
				X: x / m.Divisor,
				Y: y / m.Divisor,
			})
		}
	}
	return positions
}

// PointMapper is an explicit list of LED positions, for layouts that are not
// grids.
type PointMapper []Position

var _ Mapper = PointMapper(nil)

// PointsFromLayout converts integer layout coordinates into unit positions
// by dividing them by divisor.
func PointsFromLayout(points []image.Point, divisor float64) (PointMapper, error) {
	if err := validateDivisor(divisor); err != nil {
		return nil, err
	}

	m := make(PointMapper, len(points))
	for i, pt := range points {
		m[i] = Position{
			X: float64(pt.X) / divisor,
			Y: float64(pt.Y) / divisor,
		}
	}
	return m, nil
}

// Positions implements Mapper.
func (m PointMapper) Positions() []Position {
	positions := make([]Position, len(m))
	copy(positions, m)
	return positions
}
