package ledview

import (
	"fmt"
	"image"
)

// RendererState is the state of a Renderer.
type RendererState int

const (
	// Uninitialized means no elements exist yet. The next frame establishes
	// the LED count.
	Uninitialized RendererState = iota
	// Initialized means one element exists per LED. Frames only change
	// element colors.
	Initialized
)

func (s RendererState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	default:
		return fmt.Sprintf("RendererState(%d)", int(s))
	}
}

// Element is the rendered marker of a single LED.
type Element struct {
	Index    int
	Position Position
	// Center is the pixel center of the marker on the canvas.
	Center image.Point
	Color  Color
}

// Renderer keeps a canvas in sync with incoming frames. A renderer is not
// safe for concurrent use; it is owned by the goroutine that feeds it.
type Renderer struct {
	mapper   Mapper
	canvas   *Canvas
	state    RendererState
	elements []Element
}

// NewRenderer creates an uninitialized renderer drawing on canvas. LED
// positions come from mapper.
func NewRenderer(mapper Mapper, canvas *Canvas) *Renderer {
	return &Renderer{
		mapper: mapper,
		canvas: canvas,
	}
}

// transition validates a frame of frameLen LEDs against the renderer and
// returns the state the renderer is in after rendering it. mapped is the
// number of positions available, only consulted when uninitialized.
func transition(state RendererState, count, frameLen, mapped int) (RendererState, error) {
	switch state {
	case Uninitialized:
		if frameLen == 0 || frameLen > mapped {
			return state, &CountMismatchError{Want: mapped, Got: frameLen}
		}
		return Initialized, nil
	case Initialized:
		if frameLen != count {
			return state, &CountMismatchError{Want: count, Got: frameLen, Initialized: true}
		}
		return Initialized, nil
	default:
		return state, fmt.Errorf("invalid renderer state %v", state)
	}
}

// Render draws the frame. The first frame creates one element per LED and
// fixes the LED count; later frames must have exactly that many LEDs and
// only recolor the existing elements. A rejected frame leaves the canvas
// untouched.
func (r *Renderer) Render(frame Frame) error {
	var positions []Position
	if r.state == Uninitialized {
		positions = r.mapper.Positions()
	}

	next, err := transition(r.state, len(r.elements), len(frame), len(positions))
	if err != nil {
		return err
	}

	if r.state == Uninitialized {
		r.initialize(frame, positions)
	} else {
		r.recolor(frame)
	}

	r.state = next
	return nil
}

func (r *Renderer) initialize(frame Frame, positions []Position) {
	r.canvas.Clear()

	r.elements = make([]Element, len(frame))
	for i, color := range frame {
		r.elements[i] = Element{
			Index:    i,
			Position: positions[i],
			Center:   r.canvas.Project(positions[i]),
			Color:    color,
		}
		r.canvas.FillCircle(r.elements[i].Center, color.ToRGBA())
	}
}

func (r *Renderer) recolor(frame Frame) {
	for i, color := range frame {
		el := &r.elements[i]
		el.Color = color
		r.canvas.FillCircle(el.Center, color.ToRGBA())
	}
}

// Reset drops all elements and clears the canvas. The next frame
// initializes the renderer again.
func (r *Renderer) Reset() {
	r.state = Uninitialized
	r.elements = nil
	r.canvas.Clear()
}

// State returns the current state.
func (r *Renderer) State() RendererState {
	return r.state
}

// Count returns the established LED count, or 0 if uninitialized.
func (r *Renderer) Count() int {
	return len(r.elements)
}

// Canvas returns the canvas the renderer draws on.
func (r *Renderer) Canvas() *Canvas {
	return r.canvas
}

// Elements returns a copy of the rendered elements.
func (r *Renderer) Elements() []Element {
	elements := make([]Element, len(r.elements))
	copy(elements, r.elements)
	return elements
}

// Colors returns a copy of the current LED colors.
func (r *Renderer) Colors() Frame {
	frame := make(Frame, len(r.elements))
	for i, el := range r.elements {
		frame[i] = el.Color
	}
	return frame
}

// Snapshot returns a copy of the canvas image.
func (r *Renderer) Snapshot() *image.RGBA {
	return r.canvas.Snapshot()
}
