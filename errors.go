package ledview

import "fmt"

// DecodeError is returned when a feed message cannot be decoded into a
// frame. The whole frame is rejected.
type DecodeError struct {
	// Index is the index of the offending token, or -1 if the message as a
	// whole is malformed.
	Index int
	// Token is the offending token, if any.
	Token string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cannot decode frame: %v", e.Err)
	}
	return fmt.Sprintf("cannot decode LED %d (%q): %v", e.Index, e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CountMismatchError is returned when a frame does not have the number of
// LEDs the renderer expects.
type CountMismatchError struct {
	// Want is the established LED count, or the number of mapped positions
	// if the renderer was not initialized yet.
	Want int
	Got  int
	// Initialized is true if Want is the established LED count.
	Initialized bool
}

func (e *CountMismatchError) Error() string {
	if e.Initialized {
		return fmt.Sprintf("frame has %d LEDs, session has %d", e.Got, e.Want)
	}
	return fmt.Sprintf("frame has %d LEDs, only %d positions are mapped", e.Got, e.Want)
}

// ConnectionError is returned when the feed connection cannot be
// established or breaks.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
