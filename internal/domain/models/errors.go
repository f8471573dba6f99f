package models

import (
	"errors"
	"fmt"
)

// ErrDataSource marks failures of an external collaborator (network fault,
// malformed listing). Adapters wrap it so batch passes can recognize and
// skip the affected symbol.
var ErrDataSource = errors.New("data source failure")

// ErrWindowNotInitialized is returned when a refresh is requested for a
// symbol whose window was never backfilled.
var ErrWindowNotInitialized = errors.New("bar window not initialized")

// MalformedBarError reports a raw bar field that failed type coercion.
type MalformedBarError struct {
	Field  string
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar: field %s: %s", e.Field, e.Reason)
}

// RangeError reports window indices that violate the size preconditions.
// It signals a programmer error and is never recovered by the window itself.
type RangeError struct {
	StartIndex int
	WindowSize int
	Length     int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("window range out of bounds: start_index=%d window_size=%d length=%d",
		e.StartIndex, e.WindowSize, e.Length)
}
