package model

import (
	"fmt"
	"slices"
)

// ShapeError reports a tensor whose shape or length does not match what the
// model or the label set expects.
type ShapeError struct {
	What string
	Want []int64
	Got  []int64
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: want %v, got %v", e.What, e.Want, e.Got)
}

// InferenceError wraps a failure inside the inference engine.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// NumElements returns the product of the dimensions in shape.
func NumElements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

func checkShape(what string, want, got []int64) error {
	if !slices.Equal(want, got) {
		return &ShapeError{What: what, Want: want, Got: got}
	}
	return nil
}
