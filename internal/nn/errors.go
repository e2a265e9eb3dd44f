package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/dnn/internal/tensor"
)

// Sentinel errors for layer and network failures.
var (
	// ErrShapeMismatch is returned when an input, upstream gradient or label
	// tensor does not have the shape a layer expects.
	ErrShapeMismatch = errors.New("nn: shape mismatch")

	// ErrNumericalInstability is returned when a loss or gradient becomes
	// NaN or infinite.
	ErrNumericalInstability = errors.New("nn: numerical instability")

	// ErrNoForwardCache is returned when Backward is called without a
	// preceding Forward, or twice for the same Forward.
	ErrNoForwardCache = errors.New("nn: backward called without a forward cache")
)

// ShapeError describes a shape mismatch detected by a layer.
type ShapeError struct {
	Layer  string
	Want   tensor.Shape
	Got    tensor.Shape
	Detail string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("%s: shape mismatch", e.Layer)
	if e.Want != nil {
		msg += fmt.Sprintf(": want %v", e.Want)
	}
	if e.Got != nil {
		msg += fmt.Sprintf(", got %v", e.Got)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrShapeMismatch).
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// InstabilityError reports the layer that produced a non-finite value.
type InstabilityError struct {
	Layer string
	Value float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%s: non-finite value %v", e.Layer, e.Value)
}

// Unwrap allows errors.Is(err, ErrNumericalInstability).
func (e *InstabilityError) Unwrap() error {
	return ErrNumericalInstability
}

func shapeErr(layer string, want, got tensor.Shape, format string, args ...any) error {
	return &ShapeError{Layer: layer, Want: want, Got: got, Detail: fmt.Sprintf(format, args...)}
}

func noCache(layer string) error {
	return fmt.Errorf("%s: %w", layer, ErrNoForwardCache)
}
