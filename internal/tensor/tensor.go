// Package tensor provides the N-dimensional float64 array the engine
// computes with.
//
// A Tensor is a row-major buffer plus a Shape. Matrix products and the
// vectorised kernels are delegated to gonum; everything else is plain
// index arithmetic over the flat buffer.
//
// Operations whose shape preconditions are violated panic with an error
// wrapping ErrShape, the same way gonum/mat panics on dimension mismatch.
// Callers that accept user data (layers) validate shapes first and return
// errors instead.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShape reports incompatible tensor shapes.
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is a dense row-major float64 array.
type Tensor struct {
	data   []float64
	shape  Shape
	stride []int
}

// New creates a zero-filled tensor with the given shape.
// Panics if the shape has a non-positive dimension.
func New(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.New: %v", err))
	}
	return &Tensor{
		data:   make([]float64, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, but got %d",
			ErrShape, shape, shape.NumElements(), len(data))
	}
	t := New(shape)
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape. The result must not be modified.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's memory strides.
func (t *Tensor) Strides() []int {
	return t.stride
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying buffer (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) At(indices ...int) float64 {
	return t.data[t.offset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor) Set(value float64, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.stride[i]
	}
	return offset
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{
		data:   data,
		shape:  t.shape.Clone(),
		stride: append([]int(nil), t.stride...),
	}
}

// Reshape returns a view with a new shape sharing the same buffer.
// One dimension may be -1 and is inferred.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	shape := make(Shape, len(dims))
	copy(shape, dims)

	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic("reshape: only one dimension can be -1")
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || len(t.data)%known != 0 {
			panic(fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, dims))
		}
		shape[infer] = len(t.data) / known
	}
	if shape.NumElements() != len(t.data) {
		panic(fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.shape, dims))
	}

	return &Tensor{
		data:   t.data,
		shape:  shape,
		stride: shape.ComputeStrides(),
	}
}

// Flatten2D views a [N, d1, d2, ...] tensor as [N, d1*d2*...].
func (t *Tensor) Flatten2D() *Tensor {
	if len(t.shape) == 2 {
		return t
	}
	return t.Reshape(t.shape[0], -1)
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[float64]%v", t.shape)
}
