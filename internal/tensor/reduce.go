package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// SumAxis0 sums over the leading (batch) dimension: [N, ...] -> [...].
func (t *Tensor) SumAxis0() *Tensor {
	if len(t.shape) < 2 {
		panic(fmt.Errorf("%w: SumAxis0 needs rank >= 2, got %v", ErrShape, t.shape))
	}
	out := New(t.shape[1:])
	width := len(out.data)
	for n := 0; n < t.shape[0]; n++ {
		floats.Add(out.data, t.data[n*width:(n+1)*width])
	}
	return out
}

// MeanAxis0 averages over the leading (batch) dimension.
func (t *Tensor) MeanAxis0() *Tensor {
	out := t.SumAxis0()
	floats.Scale(1/float64(t.shape[0]), out.data)
	return out
}

// Row returns a view of row i of a 2-D tensor.
func (t *Tensor) Row(i int) []float64 {
	cols := t.shape[1]
	return t.data[i*cols : (i+1)*cols]
}

// ArgmaxRows returns the index of the maximum of each row of a 2-D tensor.
func (t *Tensor) ArgmaxRows() []int {
	if len(t.shape) != 2 {
		panic(fmt.Errorf("%w: ArgmaxRows needs a 2D tensor, got %v", ErrShape, t.shape))
	}
	out := make([]int, t.shape[0])
	for i := range out {
		out[i] = floats.MaxIdx(t.Row(i))
	}
	return out
}

// MaxRows returns the maximum of each row of a 2-D tensor.
func (t *Tensor) MaxRows() []float64 {
	out := make([]float64, t.shape[0])
	for i := range out {
		out[i] = floats.Max(t.Row(i))
	}
	return out
}

// AllFinite reports whether every element is neither NaN nor ±Inf.
func (t *Tensor) AllFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Rows gathers the given indices along the leading dimension.
func (t *Tensor) Rows(indices []int) *Tensor {
	shape := t.shape.Clone()
	shape[0] = len(indices)
	out := New(shape)
	if t.shape[0] == 0 {
		return out
	}
	width := len(t.data) / t.shape[0]
	for i, idx := range indices {
		copy(out.data[i*width:(i+1)*width], t.data[idx*width:(idx+1)*width])
	}
	return out
}
