package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Add returns a + b with NumPy broadcasting.
func Add(a, b *Tensor) *Tensor {
	if a.shape.Equal(b.shape) {
		out := New(a.shape)
		floats.AddTo(out.data, a.data, b.data)
		return out
	}
	return broadcastBinary(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns a - b with NumPy broadcasting.
func Sub(a, b *Tensor) *Tensor {
	if a.shape.Equal(b.shape) {
		out := New(a.shape)
		floats.SubTo(out.data, a.data, b.data)
		return out
	}
	return broadcastBinary(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns the elementwise product a ⊙ b with NumPy broadcasting.
func Mul(a, b *Tensor) *Tensor {
	if a.shape.Equal(b.shape) {
		out := New(a.shape)
		floats.MulTo(out.data, a.data, b.data)
		return out
	}
	return broadcastBinary(a, b, func(x, y float64) float64 { return x * y })
}

// Div returns the elementwise quotient a / b with NumPy broadcasting.
func Div(a, b *Tensor) *Tensor {
	if a.shape.Equal(b.shape) {
		out := New(a.shape)
		floats.DivTo(out.data, a.data, b.data)
		return out
	}
	return broadcastBinary(a, b, func(x, y float64) float64 { return x / y })
}

// broadcastBinary applies fn over the broadcast of a and b.
func broadcastBinary(a, b *Tensor, fn func(x, y float64) float64) *Tensor {
	shape, _, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		panic(err)
	}
	out := New(shape)
	aStrides := broadcastStrides(a.shape, shape)
	bStrides := broadcastStrides(b.shape, shape)

	index := make([]int, len(shape))
	aOff, bOff := 0, 0
	for i := range out.data {
		out.data[i] = fn(a.data[aOff], b.data[bOff])

		// Advance the multi-index like an odometer, keeping both offsets in step.
		for d := len(shape) - 1; d >= 0; d-- {
			index[d]++
			aOff += aStrides[d]
			bOff += bStrides[d]
			if index[d] < shape[d] {
				break
			}
			aOff -= aStrides[d] * shape[d]
			bOff -= bStrides[d] * shape[d]
			index[d] = 0
		}
	}
	return out
}

// Scale returns c * t.
func (t *Tensor) Scale(c float64) *Tensor {
	out := t.Clone()
	floats.Scale(c, out.data)
	return out
}

// AddScalar returns t + c.
func (t *Tensor) AddScalar(c float64) *Tensor {
	out := t.Clone()
	floats.AddConst(c, out.data)
	return out
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := New(t.shape)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// AddInPlace performs t += o. Shapes must have the same number of elements.
func (t *Tensor) AddInPlace(o *Tensor) {
	t.mustMatch(o, "AddInPlace")
	floats.Add(t.data, o.data)
}

// AddScaledInPlace performs t += alpha * o.
func (t *Tensor) AddScaledInPlace(alpha float64, o *Tensor) {
	t.mustMatch(o, "AddScaledInPlace")
	floats.AddScaled(t.data, alpha, o.data)
}

// ScaleInPlace performs t *= c.
func (t *Tensor) ScaleInPlace(c float64) {
	floats.Scale(c, t.data)
}

// CopyFrom overwrites t with the contents of o.
func (t *Tensor) CopyFrom(o *Tensor) {
	t.mustMatch(o, "CopyFrom")
	copy(t.data, o.data)
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.data {
		t.data[i] = v
	}
}

func (t *Tensor) mustMatch(o *Tensor, op string) {
	if len(t.data) != len(o.data) {
		panic(fmt.Errorf("%w: %s %v vs %v", ErrShape, op, t.shape, o.shape))
	}
}
