package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFromSlice(t *testing.T, data []float64, shape Shape) *Tensor {
	t.Helper()
	x, err := FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

func TestElementwise_SameShape(t *testing.T) {
	a := mustFromSlice(t, []float64{1, 2, 3, 4}, Shape{2, 2})
	b := mustFromSlice(t, []float64{4, 3, 2, 1}, Shape{2, 2})

	assert.Equal(t, []float64{5, 5, 5, 5}, Add(a, b).Data())
	assert.Equal(t, []float64{-3, -1, 1, 3}, Sub(a, b).Data())
	assert.Equal(t, []float64{4, 6, 6, 4}, Mul(a, b).Data())
	assert.Equal(t, []float64{0.25, 2.0 / 3, 1.5, 4}, Div(a, b).Data())

	// Inputs are untouched.
	assert.Equal(t, []float64{1, 2, 3, 4}, a.Data())
}

func TestElementwise_Broadcast(t *testing.T) {
	a := mustFromSlice(t, []float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	row := mustFromSlice(t, []float64{10, 20, 30}, Shape{3})
	col := mustFromSlice(t, []float64{100, 200}, Shape{2, 1})

	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, Add(a, row).Data())
	assert.Equal(t, []float64{101, 102, 103, 204, 205, 206}, Add(a, col).Data())

	assert.Panics(t, func() {
		Add(a, mustFromSlice(t, []float64{1, 2}, Shape{2}))
	})
}

func TestScalarOps(t *testing.T) {
	a := mustFromSlice(t, []float64{1, -2}, Shape{2})
	assert.Equal(t, []float64{2, -4}, a.Scale(2).Data())
	assert.Equal(t, []float64{2, -1}, a.AddScalar(1).Data())
	assert.Equal(t, []float64{1, 4}, a.Apply(func(v float64) float64 { return v * v }).Data())
}

func TestInPlaceOps(t *testing.T) {
	a := mustFromSlice(t, []float64{1, 2}, Shape{2})
	b := mustFromSlice(t, []float64{3, 4}, Shape{2})

	a.AddInPlace(b)
	assert.Equal(t, []float64{4, 6}, a.Data())

	a.AddScaledInPlace(-1, b)
	assert.Equal(t, []float64{1, 2}, a.Data())

	a.ScaleInPlace(3)
	assert.Equal(t, []float64{3, 6}, a.Data())

	a.CopyFrom(b)
	assert.Equal(t, []float64{3, 4}, a.Data())

	a.Fill(0)
	assert.Equal(t, []float64{0, 0}, a.Data())

	assert.Panics(t, func() { a.AddInPlace(Zeros(Shape{3})) })
}
