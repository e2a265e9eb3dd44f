package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// dense wraps a 2-D tensor as a gonum matrix without copying.
func (t *Tensor) dense() *mat.Dense {
	if len(t.shape) != 2 {
		panic(fmt.Errorf("%w: expected 2D tensor, got %v", ErrShape, t.shape))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// MatMul computes a·b for 2-D tensors: (M, K) @ (K, N) -> (M, N).
func MatMul(a, b *Tensor) *Tensor {
	if a.Rank() != 2 || b.Rank() != 2 || a.shape[1] != b.shape[0] {
		panic(fmt.Errorf("%w: matmul %v @ %v", ErrShape, a.shape, b.shape))
	}
	out := New(Shape{a.shape[0], b.shape[1]})
	out.dense().Mul(a.dense(), b.dense())
	return out
}

// MatMulTransA computes aᵗ·b: (K, M)ᵗ @ (K, N) -> (M, N).
func MatMulTransA(a, b *Tensor) *Tensor {
	if a.Rank() != 2 || b.Rank() != 2 || a.shape[0] != b.shape[0] {
		panic(fmt.Errorf("%w: matmul %vᵗ @ %v", ErrShape, a.shape, b.shape))
	}
	out := New(Shape{a.shape[1], b.shape[1]})
	out.dense().Mul(a.dense().T(), b.dense())
	return out
}

// MatMulTransB computes a·bᵗ: (M, K) @ (N, K)ᵗ -> (M, N).
func MatMulTransB(a, b *Tensor) *Tensor {
	if a.Rank() != 2 || b.Rank() != 2 || a.shape[1] != b.shape[1] {
		panic(fmt.Errorf("%w: matmul %v @ %vᵗ", ErrShape, a.shape, b.shape))
	}
	out := New(Shape{a.shape[0], b.shape[0]})
	out.dense().Mul(a.dense(), b.dense().T())
	return out
}

// Transpose2D returns a copy of the transpose of a 2-D tensor.
func (t *Tensor) Transpose2D() *Tensor {
	rows, cols := t.shape[0], t.shape[1]
	out := New(Shape{cols, rows})
	out.dense().Copy(t.dense().T())
	return out
}
