package nn

import (
	"fmt"

	"github.com/born-ml/dnn/internal/backend/cpu"
	"github.com/born-ml/dnn/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value in
// each window. It has no learnable parameters. The backward pass routes
// each gradient to the position that held the maximum.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height + 2*padding - kernel) / stride + 1
//	out_width  = (width + 2*padding - kernel) / stride + 1
//
// Common configurations:
//   - 2x2 pool, stride=2: Halves spatial dimensions (most common)
//   - 3x3 pool, stride=1, padding=1: Keeps spatial dimensions
//
// Example:
//
//	pool := nn.NewMaxPool2D(2, 2, 0)
//	y, err := pool.Forward(x, nn.Train) // [32, 64, 28, 28] -> [32, 64, 14, 14]
type MaxPool2D struct {
	win cpu.Window

	argmax  []int
	inShape tensor.Shape
	outDims tensor.Shape
}

// NewMaxPool2D creates a max pooling layer with a square window.
func NewMaxPool2D(kernelSize, stride, padding int) *MaxPool2D {
	return &MaxPool2D{win: newPoolWindow("maxpool2d", kernelSize, stride, padding)}
}

// Name returns "maxpool2d".
func (m *MaxPool2D) Name() string { return "maxpool2d" }

// String returns a string representation of the layer.
func (m *MaxPool2D) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d, padding=%d)", m.win.KH, m.win.Stride, m.win.Pad)
}

// OutputShape maps [C, H, W] to [C, OH, OW].
func (m *MaxPool2D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return poolOutputShape(m.Name(), m.win, in)
}

// Forward implements Layer.
func (m *MaxPool2D) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	out, err := checkBatched(m, x)
	if err != nil {
		return nil, err
	}
	y, argmax := cpu.MaxPool2D(x, m.win, out[2], out[3])
	m.argmax, m.inShape, m.outDims = argmax, x.Shape().Clone(), out
	return y, nil
}

// Backward implements Layer.
func (m *MaxPool2D) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if m.argmax == nil {
		return nil, noCache(m.Name())
	}
	if err := checkGrad(m.Name(), dy, m.outDims); err != nil {
		return nil, err
	}
	dx := cpu.MaxPool2DBackward(dy, m.inShape, m.argmax)
	m.argmax, m.inShape, m.outDims = nil, nil, nil
	return dx, nil
}

// Parameters returns nil.
func (m *MaxPool2D) Parameters() []*Parameter { return nil }

// AvgPool2D is a 2D average pooling layer. Padding counts as zeros and
// every window divides by kernel².
type AvgPool2D struct {
	win cpu.Window

	inShape tensor.Shape
	outDims tensor.Shape
}

// NewAvgPool2D creates an average pooling layer with a square window.
func NewAvgPool2D(kernelSize, stride, padding int) *AvgPool2D {
	return &AvgPool2D{win: newPoolWindow("avgpool2d", kernelSize, stride, padding)}
}

// Name returns "avgpool2d".
func (a *AvgPool2D) Name() string { return "avgpool2d" }

// OutputShape maps [C, H, W] to [C, OH, OW].
func (a *AvgPool2D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return poolOutputShape(a.Name(), a.win, in)
}

// Forward implements Layer.
func (a *AvgPool2D) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	out, err := checkBatched(a, x)
	if err != nil {
		return nil, err
	}
	a.inShape, a.outDims = x.Shape().Clone(), out
	return cpu.AvgPool2D(x, a.win, out[2], out[3]), nil
}

// Backward implements Layer.
func (a *AvgPool2D) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if a.inShape == nil {
		return nil, noCache(a.Name())
	}
	if err := checkGrad(a.Name(), dy, a.outDims); err != nil {
		return nil, err
	}
	dx := cpu.AvgPool2DBackward(dy, a.inShape, a.win)
	a.inShape, a.outDims = nil, nil
	return dx, nil
}

// Parameters returns nil.
func (a *AvgPool2D) Parameters() []*Parameter { return nil }

func newPoolWindow(layer string, kernelSize, stride, padding int) cpu.Window {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("%s: invalid kernel size %d", layer, kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("%s: invalid stride %d", layer, stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("%s: invalid padding %d", layer, padding))
	}
	return cpu.Window{KH: kernelSize, KW: kernelSize, Stride: stride, Pad: padding}
}

func poolOutputShape(layer string, win cpu.Window, in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 3 {
		return nil, shapeErr(layer, nil, in, "want [channels, height, width]")
	}
	oh, ow, err := win.Output(in[1], in[2])
	if err != nil {
		return nil, shapeErr(layer, nil, in, "%v", err)
	}
	return tensor.Shape{in[0], oh, ow}, nil
}
