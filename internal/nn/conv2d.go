package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/backend/cpu"
	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [filters, in_channels, kernel_h, kernel_w]
// Bias shape:   [filters]
// Output shape: [batch, filters, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Both divisions must be exact; other combinations are rejected with a
// shape error. The convolution is lowered to a matrix product with im2col.
//
// Example:
//
//	// 1 channel -> 6 filters, 5x5 kernel
//	conv := nn.NewConv2D(1, 6, 5, 5, 1, 0, nn.He, rng)
//	y, err := conv.Forward(x, nn.Train) // [32, 1, 28, 28] -> [32, 6, 24, 24]
type Conv2D struct {
	inChannels int
	filters    int
	win        cpu.Window

	weight *Parameter // [filters, in_channels, kernel_h, kernel_w]
	bias   *Parameter // [filters]

	// Forward cache.
	cols       *tensor.Tensor // [N*OH*OW, C*KH*KW]
	inShape    tensor.Shape
	outH, outW int
}

// NewConv2D creates a 2D convolutional layer.
//
// Parameters:
//   - inChannels: Number of input channels
//   - filters: Number of output channels
//   - kernelH, kernelW: Kernel dimensions
//   - stride: Stride for convolution (commonly 1 or 2)
//   - padding: Zero padding applied to every spatial border
//   - init: Weight initializer (nil selects Xavier)
//   - rng: Random source for the weights
//
// Initialization:
//   - Weights: init(C*KH*KW, F*KH*KW)
//   - Bias: Zeros
func NewConv2D(inChannels, filters, kernelH, kernelW, stride, padding int, init Initializer, rng *rand.Rand) *Conv2D {
	if inChannels <= 0 || filters <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, filters))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernelH, kernelW))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}
	if init == nil {
		init = Xavier
	}

	fanIn := inChannels * kernelH * kernelW
	fanOut := filters * kernelH * kernelW
	w := init(fanIn, fanOut, tensor.Shape{filters, inChannels, kernelH, kernelW}, rng)

	return &Conv2D{
		inChannels: inChannels,
		filters:    filters,
		win:        cpu.Window{KH: kernelH, KW: kernelW, Stride: stride, Pad: padding},
		weight:     NewParameter("weight", w),
		bias:       NewParameter("bias", tensor.Zeros(tensor.Shape{filters})),
	}
}

// Name returns "conv2d".
func (c *Conv2D) Name() string { return "conv2d" }

// Weight returns the kernel parameter.
func (c *Conv2D) Weight() *Parameter { return c.weight }

// Bias returns the bias parameter.
func (c *Conv2D) Bias() *Parameter { return c.bias }

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%dx%d, stride=%d, padding=%d)",
		c.inChannels, c.filters, c.win.KH, c.win.KW, c.win.Stride, c.win.Pad)
}

// OutputShape maps [C, H, W] to [F, OH, OW].
func (c *Conv2D) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 3 || in[0] != c.inChannels {
		return nil, shapeErr(c.Name(), tensor.Shape{c.inChannels, -1, -1}, in, "want [channels, height, width]")
	}
	oh, ow, err := c.win.Output(in[1], in[2])
	if err != nil {
		return nil, shapeErr(c.Name(), nil, in, "%v", err)
	}
	return tensor.Shape{c.filters, oh, ow}, nil
}

// Forward computes the convolution.
func (c *Conv2D) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	out, err := checkBatched(c, x)
	if err != nil {
		return nil, err
	}
	n, oh, ow := out[0], out[2], out[3]

	cols := cpu.Im2Col(x, c.win, oh, ow)
	kernel := c.weight.Value().Reshape(c.filters, -1)
	y2 := tensor.MatMulTransB(cols, kernel) // [N*OH*OW, F]
	b := c.bias.Value().Data()
	for i := 0; i < y2.Dim(0); i++ {
		floats.Add(y2.Row(i), b)
	}

	c.cols, c.inShape, c.outH, c.outW = cols, x.Shape().Clone(), oh, ow
	return rowsToNCHW(y2, n, c.filters, oh, ow), nil
}

// Backward computes:
//
//	dW = dyᵗ @ cols           (reshaped to the kernel shape)
//	db = Σ dy over batch and spatial positions
//	dx = col2im(dy @ W)
func (c *Conv2D) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if c.cols == nil {
		return nil, noCache(c.Name())
	}
	want := tensor.Shape{c.inShape[0], c.filters, c.outH, c.outW}
	if err := checkGrad(c.Name(), dy, want); err != nil {
		return nil, err
	}

	dy2 := nchwToRows(dy) // [N*OH*OW, F]
	kernel := c.weight.Value().Reshape(c.filters, -1)

	c.weight.SetGrad(tensor.MatMulTransA(dy2, c.cols).Reshape(c.weight.Value().Shape()...))
	c.bias.SetGrad(dy2.SumAxis0())
	dcols := tensor.MatMul(dy2, kernel)
	dx := cpu.Col2Im(dcols, c.inShape, c.win, c.outH, c.outW)

	c.cols, c.inShape = nil, nil
	return dx, nil
}

// Parameters returns [weight, bias].
func (c *Conv2D) Parameters() []*Parameter {
	return []*Parameter{c.weight, c.bias}
}

// rowsToNCHW converts [N*H*W, C] (one row per spatial position) to
// [N, C, H, W].
func rowsToNCHW(rows *tensor.Tensor, n, c, h, w int) *tensor.Tensor {
	out := tensor.New(tensor.Shape{n, c, h, w})
	src, dst := rows.Data(), out.Data()
	hw := h * w
	for b := 0; b < n; b++ {
		for s := 0; s < hw; s++ {
			row := src[(b*hw+s)*c:]
			for ch := 0; ch < c; ch++ {
				dst[(b*c+ch)*hw+s] = row[ch]
			}
		}
	}
	return out
}

// nchwToRows is the inverse of rowsToNCHW.
func nchwToRows(x *tensor.Tensor) *tensor.Tensor {
	n, c, h, w := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	out := tensor.New(tensor.Shape{n * h * w, c})
	src, dst := x.Data(), out.Data()
	hw := h * w
	for b := 0; b < n; b++ {
		for s := 0; s < hw; s++ {
			row := dst[(b*hw+s)*c:]
			for ch := 0; ch < c; ch++ {
				row[ch] = src[(b*c+ch)*hw+s]
			}
		}
	}
	return out
}
