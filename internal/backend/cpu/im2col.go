package cpu

import (
	"github.com/born-ml/dnn/internal/parallel"
	"github.com/born-ml/dnn/internal/tensor"
)

// Im2Col unrolls every window of x into a row.
//
// Input:  [N, C, H, W]
// Output: [N*OH*OW, C*KH*KW]
//
// Row n*OH*OW + oh*OW + ow holds the window at (oh, ow) of sample n, laid out
// channel-major so that it lines up with a kernel reshaped to [F, C*KH*KW].
// Positions that fall into the zero padding read as 0.
//
// Reference: "High Performance Convolutional Neural Networks for Document
// Processing" (Chellapilla et al., 2006).
func Im2Col(x *tensor.Tensor, win Window, outH, outW int) *tensor.Tensor {
	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	cols := tensor.New(tensor.Shape{n * outH * outW, c * win.KH * win.KW})
	src, dst := x.Data(), cols.Data()

	parallel.For(n, split(), func(lo, hi int) {
		for b := lo; b < hi; b++ {
			eachWindowCell(b, c, h, w, win, outH, outW, func(row, pos int) {
				dst[row] = src[pos]
			})
		}
	})
	return cols
}

// Col2Im is the adjoint of Im2Col: it scatter-adds every row of cols back to
// the input position it was read from. Contributions landing in the padding
// are dropped.
//
// Input:  [N*OH*OW, C*KH*KW]
// Output: [N, C, H, W]
func Col2Im(cols *tensor.Tensor, inShape tensor.Shape, win Window, outH, outW int) *tensor.Tensor {
	n, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	x := tensor.New(inShape)
	src, dst := cols.Data(), x.Data()

	parallel.For(n, split(), func(lo, hi int) {
		for b := lo; b < hi; b++ {
			eachWindowCell(b, c, h, w, win, outH, outW, func(row, pos int) {
				dst[pos] += src[row]
			})
		}
	})
	return x
}

// eachWindowCell visits every non-padding cell of every window of sample b.
// col is the flat index into the [N*OH*OW, C*KH*KW] column matrix and pos
// the flat index into the [N, C, H, W] input.
func eachWindowCell(b, c, h, w int, win Window, outH, outW int, fn func(col, pos int)) {
	colWidth := c * win.KH * win.KW
	for oh := 0; oh < outH; oh++ {
		for ow := 0; ow < outW; ow++ {
			col := ((b*outH+oh)*outW + ow) * colWidth
			for ch := 0; ch < c; ch++ {
				plane := (b*c + ch) * h * w
				for i := 0; i < win.KH; i++ {
					ih := oh*win.Stride + i - win.Pad
					for j := 0; j < win.KW; j++ {
						iw := ow*win.Stride + j - win.Pad
						if ih >= 0 && ih < h && iw >= 0 && iw < w {
							fn(col, plane+ih*w+iw)
						}
						col++
					}
				}
			}
		}
	}
}
