package cpu

import (
	"math"

	"github.com/born-ml/dnn/internal/parallel"
	"github.com/born-ml/dnn/internal/tensor"
)

// MaxPool2D takes the maximum over each window of x.
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, OH, OW]
//
// The second result holds, for every output element, the flat index into x
// of the value that won the window (-1 if the window only covered padding).
// Padding never wins: it is skipped rather than read as 0.
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]   (2x2 window, stride 2)
func MaxPool2D(x *tensor.Tensor, win Window, outH, outW int) (*tensor.Tensor, []int) {
	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]

	out := tensor.New(tensor.Shape{n, c, outH, outW})
	argmax := make([]int, out.NumElements())
	src, dst := x.Data(), out.Data()

	parallel.For(n*c, split(), func(lo, hi int) {
		for plane := lo; plane < hi; plane++ {
			base := plane * h * w
			idx := plane * outH * outW
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					best, bestPos := math.Inf(-1), -1
					forEachInWindow(win, oh, ow, h, w, func(off int) {
						if v := src[base+off]; v > best {
							best, bestPos = v, base+off
						}
					})
					if bestPos < 0 {
						best = 0
					}
					dst[idx], argmax[idx] = best, bestPos
					idx++
				}
			}
		}
	})
	return out, argmax
}

// MaxPool2DBackward routes each output gradient to the input position that
// produced the maximum in the forward pass. All other positions receive 0.
func MaxPool2DBackward(dy *tensor.Tensor, inShape tensor.Shape, argmax []int) *tensor.Tensor {
	dx := tensor.New(inShape)
	grad, src := dx.Data(), dy.Data()
	planeOut := dy.Dim(2) * dy.Dim(3)

	// argmax of plane p only points into plane p of dx.
	parallel.For(inShape[0]*inShape[1], split(), func(lo, hi int) {
		for i := lo * planeOut; i < hi*planeOut; i++ {
			if pos := argmax[i]; pos >= 0 {
				grad[pos] += src[i]
			}
		}
	})
	return dx
}

// AvgPool2D averages each window of x. Padding counts as zeros in the
// average, so every window divides by KH*KW.
func AvgPool2D(x *tensor.Tensor, win Window, outH, outW int) *tensor.Tensor {
	shape := x.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]
	scale := 1 / float64(win.KH*win.KW)

	out := tensor.New(tensor.Shape{n, c, outH, outW})
	src, dst := x.Data(), out.Data()

	parallel.For(n*c, split(), func(lo, hi int) {
		for plane := lo; plane < hi; plane++ {
			base := plane * h * w
			idx := plane * outH * outW
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					sum := 0.0
					forEachInWindow(win, oh, ow, h, w, func(off int) {
						sum += src[base+off]
					})
					dst[idx] = sum * scale
					idx++
				}
			}
		}
	})
	return out
}

// AvgPool2DBackward spreads each output gradient evenly over its window.
func AvgPool2DBackward(dy *tensor.Tensor, inShape tensor.Shape, win Window) *tensor.Tensor {
	n, c, h, w := inShape[0], inShape[1], inShape[2], inShape[3]
	outH, outW := dy.Dim(2), dy.Dim(3)
	scale := 1 / float64(win.KH*win.KW)

	dx := tensor.New(inShape)
	src, dst := dy.Data(), dx.Data()

	parallel.For(n*c, split(), func(lo, hi int) {
		for plane := lo; plane < hi; plane++ {
			base := plane * h * w
			idx := plane * outH * outW
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					g := src[idx] * scale
					forEachInWindow(win, oh, ow, h, w, func(off int) {
						dst[base+off] += g
					})
					idx++
				}
			}
		}
	})
	return dx
}

// forEachInWindow calls fn with the in-plane offset of every non-padding
// cell of the window at (oh, ow).
func forEachInWindow(win Window, oh, ow, h, w int, fn func(off int)) {
	for i := 0; i < win.KH; i++ {
		ih := oh*win.Stride + i - win.Pad
		if ih < 0 || ih >= h {
			continue
		}
		for j := 0; j < win.KW; j++ {
			iw := ow*win.Stride + j - win.Pad
			if iw < 0 || iw >= w {
				continue
			}
			fn(ih*w + iw)
		}
	}
}
