// Package cpu implements the sliding-window kernels used by the
// convolution and pooling layers: im2col/col2im and pooling with arg-max
// bookkeeping. Dense arithmetic lives in the tensor package.
package cpu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/born-ml/dnn/internal/parallel"
)

// ErrWindow reports a window/stride/padding combination that does not tile
// the input.
var ErrWindow = errors.New("cpu: improper combination of input size, window and stride")

// Window describes a 2-D sliding window.
//
//	out_h = (height + 2*Pad - KH) / Stride + 1
//	out_w = (width  + 2*Pad - KW) / Stride + 1
type Window struct {
	KH, KW int
	Stride int
	Pad    int
}

// Output returns the output spatial size for an input of h×w.
//
// The window must tile the padded input exactly: (h + 2*Pad - KH) must be
// divisible by Stride, and likewise for the width.
func (win Window) Output(h, w int) (int, int, error) {
	if win.KH <= 0 || win.KW <= 0 || win.Stride <= 0 || win.Pad < 0 {
		return 0, 0, fmt.Errorf("%w: kernel %dx%d, stride %d, pad %d", ErrWindow, win.KH, win.KW, win.Stride, win.Pad)
	}
	spanH := h + 2*win.Pad - win.KH
	spanW := w + 2*win.Pad - win.KW
	if spanH < 0 || spanW < 0 {
		return 0, 0, fmt.Errorf("%w: kernel %dx%d larger than padded input %dx%d",
			ErrWindow, win.KH, win.KW, h+2*win.Pad, w+2*win.Pad)
	}
	if spanH%win.Stride != 0 || spanW%win.Stride != 0 {
		return 0, 0, fmt.Errorf("%w: (%d+2*%d-%d) and (%d+2*%d-%d) must be divisible by stride %d",
			ErrWindow, h, win.Pad, win.KH, w, win.Pad, win.KW, win.Stride)
	}
	return spanH/win.Stride + 1, spanW/win.Stride + 1, nil
}

// workers holds the split of the batch (or the N*C planes) used by every
// kernel. Each goroutine writes only its own samples, so results do not
// depend on it. A nil value means parallel.DefaultConfig.
var workers atomic.Pointer[parallel.Config]

// split returns the work split for one kernel call.
func split() parallel.Config {
	if cfg := workers.Load(); cfg != nil {
		return *cfg
	}
	return parallel.DefaultConfig()
}

// SetParallelism replaces the work split used by the kernels and returns
// the previous one. It is safe to call while kernels run; a call already
// in progress keeps the split it started with.
func SetParallelism(cfg parallel.Config) parallel.Config {
	prev := workers.Swap(&cfg)
	if prev == nil {
		return parallel.DefaultConfig()
	}
	return *prev
}
