// Package gradcheck compares analytic gradients against centered finite
// differences.
//
// For every scalar θ_i the numerical gradient is
//
//	(L(θ + ε·e_i) - L(θ - ε·e_i)) / 2ε
//
// and the relative error against the analytic gradient a is
//
//	|a - n| / max(|a|, |n|, floor)
//
// The checker is a development oracle, not part of the training path: it
// runs two forward passes per scalar.
package gradcheck

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// InputName is the report entry for the gradient with respect to the layer
// input.
const InputName = "input"

// Floor keeps the relative error meaningful when both gradients are ~0.
const Floor = 1e-4

// ErrMismatch is returned when an analytic gradient disagrees with its
// numerical estimate beyond the tolerance.
var ErrMismatch = errors.New("gradcheck: analytic and numerical gradients disagree")

// MismatchError describes the worst disagreeing entry.
type MismatchError struct {
	Param     string
	Index     int
	Analytic  float64
	Numeric   float64
	RelErr    float64
	Tolerance float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("gradcheck: %s[%d]: analytic %.8g, numerical %.8g, relative error %.3g > %.3g",
		e.Param, e.Index, e.Analytic, e.Numeric, e.RelErr, e.Tolerance)
}

// Unwrap allows errors.Is(err, ErrMismatch).
func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Options configures a check. Zero values select the defaults.
type Options struct {
	Step      float64 // Finite-difference step ε (default 1e-5)
	Tolerance float64 // Maximum relative error (default 1e-4)
	Seed      uint64  // Seed for the random upstream gradient of Layer checks

	// BeforeForward runs before every forward pass. Layers that draw random
	// numbers (Dropout) use it to reseed their source so that every pass
	// sees the same mask.
	BeforeForward func()
}

func (o Options) withDefaults() Options {
	if o.Step == 0 {
		o.Step = 1e-5
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-4
	}
	if o.BeforeForward == nil {
		o.BeforeForward = func() {}
	}
	return o
}

// Result summarises one gradient tensor.
type Result struct {
	Name      string
	MaxRelErr float64
	Index     int // flat index of the worst entry
	Analytic  float64
	Numeric   float64
}

// Report lists one Result per checked tensor, in check order.
type Report struct {
	Results   []Result
	Tolerance float64
}

// Worst returns the Result with the largest relative error.
func (r *Report) Worst() Result {
	var worst Result
	for i, res := range r.Results {
		if i == 0 || res.MaxRelErr > worst.MaxRelErr {
			worst = res
		}
	}
	return worst
}

// Get returns the Result for name.
func (r *Report) Get(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// err converts the report into a *MismatchError if any entry exceeds the
// tolerance.
func (r *Report) err() error {
	w := r.Worst()
	if w.MaxRelErr <= r.Tolerance {
		return nil
	}
	return &MismatchError{
		Param:     w.Name,
		Index:     w.Index,
		Analytic:  w.Analytic,
		Numeric:   w.Numeric,
		RelErr:    w.MaxRelErr,
		Tolerance: r.Tolerance,
	}
}

// RelativeError returns |a - n| / max(|a|, |n|, Floor).
func RelativeError(a, n float64) float64 {
	return math.Abs(a-n) / math.Max(math.Max(math.Abs(a), math.Abs(n)), Floor)
}

func compare(name string, analytic, numeric []float64) Result {
	res := Result{Name: name}
	for i := range analytic {
		e := RelativeError(analytic[i], numeric[i])
		if i == 0 || e > res.MaxRelErr {
			res.MaxRelErr, res.Index = e, i
			res.Analytic, res.Numeric = analytic[i], numeric[i]
		}
	}
	return res
}

// numeric estimates ∂f/∂v at x with centered differences. set installs a
// candidate point; eval returns the scalar objective.
func numeric(x []float64, opts Options, set func([]float64), eval func() (float64, error)) ([]float64, error) {
	var evalErr error
	f := func(v []float64) float64 {
		if evalErr != nil {
			return math.NaN()
		}
		set(v)
		opts.BeforeForward()
		y, err := eval()
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return y
	}
	grad := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central, Step: opts.Step})
	set(x)
	if evalErr != nil {
		return nil, evalErr
	}
	return grad, nil
}

// Network checks every parameter gradient of net for one batch against
// centered differences of net.Loss. Parameters and layer buffers are
// restored before returning.
func Network(net *nn.Network, x, labels *tensor.Tensor, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	saved := net.StateDict()
	defer func() { _ = net.LoadStateDict(saved) }()

	opts.BeforeForward()
	grads, _, err := net.Gradient(x, labels)
	if err != nil {
		return nil, err
	}
	analytic := make(map[string][]float64, len(grads))
	for name, g := range grads {
		analytic[name] = append([]float64(nil), g.Data()...)
	}

	report := &Report{Tolerance: opts.Tolerance}
	for _, p := range net.Parameters() {
		data := p.Value().Data()
		orig := append([]float64(nil), data...)
		num, err := numeric(orig, opts,
			func(v []float64) { copy(data, v) },
			func() (float64, error) { return net.Loss(x, labels) },
		)
		if err != nil {
			return nil, fmt.Errorf("gradcheck: %s: %w", p.Name(), err)
		}
		report.Results = append(report.Results, compare(p.Name(), analytic[p.Name()], num))
	}
	return report, report.err()
}

// Layer checks the input gradient and every parameter gradient of a single
// layer using the scalar objective L = Σ y ⊙ r, where r is a fixed random
// tensor with the output's shape. Backward is fed r directly.
func Layer(layer nn.Layer, x *tensor.Tensor, mode nn.Mode, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	restore := saveLayerState(layer)
	defer restore()

	opts.BeforeForward()
	y, err := layer.Forward(x, mode)
	if err != nil {
		return nil, err
	}
	r := tensor.RandNormal(y.Shape(), 0, 1, rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)))
	dx, err := layer.Backward(r)
	if err != nil {
		return nil, err
	}
	dxData := append([]float64(nil), dx.Data()...)

	params := layer.Parameters()
	analytic := make([][]float64, len(params))
	for i, p := range params {
		analytic[i] = append([]float64(nil), p.Grad().Data()...)
	}

	objective := func(in *tensor.Tensor) func() (float64, error) {
		return func() (float64, error) {
			out, err := layer.Forward(in, mode)
			if err != nil {
				return 0, err
			}
			return floats.Dot(out.Data(), r.Data()), nil
		}
	}

	report := &Report{Tolerance: opts.Tolerance}

	xv := x.Clone()
	num, err := numeric(x.Data(), opts, func(v []float64) { copy(xv.Data(), v) }, objective(xv))
	if err != nil {
		return nil, fmt.Errorf("gradcheck: %s: %w", InputName, err)
	}
	report.Results = append(report.Results, compare(InputName, dxData, num))

	for i, p := range params {
		data := p.Value().Data()
		orig := append([]float64(nil), data...)
		num, err := numeric(orig, opts, func(v []float64) { copy(data, v) }, objective(x))
		if err != nil {
			return nil, fmt.Errorf("gradcheck: %s: %w", p.Name(), err)
		}
		report.Results = append(report.Results, compare(p.Name(), analytic[i], num))
	}
	return report, report.err()
}

// saveLayerState snapshots parameters and buffers so that the repeated
// forward passes of a check leave the layer as it was.
func saveLayerState(layer nn.Layer) func() {
	var live, saved []*tensor.Tensor
	for _, p := range layer.Parameters() {
		live = append(live, p.Value())
		saved = append(saved, p.Value().Clone())
	}
	if s, ok := layer.(nn.Stateful); ok {
		for _, buf := range s.Buffers() {
			live = append(live, buf)
			saved = append(saved, buf.Clone())
		}
	}
	return func() {
		for i, t := range live {
			t.CopyFrom(saved[i])
		}
	}
}
