package nn

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// Network is an ordered stack of layers terminated by a loss layer.
//
// Each layer's output becomes the next layer's input; the loss layer turns
// the final activations and the labels into a scalar. Parameters are
// addressed by "<layer index>.<parameter name>" (e.g. "0.weight",
// "3.gamma"), which is also the key space of Params, Grads and StateDict.
//
// Example:
//
//	net, err := nn.NewNetwork([]nn.Layer{
//	    nn.NewAffine(784, 128, nn.He, rng),
//	    nn.NewReLU(),
//	    nn.NewAffine(128, 10, nn.He, rng),
//	}, nn.NewSoftmaxCrossEntropy(), nn.WithInputShape(tensor.Shape{784}))
//
//	grads, loss, err := net.Gradient(x, labels)
type Network struct {
	layers []Layer
	loss   LossLayer
	params []*Parameter

	inputShape tensor.Shape
	accumulate bool

	// pending is set by Loss and cleared by Backward: Backward consumes the
	// caches left by exactly one training forward pass.
	pending bool
}

// Option configures a Network.
type Option func(*Network)

// WithInputShape declares the per-sample input shape. The layer shapes are
// then checked once in NewNetwork instead of at the first forward pass.
func WithInputShape(shape tensor.Shape) Option {
	return func(n *Network) { n.inputShape = shape.Clone() }
}

// WithGradientAccumulation makes Backward add into the parameter gradients
// instead of overwriting them. Call ZeroGrad between optimizer steps.
func WithGradientAccumulation() Option {
	return func(n *Network) { n.accumulate = true }
}

// NewNetwork builds a network from layers and a terminal loss layer.
//
// Parameters are renamed to "<index>.<name>". If WithInputShape is given,
// every layer's OutputShape is checked and a mismatch is returned as a
// *ShapeError naming the layer.
func NewNetwork(layers []Layer, loss LossLayer, opts ...Option) (*Network, error) {
	if loss == nil {
		return nil, errors.New("nn: network needs a loss layer")
	}
	n := &Network{layers: layers, loss: loss}
	for _, opt := range opts {
		opt(n)
	}

	seen := make(map[*Parameter]bool)
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("nn: layer %d is nil", i)
		}
		for _, p := range l.Parameters() {
			if seen[p] {
				return nil, fmt.Errorf("nn: parameter %q of layer %d is shared", p.local, i)
			}
			seen[p] = true
			p.qualify(fmt.Sprintf("%d.", i))
			p.accumulate = n.accumulate
			n.params = append(n.params, p)
		}
	}

	if n.inputShape != nil {
		if _, err := n.OutputShape(n.inputShape); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// OutputShape propagates a per-sample input shape through every layer and
// validates it against the loss layer.
func (n *Network) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	shape := in
	for i, l := range n.layers {
		out, err := l.OutputShape(shape)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		shape = out
	}
	if err := n.loss.CheckInput(shape); err != nil {
		return nil, fmt.Errorf("loss: %w", err)
	}
	return shape, nil
}

// Layers returns the layers in order.
func (n *Network) Layers() []Layer { return n.layers }

// LossLayer returns the terminal loss layer.
func (n *Network) LossLayer() LossLayer { return n.loss }

// Parameters returns all trainable parameters in layer order.
func (n *Network) Parameters() []*Parameter { return n.params }

// Params returns the parameter values keyed by qualified name. The tensors
// are the live parameter storage.
func (n *Network) Params() map[string]*tensor.Tensor {
	out := make(map[string]*tensor.Tensor, len(n.params))
	for _, p := range n.params {
		out[p.name] = p.value
	}
	return out
}

// Grads returns the parameter gradients keyed by qualified name.
func (n *Network) Grads() map[string]*tensor.Tensor {
	out := make(map[string]*tensor.Tensor, len(n.params))
	for _, p := range n.params {
		out[p.name] = p.grad
	}
	return out
}

// ZeroGrad resets every parameter gradient.
func (n *Network) ZeroGrad() {
	for _, p := range n.params {
		p.ZeroGrad()
	}
}

func (n *Network) forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error) {
	h := x
	for i, l := range n.layers {
		out, err := l.Forward(h, mode)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		h = out
	}
	return h, nil
}

// Predict runs an inference-mode forward pass and maps the final
// activations through the loss layer's Predict.
func (n *Network) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	n.pending = false
	h, err := n.forward(x, Infer)
	if err != nil {
		return nil, err
	}
	return n.loss.Predict(h)
}

// Loss runs a training-mode forward pass and returns the mean loss over the
// batch. It leaves the caches Backward needs.
func (n *Network) Loss(x, labels *tensor.Tensor) (float64, error) {
	n.pending = false
	h, err := n.forward(x, Train)
	if err != nil {
		return 0, err
	}
	loss, err := n.loss.Forward(h, labels)
	if err != nil {
		return 0, fmt.Errorf("loss: %w", err)
	}
	n.pending = true
	return loss, nil
}

// Backward propagates the gradient of the last Loss call through every
// layer in reverse order, filling each parameter's gradient. It returns
// ErrNoForwardCache if Loss has not been called since the last Backward or
// Predict.
func (n *Network) Backward() error {
	if !n.pending {
		return ErrNoForwardCache
	}
	n.pending = false

	dy, err := n.loss.Backward()
	if err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	for i := len(n.layers) - 1; i >= 0; i-- {
		dy, err = n.layers[i].Backward(dy)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}

	for _, p := range n.params {
		for _, v := range p.grad.Data() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &InstabilityError{Layer: p.name, Value: v}
			}
		}
	}
	return nil
}

// Gradient computes the loss and the gradient of every parameter for one
// batch. The returned map aliases the parameter gradient storage.
func (n *Network) Gradient(x, labels *tensor.Tensor) (map[string]*tensor.Tensor, float64, error) {
	loss, err := n.Loss(x, labels)
	if err != nil {
		return nil, 0, err
	}
	if err := n.Backward(); err != nil {
		return nil, 0, err
	}
	return n.Grads(), loss, nil
}

// Accuracy returns the fraction of samples whose arg-max prediction matches
// the label. Labels are class indices [batch] or one-hot [batch, classes].
func (n *Network) Accuracy(x, labels *tensor.Tensor) (float64, error) {
	pred, err := n.Predict(x)
	if err != nil {
		return 0, err
	}
	return accuracyOf(pred, labels)
}

func accuracyOf(pred, labels *tensor.Tensor) (float64, error) {
	if pred.Rank() != 2 {
		return 0, shapeErr("accuracy", nil, pred.Shape(), "predictions must be [batch, classes]")
	}
	if pred.Dim(1) == 1 {
		return binaryAccuracy(pred, labels)
	}
	want, err := ClassIndices(labels, pred.Dim(0), pred.Dim(1))
	if err != nil {
		return 0, shapeErr("accuracy", tensor.Shape{pred.Dim(0)}, shapeOf(labels), "%v", err)
	}
	correct := 0
	for i, c := range pred.ArgmaxRows() {
		if c == want[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(want)), nil
}

// binaryAccuracy thresholds single-unit probabilities at 0.5.
func binaryAccuracy(pred, labels *tensor.Tensor) (float64, error) {
	if labels == nil || labels.NumElements() != pred.Dim(0) {
		return 0, shapeErr("accuracy", tensor.Shape{pred.Dim(0)}, shapeOf(labels), "one label per sample")
	}
	want := labels.Data()
	correct := 0
	for i, p := range pred.Data() {
		if (p >= 0.5) == (want[i] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(want)), nil
}

// Evaluate computes the loss and accuracy of x in inference mode. Unlike
// Loss it cannot be followed by Backward and does not move BatchNorm
// running statistics.
func (n *Network) Evaluate(x, labels *tensor.Tensor) (loss, accuracy float64, err error) {
	n.pending = false
	h, err := n.forward(x, Infer)
	if err != nil {
		return 0, 0, err
	}
	loss, err = n.loss.Forward(h, labels)
	if err != nil {
		return 0, 0, fmt.Errorf("loss: %w", err)
	}
	pred, err := n.loss.Predict(h)
	if err != nil {
		return 0, 0, fmt.Errorf("loss: %w", err)
	}
	accuracy, err = accuracyOf(pred, labels)
	return loss, accuracy, err
}

// StateDict returns copies of all parameters and layer buffers keyed by
// "<index>.<name>".
func (n *Network) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	for _, p := range n.params {
		sd[p.name] = p.value.Clone()
	}
	for i, l := range n.layers {
		if s, ok := l.(Stateful); ok {
			for name, buf := range s.Buffers() {
				sd[fmt.Sprintf("%d.%s", i, name)] = buf.Clone()
			}
		}
	}
	return sd
}

// LoadStateDict copies values from a state dictionary into the network.
//
// Every parameter and buffer must be present with a matching shape;
// nothing is modified unless all entries validate. Extra keys are ignored.
func (n *Network) LoadStateDict(sd map[string]*tensor.Tensor) error {
	targets := n.stateTargets()
	for name, dst := range targets {
		src, ok := sd[name]
		if !ok {
			return fmt.Errorf("nn: state dict is missing %q", name)
		}
		if !src.Shape().Equal(dst.Shape()) {
			return &ShapeError{Layer: name, Want: dst.Shape(), Got: src.Shape(), Detail: "state dict entry"}
		}
	}
	for name, dst := range targets {
		dst.CopyFrom(sd[name])
	}
	return nil
}

func (n *Network) stateTargets() map[string]*tensor.Tensor {
	targets := n.Params()
	for i, l := range n.layers {
		if s, ok := l.(Stateful); ok {
			for name, buf := range s.Buffers() {
				targets[fmt.Sprintf("%d.%s", i, name)] = buf
			}
		}
	}
	return targets
}

// AverageGradients averages gradient maps computed on separate batches,
// such as the results of concurrent Gradient calls on replicated networks.
// All maps must have the same keys and shapes.
func AverageGradients(grads []map[string]*tensor.Tensor) (map[string]*tensor.Tensor, error) {
	if len(grads) == 0 {
		return nil, errors.New("nn: no gradients to average")
	}
	out := make(map[string]*tensor.Tensor, len(grads[0]))
	for name, g := range grads[0] {
		out[name] = g.Clone()
	}
	for i, m := range grads[1:] {
		if len(m) != len(out) {
			return nil, fmt.Errorf("nn: gradient set %d has %d entries, want %d", i+1, len(m), len(out))
		}
		for name, g := range m {
			acc, ok := out[name]
			if !ok {
				return nil, fmt.Errorf("nn: gradient set %d has unexpected key %q", i+1, name)
			}
			if !acc.Shape().Equal(g.Shape()) {
				return nil, &ShapeError{Layer: name, Want: acc.Shape(), Got: g.Shape(), Detail: "gradient"}
			}
			acc.AddInPlace(g)
		}
	}
	scale := 1 / float64(len(grads))
	for _, g := range out {
		g.ScaleInPlace(scale)
	}
	return out, nil
}
