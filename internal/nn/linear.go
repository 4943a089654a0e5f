package nn

import (
	"fmt"

	"github.com/quill-ml/quill/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// The weight has shape [out_features, in_features] and is drawn from a
// zero-mean normal distribution whose standard deviation is chosen by the
// InitPolicy; the bias (when present) starts at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features], nil when constructed without bias
}

// NewLinear creates a Linear layer with freshly initialized weights.
//
// Parameters:
//   - inFeatures, outFeatures: layer dimensions
//   - withBias: whether to allocate a zero-initialized bias
//   - policy: weight initialization policy (see InitPolicy)
//   - init: model-wide initialization context (depth, random source)
func NewLinear(inFeatures, outFeatures int, withBias bool, policy InitPolicy, init Init) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("Linear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	std := policy.Std(init.NumLayers)
	weight := tensor.Randn(tensor.Shape{outFeatures, inFeatures}, std, init.Rng)

	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
	}
	if withBias {
		l.bias = NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures}))
	}
	return l
}

// LinearFromWeight creates a bias-free Linear layer that shares an existing
// weight parameter. This is how the output projection ties its weight to the
// token embedding: both modules hold the identical Parameter, not a copy.
func LinearFromWeight(weight *Parameter) *Linear {
	shape := weight.Tensor().Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("LinearFromWeight: weight must be 2D, got shape %v", shape))
	}
	return &Linear{
		inFeatures:  shape[1],
		outFeatures: shape[0],
		weight:      weight,
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch, in_features]. Output shape: [batch, out_features].
// Callers with sequence inputs flatten [batch, seq, features] to
// [batch*seq, features] first.
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	output := input.MatMul(l.weight.Tensor().Transpose())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}
	return output
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil when the layer has no bias.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
