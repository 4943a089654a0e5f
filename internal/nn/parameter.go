package nn

import "github.com/quill-ml/quill/internal/tensor"

// Parameter is a named model weight.
//
// Parameters may be shared between modules: weight tying stores the *same*
// Parameter (and therefore the same backing storage) in both the token
// embedding and the output projection, so a write through one is observed
// through the other.
type Parameter struct {
	name   string
	tensor *tensor.Tensor
}

// NewParameter creates a parameter wrapping an initialized tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "wte.weight").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}
