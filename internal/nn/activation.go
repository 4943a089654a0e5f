package nn

import (
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// GELU applies the Gaussian Error Linear Unit with the tanh approximation
// used by GPT-2:
//
//	GELU(x) ≈ 0.5 * x * (1 + tanh(sqrt(2/π) * (x + 0.044715 * x³)))
//
// The exact erf form differs from this by well under 1e-3 and either would
// do; the approximation is kept so imported GPT-2 weights see the same
// activation they were trained with.
type GELU struct{}

// NewGELU creates a GELU activation.
func NewGELU() *GELU {
	return &GELU{}
}

const geluCoeff = 0.044715

// Forward applies GELU element-wise.
func (g *GELU) Forward(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.Zeros(x.Shape())
	src := x.Data()
	dst := out.Data()

	sqrt2OverPi := math.Sqrt(2 / math.Pi)
	for i, v := range src {
		xf := float64(v)
		inner := sqrt2OverPi * (xf + geluCoeff*xf*xf*xf)
		dst[i] = float32(0.5 * xf * (1 + math.Tanh(inner)))
	}
	return out
}
