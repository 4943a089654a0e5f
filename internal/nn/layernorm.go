package nn

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// LayerNorm normalizes activations along the last dimension:
//
//	y = gamma * (x - mean(x)) / sqrt(var(x) + eps) + beta
//
// Gamma starts at one and beta at zero, so a fresh layer is the identity
// up to normalization.
type LayerNorm struct {
	Gamma   *Parameter // learnable scale [dim]
	Beta    *Parameter // learnable shift [dim]
	Dim     int
	Epsilon float32
}

// NewLayerNorm creates a LayerNorm over the last dimension of size dim.
func NewLayerNorm(dim int, epsilon float32) *LayerNorm {
	if dim <= 0 {
		panic(fmt.Sprintf("LayerNorm: dim must be positive, got %d", dim))
	}
	if epsilon <= 0 {
		panic(fmt.Sprintf("LayerNorm: epsilon must be positive, got %g", epsilon))
	}
	return &LayerNorm{
		Gamma:   NewParameter("gamma", tensor.Ones(tensor.Shape{dim})),
		Beta:    NewParameter("beta", tensor.Zeros(tensor.Shape{dim})),
		Dim:     dim,
		Epsilon: epsilon,
	}
}

// Forward applies layer normalization over the last dimension.
//
// Input may have any number of leading dimensions; the last must equal Dim.
func (l *LayerNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if shape[len(shape)-1] != l.Dim {
		panic(fmt.Sprintf("LayerNorm.Forward: last dimension is %d, want %d", shape[len(shape)-1], l.Dim))
	}

	out := tensor.Zeros(shape)
	xData := x.Data()
	outData := out.Data()
	gamma := l.Gamma.Tensor().Data()
	beta := l.Beta.Tensor().Data()

	rows := len(xData) / l.Dim
	for r := 0; r < rows; r++ {
		row := xData[r*l.Dim : (r+1)*l.Dim]
		dst := outData[r*l.Dim : (r+1)*l.Dim]

		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(l.Dim)

		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(l.Dim)

		inv := 1 / math.Sqrt(variance+float64(l.Epsilon))
		for i, v := range row {
			norm := (float64(v) - mean) * inv
			dst[i] = gamma[i]*float32(norm) + beta[i]
		}
	}
	return out
}
