package nn

import (
	"math"
	"math/rand"
)

// InitPolicy selects how a module's weights are initialized.
//
// GPT-2 draws every weight from N(0, 0.02). Projections that feed the
// residual stream (the attention output projection and the second MLP
// linear) additionally shrink the standard deviation by 1/sqrt(2*NLayer):
// each block adds two such projections to the stream, and without the
// shrink the stream's variance would grow linearly with depth.
//
// The policy is passed explicitly at module construction rather than
// tagged onto weights after the fact.
type InitPolicy int

const (
	// InitNormal draws weights from N(0, 0.02).
	InitNormal InitPolicy = iota
	// InitResidual draws weights from N(0, 0.02/sqrt(2*NLayer)).
	InitResidual
)

const baseInitStd = 0.02

// Std returns the standard deviation for this policy in a model with
// numLayers transformer blocks.
func (p InitPolicy) Std(numLayers int) float64 {
	std := baseInitStd
	if p == InitResidual {
		std *= 1 / math.Sqrt(float64(2*numLayers))
	}
	return std
}

// Init carries the model-wide context initialization needs: the depth (for
// residual scaling) and the random source (for reproducible construction).
type Init struct {
	NumLayers int
	Rng       *rand.Rand
}
