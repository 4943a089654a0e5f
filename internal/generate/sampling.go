// Package generate runs autoregressive sampling over a quill GPT model.
//
// Tokenization is out of scope: the package consumes and produces token IDs.
package generate

import (
	"math"
	"math/rand"
	"sort"
)

// SamplingConfig configures the sampling strategy.
type SamplingConfig struct {
	// Temperature controls randomness. 0 = greedy, 1 = unmodified distribution.
	Temperature float32

	// TopK limits sampling to the K highest-probability tokens. 0 = disabled.
	TopK int

	// TopP (nucleus sampling) limits to the smallest token set with
	// cumulative probability ≥ P. 1.0 = disabled.
	TopP float32

	// Seed for reproducibility. Negative = random.
	Seed int64
}

// DefaultSamplingConfig returns sensible defaults for text generation.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature: 1.0,
		TopK:        0,
		TopP:        1.0,
		Seed:        -1,
	}
}

// Sampler samples next tokens from logits.
type Sampler struct {
	config SamplingConfig
	rng    *rand.Rand
}

// NewSampler creates a sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	seed := config.Seed
	if seed < 0 {
		seed = rand.Int63()
	}
	return &Sampler{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Sample returns the next token ID for a vocabulary-sized logits slice.
//
// Temperature is applied first; temperature 0 short-circuits to argmax.
// Top-K and then top-P filtering restrict the candidate set before the
// multinomial draw.
func (s *Sampler) Sample(logits []float32) int32 {
	if len(logits) == 0 {
		panic("Sampler.Sample: empty logits")
	}

	if s.config.Temperature == 0 {
		return argmax(logits)
	}

	scaled := make([]float32, len(logits))
	copy(scaled, logits)
	if s.config.Temperature != 1.0 {
		for i := range scaled {
			scaled[i] /= s.config.Temperature
		}
	}

	probs := softmax(scaled)

	// Candidates sorted by descending probability, filtered by top-k/top-p.
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	keep := len(idx)
	if s.config.TopK > 0 && s.config.TopK < keep {
		keep = s.config.TopK
	}
	if s.config.TopP > 0 && s.config.TopP < 1.0 {
		var cum float32
		for i := 0; i < keep; i++ {
			cum += probs[idx[i]]
			if cum >= s.config.TopP {
				keep = i + 1
				break
			}
		}
	}
	idx = idx[:keep]

	var total float32
	for _, i := range idx {
		total += probs[i]
	}

	r := s.rng.Float32() * total
	var cum float32
	for _, i := range idx {
		cum += probs[i]
		if r < cum {
			return int32(i)
		}
	}
	return int32(idx[len(idx)-1]) // rounding fallthrough
}

func argmax(logits []float32) int32 {
	maxIdx := 0
	maxVal := logits[0]
	for i, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
			maxIdx = i + 1
		}
	}
	return int32(maxIdx)
}

func softmax(logits []float32) []float32 {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	probs := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		probs[i] = float32(e)
		sum += e
	}
	inv := float32(1 / sum)
	for i := range probs {
		probs[i] *= inv
	}
	return probs
}
