package nn

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// SinusoidalEncoding implements the fixed sin/cos positional encodings from
// the original transformer:
//
//	PE(pos, 2i)   = sin(pos / 10000^(2i/d))
//	PE(pos, 2i+1) = cos(pos / 10000^(2i/d))
//
// The encodings are not learned; they are added to the token embeddings
// before the first block.
type SinusoidalEncoding struct {
	encoding *tensor.Tensor // [maxLen, dim]
	MaxLen   int
	Dim      int
}

// NewSinusoidalEncoding precomputes encodings for positions [0, maxLen).
func NewSinusoidalEncoding(maxLen, dim int) *SinusoidalEncoding {
	if maxLen <= 0 || dim <= 0 {
		panic(fmt.Sprintf("SinusoidalEncoding: dimensions must be positive, got maxLen=%d dim=%d", maxLen, dim))
	}

	enc := tensor.Zeros(tensor.Shape{maxLen, dim})
	data := enc.Data()
	for pos := 0; pos < maxLen; pos++ {
		for i := 0; i < dim; i++ {
			angle := float64(pos) / math.Pow(10000, float64(2*(i/2))/float64(dim))
			if i%2 == 0 {
				data[pos*dim+i] = float32(math.Sin(angle))
			} else {
				data[pos*dim+i] = float32(math.Cos(angle))
			}
		}
	}

	return &SinusoidalEncoding{encoding: enc, MaxLen: maxLen, Dim: dim}
}

// Forward returns encodings for the first seqLen positions, shaped
// [1, seqLen, dim] for broadcasting over the batch.
func (s *SinusoidalEncoding) Forward(seqLen int) *tensor.Tensor {
	if seqLen <= 0 || seqLen > s.MaxLen {
		panic(fmt.Sprintf("SinusoidalEncoding: seqLen %d out of range (0, %d]", seqLen, s.MaxLen))
	}
	data := s.encoding.Data()[:seqLen*s.Dim]
	out, err := tensor.FromSlice(data, tensor.Shape{1, seqLen, s.Dim})
	if err != nil {
		panic(fmt.Sprintf("SinusoidalEncoding: %v", err))
	}
	return out
}

// LearnedPositionalEmbedding implements GPT-2-style trained position
// embeddings: a [maxLen, dim] table initialized from N(0, 0.02) and added to
// the token embeddings.
type LearnedPositionalEmbedding struct {
	Embedding *Embedding
	MaxLen    int
	Dim       int
}

// NewLearnedPositionalEmbedding creates a learned positional table.
func NewLearnedPositionalEmbedding(maxLen, dim int, init Init) *LearnedPositionalEmbedding {
	if maxLen <= 0 || dim <= 0 {
		panic(fmt.Sprintf("LearnedPositionalEmbedding: dimensions must be positive, got maxLen=%d dim=%d", maxLen, dim))
	}
	return &LearnedPositionalEmbedding{
		Embedding: NewEmbedding(maxLen, dim, init),
		MaxLen:    maxLen,
		Dim:       dim,
	}
}

// Forward returns embeddings for positions [0, seqLen), shaped
// [1, seqLen, dim] for broadcasting over the batch.
func (l *LearnedPositionalEmbedding) Forward(seqLen int) *tensor.Tensor {
	if seqLen <= 0 || seqLen > l.MaxLen {
		panic(fmt.Sprintf("LearnedPositionalEmbedding: seqLen %d out of range (0, %d]", seqLen, l.MaxLen))
	}
	positions := make([]int32, seqLen)
	for i := range positions {
		positions[i] = int32(i)
	}
	return l.Embedding.Forward([][]int32{positions})
}

// ALiBi adds a linear distance penalty to attention scores instead of
// encoding position in the embeddings:
//
//	scores[h, i, j] += -slope[h] * |i - j|
//
// Each head gets a slope from the geometric sequence 2^(-8i/n) for n heads,
// so some heads look mostly at neighbors and others reach further back.
type ALiBi struct {
	NumHeads int
	Slopes   []float32
}

// NewALiBi precomputes the per-head slope schedule.
func NewALiBi(numHeads int) *ALiBi {
	if numHeads <= 0 {
		panic(fmt.Sprintf("ALiBi: numHeads must be positive, got %d", numHeads))
	}
	slopes := make([]float32, numHeads)
	ratio := math.Pow(2, -8/float64(numHeads))
	for i := range slopes {
		slopes[i] = float32(math.Pow(ratio, float64(i+1)))
	}
	return &ALiBi{NumHeads: numHeads, Slopes: slopes}
}

// Bias returns the additive attention bias [1, numHeads, seqLen, seqLen],
// where bias[0, h, i, j] = -slope[h] * |i - j|. The leading dimension
// broadcasts over the batch.
func (a *ALiBi) Bias(seqLen int) *tensor.Tensor {
	if seqLen <= 0 {
		panic(fmt.Sprintf("ALiBi: seqLen must be positive, got %d", seqLen))
	}
	bias := tensor.Zeros(tensor.Shape{1, a.NumHeads, seqLen, seqLen})
	data := bias.Data()
	for h, slope := range a.Slopes {
		for i := 0; i < seqLen; i++ {
			for j := 0; j < seqLen; j++ {
				dist := i - j
				if dist < 0 {
					dist = -dist
				}
				data[(h*seqLen+i)*seqLen+j] = -slope * float32(dist)
			}
		}
	}
	return bias
}
