package nn

import (
	"fmt"

	"github.com/quill-ml/quill/internal/tensor"
)

// Embedding is a lookup table mapping token IDs to dense vectors.
//
// The weight matrix [num_embed, embed_dim] is drawn from N(0, 0.02),
// matching the GPT-2 embedding initialization.
type Embedding struct {
	Weight   *Parameter // [num_embed, embed_dim]
	NumEmbed int
	EmbedDim int
}

// NewEmbedding creates an embedding table for numEmbed entries of dimension
// embedDim.
func NewEmbedding(numEmbed, embedDim int, init Init) *Embedding {
	if numEmbed <= 0 || embedDim <= 0 {
		panic(fmt.Sprintf("Embedding: dimensions must be positive, got num=%d dim=%d", numEmbed, embedDim))
	}
	weight := tensor.Randn(tensor.Shape{numEmbed, embedDim}, baseInitStd, init.Rng)
	return &Embedding{
		Weight:   NewParameter("weight", weight),
		NumEmbed: numEmbed,
		EmbedDim: embedDim,
	}
}

// Forward looks up embeddings for a batch of token ID sequences.
//
// All sequences in the batch must have the same length. Returns a tensor of
// shape [batch, seq, embed_dim]. Panics on an out-of-range token ID.
func (e *Embedding) Forward(idx [][]int32) *tensor.Tensor {
	if len(idx) == 0 || len(idx[0]) == 0 {
		panic("Embedding.Forward: empty input")
	}
	batch, seq := len(idx), len(idx[0])

	out := tensor.Zeros(tensor.Shape{batch, seq, e.EmbedDim})
	outData := out.Data()
	weightData := e.Weight.Tensor().Data()

	for b, row := range idx {
		if len(row) != seq {
			panic(fmt.Sprintf("Embedding.Forward: ragged batch: sequence %d has length %d, want %d", b, len(row), seq))
		}
		for t, id := range row {
			if id < 0 || int(id) >= e.NumEmbed {
				panic(fmt.Sprintf("Embedding.Forward: token ID %d out of range [0, %d)", id, e.NumEmbed))
			}
			src := weightData[int(id)*e.EmbedDim : (int(id)+1)*e.EmbedDim]
			dst := outData[(b*seq+t)*e.EmbedDim : (b*seq+t+1)*e.EmbedDim]
			copy(dst, src)
		}
	}
	return out
}
