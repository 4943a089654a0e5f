package nn

import (
	"fmt"

	"github.com/quill-ml/quill/internal/tensor"
)

// normEps is the LayerNorm epsilon used throughout the model.
const normEps = 1e-5

// MLP is the transformer feed-forward sublayer:
//
//	MLP(x) = CProj(GELU(CFc(x)))
//
// CFc expands NEmbed to 4*NEmbed and CProj projects back. CProj feeds the
// residual stream, so it uses InitResidual. No dropout anywhere — the model
// trains on a small single-author corpus where stochastic regularization
// mostly adds noise.
type MLP struct {
	CFc   *Linear // [NEmbed → 4*NEmbed]
	CProj *Linear // [4*NEmbed → NEmbed]
	GELU  *GELU

	embedDim int
}

// NewMLP creates the feed-forward sublayer for embedding dimension embedDim.
func NewMLP(embedDim int, init Init) *MLP {
	if embedDim <= 0 {
		panic(fmt.Sprintf("MLP: embedDim must be positive, got %d", embedDim))
	}
	return &MLP{
		CFc:      NewLinear(embedDim, 4*embedDim, true, InitNormal, init),
		CProj:    NewLinear(4*embedDim, embedDim, true, InitResidual, init),
		GELU:     NewGELU(),
		embedDim: embedDim,
	}
}

// Forward applies the feed-forward transform to [batch, seq, NEmbed] input.
func (m *MLP) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != m.embedDim {
		panic(fmt.Sprintf("MLP.Forward: expected [batch, seq, %d], got shape %v", m.embedDim, shape))
	}
	batch, seq := shape[0], shape[1]

	h := m.CFc.Forward(x.Reshape(batch*seq, m.embedDim))
	h = m.GELU.Forward(h)
	h = m.CProj.Forward(h)
	return h.Reshape(batch, seq, m.embedDim)
}

// Block is one pre-normalization transformer block:
//
//	x = x + attn(ln1(x))
//	x = x + mlp(ln2(x))
//
// Normalizing the input of each sublayer rather than its output keeps the
// residual stream itself unnormalized, which is what lets deep stacks train
// stably.
type Block struct {
	LN1  *LayerNorm
	Attn *CausalSelfAttention
	LN2  *LayerNorm
	MLP  *MLP
}

// NewBlock creates a transformer block. rope and alibi are shared across
// blocks by the model; either or both may be nil depending on the
// positional scheme.
func NewBlock(cfg Config, rope *RotaryEncoder, alibi *ALiBi, init Init) *Block {
	return &Block{
		LN1:  NewLayerNorm(cfg.NEmbed, normEps),
		Attn: NewCausalSelfAttention(cfg, rope, alibi, init),
		LN2:  NewLayerNorm(cfg.NEmbed, normEps),
		MLP:  NewMLP(cfg.NEmbed, init),
	}
}

// Forward applies the block to [batch, seq, NEmbed] input.
func (b *Block) Forward(x *tensor.Tensor) *tensor.Tensor {
	x = x.Add(b.Attn.Forward(b.LN1.Forward(x)))
	x = x.Add(b.MLP.Forward(b.LN2.Forward(x)))
	return x
}
