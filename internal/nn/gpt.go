package nn

import (
	"fmt"
	"math/rand"

	"github.com/quill-ml/quill/internal/tensor"
)

// GPT is a decoder-only transformer language model.
//
// Forward path: token embedding → (additive positional term, if the scheme
// uses one) → NLayer pre-norm blocks → final LayerNorm → projection to
// vocabulary logits. The projection weight is the token embedding weight —
// the same Parameter, not an initialized-equal copy.
//
// The causal mask and the rotation cache are derived state: they are rebuilt
// from Config at construction and never serialized. A constructed model is
// immutable during Forward and safe for concurrent forward passes on
// different batches.
type GPT struct {
	Config Config

	WTE    *Embedding
	Blocks []*Block
	LNF    *LayerNorm
	LMHead *Linear // weight-tied to WTE

	// At most one of these is non-nil, per Config.PosEncoding.
	rope  *RotaryEncoder
	sin   *SinusoidalEncoding
	wpe   *LearnedPositionalEmbedding
	alibi *ALiBi
}

// NewGPT constructs a model with freshly initialized weights.
//
// All linear and embedding weights are drawn from N(0, 0.02); the attention
// output and second MLP projections additionally scale by 1/sqrt(2*NLayer)
// (see InitPolicy). The seed fixes the draw order, so two models built with
// the same config and seed are identical.
func NewGPT(cfg Config, seed int64) (*GPT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	init := Init{
		NumLayers: cfg.NLayer,
		Rng:       rand.New(rand.NewSource(seed)),
	}

	g := &GPT{Config: cfg}

	switch cfg.PosEncoding {
	case PosRotary:
		g.rope = NewRotaryEncoder(NewRotationCache(cfg.HeadDim(), cfg.BlockSize, DefaultRotaryBase))
	case PosSinusoidal:
		g.sin = NewSinusoidalEncoding(cfg.BlockSize, cfg.NEmbed)
	case PosLearned:
		g.wpe = NewLearnedPositionalEmbedding(cfg.BlockSize, cfg.NEmbed, init)
	case PosALiBi:
		g.alibi = NewALiBi(cfg.NHead)
	default:
		return nil, fmt.Errorf("invalid config: unknown positional encoding %d", cfg.PosEncoding)
	}

	g.WTE = NewEmbedding(cfg.VocabSize, cfg.NEmbed, init)

	g.Blocks = make([]*Block, cfg.NLayer)
	for i := range g.Blocks {
		g.Blocks[i] = NewBlock(cfg, g.rope, g.alibi, init)
	}

	g.LNF = NewLayerNorm(cfg.NEmbed, normEps)
	g.LMHead = LinearFromWeight(g.WTE.Weight)

	return g, nil
}

// Forward runs the model over a batch of token ID sequences and returns
// vocabulary logits of shape [batch, seq, VocabSize].
//
// Panics if the sequence length exceeds Config.BlockSize — sequences are
// never silently truncated.
func (g *GPT) Forward(idx [][]int32) *tensor.Tensor {
	if len(idx) == 0 || len(idx[0]) == 0 {
		panic("GPT.Forward: empty input")
	}
	batch, seq := len(idx), len(idx[0])
	if seq > g.Config.BlockSize {
		panic(fmt.Sprintf("GPT.Forward: cannot forward sequence of length %d, block size is %d", seq, g.Config.BlockSize))
	}

	x := g.WTE.Forward(idx)
	switch {
	case g.sin != nil:
		x = x.Add(g.sin.Forward(seq))
	case g.wpe != nil:
		x = x.Add(g.wpe.Forward(seq))
	}

	for _, block := range g.Blocks {
		x = block.Forward(x)
	}

	x = g.LNF.Forward(x)

	logits := g.LMHead.Forward(x.Reshape(batch*seq, g.Config.NEmbed))
	return logits.Reshape(batch, seq, g.Config.VocabSize)
}

// ForwardLoss runs the model and additionally returns the mean cross-entropy
// of the targets, flattened over (batch, position).
//
// targets must have the same batch and sequence shape as idx.
func (g *GPT) ForwardLoss(idx, targets [][]int32) (*tensor.Tensor, float32) {
	if len(targets) != len(idx) {
		panic(fmt.Sprintf("GPT.ForwardLoss: %d input sequences but %d target sequences", len(idx), len(targets)))
	}

	logits := g.Forward(idx)

	batch, seq := len(idx), len(idx[0])
	flat := make([]int32, 0, batch*seq)
	for b, row := range targets {
		if len(row) != seq {
			panic(fmt.Sprintf("GPT.ForwardLoss: target sequence %d has length %d, want %d", b, len(row), seq))
		}
		flat = append(flat, row...)
	}

	loss := CrossEntropy(logits.Reshape(batch*seq, g.Config.VocabSize), flat)
	return logits, loss
}

// RotaryEncoder returns the model's rotary encoder, or nil when the model
// uses a different positional scheme.
func (g *GPT) RotaryEncoder() *RotaryEncoder {
	return g.rope
}

// NumParams returns the number of scalar parameters, counting the tied
// embedding/projection weight once.
func (g *GPT) NumParams() int {
	n := 0
	for _, p := range g.parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}

// parameters returns every distinct parameter with its state-dict name, in
// a stable order. The tied LMHead weight is the WTE weight and is listed
// once under "wte.weight".
func (g *GPT) parameters() []*Parameter {
	params := []*Parameter{
		NewParameter("wte.weight", g.WTE.Weight.Tensor()),
	}
	if g.wpe != nil {
		params = append(params, NewParameter("wpe.weight", g.wpe.Embedding.Weight.Tensor()))
	}
	for i, b := range g.Blocks {
		prefix := fmt.Sprintf("blocks.%d.", i)
		params = append(params,
			NewParameter(prefix+"ln1.gamma", b.LN1.Gamma.Tensor()),
			NewParameter(prefix+"ln1.beta", b.LN1.Beta.Tensor()),
			NewParameter(prefix+"attn.c_attn.weight", b.Attn.CAttn.Weight().Tensor()),
			NewParameter(prefix+"attn.c_attn.bias", b.Attn.CAttn.Bias().Tensor()),
			NewParameter(prefix+"attn.c_proj.weight", b.Attn.CProj.Weight().Tensor()),
			NewParameter(prefix+"attn.c_proj.bias", b.Attn.CProj.Bias().Tensor()),
			NewParameter(prefix+"ln2.gamma", b.LN2.Gamma.Tensor()),
			NewParameter(prefix+"ln2.beta", b.LN2.Beta.Tensor()),
			NewParameter(prefix+"mlp.c_fc.weight", b.MLP.CFc.Weight().Tensor()),
			NewParameter(prefix+"mlp.c_fc.bias", b.MLP.CFc.Bias().Tensor()),
			NewParameter(prefix+"mlp.c_proj.weight", b.MLP.CProj.Weight().Tensor()),
			NewParameter(prefix+"mlp.c_proj.bias", b.MLP.CProj.Bias().Tensor()),
		)
	}
	params = append(params,
		NewParameter("lnf.gamma", g.LNF.Gamma.Tensor()),
		NewParameter("lnf.beta", g.LNF.Beta.Tensor()),
	)
	return params
}

// StateDict returns the model parameters as a name → tensor map.
//
// Derived state (rotation cache, causal mask, sinusoidal table, ALiBi
// slopes) is excluded: it is a function of Config and is rebuilt on load.
// The returned tensors are the live parameters, not copies.
func (g *GPT) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	for _, p := range g.parameters() {
		sd[p.Name()] = p.Tensor()
	}
	return sd
}

// LoadStateDict copies parameter values from a state dict into the model.
//
// The dict must contain exactly the model's parameter names with exactly the
// model's shapes; any missing name, unknown name, or shape mismatch aborts
// the load with an error before anything is modified. Values are copied into
// the existing parameter storage, so weight tying is preserved.
func (g *GPT) LoadStateDict(sd map[string]*tensor.Tensor) error {
	params := g.parameters()

	byName := make(map[string]*Parameter, len(params))
	for _, p := range params {
		byName[p.Name()] = p
	}

	for name := range sd {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("unknown parameter %q in state dict", name)
		}
	}
	for _, p := range params {
		src, ok := sd[p.Name()]
		if !ok {
			return fmt.Errorf("state dict is missing parameter %q", p.Name())
		}
		if !src.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("parameter %q has shape %v, want %v", p.Name(), src.Shape(), p.Tensor().Shape())
		}
	}

	for _, p := range params {
		copy(p.Tensor().Data(), sd[p.Name()].Data())
	}
	return nil
}
