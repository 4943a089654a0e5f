package nn

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// CausalSelfAttention implements multi-head causal self-attention with the
// GPT-2 packed projection layout.
//
// A single linear layer projects the input to [query | key | value] of total
// width 3*NEmbed; the three parts are separated by explicit offsets into the
// packed rows rather than by separate projection layers. Query and key are
// rotated by the RotaryEncoder (value is not — position must influence where
// attention looks, not what it retrieves), then scaled dot-product attention
// runs under a causal mask: position t attends only to positions ≤ t.
//
// The output projection uses InitResidual because it writes into the
// residual stream.
type CausalSelfAttention struct {
	CAttn *Linear // packed q/k/v projection [NEmbed → 3*NEmbed]
	CProj *Linear // output projection [NEmbed → NEmbed]

	NHead  int
	NEmbed int

	rope  *RotaryEncoder // non-nil only for PosRotary
	alibi *ALiBi         // non-nil only for PosALiBi
}

// NewCausalSelfAttention creates an attention module for the given
// configuration. rope and alibi select the positional scheme applied inside
// attention; both may be nil (sinusoidal and learned schemes act on the
// embeddings instead).
func NewCausalSelfAttention(cfg Config, rope *RotaryEncoder, alibi *ALiBi, init Init) *CausalSelfAttention {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("CausalSelfAttention: %v", err))
	}
	if rope != nil && rope.Cache().HeadDim() != cfg.HeadDim() {
		panic(fmt.Sprintf("CausalSelfAttention: rotation cache head dim %d does not match config head dim %d",
			rope.Cache().HeadDim(), cfg.HeadDim()))
	}

	return &CausalSelfAttention{
		CAttn:  NewLinear(cfg.NEmbed, 3*cfg.NEmbed, true, InitNormal, init),
		CProj:  NewLinear(cfg.NEmbed, cfg.NEmbed, true, InitResidual, init),
		NHead:  cfg.NHead,
		NEmbed: cfg.NEmbed,
		rope:   rope,
		alibi:  alibi,
	}
}

// Forward computes attention over x of shape [batch, seq, NEmbed] and
// returns a tensor of the same shape.
func (a *CausalSelfAttention) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != a.NEmbed {
		panic(fmt.Sprintf("CausalSelfAttention.Forward: expected [batch, seq, %d], got shape %v", a.NEmbed, shape))
	}
	batch, seq := shape[0], shape[1]
	headDim := a.NEmbed / a.NHead

	// Packed projection: each row of qkv is [q | k | v], each part NEmbed
	// wide, each head headDim wide within its part.
	qkv := a.CAttn.Forward(x.Reshape(batch*seq, a.NEmbed))
	q := a.unpackHeads(qkv, batch, seq, 0)
	k := a.unpackHeads(qkv, batch, seq, a.NEmbed)
	v := a.unpackHeads(qkv, batch, seq, 2*a.NEmbed)

	if a.rope != nil {
		q = a.rope.Forward(q)
		k = a.rope.Forward(k)
	}

	// Scaled dot-product attention: softmax(q kᵀ / sqrt(head_dim)) v.
	scores := q.BatchMatMul(k.Transpose(0, 1, 3, 2))
	scores = scores.MulScalar(float32(1 / math.Sqrt(float64(headDim))))

	if a.alibi != nil {
		scores = scores.Add(a.alibi.Bias(seq))
	}

	maskCausal(scores)
	att := scores.Softmax()

	out := att.BatchMatMul(v)
	out = out.Transpose(0, 2, 1, 3).Reshape(batch*seq, a.NEmbed)

	return a.CProj.Forward(out).Reshape(batch, seq, a.NEmbed)
}

// unpackHeads extracts one part (q, k, or v) of the packed [batch*seq,
// 3*NEmbed] projection into a [batch, heads, seq, head_dim] tensor. offset
// is the column where the part starts: 0 for q, NEmbed for k, 2*NEmbed
// for v.
func (a *CausalSelfAttention) unpackHeads(qkv *tensor.Tensor, batch, seq, offset int) *tensor.Tensor {
	headDim := a.NEmbed / a.NHead
	width := 3 * a.NEmbed
	src := qkv.Data()

	out := tensor.Zeros(tensor.Shape{batch, a.NHead, seq, headDim})
	dst := out.Data()

	for b := 0; b < batch; b++ {
		for t := 0; t < seq; t++ {
			row := (b*seq + t) * width
			for h := 0; h < a.NHead; h++ {
				from := row + offset + h*headDim
				to := ((b*a.NHead+h)*seq + t) * headDim
				copy(dst[to:to+headDim], src[from:from+headDim])
			}
		}
	}
	return out
}

// maskCausal overwrites future positions (j > i) in [batch, heads, seq,
// seq] attention scores with -inf, in place. After max subtraction the
// masked entries exponentiate to exactly zero, so no value at a future
// position can leak into the output.
func maskCausal(scores *tensor.Tensor) {
	shape := scores.Shape()
	seq := shape[len(shape)-1]
	negInf := float32(math.Inf(-1))

	data := scores.Data()
	rows := len(data) / seq
	for r := 0; r < rows; r++ {
		i := r % seq
		row := data[r*seq : (r+1)*seq]
		for j := i + 1; j < seq; j++ {
			row[j] = negInf
		}
	}
}
