package nn

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// RotationCache holds precomputed cosine/sine tables for rotary position
// embeddings.
//
// For position p and frequency-pair index j (0 ≤ j < head_dim/2):
//
//	theta_j    = base^(-2j/head_dim)
//	angle(p,j) = p * theta_j
//	cache[p,j] = (cos(angle), sin(angle))
//
// The frequency table is monotonically decreasing in j: low pair indices
// rotate quickly and resolve nearby positions, high ones rotate slowly and
// resolve distant positions.
//
// The cache is a pure function of (headDim, maxSeqLen, base), computed once
// at model construction and immutable afterwards, so it is safe to share
// across concurrent forward passes. It is derived state: checkpoints never
// store it, loaders rebuild it from the configuration.
type RotationCache struct {
	cos       []float32 // [maxSeqLen * headDim/2], row-major by position
	sin       []float32 // [maxSeqLen * headDim/2]
	headDim   int
	maxSeqLen int
	base      float64
}

// DefaultRotaryBase is the standard RoPE frequency base.
const DefaultRotaryBase = 10000.0

// NewRotationCache precomputes rotation tables for all positions up to
// maxSeqLen.
//
// headDim must be even (rotation pairs adjacent elements) and is always the
// per-head dimension NEmbed/NHead, never a quantity derived from NEmbed
// alone. base ≤ 0 selects DefaultRotaryBase.
func NewRotationCache(headDim, maxSeqLen int, base float64) *RotationCache {
	if headDim <= 0 || headDim%2 != 0 {
		panic(fmt.Sprintf("RotationCache: headDim must be positive and even, got %d", headDim))
	}
	if maxSeqLen <= 0 {
		panic(fmt.Sprintf("RotationCache: maxSeqLen must be positive, got %d", maxSeqLen))
	}
	if base <= 0 {
		base = DefaultRotaryBase
	}

	half := headDim / 2
	theta := make([]float64, half)
	for j := 0; j < half; j++ {
		theta[j] = math.Pow(base, -2*float64(j)/float64(headDim))
	}

	cos := make([]float32, maxSeqLen*half)
	sin := make([]float32, maxSeqLen*half)
	for pos := 0; pos < maxSeqLen; pos++ {
		for j := 0; j < half; j++ {
			angle := float64(pos) * theta[j]
			cos[pos*half+j] = float32(math.Cos(angle))
			sin[pos*half+j] = float32(math.Sin(angle))
		}
	}

	return &RotationCache{
		cos:       cos,
		sin:       sin,
		headDim:   headDim,
		maxSeqLen: maxSeqLen,
		base:      base,
	}
}

// HeadDim returns the head dimension the cache was built for.
func (c *RotationCache) HeadDim() int { return c.headDim }

// MaxSeqLen returns the maximum sequence length the cache covers.
func (c *RotationCache) MaxSeqLen() int { return c.maxSeqLen }

// Base returns the frequency base.
func (c *RotationCache) Base() float64 { return c.base }

// At returns (cos, sin) for position pos and frequency-pair index j.
func (c *RotationCache) At(pos, j int) (float32, float32) {
	half := c.headDim / 2
	if pos < 0 || pos >= c.maxSeqLen {
		panic(fmt.Sprintf("RotationCache.At: position %d out of range [0, %d)", pos, c.maxSeqLen))
	}
	if j < 0 || j >= half {
		panic(fmt.Sprintf("RotationCache.At: pair index %d out of range [0, %d)", j, half))
	}
	return c.cos[pos*half+j], c.sin[pos*half+j]
}

// Slice returns the cos/sin tables for positions [0, seqLen), each of length
// seqLen * headDim/2, as read-only prefix views into the cache.
//
// A sequence longer than the cache is a precondition violation and panics;
// the caller's configuration bounds every legal sequence by maxSeqLen.
func (c *RotationCache) Slice(seqLen int) (cos, sin []float32) {
	if seqLen <= 0 {
		panic(fmt.Sprintf("RotationCache.Slice: seqLen must be positive, got %d", seqLen))
	}
	if seqLen > c.maxSeqLen {
		panic(fmt.Sprintf("RotationCache.Slice: seqLen %d exceeds maxSeqLen %d", seqLen, c.maxSeqLen))
	}
	half := c.headDim / 2
	return c.cos[:seqLen*half], c.sin[:seqLen*half]
}

// RotaryEncoder applies rotary position embeddings to attention inputs.
//
// Each adjacent pair (2j, 2j+1) along the last dimension is treated as a
// complex number and multiplied by e^(i*angle(p,j)):
//
//	out[..., 2j]   = x[..., 2j]*cos − x[..., 2j+1]*sin
//	out[..., 2j+1] = x[..., 2j+1]*cos + x[..., 2j]*sin
//
// The transform is a pure rotation: it has no learned parameters, preserves
// vector norms, and gives q·k dot products that depend only on the relative
// position of query and key. The cache broadcasts over the batch and head
// dimensions; no per-head state is copied.
type RotaryEncoder struct {
	cache *RotationCache
}

// NewRotaryEncoder creates an encoder over a rotation cache.
func NewRotaryEncoder(cache *RotationCache) *RotaryEncoder {
	if cache == nil {
		panic("RotaryEncoder: nil cache")
	}
	return &RotaryEncoder{cache: cache}
}

// Cache returns the underlying rotation cache.
func (r *RotaryEncoder) Cache() *RotationCache {
	return r.cache
}

// Forward rotates x by absolute position, starting at position 0.
//
// x must have shape [batch, heads, seq, head_dim] with head_dim matching the
// cache. Returns a new tensor of the same shape.
func (r *RotaryEncoder) Forward(x *tensor.Tensor) *tensor.Tensor {
	return r.ForwardWithOffset(x, 0)
}

// ForwardWithOffset rotates x as if its first element sat at position
// offset. Generation uses this to rotate a suffix of the context without
// re-rotating the prefix.
//
// Panics if x is not 4D, if its last dimension does not match the cache's
// head dimension, or if offset + seq exceeds the cache's maximum length.
func (r *RotaryEncoder) ForwardWithOffset(x *tensor.Tensor, offset int) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("RotaryEncoder: input must be 4D [batch, heads, seq, head_dim], got shape %v", shape))
	}
	batch, heads, seq, headDim := shape[0], shape[1], shape[2], shape[3]
	if headDim != r.cache.headDim {
		panic(fmt.Sprintf("RotaryEncoder: last dimension is %d, cache was built for %d", headDim, r.cache.headDim))
	}
	if offset < 0 || offset+seq > r.cache.maxSeqLen {
		panic(fmt.Sprintf("RotaryEncoder: positions [%d, %d) exceed maxSeqLen %d", offset, offset+seq, r.cache.maxSeqLen))
	}

	half := headDim / 2
	out := tensor.Zeros(shape)
	src := x.Data()
	dst := out.Data()

	for b := 0; b < batch; b++ {
		for h := 0; h < heads; h++ {
			for t := 0; t < seq; t++ {
				base := ((b*heads+h)*seq + t) * headDim
				trig := (offset + t) * half
				for j := 0; j < half; j++ {
					cos := r.cache.cos[trig+j]
					sin := r.cache.sin[trig+j]
					even := src[base+2*j]
					odd := src[base+2*j+1]
					dst[base+2*j] = even*cos - odd*sin
					dst[base+2*j+1] = odd*cos + even*sin
				}
			}
		}
	}
	return out
}
