// Package nn implements the quill GPT model: a decoder-only transformer
// with rotary position embeddings and GPT-2-style initialization.
//
// The package provides the building blocks (Linear, Embedding, LayerNorm,
// GELU), the rotary machinery (RotationCache, RotaryEncoder) plus the
// alternative positional schemes of the comparison study (sinusoidal,
// learned, ALiBi), the attention and block stack, and the full GPT model
// with weight-tied embeddings.
//
// Error convention: configuration and shape violations are programmer errors
// and panic; data-dependent failures (state loading) return errors.
package nn

import "fmt"

// PosEncoding selects the positional-encoding scheme of a model.
type PosEncoding int

// Positional-encoding schemes.
const (
	// PosRotary rotates query/key pairs by position-dependent angles (RoPE).
	PosRotary PosEncoding = iota
	// PosSinusoidal adds fixed sin/cos encodings to the token embeddings.
	PosSinusoidal
	// PosLearned adds trained position embeddings to the token embeddings.
	PosLearned
	// PosALiBi adds a linear distance penalty to the attention scores.
	PosALiBi
)

// String returns the scheme name used in checkpoint metadata.
func (p PosEncoding) String() string {
	switch p {
	case PosRotary:
		return "rotary"
	case PosSinusoidal:
		return "sinusoidal"
	case PosLearned:
		return "learned"
	case PosALiBi:
		return "alibi"
	default:
		return fmt.Sprintf("PosEncoding(%d)", int(p))
	}
}

// ParsePosEncoding converts a scheme name back to a PosEncoding.
func ParsePosEncoding(s string) (PosEncoding, error) {
	switch s {
	case "rotary":
		return PosRotary, nil
	case "sinusoidal":
		return PosSinusoidal, nil
	case "learned":
		return PosLearned, nil
	case "alibi":
		return PosALiBi, nil
	default:
		return 0, fmt.Errorf("unknown positional encoding %q", s)
	}
}

// Config defines the architecture of a GPT model.
//
// The defaults mirror GPT-2 small (124M parameters).
type Config struct {
	BlockSize   int         // Maximum sequence length
	VocabSize   int         // Vocabulary size
	NLayer      int         // Number of transformer blocks
	NHead       int         // Number of attention heads
	NEmbed      int         // Embedding dimensionality
	PosEncoding PosEncoding // Positional-encoding scheme (default PosRotary)
}

// DefaultConfig returns the GPT-2 small architecture with rotary encodings.
func DefaultConfig() Config {
	return Config{
		BlockSize:   1024,
		VocabSize:   50257, // 50k BPE merges + 256 byte tokens + <|endoftext|>
		NLayer:      12,
		NHead:       12,
		NEmbed:      768,
		PosEncoding: PosRotary,
	}
}

// HeadDim returns the per-head dimension NEmbed / NHead.
//
// The rotation cache is always sized from this quotient; deriving it any
// other way miscounts the frequency pairs when NEmbed and NHead disagree.
func (c Config) HeadDim() int {
	return c.NEmbed / c.NHead
}

// Validate checks the configuration invariants.
//
// Returns an error if any field is non-positive, if NEmbed is not divisible
// by NHead, or if the resulting head dimension is odd (rotary encoding pairs
// adjacent elements, so it needs an even head dimension).
func (c Config) Validate() error {
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", c.BlockSize)
	}
	if c.VocabSize <= 0 {
		return fmt.Errorf("vocab size must be positive, got %d", c.VocabSize)
	}
	if c.NLayer <= 0 {
		return fmt.Errorf("number of layers must be positive, got %d", c.NLayer)
	}
	if c.NHead <= 0 {
		return fmt.Errorf("number of heads must be positive, got %d", c.NHead)
	}
	if c.NEmbed <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.NEmbed)
	}
	if c.NEmbed%c.NHead != 0 {
		return fmt.Errorf("embedding dimension (%d) must be divisible by number of heads (%d)", c.NEmbed, c.NHead)
	}
	if c.HeadDim()%2 != 0 {
		return fmt.Errorf("head dimension (%d) must be even for rotary encoding", c.HeadDim())
	}
	return nil
}
