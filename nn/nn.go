// Copyright 2025 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for quill's neural network layers
// and the GPT language model.
//
// Example:
//
//	cfg := nn.DefaultConfig()
//	model, err := nn.NewGPT(cfg, 42)
//	if err != nil {
//		log.Fatal(err)
//	}
//	logits := model.Forward([][]int32{{1, 2, 3}})
package nn

import (
	"github.com/quill-ml/quill/internal/nn"
	"github.com/quill-ml/quill/internal/tensor"
)

// Tensor is re-exported for convenience in layer signatures.
type Tensor = tensor.Tensor

// Config holds the model hyperparameters.
type Config = nn.Config

// PosEncoding selects the positional encoding scheme.
type PosEncoding = nn.PosEncoding

// Positional encoding schemes.
const (
	PosRotary     = nn.PosRotary
	PosSinusoidal = nn.PosSinusoidal
	PosLearned    = nn.PosLearned
	PosALiBi      = nn.PosALiBi
)

// GPT is a decoder-only transformer language model.
type GPT = nn.GPT

// RotationCache holds precomputed rotation angles for rotary encoding.
type RotationCache = nn.RotationCache

// RotaryEncoder applies rotary position embeddings to attention heads.
type RotaryEncoder = nn.RotaryEncoder

// CausalSelfAttention is multi-head self-attention with a causal mask.
type CausalSelfAttention = nn.CausalSelfAttention

// Block is a pre-norm transformer block.
type Block = nn.Block

// DefaultRotaryBase is the standard rotary frequency base.
const DefaultRotaryBase = nn.DefaultRotaryBase

// DefaultConfig returns the GPT-2 small configuration with rotary encoding.
func DefaultConfig() Config {
	return nn.DefaultConfig()
}

// ParsePosEncoding parses a positional encoding name such as "rotary".
func ParsePosEncoding(s string) (PosEncoding, error) {
	return nn.ParsePosEncoding(s)
}

// NewGPT builds a model from cfg with weights initialized from seed.
func NewGPT(cfg Config, seed int64) (*GPT, error) {
	return nn.NewGPT(cfg, seed)
}

// NewRotationCache precomputes rotation angles for headDim and maxSeqLen.
// A base of 0 or less selects DefaultRotaryBase.
func NewRotationCache(headDim, maxSeqLen int, base float64) *RotationCache {
	return nn.NewRotationCache(headDim, maxSeqLen, base)
}

// NewRotaryEncoder wraps a rotation cache as an encoder.
func NewRotaryEncoder(cache *RotationCache) *RotaryEncoder {
	return nn.NewRotaryEncoder(cache)
}

// CrossEntropy computes the mean cross-entropy loss over logits and targets.
func CrossEntropy(logits *Tensor, targets []int32) float32 {
	return nn.CrossEntropy(logits, targets)
}
