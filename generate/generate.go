// Copyright 2025 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate provides the public API for autoregressive text
// generation from a quill model.
//
// Example:
//
//	gen := generate.NewGenerator(model, generate.DefaultSamplingConfig())
//	out, err := gen.Generate(ctx, prompt, generate.DefaultConfig())
package generate

import (
	"github.com/quill-ml/quill/internal/generate"
	"github.com/quill-ml/quill/internal/nn"
)

// Config controls a generation run.
type Config = generate.Config

// SamplingConfig controls how the next token is drawn from the logits.
type SamplingConfig = generate.SamplingConfig

// Generator produces token sequences from a model.
type Generator = generate.Generator

// Sampler draws tokens from logit distributions.
type Sampler = generate.Sampler

// DefaultConfig returns sensible generation defaults.
func DefaultConfig() Config {
	return generate.DefaultConfig()
}

// DefaultSamplingConfig returns sensible sampling defaults.
func DefaultSamplingConfig() SamplingConfig {
	return generate.DefaultSamplingConfig()
}

// NewGenerator creates a generator for model with the given sampling behavior.
func NewGenerator(model *nn.GPT, sampling SamplingConfig) *Generator {
	return generate.NewGenerator(model, sampling)
}

// NewSampler creates a sampler from cfg.
func NewSampler(cfg SamplingConfig) *Sampler {
	return generate.NewSampler(cfg)
}
