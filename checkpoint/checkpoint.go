// Copyright 2025 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint provides the public API for saving and loading
// quill model checkpoints, and for importing GPT-2 weights.
//
// Example:
//
//	if err := checkpoint.Save("model.qllm", model); err != nil {
//		log.Fatal(err)
//	}
//	model, err := checkpoint.Load("model.qllm")
package checkpoint

import (
	"github.com/quill-ml/quill/internal/checkpoint"
	"github.com/quill-ml/quill/internal/nn"
)

// Header describes the contents of a checkpoint file.
type Header = checkpoint.Header

// ConfigMeta is the serialized model configuration.
type ConfigMeta = checkpoint.ConfigMeta

// TensorMeta describes the location of one tensor in the data section.
type TensorMeta = checkpoint.TensorMeta

// SaveOption customizes a Save call.
type SaveOption = checkpoint.SaveOption

// SourceTensor is a raw tensor from an external weight dump.
type SourceTensor = checkpoint.SourceTensor

// Sentinel errors returned by Load and ImportGPT2.
var (
	ErrInvalidMagic           = checkpoint.ErrInvalidMagic
	ErrUnsupportedVersion     = checkpoint.ErrUnsupportedVersion
	ErrCorrupt                = checkpoint.ErrCorrupt
	ErrIncompatibleCheckpoint = checkpoint.ErrIncompatibleCheckpoint
)

// Save writes model to path in the qllm checkpoint format.
func Save(path string, model *nn.GPT, opts ...SaveOption) error {
	return checkpoint.Save(path, model, opts...)
}

// WithFloat16 stores tensor data as float16 instead of float32.
func WithFloat16() SaveOption {
	return checkpoint.WithFloat16()
}

// WithMetadata attaches free-form metadata to the checkpoint header.
func WithMetadata(md map[string]string) SaveOption {
	return checkpoint.WithMetadata(md)
}

// Load reads a checkpoint from path and reconstructs the model.
func Load(path string) (*nn.GPT, error) {
	return checkpoint.Load(path)
}

// ReadHeader reads only the header of a checkpoint file.
func ReadHeader(path string) (*Header, error) {
	return checkpoint.ReadHeader(path)
}

// ImportGPT2 loads GPT-2 weights from an external dump into model.
func ImportGPT2(model *nn.GPT, src map[string]SourceTensor) error {
	return checkpoint.ImportGPT2(model, src)
}
