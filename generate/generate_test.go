// Copyright 2025 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package generate_test

import (
	"context"
	"testing"

	"github.com/quill-ml/quill/generate"
	"github.com/quill-ml/quill/nn"
)

// TestGenerateAPI verifies the re-exported generation API is usable as
// documented.
func TestGenerateAPI(t *testing.T) {
	model, err := nn.NewGPT(nn.Config{
		BlockSize:   8,
		VocabSize:   16,
		NLayer:      1,
		NHead:       2,
		NEmbed:      8,
		PosEncoding: nn.PosRotary,
	}, 1)
	if err != nil {
		t.Fatalf("NewGPT failed: %v", err)
	}

	sampling := generate.DefaultSamplingConfig()
	sampling.Temperature = 0
	gen := generate.NewGenerator(model, sampling)

	cfg := generate.DefaultConfig()
	cfg.MaxTokens = 3
	out, err := gen.Generate(context.Background(), []int32{1, 2}, cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Generate() returned %d tokens, want 3", len(out))
	}
}
