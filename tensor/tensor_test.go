// Copyright 2025 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/quill-ml/quill/tensor"
)

// TestTensorAPI verifies the re-exported tensor API is usable as documented.
func TestTensorAPI(t *testing.T) {
	x := tensor.Zeros(tensor.Shape{2, 3})
	if !x.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2, 3]", x.Shape())
	}

	y := tensor.Ones(tensor.Shape{2, 3})
	z := x.Add(y)
	for i, v := range z.Data() {
		if v != 1 {
			t.Errorf("Add() data[%d] = %g, want 1", i, v)
		}
	}

	f, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if f.At(1, 0) != 3 {
		t.Errorf("At(1, 0) = %g, want 3", f.At(1, 0))
	}

	shape, err := tensor.BroadcastShapes(tensor.Shape{2, 1}, tensor.Shape{1, 3})
	if err != nil {
		t.Fatalf("BroadcastShapes failed: %v", err)
	}
	if !shape.Equal(tensor.Shape{2, 3}) {
		t.Errorf("BroadcastShapes() = %v, want [2, 3]", shape)
	}
}
