package tensor

import (
	"math"
	"testing"
)

func TestAddSameShape(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
	b, _ := FromSlice([]float32{10, 20, 30, 40}, Shape{2, 2})
	c := a.Add(b)
	want := []float32{11, 22, 33, 44}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Add() data[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestAddBroadcast(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	row, _ := FromSlice([]float32{10, 20, 30}, Shape{1, 3})
	c := a.Add(row)
	want := []float32{11, 22, 33, 14, 25, 36}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Add() broadcast data[%d] = %g, want %g", i, v, want[i])
		}
	}

	// Rank extension: [2, 3] + [3].
	vec, _ := FromSlice([]float32{1, 1, 1}, Shape{3})
	c = a.Add(vec)
	want = []float32{2, 3, 4, 5, 6, 7}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("Add() rank-extended data[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestSubMul(t *testing.T) {
	a, _ := FromSlice([]float32{5, 6, 7, 8}, Shape{2, 2})
	b, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})

	sub := a.Sub(b)
	mul := a.Mul(b)
	wantSub := []float32{4, 4, 4, 4}
	wantMul := []float32{5, 12, 21, 32}
	for i := range wantSub {
		if sub.Data()[i] != wantSub[i] {
			t.Errorf("Sub() data[%d] = %g, want %g", i, sub.Data()[i], wantSub[i])
		}
		if mul.Data()[i] != wantMul[i] {
			t.Errorf("Mul() data[%d] = %g, want %g", i, mul.Data()[i], wantMul[i])
		}
	}
}

func TestScalarOps(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3}, Shape{3})
	add := a.AddScalar(10)
	mul := a.MulScalar(2)
	for i := range a.Data() {
		if add.Data()[i] != a.Data()[i]+10 {
			t.Errorf("AddScalar() data[%d] = %g", i, add.Data()[i])
		}
		if mul.Data()[i] != a.Data()[i]*2 {
			t.Errorf("MulScalar() data[%d] = %g", i, mul.Data()[i])
		}
	}
}

func TestMatMul(t *testing.T) {
	// [2, 3] @ [3, 2]
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b, _ := FromSlice([]float32{7, 8, 9, 10, 11, 12}, Shape{3, 2})
	c := a.MatMul(b)

	if !c.Shape().Equal(Shape{2, 2}) {
		t.Fatalf("MatMul() shape = %v, want [2, 2]", c.Shape())
	}
	want := []float32{58, 64, 139, 154}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("MatMul() data[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestMatMulZeroRows(t *testing.T) {
	// The inner loop skips zero coefficients; a zero row must still produce
	// a zero output row, not garbage.
	a := Zeros(Shape{2, 3})
	a.Set(1, 1, 0)
	b := Ones(Shape{3, 4})
	c := a.MatMul(b)
	for j := 0; j < 4; j++ {
		if c.At(0, j) != 0 {
			t.Errorf("MatMul() zero row: c[0, %d] = %g, want 0", j, c.At(0, j))
		}
		if c.At(1, j) != 1 {
			t.Errorf("MatMul() c[1, %d] = %g, want 1", j, c.At(1, j))
		}
	}
}

func TestMatMulPanics(t *testing.T) {
	tests := []struct {
		name string
		f    func()
	}{
		{"not 2D", func() { Zeros(Shape{2, 3, 4}).MatMul(Zeros(Shape{4, 2})) }},
		{"inner mismatch", func() { Zeros(Shape{2, 3}).MatMul(Zeros(Shape{4, 2})) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("MatMul() did not panic")
				}
			}()
			tt.f()
		})
	}
}

func TestBatchMatMul(t *testing.T) {
	// Two independent 2x2 batches.
	a, _ := FromSlice([]float32{
		1, 0,
		0, 1, // identity
		1, 2,
		3, 4,
	}, Shape{2, 2, 2})
	b, _ := FromSlice([]float32{
		5, 6,
		7, 8,
		1, 0,
		0, 1, // identity
	}, Shape{2, 2, 2})

	c := a.BatchMatMul(b)
	if !c.Shape().Equal(Shape{2, 2, 2}) {
		t.Fatalf("BatchMatMul() shape = %v, want [2, 2, 2]", c.Shape())
	}
	want := []float32{5, 6, 7, 8, 1, 2, 3, 4}
	for i, v := range c.Data() {
		if v != want[i] {
			t.Errorf("BatchMatMul() data[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestBatchMatMulMatchesMatMul(t *testing.T) {
	a, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{1, 2, 3})
	b, _ := FromSlice([]float32{7, 8, 9, 10, 11, 12}, Shape{1, 3, 2})

	batched := a.BatchMatMul(b)
	flat := a.Reshape(2, 3).MatMul(b.Reshape(3, 2))
	for i := range flat.Data() {
		if batched.Data()[i] != flat.Data()[i] {
			t.Errorf("BatchMatMul() data[%d] = %g, MatMul gives %g", i, batched.Data()[i], flat.Data()[i])
		}
	}
}

func TestBatchMatMulPanicsOnBatchMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("BatchMatMul() did not panic on batch dimension mismatch")
		}
	}()
	Zeros(Shape{2, 2, 3}).BatchMatMul(Zeros(Shape{3, 3, 2}))
}

func TestSoftmax(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2, 3, 1000, 1001, 1002}, Shape{2, 3})
	s := x.Softmax()

	// Rows sum to 1.
	for r := 0; r < 2; r++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += s.At(r, j)
		}
		if !almostEqual(sum, 1, 1e-5) {
			t.Errorf("Softmax() row %d sums to %g, want 1", r, sum)
		}
	}

	// Shift invariance: both rows are [1, 2, 3] up to a constant, so the
	// probabilities must match. This is exactly what max subtraction buys.
	for j := 0; j < 3; j++ {
		if !almostEqual(s.At(0, j), s.At(1, j), 1e-6) {
			t.Errorf("Softmax() not shift invariant at column %d: %g vs %g", j, s.At(0, j), s.At(1, j))
		}
	}
}

func TestSoftmaxWithNegInf(t *testing.T) {
	negInf := float32(math.Inf(-1))
	x, _ := FromSlice([]float32{1, 2, negInf, negInf}, Shape{1, 4})
	s := x.Softmax()

	if s.At(0, 2) != 0 || s.At(0, 3) != 0 {
		t.Errorf("Softmax() masked entries = %g, %g, want exactly 0", s.At(0, 2), s.At(0, 3))
	}
	if !almostEqual(s.At(0, 0)+s.At(0, 1), 1, 1e-5) {
		t.Errorf("Softmax() unmasked entries sum to %g, want 1", s.At(0, 0)+s.At(0, 1))
	}
}

func TestMeanLastDim(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2, 3, 10, 20, 30}, Shape{2, 3})
	m := x.MeanLastDim()
	if !m.Shape().Equal(Shape{2, 1}) {
		t.Fatalf("MeanLastDim() shape = %v, want [2, 1]", m.Shape())
	}
	if m.At(0, 0) != 2 || m.At(1, 0) != 20 {
		t.Errorf("MeanLastDim() = %g, %g, want 2, 20", m.At(0, 0), m.At(1, 0))
	}
}
