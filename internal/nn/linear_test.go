package nn

import (
	"math"
	"testing"

	"github.com/quill-ml/quill/internal/tensor"
)

func TestLinearForward(t *testing.T) {
	l := NewLinear(3, 2, true, InitNormal, testInit(1))

	// Overwrite the random init with known values: W = [[1,0,0],[0,1,1]],
	// b = [10, 20].
	copy(l.Weight().Tensor().Data(), []float32{1, 0, 0, 0, 1, 1})
	copy(l.Bias().Tensor().Data(), []float32{10, 20})

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := l.Forward(x)

	want := []float32{11, 25, 14, 31}
	for i, v := range out.Data() {
		if v != want[i] {
			t.Errorf("Forward() data[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestLinearWithoutBias(t *testing.T) {
	l := NewLinear(4, 2, false, InitNormal, testInit(1))
	if l.Bias() != nil {
		t.Error("Bias() != nil for bias-free layer")
	}

	x := tensor.Zeros(tensor.Shape{1, 4})
	out := l.Forward(x)
	for i, v := range out.Data() {
		if v != 0 {
			t.Errorf("Forward(0) data[%d] = %g, want 0", i, v)
		}
	}
}

func TestLinearForwardPanics(t *testing.T) {
	l := NewLinear(3, 2, true, InitNormal, testInit(1))
	tests := []struct {
		name string
		f    func()
	}{
		{"not 2D", func() { l.Forward(tensor.Zeros(tensor.Shape{1, 2, 3})) }},
		{"wrong features", func() { l.Forward(tensor.Zeros(tensor.Shape{2, 4})) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Forward() did not panic")
				}
			}()
			tt.f()
		})
	}
}

func TestLinearFromWeightShares(t *testing.T) {
	w := NewParameter("weight", tensor.Ones(tensor.Shape{4, 2}))
	l := LinearFromWeight(w)

	if l.InFeatures() != 2 || l.OutFeatures() != 4 {
		t.Errorf("features = (%d, %d), want (2, 4)", l.InFeatures(), l.OutFeatures())
	}
	if l.Bias() != nil {
		t.Error("LinearFromWeight() allocated a bias")
	}
	if l.Weight() != w {
		t.Error("LinearFromWeight() copied the parameter")
	}

	defer func() {
		if recover() == nil {
			t.Error("LinearFromWeight() did not panic on non-2D weight")
		}
	}()
	LinearFromWeight(NewParameter("weight", tensor.Ones(tensor.Shape{4})))
}

func TestInitPolicyStd(t *testing.T) {
	if got := InitNormal.Std(12); got != 0.02 {
		t.Errorf("InitNormal.Std(12) = %g, want 0.02", got)
	}
	want := 0.02 / math.Sqrt(24)
	if got := InitResidual.Std(12); math.Abs(got-want) > 1e-12 {
		t.Errorf("InitResidual.Std(12) = %g, want %g", got, want)
	}
}

func TestEmbeddingForward(t *testing.T) {
	e := NewEmbedding(4, 3, testInit(1))
	table := e.Weight.Tensor().Data()

	out := e.Forward([][]int32{{2, 0}, {1, 3}})
	if !out.Shape().Equal(tensor.Shape{2, 2, 3}) {
		t.Fatalf("Forward() shape = %v, want [2, 2, 3]", out.Shape())
	}

	ids := [][]int32{{2, 0}, {1, 3}}
	for b := 0; b < 2; b++ {
		for s := 0; s < 2; s++ {
			id := int(ids[b][s])
			for d := 0; d < 3; d++ {
				if got := out.At(b, s, d); got != table[id*3+d] {
					t.Errorf("Forward()[%d, %d, %d] = %g, want %g", b, s, d, got, table[id*3+d])
				}
			}
		}
	}
}

func TestEmbeddingForwardPanics(t *testing.T) {
	e := NewEmbedding(4, 3, testInit(1))
	tests := []struct {
		name string
		idx  [][]int32
	}{
		{"empty", [][]int32{}},
		{"ragged batch", [][]int32{{1, 2}, {3}}},
		{"id out of range", [][]int32{{4}}},
		{"negative id", [][]int32{{-1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Forward() did not panic")
				}
			}()
			e.Forward(tt.idx)
		})
	}
}

func TestLayerNormNormalizes(t *testing.T) {
	ln := NewLayerNorm(8, normEps)
	x := tensor.Randn(tensor.Shape{3, 8}, 5, testInit(2).Rng)
	out := ln.Forward(x)

	// Gamma is one and beta zero at init, so each row comes out with mean 0
	// and unit variance.
	for r := 0; r < 3; r++ {
		var mean float64
		for d := 0; d < 8; d++ {
			mean += float64(out.At(r, d))
		}
		mean /= 8
		if math.Abs(mean) > 1e-5 {
			t.Errorf("row %d mean = %g, want 0", r, mean)
		}

		var variance float64
		for d := 0; d < 8; d++ {
			diff := float64(out.At(r, d)) - mean
			variance += diff * diff
		}
		variance /= 8
		if math.Abs(variance-1) > 1e-3 {
			t.Errorf("row %d variance = %g, want 1", r, variance)
		}
	}
}

func TestLayerNormGammaBeta(t *testing.T) {
	ln := NewLayerNorm(4, normEps)
	copy(ln.Gamma.Tensor().Data(), []float32{2, 2, 2, 2})
	copy(ln.Beta.Tensor().Data(), []float32{1, 1, 1, 1})

	x, _ := tensor.FromSlice([]float32{-1, 0, 1, 2}, tensor.Shape{1, 4})
	out := ln.Forward(x)

	// y = 2 * normalized + 1, so the mean shifts to 1 and the spread doubles.
	var mean float64
	for d := 0; d < 4; d++ {
		mean += float64(out.At(0, d))
	}
	mean /= 4
	if math.Abs(mean-1) > 1e-5 {
		t.Errorf("mean = %g, want 1", mean)
	}
}

func TestLayerNormPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Forward() did not panic on dimension mismatch")
		}
	}()
	NewLayerNorm(8, normEps).Forward(tensor.Zeros(tensor.Shape{2, 4}))
}

func TestGELU(t *testing.T) {
	g := NewGELU()
	x, _ := tensor.FromSlice([]float32{-3, -1, 0, 1, 3}, tensor.Shape{5})
	out := g.Forward(x)

	// Reference values of the tanh approximation.
	want := []float32{-0.0036, -0.1588, 0, 0.8412, 2.9964}
	for i, v := range out.Data() {
		if !almostEqual(v, want[i], 1e-3) {
			t.Errorf("GELU(%g) = %g, want %g", x.Data()[i], v, want[i])
		}
	}

	// Monotone-ish sanity: large positive inputs pass through, large
	// negative ones vanish.
	if out.Data()[4] < 2.9 || out.Data()[0] > -0.001 {
		t.Errorf("GELU tails wrong: %g, %g", out.Data()[0], out.Data()[4])
	}
}

func TestCrossEntropy(t *testing.T) {
	// Uniform logits: loss is exactly ln(classes).
	logits := tensor.Zeros(tensor.Shape{2, 8})
	loss := CrossEntropy(logits, []int32{0, 7})
	if !almostEqual(loss, float32(math.Log(8)), 1e-6) {
		t.Errorf("CrossEntropy(uniform) = %g, want %g", loss, math.Log(8))
	}

	// A confident correct prediction drives the loss toward zero.
	confident := tensor.Zeros(tensor.Shape{1, 8})
	confident.Set(50, 0, 3)
	loss = CrossEntropy(confident, []int32{3})
	if loss > 1e-4 {
		t.Errorf("CrossEntropy(confident) = %g, want near 0", loss)
	}

	// Extreme logits must not overflow.
	extreme := tensor.Full(tensor.Shape{1, 4}, 1e30)
	loss = CrossEntropy(extreme, []int32{0})
	if math.IsNaN(float64(loss)) || math.IsInf(float64(loss), 0) {
		t.Errorf("CrossEntropy(extreme) = %g, want finite", loss)
	}
}

func TestCrossEntropyPanics(t *testing.T) {
	logits := tensor.Zeros(tensor.Shape{2, 4})
	tests := []struct {
		name string
		f    func()
	}{
		{"not 2D", func() { CrossEntropy(tensor.Zeros(tensor.Shape{2, 2, 4}), []int32{0, 1}) }},
		{"length mismatch", func() { CrossEntropy(logits, []int32{0}) }},
		{"target out of range", func() { CrossEntropy(logits, []int32{0, 4}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("CrossEntropy() did not panic")
				}
			}()
			tt.f()
		})
	}
}
