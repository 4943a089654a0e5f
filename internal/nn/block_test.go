package nn

import (
	"math/rand"
	"testing"

	"github.com/quill-ml/quill/internal/tensor"
)

func TestMLPShape(t *testing.T) {
	m := NewMLP(8, testInit(1))
	if m.CFc.OutFeatures() != 32 || m.CProj.InFeatures() != 32 {
		t.Errorf("hidden width = (%d, %d), want (32, 32)", m.CFc.OutFeatures(), m.CProj.InFeatures())
	}

	x := tensor.Randn(tensor.Shape{2, 3, 8}, 1, rand.New(rand.NewSource(1)))
	out := m.Forward(x)
	if !out.Shape().Equal(tensor.Shape{2, 3, 8}) {
		t.Errorf("Forward() shape = %v, want [2, 3, 8]", out.Shape())
	}
}

func TestBlockShape(t *testing.T) {
	cfg := testConfig()
	b := NewBlock(cfg, testRotary(cfg), nil, testInit(2))

	x := tensor.Randn(tensor.Shape{2, 4, cfg.NEmbed}, 1, rand.New(rand.NewSource(3)))
	out := b.Forward(x)
	if !out.Shape().Equal(x.Shape()) {
		t.Errorf("Forward() shape = %v, want %v", out.Shape(), x.Shape())
	}
}

func TestBlockResidualPath(t *testing.T) {
	cfg := testConfig()
	b := NewBlock(cfg, testRotary(cfg), nil, testInit(4))

	// Zero out every sublayer projection. Both sublayers then contribute
	// nothing, and the block reduces to the residual identity.
	for _, l := range []*Linear{b.Attn.CAttn, b.Attn.CProj, b.MLP.CFc, b.MLP.CProj} {
		for i := range l.Weight().Tensor().Data() {
			l.Weight().Tensor().Data()[i] = 0
		}
		for i := range l.Bias().Tensor().Data() {
			l.Bias().Tensor().Data()[i] = 0
		}
	}

	x := tensor.Randn(tensor.Shape{1, 4, cfg.NEmbed}, 1, rand.New(rand.NewSource(5)))
	out := b.Forward(x)
	for i := range x.Data() {
		if x.Data()[i] != out.Data()[i] {
			t.Errorf("residual path broken at %d: %g vs %g", i, x.Data()[i], out.Data()[i])
		}
	}
}

func TestBlockDepthStacking(t *testing.T) {
	cfg := testConfig()
	rope := testRotary(cfg)
	init := testInit(6)

	blocks := []*Block{
		NewBlock(cfg, rope, nil, init),
		NewBlock(cfg, rope, nil, init),
	}

	x := tensor.Randn(tensor.Shape{1, 4, cfg.NEmbed}, 1, rand.New(rand.NewSource(7)))
	for _, b := range blocks {
		x = b.Forward(x)
		if !x.Shape().Equal(tensor.Shape{1, 4, cfg.NEmbed}) {
			t.Fatalf("stacked Forward() shape = %v", x.Shape())
		}
	}
}
