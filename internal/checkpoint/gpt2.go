package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/quill-ml/quill/internal/nn"
	"github.com/quill-ml/quill/internal/tensor"
)

// SourceTensor is a raw tensor from an externally converted GPT-2
// checkpoint: little-endian bytes plus enough metadata to decode them.
type SourceTensor struct {
	Shape tensor.Shape
	DType string // "float32", "float16", or "bfloat16"
	Data  []byte
}

// DTypeBFloat16 is accepted on import only; quill's own checkpoints store
// float32 or float16.
const DTypeBFloat16 = "bfloat16"

// transposedSuffixes are the weight groups that GPT-2 stores in Conv1D
// convention, [in, out], and that must be transposed to quill's Linear
// convention, [out, in], on import.
var transposedSuffixes = []string{
	"attn.c_attn.weight",
	"attn.c_proj.weight",
	"mlp.c_fc.weight",
	"mlp.c_proj.weight",
}

// ImportGPT2 loads GPT-2-convention weights into the model.
//
// Source names follow the HuggingFace GPT-2 layout (transformer.wte.weight,
// transformer.h.{i}.attn.c_attn.weight, ...). The lm_head weight is ignored
// when present: it is tied to the token embedding. A learned-positional
// model consumes transformer.wpe.weight; for any other scheme a wpe tensor
// in the source is ignored, since those positions are encoded by derived
// state instead.
//
// Any unknown name, undecodable tensor, or shape mismatch fails the whole
// import with ErrIncompatibleCheckpoint and leaves the model unchanged.
func ImportGPT2(model *nn.GPT, src map[string]SourceTensor) error {
	sd := make(map[string]*tensor.Tensor, len(src))

	for name, st := range src {
		target, ok := mapGPT2Name(name)
		if !ok {
			return fmt.Errorf("%w: unrecognized source tensor %q", ErrIncompatibleCheckpoint, name)
		}
		if target == "" {
			continue // tied or derived on our side
		}
		if target == "wpe.weight" && model.Config.PosEncoding != nn.PosLearned {
			continue
		}

		t, err := decodeSource(st)
		if err != nil {
			return fmt.Errorf("%w: tensor %q: %v", ErrIncompatibleCheckpoint, name, err)
		}
		if isTransposed(name) {
			if len(t.Shape()) != 2 {
				return fmt.Errorf("%w: tensor %q: transposed group must be 2D, got shape %v",
					ErrIncompatibleCheckpoint, name, t.Shape())
			}
			t = t.Transpose()
		}
		sd[target] = t
	}

	if err := model.LoadStateDict(sd); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleCheckpoint, err)
	}
	return nil
}

// mapGPT2Name converts a HuggingFace GPT-2 tensor name to the quill state
// dict name. Returns "" for tensors that are deliberately skipped and
// ok=false for names that do not belong to a GPT-2 checkpoint at all.
func mapGPT2Name(name string) (string, bool) {
	switch name {
	case "transformer.wte.weight":
		return "wte.weight", true
	case "transformer.wpe.weight":
		return "wpe.weight", true
	case "transformer.ln_f.weight":
		return "lnf.gamma", true
	case "transformer.ln_f.bias":
		return "lnf.beta", true
	case "lm_head.weight":
		return "", true // tied to wte.weight
	}

	rest, ok := strings.CutPrefix(name, "transformer.h.")
	if !ok {
		return "", false
	}
	layer, sub, ok := strings.Cut(rest, ".")
	if !ok {
		return "", false
	}
	if sub == "attn.bias" || sub == "attn.masked_bias" {
		return "", true // registered causal mask buffers, derived here
	}

	var mapped string
	switch sub {
	case "ln_1.weight":
		mapped = "ln1.gamma"
	case "ln_1.bias":
		mapped = "ln1.beta"
	case "ln_2.weight":
		mapped = "ln2.gamma"
	case "ln_2.bias":
		mapped = "ln2.beta"
	case "attn.c_attn.weight", "attn.c_attn.bias",
		"attn.c_proj.weight", "attn.c_proj.bias",
		"mlp.c_fc.weight", "mlp.c_fc.bias",
		"mlp.c_proj.weight", "mlp.c_proj.bias":
		mapped = sub
	default:
		return "", false
	}
	return "blocks." + layer + "." + mapped, true
}

// isTransposed reports whether a source tensor belongs to one of the four
// Conv1D-convention weight groups.
func isTransposed(name string) bool {
	for _, suffix := range transposedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// decodeSource converts a source tensor's raw bytes to a float32 tensor.
func decodeSource(st SourceTensor) (*tensor.Tensor, error) {
	n := st.Shape.NumElements()

	var values []float32
	switch st.DType {
	case DTypeFloat32:
		if len(st.Data) != 4*n {
			return nil, fmt.Errorf("have %d bytes, want %d for shape %v float32", len(st.Data), 4*n, st.Shape)
		}
		values = make([]float32, n)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(st.Data[i*4:]))
		}
	case DTypeFloat16:
		if len(st.Data) != 2*n {
			return nil, fmt.Errorf("have %d bytes, want %d for shape %v float16", len(st.Data), 2*n, st.Shape)
		}
		values = make([]float32, n)
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(st.Data[i*2:])).Float32()
		}
	case DTypeBFloat16:
		if len(st.Data) != 2*n {
			return nil, fmt.Errorf("have %d bytes, want %d for shape %v bfloat16", len(st.Data), 2*n, st.Shape)
		}
		values = bfloat16.DecodeFloat32(st.Data)
	default:
		return nil, fmt.Errorf("unknown dtype %q", st.DType)
	}

	return tensor.FromSlice(values, st.Shape)
}
