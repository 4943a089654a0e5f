// Package checkpoint reads and writes quill model checkpoints.
//
// File layout:
//
//	[4 bytes]  magic "QLLM"
//	[4 bytes]  header length (uint32, little-endian)
//	[N bytes]  JSON header
//	[padding]  zero bytes to the next 64-byte boundary
//	[...]      tensor data section; per-tensor offsets are relative to its start
//
// The header records the model configuration and per-tensor metadata. Only
// parameters are stored: derived state such as the rotation cache and the
// causal mask is rebuilt from the configuration on load. Tensors may be
// stored as float32 or, to halve file size, float16.
//
// The package also imports weights from GPT-2-convention checkpoints, where
// four weight groups are stored transposed (see ImportGPT2).
package checkpoint

import (
	"time"

	"github.com/quill-ml/quill/internal/nn"
)

// Format constants.
const (
	Magic         = "QLLM"
	FormatVersion = 1
	DataAlignment = 64 // tensor data section alignment in bytes
)

// On-disk tensor dtypes.
const (
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16"
)

// Header is the JSON header of a checkpoint file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Config        ConfigMeta        `json:"config"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ConfigMeta is the serialized model architecture.
type ConfigMeta struct {
	BlockSize   int    `json:"block_size"`
	VocabSize   int    `json:"vocab_size"`
	NLayer      int    `json:"n_layer"`
	NHead       int    `json:"n_head"`
	NEmbed      int    `json:"n_embed"`
	PosEncoding string `json:"pos_encoding"`
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// configMeta converts an nn.Config for the header.
func configMeta(c nn.Config) ConfigMeta {
	return ConfigMeta{
		BlockSize:   c.BlockSize,
		VocabSize:   c.VocabSize,
		NLayer:      c.NLayer,
		NHead:       c.NHead,
		NEmbed:      c.NEmbed,
		PosEncoding: c.PosEncoding.String(),
	}
}

// modelConfig converts a header config back to an nn.Config.
func (m ConfigMeta) modelConfig() (nn.Config, error) {
	pos, err := nn.ParsePosEncoding(m.PosEncoding)
	if err != nil {
		return nn.Config{}, err
	}
	return nn.Config{
		BlockSize:   m.BlockSize,
		VocabSize:   m.VocabSize,
		NLayer:      m.NLayer,
		NHead:       m.NHead,
		NEmbed:      m.NEmbed,
		PosEncoding: pos,
	}, nil
}

// dtypeSize returns the per-element byte size of a dtype, or 0 if unknown.
func dtypeSize(dtype string) int64 {
	switch dtype {
	case DTypeFloat32:
		return 4
	case DTypeFloat16:
		return 2
	default:
		return 0
	}
}

// alignUp rounds n up to the next multiple of align.
func alignUp(n, align int64) int64 {
	return (n + align - 1) / align * align
}
