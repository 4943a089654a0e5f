package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/x448/float16"

	"github.com/quill-ml/quill/internal/nn"
	"github.com/quill-ml/quill/internal/tensor"
)

// maxHeaderSize bounds the JSON header so a corrupt length field cannot
// trigger a huge allocation.
const maxHeaderSize = 16 << 20

// Load reads a checkpoint and reconstructs the model.
//
// The model is built from the header's configuration — which also rebuilds
// all derived state (rotation cache, causal masking, sinusoidal tables) —
// and then every parameter is loaded. A checkpoint whose tensors do not
// exactly match the architecture fails with ErrIncompatibleCheckpoint; there
// are no partial loads.
func Load(path string) (*nn.GPT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	header, payload, err := parse(data)
	if err != nil {
		return nil, err
	}

	cfg, err := header.Config.modelConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleCheckpoint, err)
	}
	model, err := nn.NewGPT(cfg, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleCheckpoint, err)
	}

	sd := make(map[string]*tensor.Tensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		t, err := decodeTensor(meta, payload)
		if err != nil {
			return nil, err
		}
		sd[meta.Name] = t
	}

	if err := model.LoadStateDict(sd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleCheckpoint, err)
	}
	return model, nil
}

// ReadHeader parses and validates only the header of a checkpoint file.
func ReadHeader(path string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	header, _, err := parse(data)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// parse splits a checkpoint file into its validated header and data section.
func parse(data []byte) (*Header, []byte, error) {
	if len(data) < len(Magic)+4 {
		return nil, nil, fmt.Errorf("%w: file too short", ErrInvalidMagic)
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:len(Magic)])
	}

	headerLen := int64(binary.LittleEndian.Uint32(data[len(Magic) : len(Magic)+4]))
	if headerLen > maxHeaderSize {
		return nil, nil, fmt.Errorf("%w: header of %d bytes exceeds limit", ErrCorrupt, headerLen)
	}
	headerStart := int64(len(Magic) + 4)
	if headerStart+headerLen > int64(len(data)) {
		return nil, nil, fmt.Errorf("%w: header extends past end of file", ErrCorrupt)
	}

	var header Header
	if err := json.Unmarshal(data[headerStart:headerStart+headerLen], &header); err != nil {
		return nil, nil, fmt.Errorf("%w: bad header JSON: %v", ErrCorrupt, err)
	}
	if header.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, header.FormatVersion)
	}

	dataStart := alignUp(headerStart+headerLen, DataAlignment)
	if dataStart > int64(len(data)) {
		return nil, nil, fmt.Errorf("%w: missing data section", ErrCorrupt)
	}
	payload := data[dataStart:]

	if err := validateTensors(header.Tensors, int64(len(payload))); err != nil {
		return nil, nil, err
	}
	return &header, payload, nil
}

// validateTensors checks that every tensor lies within the data section,
// that sizes agree with shape and dtype, and that no two tensors overlap.
func validateTensors(metas []TensorMeta, dataSize int64) error {
	sorted := make([]TensorMeta, len(metas))
	copy(sorted, metas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var prevEnd int64
	var prevName string
	for _, meta := range sorted {
		elemSize := dtypeSize(meta.DType)
		if elemSize == 0 {
			return fmt.Errorf("%w: tensor %q has unknown dtype %q", ErrCorrupt, meta.Name, meta.DType)
		}
		if meta.Offset < 0 || meta.Size < 0 {
			return fmt.Errorf("%w: tensor %q has negative offset or size", ErrCorrupt, meta.Name)
		}
		if want := int64(tensor.Shape(meta.Shape).NumElements()) * elemSize; want != meta.Size {
			return fmt.Errorf("%w: tensor %q: size %d does not match shape %v and dtype %s",
				ErrCorrupt, meta.Name, meta.Size, meta.Shape, meta.DType)
		}
		if meta.Offset < prevEnd {
			return fmt.Errorf("%w: tensors %q and %q overlap", ErrCorrupt, prevName, meta.Name)
		}
		if meta.Offset+meta.Size > dataSize {
			return fmt.Errorf("%w: tensor %q extends beyond data section", ErrCorrupt, meta.Name)
		}
		prevEnd = meta.Offset + meta.Size
		prevName = meta.Name
	}
	return nil
}

// decodeTensor reads one tensor out of the data section as float32.
func decodeTensor(meta TensorMeta, payload []byte) (*tensor.Tensor, error) {
	raw := payload[meta.Offset : meta.Offset+meta.Size]
	n := tensor.Shape(meta.Shape).NumElements()

	values := make([]float32, n)
	switch meta.DType {
	case DTypeFloat32:
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case DTypeFloat16:
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
		}
	default:
		return nil, fmt.Errorf("%w: tensor %q has unknown dtype %q", ErrCorrupt, meta.Name, meta.DType)
	}

	t, err := tensor.FromSlice(values, meta.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: tensor %q: %v", ErrCorrupt, meta.Name, err)
	}
	return t, nil
}
