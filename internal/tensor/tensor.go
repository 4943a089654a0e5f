// Package tensor implements the dense float32 tensors the quill model is
// built on.
//
// Tensors are row-major contiguous slices with an attached Shape. The package
// provides exactly the algebra a decoder-only transformer needs: element-wise
// arithmetic with broadcasting, 2D and batched matrix multiplication, axis
// permutation, reshaping, and a numerically stable softmax. Heavy operations
// parallelize across goroutines internally; tensors themselves carry no
// synchronization and are safe for concurrent reads only.
package tensor

import (
	"fmt"
	"math/rand"
)

// Tensor is a dense row-major float32 tensor.
//
// The zero value is not usable; construct tensors with Zeros, Ones, Full,
// FromSlice, or Randn.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4})
//	u := tensor.Ones(tensor.Shape{3, 4})
//	v := t.Add(u)
type Tensor struct {
	shape   Shape
	strides []int
	data    []float32
}

// Zeros creates a tensor of the given shape filled with zeros.
//
// Panics if the shape is invalid.
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
		data:    make([]float32, shape.NumElements()),
	}
}

// Ones creates a tensor of the given shape filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor of the given shape filled with value.
func Full(shape Shape, value float32) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
//
// Returns an error if the slice length does not match the shape.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := Zeros(shape)
	copy(t.data, data)
	return t, nil
}

// Randn creates a tensor with values drawn from a zero-mean normal
// distribution with the given standard deviation.
//
// The caller supplies the random source, which keeps initialization
// reproducible under a fixed seed.
func Randn(shape Shape, std float64, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64() * std)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the row-major strides of the tensor.
func (t *Tensor) Strides() []int {
	return t.strides
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage slice.
//
// The slice directly accesses tensor memory (zero-copy). Modifications to the
// returned slice modify the tensor — and any tensor sharing the same storage,
// such as a Reshape view or a weight-tied parameter.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.flatIndex(idx)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor) Set(value float32, idx ...int) {
	t.data[t.flatIndex(idx)] = value
}

func (t *Tensor) flatIndex(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index has %d dimensions, shape %v has %d", len(idx), t.shape, len(t.shape)))
	}
	flat := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d of shape %v", x, i, t.shape))
		}
		flat += x * t.strides[i]
	}
	return flat
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	c := Zeros(t.shape)
	copy(c.data, t.data)
	return c
}

// Reshape returns a view of the tensor with a new shape.
//
// The view shares storage with the receiver (zero-copy); writing through one
// is visible through the other. The new shape must describe the same number
// of elements.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	shape := Shape(dims)
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.Reshape: %v", err))
	}
	if shape.NumElements() != len(t.data) {
		panic(fmt.Sprintf("tensor.Reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, shape.NumElements()))
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
		data:    t.data,
	}
}

// Transpose returns a copy of the tensor with its axes permuted.
//
// Called without arguments on a 2D tensor it swaps the two axes. Otherwise
// perm must be a permutation of [0, ndim). The result is materialized
// contiguously, not a strided view.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 8, 16, 4})
//	y := x.Transpose(0, 2, 1, 3) // [2, 16, 8, 4]
func (t *Tensor) Transpose(perm ...int) *Tensor {
	ndim := len(t.shape)
	if len(perm) == 0 {
		if ndim != 2 {
			panic(fmt.Sprintf("tensor.Transpose: implicit transpose requires 2D tensor, got shape %v", t.shape))
		}
		perm = []int{1, 0}
	}
	if len(perm) != ndim {
		panic(fmt.Sprintf("tensor.Transpose: permutation %v does not match %d dimensions", perm, ndim))
	}
	seen := make([]bool, ndim)
	for _, p := range perm {
		if p < 0 || p >= ndim || seen[p] {
			panic(fmt.Sprintf("tensor.Transpose: %v is not a permutation of [0, %d)", perm, ndim))
		}
		seen[p] = true
	}

	outShape := make(Shape, ndim)
	for i, p := range perm {
		outShape[i] = t.shape[p]
	}
	out := Zeros(outShape)

	// Walk the output in order, gathering from the permuted source index.
	idx := make([]int, ndim)
	for flat := range out.data {
		srcFlat := 0
		for d := 0; d < ndim; d++ {
			srcFlat += idx[d] * t.strides[perm[d]]
		}
		out.data[flat] = t.data[srcFlat]

		for d := ndim - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < outShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out
}
