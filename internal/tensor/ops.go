package tensor

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/parallel"
)

// cfg is the shared parallelism configuration for heavy ops.
var cfg = parallel.DefaultConfig()

// Add returns the element-wise sum of t and other, broadcasting as needed.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return broadcastBinary(t, other, func(a, b float32) float32 { return a + b })
}

// Sub returns the element-wise difference t - other, broadcasting as needed.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return broadcastBinary(t, other, func(a, b float32) float32 { return a - b })
}

// Mul returns the element-wise product of t and other, broadcasting as needed.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return broadcastBinary(t, other, func(a, b float32) float32 { return a * b })
}

// AddScalar returns t + s element-wise.
func (t *Tensor) AddScalar(s float32) *Tensor {
	out := Zeros(t.shape)
	for i, v := range t.data {
		out.data[i] = v + s
	}
	return out
}

// MulScalar returns t * s element-wise.
func (t *Tensor) MulScalar(s float32) *Tensor {
	out := Zeros(t.shape)
	for i, v := range t.data {
		out.data[i] = v * s
	}
	return out
}

// broadcastBinary applies f element-wise over the broadcasted shape of a and b.
//
// The fast path handles identical shapes with a single flat loop; the general
// path decodes indices through the broadcasted shape, treating size-1 source
// dimensions as stride 0.
func broadcastBinary(a, b *Tensor, f func(x, y float32) float32) *Tensor {
	if a.shape.Equal(b.shape) {
		out := Zeros(a.shape)
		for i := range a.data {
			out.data[i] = f(a.data[i], b.data[i])
		}
		return out
	}

	outShape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	out := Zeros(outShape)

	aStrides := broadcastStrides(a.shape, a.strides, outShape)
	bStrides := broadcastStrides(b.shape, b.strides, outShape)

	ndim := len(outShape)
	idx := make([]int, ndim)
	for flat := range out.data {
		aFlat, bFlat := 0, 0
		for d := 0; d < ndim; d++ {
			aFlat += idx[d] * aStrides[d]
			bFlat += idx[d] * bStrides[d]
		}
		out.data[flat] = f(a.data[aFlat], b.data[bFlat])

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

// broadcastStrides aligns src strides to the broadcast target shape, using
// stride 0 for broadcasted (size-1 or missing) dimensions.
func broadcastStrides(srcShape Shape, srcStrides []int, target Shape) []int {
	strides := make([]int, len(target))
	offset := len(target) - len(srcShape)
	for i := range target {
		si := i - offset
		if si < 0 || srcShape[si] == 1 {
			strides[i] = 0
			continue
		}
		strides[i] = srcStrides[si]
	}
	return strides
}

// MatMul computes the 2D matrix product t @ other.
//
// Shapes: [m, k] @ [k, n] → [m, n]. Rows are computed in parallel.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	if len(t.shape) != 2 || len(other.shape) != 2 {
		panic(fmt.Sprintf("tensor.MatMul: requires 2D tensors, got %v and %v", t.shape, other.shape))
	}
	m, k := t.shape[0], t.shape[1]
	k2, n := other.shape[0], other.shape[1]
	if k != k2 {
		panic(fmt.Sprintf("tensor.MatMul: inner dimensions do not match: %v @ %v", t.shape, other.shape))
	}

	out := Zeros(Shape{m, n})
	parallel.ForRows(m, n, func(i int) {
		matmulRow(t.data[i*k:(i+1)*k], other.data, out.data[i*n:(i+1)*n], k, n)
	}, cfg)
	return out
}

// matmulRow accumulates row @ b into dst, iterating b row-major for locality.
func matmulRow(row, b, dst []float32, k, n int) {
	for p := 0; p < k; p++ {
		a := row[p]
		if a == 0 {
			continue
		}
		bRow := b[p*n : (p+1)*n]
		for j, bv := range bRow {
			dst[j] += a * bv
		}
	}
}

// BatchMatMul computes a batched matrix product over the last two dimensions.
//
// Both tensors must have the same number of dimensions (at least 2) and equal
// leading (batch) dimensions: [..., m, k] @ [..., k, n] → [..., m, n].
// Batches are computed in parallel.
func (t *Tensor) BatchMatMul(other *Tensor) *Tensor {
	if len(t.shape) < 2 || len(t.shape) != len(other.shape) {
		panic(fmt.Sprintf("tensor.BatchMatMul: rank mismatch: %v and %v", t.shape, other.shape))
	}
	ndim := len(t.shape)
	for d := 0; d < ndim-2; d++ {
		if t.shape[d] != other.shape[d] {
			panic(fmt.Sprintf("tensor.BatchMatMul: batch dimensions do not match: %v and %v", t.shape, other.shape))
		}
	}
	m, k := t.shape[ndim-2], t.shape[ndim-1]
	k2, n := other.shape[ndim-2], other.shape[ndim-1]
	if k != k2 {
		panic(fmt.Sprintf("tensor.BatchMatMul: inner dimensions do not match: %v @ %v", t.shape, other.shape))
	}

	batch := 1
	for d := 0; d < ndim-2; d++ {
		batch *= t.shape[d]
	}

	outShape := t.shape.Clone()
	outShape[ndim-2] = m
	outShape[ndim-1] = n
	out := Zeros(outShape)

	parallel.ForRows(batch*m, n, func(bi int) {
		b, i := bi/m, bi%m
		lhs := t.data[b*m*k+i*k : b*m*k+(i+1)*k]
		rhs := other.data[b*k*n : (b+1)*k*n]
		dst := out.data[b*m*n+i*n : b*m*n+(i+1)*n]
		matmulRow(lhs, rhs, dst, k, n)
	}, cfg)
	return out
}

// Softmax returns the softmax of t along its last dimension.
//
// The maximum of each row is subtracted before exponentiation, so large
// logits do not overflow.
func (t *Tensor) Softmax() *Tensor {
	if len(t.shape) == 0 {
		panic("tensor.Softmax: requires at least 1 dimension")
	}
	last := t.shape[len(t.shape)-1]
	rows := len(t.data) / last

	out := Zeros(t.shape)
	for r := 0; r < rows; r++ {
		src := t.data[r*last : (r+1)*last]
		dst := out.data[r*last : (r+1)*last]

		maxVal := src[0]
		for _, v := range src[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for i, v := range src {
			e := math.Exp(float64(v - maxVal))
			dst[i] = float32(e)
			sum += e
		}
		inv := float32(1 / sum)
		for i := range dst {
			dst[i] *= inv
		}
	}
	return out
}

// MeanLastDim returns the mean of t along its last dimension, keeping the
// dimension with size 1.
func (t *Tensor) MeanLastDim() *Tensor {
	if len(t.shape) == 0 {
		panic("tensor.MeanLastDim: requires at least 1 dimension")
	}
	last := t.shape[len(t.shape)-1]
	rows := len(t.data) / last

	outShape := t.shape.Clone()
	outShape[len(outShape)-1] = 1
	out := Zeros(outShape)
	for r := 0; r < rows; r++ {
		var sum float32
		for _, v := range t.data[r*last : (r+1)*last] {
			sum += v
		}
		out.data[r] = sum / float32(last)
	}
	return out
}
