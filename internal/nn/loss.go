package nn

import (
	"fmt"
	"math"

	"github.com/quill-ml/quill/internal/tensor"
)

// CrossEntropy computes the mean negative log-likelihood of targets under
// softmax(logits).
//
// logits has shape [n, classes] and targets length n. Log-probabilities are
// computed with the log-sum-exp trick (max subtracted before
// exponentiation), so extreme logits neither overflow nor underflow.
func CrossEntropy(logits *tensor.Tensor, targets []int32) float32 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("CrossEntropy: logits must be 2D [n, classes], got shape %v", shape))
	}
	n, classes := shape[0], shape[1]
	if len(targets) != n {
		panic(fmt.Sprintf("CrossEntropy: %d logit rows but %d targets", n, len(targets)))
	}

	data := logits.Data()
	var total float64
	for i := 0; i < n; i++ {
		row := data[i*classes : (i+1)*classes]
		target := int(targets[i])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("CrossEntropy: target %d out of range [0, %d)", target, classes))
		}

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		// -log softmax(row)[target] = log(sum exp(row - max)) - (row[target] - max)
		total += math.Log(sumExp) - float64(row[target]-maxVal)
	}
	return float32(total / float64(n))
}
