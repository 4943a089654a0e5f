package generate

import (
	"context"
	"fmt"

	"github.com/quill-ml/quill/internal/nn"
)

// Config configures a generation run.
type Config struct {
	// MaxTokens is the number of tokens to generate.
	MaxTokens int

	// StopTokens end generation early when sampled (e.g. end-of-text).
	StopTokens []int32
}

// DefaultConfig returns sensible generation defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 256}
}

// Generator produces token continuations from a model.
//
// Each step feeds the trailing BlockSize window of the context through a
// full forward pass and samples from the logits of the final position. The
// model itself is stateless across steps, so a Generator holds the only
// mutable state (the sampler's random source) and must not be shared
// between goroutines.
type Generator struct {
	model   *nn.GPT
	sampler *Sampler
}

// NewGenerator creates a generator over a model.
func NewGenerator(model *nn.GPT, sampling SamplingConfig) *Generator {
	return &Generator{
		model:   model,
		sampler: NewSampler(sampling),
	}
}

// Generate extends prompt by up to cfg.MaxTokens tokens and returns only the
// newly generated tokens.
//
// Generation stops early when a stop token is sampled (the stop token is not
// included in the result) or when ctx is canceled, in which case the tokens
// generated so far are returned alongside the context error.
func (g *Generator) Generate(ctx context.Context, prompt []int32, cfg Config) ([]int32, error) {
	if len(prompt) == 0 {
		return nil, fmt.Errorf("generate: empty prompt")
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("generate: negative MaxTokens %d", cfg.MaxTokens)
	}

	stop := make(map[int32]bool, len(cfg.StopTokens))
	for _, t := range cfg.StopTokens {
		stop[t] = true
	}

	window := g.model.Config.BlockSize
	tokens := make([]int32, len(prompt), len(prompt)+cfg.MaxTokens)
	copy(tokens, prompt)

	generated := make([]int32, 0, cfg.MaxTokens)
	for i := 0; i < cfg.MaxTokens; i++ {
		if err := ctx.Err(); err != nil {
			return generated, err
		}

		input := tokens
		if len(input) > window {
			input = input[len(input)-window:]
		}

		logits := g.model.Forward([][]int32{input})
		seq := logits.Shape()[1]
		vocab := logits.Shape()[2]
		last := logits.Data()[(seq-1)*vocab : seq*vocab]

		next := g.sampler.Sample(last)
		if stop[next] {
			break
		}
		tokens = append(tokens, next)
		generated = append(generated, next)
	}
	return generated, nil
}
