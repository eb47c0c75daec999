// Package llm holds the provider-neutral contracts for embedding and text
// generation backends.
package llm

import (
	"context"
	"fmt"
)

type Embedder interface {
	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Provider is implemented by clients that serve both roles.
type Provider interface {
	Embedder
	TextGenerator
	Name() string
}

// CheckEmbeddings verifies a backend answered every input with a non-empty
// vector of one consistent dimension.
func CheckEmbeddings(inputs int, vecs [][]float32) error {
	if len(vecs) != inputs {
		return fmt.Errorf("embedding count mismatch: requested=%d returned=%d", inputs, len(vecs))
	}
	dim := -1
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		if dim < 0 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("embedding %d dimension mismatch: expected=%d got=%d", i, dim, len(v))
		}
	}
	return nil
}

func ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}
