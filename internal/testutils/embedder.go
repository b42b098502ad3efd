package testutils

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
)

var ErrFakeEmbed = errors.New("fake embedding failure")

// FakeEmbedder returns a deterministic vector per text and is safe for
// concurrent use. Texts listed in FailOn return ErrFakeEmbed.
type FakeEmbedder struct {
	Dimension int
	FailOn    map[string]bool

	mu    sync.Mutex
	calls []string
}

func NewFakeEmbedder(dimension int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dimension, FailOn: map[string]bool{}}
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	fail := f.FailOn[text]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, ErrFakeEmbed
	}
	return Vector(text, f.Dimension), nil
}

func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Vector is the embedding FakeEmbedder returns for text.
func Vector(text string, dimension int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float32, dimension)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%1000) / 1000
	}
	return v
}
