// Package corpus holds the process-wide, append-only store of embedded chunks.
//
// A Corpus keeps two parallel sequences, vectors and texts, that always have
// the same length. The dimensionality is fixed by the first append. Appends
// take the write lock; searches and reads share the read lock.
package corpus

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrBatchMismatch     = errors.New("vectors and texts length mismatch")
)

type SearchResult struct {
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
}

type Stats struct {
	Chunks    int `json:"chunks"`
	Vectors   int `json:"vectors"`
	Dimension int `json:"dimension"`
}

type Corpus struct {
	mu        sync.RWMutex
	index     Index
	texts     []string
	dimension int
}

// New returns an empty corpus backed by a FlatIndex.
func New() *Corpus {
	return NewWithIndex(NewFlatIndex())
}

// NewWithIndex returns an empty corpus backed by idx, which must be empty.
func NewWithIndex(idx Index) *Corpus {
	return &Corpus{index: idx}
}

func (c *Corpus) Append(vector []float32, text string) error {
	return c.AppendBatch([][]float32{vector}, []string{text})
}

// AppendBatch appends every pair or none of them. All vectors are checked
// against the established dimension, or against each other when the corpus
// is still empty, before anything is written.
func (c *Corpus) AppendBatch(vectors [][]float32, texts []string) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: %d vectors, %d texts", ErrBatchMismatch, len(vectors), len(texts))
	}
	if len(vectors) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dimension
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	c.index.Add(vectors)
	c.texts = append(c.texts, texts...)
	c.dimension = dim
	return nil
}

// Search returns up to k texts ordered by ascending distance to query. An
// empty corpus yields an empty, non-nil result.
func (c *Corpus) Search(query []float32, k int) ([]SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.texts) == 0 || k <= 0 {
		return []SearchResult{}, nil
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), c.dimension)
	}

	neighbors := c.index.Search(query, k)
	results := make([]SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, SearchResult{Text: c.texts[n.ID], Distance: n.Distance})
	}
	return results, nil
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.texts)
}

func (c *Corpus) IsEmpty() bool {
	return c.Len() == 0
}

// Dimension is 0 until the first append.
func (c *Corpus) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

func (c *Corpus) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Chunks:    len(c.texts),
		Vectors:   c.index.Len(),
		Dimension: c.dimension,
	}
}
