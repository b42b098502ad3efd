package corpus

import "sort"

// Neighbor is a stored vector's position and its distance to a query.
type Neighbor struct {
	ID       int
	Distance float32
}

// Index is the search strategy behind a Corpus. Implementations are not safe
// for concurrent use; Corpus serializes every call. IDs are insertion
// positions starting at 0.
type Index interface {
	Add(vectors [][]float32)
	Search(query []float32, k int) []Neighbor
	Len() int
}

// FlatIndex is an exact nearest-neighbor index that scores every stored
// vector by squared Euclidean distance.
type FlatIndex struct {
	vectors [][]float32
}

func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

func (f *FlatIndex) Add(vectors [][]float32) {
	for _, v := range vectors {
		f.vectors = append(f.vectors, append([]float32(nil), v...))
	}
}

func (f *FlatIndex) Len() int {
	return len(f.vectors)
}

// Search returns up to k neighbors by ascending distance. Equal distances keep
// insertion order.
func (f *FlatIndex) Search(query []float32, k int) []Neighbor {
	if k <= 0 || len(f.vectors) == 0 {
		return []Neighbor{}
	}

	all := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		all[i] = Neighbor{ID: i, Distance: squaredL2(v, query)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})

	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
