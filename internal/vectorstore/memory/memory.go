package memory

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
)

// ErrDimension is returned when a vector does not match the index dimension.
var ErrDimension = errors.New("vector dimension mismatch")

// Hit is one search result: the position of the stored vector and its
// squared L2 distance to the query.
type Hit struct {
	Position int
	Distance float32
}

// Index is a flat, exact nearest-neighbour index using squared Euclidean
// distance. Position i is the i-th vector added. An Index is not safe for
// concurrent Add; concurrent Search on a fully built index is fine.
type Index struct {
	dimension int
	vectors   []float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Index{dimension: dimension}, nil
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int { return x.dimension }

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	if x.dimension == 0 {
		return 0
	}
	return len(x.vectors) / x.dimension
}

// Add appends vectors in order. Nothing is added if any vector has the wrong dimension.
func (x *Index) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("vector %d: %w: got %d, want %d", i, ErrDimension, len(v), x.dimension)
		}
	}
	for _, v := range vectors {
		x.vectors = append(x.vectors, v...)
	}
	return nil
}

// Vector returns a copy of the vector at position i.
func (x *Index) Vector(i int) []float32 {
	row := x.vectors[i*x.dimension : (i+1)*x.dimension]
	return append([]float32(nil), row...)
}

// Search returns up to k hits ordered by ascending distance. Ties keep
// insertion order. k <= 0 returns no hits.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimension, len(query), x.dimension)
	}
	n := x.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}
	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Position: i, Distance: squaredL2(x.vectors[i*x.dimension:(i+1)*x.dimension], query)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })
	if k > n {
		k = n
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

type wireIndex struct {
	Dimension int
	Vectors   []float32
}

// MarshalBinary encodes the index with encoding/gob.
func (x *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wireIndex{Dimension: x.dimension, Vectors: x.vectors}); err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an index produced by MarshalBinary.
func (x *Index) UnmarshalBinary(data []byte) error {
	var w wireIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	if w.Dimension <= 0 || len(w.Vectors)%w.Dimension != 0 {
		return fmt.Errorf("decode index: corrupt payload (dimension %d, %d values)", w.Dimension, len(w.Vectors))
	}
	x.dimension = w.Dimension
	x.vectors = w.Vectors
	return nil
}
