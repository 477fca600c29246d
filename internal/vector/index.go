// Package vector provides nearest-neighbour search over embeddings.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector does not match the index width.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index stores one vector per id and answers k-nearest queries by cosine distance.
type Index interface {
	// Upsert stores vectors under ids, replacing any vector already stored under an id.
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Reset()
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single vector search hit. Distance is 1 - cosine similarity,
// so 0 means same direction and smaller is closer.
type Result struct {
	ID       string
	Distance float64
}
