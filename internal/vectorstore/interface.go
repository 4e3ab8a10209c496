package vectorstore

import "context"

// Point is one vector with its payload metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// VectorStore indexes semantic-stage outputs for later similarity search.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error
}
