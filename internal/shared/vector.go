// Package shared contains canonical type definitions shared across sift.
package shared //nolint:revive // internal shared package is intentional

import "github.com/google/uuid"

// VectorInfo holds provider-level metadata for vector storage.
type VectorInfo struct {
	// ID is the unique identifier for the vector.
	ID uuid.UUID

	// Dimension is the vector dimensionality.
	Dimension int

	// Metadata holds user-defined metadata as raw bytes.
	Metadata []byte
}

// DistanceMetric names the distance function used for similarity search.
type DistanceMetric string

const (
	// DistanceL2 represents Euclidean (L2) distance.
	DistanceL2 DistanceMetric = "l2"

	// DistanceCosine represents cosine distance (one minus cosine similarity).
	DistanceCosine DistanceMetric = "cosine"

	// DistanceInnerProduct represents negative inner product, so that
	// ascending order ranks the largest dot product first.
	DistanceInnerProduct DistanceMetric = "inner_product"
)

// VectorRecord represents a vector for batch operations.
type VectorRecord struct {
	ID       uuid.UUID
	Vector   []float32
	Metadata []byte
}

// VectorResult represents a search result with its distance score.
// Lower scores are closer for every supported metric.
type VectorResult struct {
	ID       uuid.UUID
	Vector   []float32
	Metadata []byte
	Score    float64
}
