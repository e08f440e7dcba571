package sift

import "github.com/google/uuid"

// Vector pairs vector data with typed metadata T.
// Score is the distance to the query vector and is zero outside searches.
type Vector[T any] struct {
	ID       uuid.UUID `json:"id"`
	Vector   []float32 `json:"vector"`
	Score    float64   `json:"score,omitempty"`
	Metadata T         `json:"metadata"`
}

// Scored pairs a record with the score projected alongside it.
type Scored[T any] struct {
	Record *T
	Score  float64
}
