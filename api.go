// Package sift provides typed SQL and vector storage whose queries can
// express vector similarity as ordinary calls. Distance calls such as
// pgvector.L2Distance are rewritten into native operators by translators
// registered with a query.Compiler before any SQL is rendered.
package sift

import (
	"context"

	"github.com/google/uuid"
	"github.com/zoobzio/sift/internal/shared"
	"github.com/zoobzio/vecna"
)

// Semantic errors for storage operations (re-exported from internal/shared).
var (
	ErrNotFound             = shared.ErrNotFound
	ErrInvalidKey           = shared.ErrInvalidKey
	ErrUnknownColumn        = shared.ErrUnknownColumn
	ErrDimensionMismatch    = shared.ErrDimensionMismatch
	ErrInvalidVector        = shared.ErrInvalidVector
	ErrInvalidQuery         = shared.ErrInvalidQuery
	ErrOperatorNotSupported = shared.ErrOperatorNotSupported
	ErrDecode               = shared.ErrDecode
	ErrEncode               = shared.ErrEncode
)

// VectorInfo is re-exported from internal/shared for the public API.
type VectorInfo = shared.VectorInfo

// VectorRecord is re-exported from internal/shared for the public API.
type VectorRecord = shared.VectorRecord

// VectorResult is re-exported from internal/shared for the public API.
type VectorResult = shared.VectorResult

// DistanceMetric is re-exported from internal/shared for the public API.
type DistanceMetric = shared.DistanceMetric

// Distance metric constants.
const (
	DistanceL2           = shared.DistanceL2
	DistanceCosine       = shared.DistanceCosine
	DistanceInnerProduct = shared.DistanceInnerProduct
)

// VectorProvider defines raw vector storage operations.
type VectorProvider interface {
	// Upsert stores or updates a vector with associated metadata.
	// If the ID exists, the vector and metadata are replaced.
	Upsert(ctx context.Context, id uuid.UUID, vector []float32, metadata []byte) error

	// UpsertBatch stores or updates multiple vectors.
	UpsertBatch(ctx context.Context, vectors []VectorRecord) error

	// Get retrieves a vector by ID.
	// Returns ErrNotFound if the ID does not exist.
	Get(ctx context.Context, id uuid.UUID) ([]float32, *VectorInfo, error)

	// Delete removes a vector by ID.
	// Returns ErrNotFound if the ID does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteBatch removes multiple vectors by ID.
	// Non-existent IDs are silently ignored.
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error

	// Search returns the k nearest neighbors in ascending distance order.
	// filter is optional metadata equality filtering (nil means no filter).
	// Returns ErrInvalidQuery if k is not positive.
	Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]VectorResult, error)

	// Query performs similarity search with vecna filter support.
	// Returns ErrInvalidQuery if k is not positive or the filter contains validation errors.
	// Returns ErrOperatorNotSupported if the provider doesn't support an operator.
	Query(ctx context.Context, vector []float32, k int, filter *vecna.Filter) ([]VectorResult, error)

	// Filter returns vectors matching the metadata filter without similarity search.
	// Limit of 0 returns all matching vectors.
	Filter(ctx context.Context, filter *vecna.Filter, limit int) ([]VectorResult, error)

	// List returns vector IDs.
	// Limit of 0 means no limit.
	List(ctx context.Context, limit int) ([]uuid.UUID, error)

	// Exists checks whether a vector ID exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
