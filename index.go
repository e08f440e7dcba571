package sift

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/vecna"
)

// Index provides type-safe vector storage operations with metadata of type T.
// Wraps a VectorProvider, encoding T through a Codec.
type Index[T any] struct {
	provider VectorProvider
	codec    Codec
}

// NewIndex creates an Index for metadata type T backed by the given provider.
// Uses JSON codec by default.
func NewIndex[T any](provider VectorProvider) *Index[T] {
	return NewIndexWithCodec[T](provider, JSONCodec{})
}

// NewIndexWithCodec creates an Index for metadata type T with a custom codec.
func NewIndexWithCodec[T any](provider VectorProvider, codec Codec) *Index[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &Index[T]{provider: provider, codec: codec}
}

// Upsert stores or updates a vector with associated metadata.
func (i *Index[T]) Upsert(ctx context.Context, id uuid.UUID, vector []float32, metadata *T) error {
	m, err := i.encodeMetadata(metadata)
	if err != nil {
		return err
	}
	return i.provider.Upsert(ctx, id, vector, m)
}

// UpsertBatch stores or updates multiple vectors.
func (i *Index[T]) UpsertBatch(ctx context.Context, vectors []Vector[T]) error {
	records := make([]VectorRecord, len(vectors))
	for idx := range vectors {
		m, err := i.encodeMetadata(&vectors[idx].Metadata)
		if err != nil {
			return err
		}
		records[idx] = VectorRecord{
			ID:       vectors[idx].ID,
			Vector:   vectors[idx].Vector,
			Metadata: m,
		}
	}
	return i.provider.UpsertBatch(ctx, records)
}

// Get retrieves a vector by ID.
// Returns ErrNotFound if the ID does not exist.
func (i *Index[T]) Get(ctx context.Context, id uuid.UUID) (*Vector[T], error) {
	vector, info, err := i.provider.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &Vector[T]{ID: info.ID, Vector: vector}
	if err := i.decodeMetadata(info.Metadata, &out.Metadata); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a vector by ID.
func (i *Index[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return i.provider.Delete(ctx, id)
}

// DeleteBatch removes multiple vectors by ID.
func (i *Index[T]) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	return i.provider.DeleteBatch(ctx, ids)
}

// Search returns the k nearest neighbors.
// filter is optional: its non-zero encoded fields must equal the stored metadata.
func (i *Index[T]) Search(ctx context.Context, vector []float32, k int, filter *T) ([]*Vector[T], error) {
	return i.observe(ctx, k, func() ([]VectorResult, error) {
		filterMap, err := i.encodeFilter(filter)
		if err != nil {
			return nil, err
		}
		return i.provider.Search(ctx, vector, k, filterMap)
	})
}

// Query performs similarity search with vecna filter support.
// Returns ErrInvalidQuery if the filter contains validation errors.
// Returns ErrOperatorNotSupported if the provider doesn't support an operator.
func (i *Index[T]) Query(ctx context.Context, vector []float32, k int, filter *vecna.Filter) ([]*Vector[T], error) {
	return i.observe(ctx, k, func() ([]VectorResult, error) {
		return i.provider.Query(ctx, vector, k, filter)
	})
}

// Filter returns vectors matching the metadata filter without similarity search.
// Limit of 0 returns all matching vectors.
func (i *Index[T]) Filter(ctx context.Context, filter *vecna.Filter, limit int) ([]*Vector[T], error) {
	return i.observe(ctx, limit, func() ([]VectorResult, error) {
		return i.provider.Filter(ctx, filter, limit)
	})
}

// List returns vector IDs.
// Limit of 0 means no limit.
func (i *Index[T]) List(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return i.provider.List(ctx, limit)
}

// Exists checks whether a vector ID exists.
func (i *Index[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return i.provider.Exists(ctx, id)
}

// observe runs a search, decodes its results, and emits search signals.
func (i *Index[T]) observe(ctx context.Context, limit int, run func() ([]VectorResult, error)) ([]*Vector[T], error) {
	start := time.Now()
	capitan.Emit(ctx, SearchStarted, FieldLimit.Field(limit))

	results, err := run()
	if err == nil {
		var vectors []*Vector[T]
		if vectors, err = i.decodeResults(results); err == nil {
			capitan.Emit(ctx, SearchCompleted,
				FieldCount.Field(len(vectors)),
				FieldDuration.Field(time.Since(start)),
			)
			return vectors, nil
		}
	}

	capitan.Emit(ctx, SearchFailed,
		FieldError.Field(err),
		FieldDuration.Field(time.Since(start)),
	)
	return nil, err
}

func (i *Index[T]) decodeResults(results []VectorResult) ([]*Vector[T], error) {
	vectors := make([]*Vector[T], len(results))
	for idx, r := range results {
		v := &Vector[T]{ID: r.ID, Vector: r.Vector, Score: r.Score}
		if err := i.decodeMetadata(r.Metadata, &v.Metadata); err != nil {
			return nil, err
		}
		vectors[idx] = v
	}
	return vectors, nil
}

// encodeMetadata converts typed metadata to bytes via codec.
func (i *Index[T]) encodeMetadata(metadata *T) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	return i.codec.Encode(metadata)
}

// decodeMetadata converts bytes to typed metadata via codec.
func (i *Index[T]) decodeMetadata(data []byte, metadata *T) error {
	if data == nil {
		return nil
	}
	return i.codec.Decode(data, metadata)
}

// encodeFilter converts a typed filter to a field map via codec.
func (i *Index[T]) encodeFilter(filter *T) (map[string]any, error) {
	if filter == nil {
		return nil, nil
	}
	data, err := i.codec.Encode(filter)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := i.codec.Decode(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
