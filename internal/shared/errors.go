// Package shared contains canonical type definitions shared across sift.
package shared //nolint:revive // internal shared package is intentional

import "errors"

// Semantic errors for storage and query operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("sift: record not found")

	// ErrInvalidKey indicates the provided key or key column is malformed or empty.
	ErrInvalidKey = errors.New("sift: invalid key")

	// ErrUnknownColumn indicates a column name does not map to a field of the record type.
	ErrUnknownColumn = errors.New("sift: unknown column")

	// ErrDimensionMismatch indicates vectors of different dimensionality were compared or stored.
	ErrDimensionMismatch = errors.New("sift: vector dimension mismatch")

	// ErrInvalidVector indicates a vector is empty or cannot be decoded.
	ErrInvalidVector = errors.New("sift: invalid vector")

	// ErrInvalidQuery indicates a filter or query failed validation.
	ErrInvalidQuery = errors.New("sift: invalid query")

	// ErrOperatorNotSupported indicates a filter operator has no SQL translation.
	ErrOperatorNotSupported = errors.New("sift: operator not supported")

	// ErrDecode indicates stored metadata could not be decoded.
	ErrDecode = errors.New("sift: decode failed")

	// ErrEncode indicates metadata could not be encoded for storage.
	ErrEncode = errors.New("sift: encode failed")
)
