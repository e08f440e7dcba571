package sift

import (
	"encoding/json"
	"fmt"
)

// Codec serializes vector metadata.
type Codec interface {
	// Encode serializes v.
	Encode(v any) ([]byte, error)

	// Decode deserializes data into v.
	Decode(data []byte, v any) error
}

// JSONCodec implements Codec using JSON encoding.
// Metadata is stored in a jsonb column, so JSON is the default.
type JSONCodec struct{}

// Encode serializes a value to JSON bytes.
func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

// Decode deserializes JSON bytes into a value.
func (JSONCodec) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// Ensure JSONCodec implements Codec.
var _ Codec = JSONCodec{}
