package query

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/lib/pq/oid"
)

// TypeMapping describes how a Go value type is bound and decoded at the
// wire level.
type TypeMapping struct {
	// GoType is the semantic type this mapping applies to.
	GoType reflect.Type

	// StoreType is the database type name (e.g. "double precision", "vector").
	StoreType string

	// OID is the Postgres type OID. Extension types such as vector have no
	// fixed OID and use oid.T_unknown.
	OID oid.Oid

	// ExplicitCast renders bound parameters as $n::StoreType so the server
	// does not have to infer the parameter type.
	ExplicitCast bool
}

// TypeMappingSource resolves a semantic type to its wire-level mapping.
// Implementations must be safe for concurrent read-only use.
type TypeMappingSource interface {
	FindMapping(t reflect.Type) (*TypeMapping, bool)
}

// MappingSource is an immutable TypeMappingSource seeded with the Postgres
// builtin scalar mappings.
type MappingSource struct {
	byType map[reflect.Type]*TypeMapping
}

// NewMappingSource creates a mapping source holding the Postgres defaults
// plus extra. Extra mappings replace defaults for the same Go type.
func NewMappingSource(extra ...*TypeMapping) *MappingSource {
	byType := make(map[reflect.Type]*TypeMapping)
	for _, m := range defaultMappings() {
		byType[m.GoType] = m
	}
	for _, m := range extra {
		if m == nil || m.GoType == nil {
			continue
		}
		byType[m.GoType] = m
	}
	return &MappingSource{byType: byType}
}

// FindMapping returns the mapping for t. Pointer types resolve to the
// mapping of their element type.
func (s *MappingSource) FindMapping(t reflect.Type) (*TypeMapping, bool) {
	if t == nil {
		return nil, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	m, ok := s.byType[t]
	return m, ok
}

func defaultMappings() []*TypeMapping {
	return []*TypeMapping{
		{GoType: reflect.TypeFor[bool](), StoreType: "boolean", OID: oid.T_bool},
		{GoType: reflect.TypeFor[int](), StoreType: "bigint", OID: oid.T_int8},
		{GoType: reflect.TypeFor[int16](), StoreType: "smallint", OID: oid.T_int2},
		{GoType: reflect.TypeFor[int32](), StoreType: "integer", OID: oid.T_int4},
		{GoType: reflect.TypeFor[int64](), StoreType: "bigint", OID: oid.T_int8},
		{GoType: reflect.TypeFor[float32](), StoreType: "real", OID: oid.T_float4},
		{GoType: reflect.TypeFor[float64](), StoreType: "double precision", OID: oid.T_float8},
		{GoType: reflect.TypeFor[string](), StoreType: "text", OID: oid.T_text},
		{GoType: reflect.TypeFor[[]byte](), StoreType: "bytea", OID: oid.T_bytea},
		{GoType: reflect.TypeFor[time.Time](), StoreType: "timestamptz", OID: oid.T_timestamptz},
		{GoType: reflect.TypeFor[[]string](), StoreType: "text[]", OID: oid.T__text, ExplicitCast: true},
		{GoType: reflect.TypeFor[json.RawMessage](), StoreType: "jsonb", OID: oid.T_jsonb, ExplicitCast: true},
	}
}

// Verify MappingSource implements TypeMappingSource.
var _ TypeMappingSource = (*MappingSource)(nil)
