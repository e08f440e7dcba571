// Package pgvector translates vector distance calls into pgvector operators
// and provides a sift VectorProvider backed by PostgreSQL with pgvector.
package pgvector

import (
	"reflect"

	"github.com/zoobzio/astql"
	"github.com/zoobzio/sift/query"
)

// Function identifies one of the pgvector distance functions.
// Values outside the declared constants are not pgvector functions.
type Function uint8

const (
	// L2 is Euclidean distance, operator <->.
	L2 Function = iota

	// Cosine is cosine distance, operator <=>.
	Cosine

	// NegInnerProduct is the negated inner product, operator <#>.
	// Larger dot products yield smaller values, so ascending order ranks
	// the most similar vectors first.
	NegInnerProduct
)

// Functions lists every supported function.
var Functions = []Function{L2, Cosine, NegInnerProduct}

var float64Type = reflect.TypeFor[float64]()

// Operator returns the pgvector infix operator for f.
func (f Function) Operator() (string, bool) {
	switch f {
	case L2:
		return string(astql.VectorL2Distance), true
	case Cosine:
		return string(astql.VectorCosineDistance), true
	case NegInnerProduct:
		return string(astql.VectorInnerProduct), true
	default:
		return "", false
	}
}

// Name returns the name of the call-site builder for f.
func (f Function) Name() string {
	switch f {
	case L2:
		return "L2Distance"
	case Cosine:
		return "CosineDistance"
	case NegInnerProduct:
		return "MaxInnerProduct"
	default:
		return "pgvector.Function(invalid)"
	}
}

// String implements fmt.Stringer.
func (f Function) String() string {
	return f.Name()
}

// ReturnType is float64 for every distance function.
func (Function) ReturnType() reflect.Type {
	return float64Type
}

// Arity is 2 for every distance function: the two vectors compared.
func (Function) Arity() int {
	return 2
}

// L2Distance builds a call computing the Euclidean distance between a and b.
func L2Distance(a, b query.Expression) *query.CallExpr {
	return query.Call(nil, L2, a, b)
}

// CosineDistance builds a call computing the cosine distance between a and b.
func CosineDistance(a, b query.Expression) *query.CallExpr {
	return query.Call(nil, Cosine, a, b)
}

// MaxInnerProduct builds a call computing the negated inner product of a and b.
func MaxInnerProduct(a, b query.Expression) *query.CallExpr {
	return query.Call(nil, NegInnerProduct, a, b)
}

// Verify Function implements query.Function.
var _ query.Function = L2
