package pgvector

import (
	"fmt"

	"github.com/zoobzio/sift/query"
)

// Translator rewrites pgvector distance calls into operator expressions.
// It holds no mutable state and is safe for concurrent use.
type Translator struct {
	factory query.ExpressionFactory
	results map[Function]*query.TypeMapping
}

// NewTranslator resolves the result mapping of every supported function.
// A missing mapping means the mapping source is misconfigured; it is
// reported here rather than defaulted.
func NewTranslator(factory query.ExpressionFactory, mappings query.TypeMappingSource) (*Translator, error) {
	results := make(map[Function]*query.TypeMapping, len(Functions))
	for _, f := range Functions {
		m, ok := mappings.FindMapping(f.ReturnType())
		if !ok {
			return nil, fmt.Errorf("%w: %s returns %s", query.ErrMissingTypeMapping, f.Name(), f.ReturnType())
		}
		results[f] = m
	}
	return &Translator{factory: factory, results: results}, nil
}

// Translate returns left op right for a pgvector distance call and nil for
// any other function. The receiver is ignored. args must hold exactly the
// two call-site operands; their order is preserved.
func (t *Translator) Translate(_ query.Expression, fn query.Function, args []query.Expression) query.Expression {
	f, ok := fn.(Function)
	if !ok {
		return nil
	}
	op, ok := f.Operator()
	if !ok {
		return nil
	}

	mapping := t.results[f]
	left := t.factory.ApplyDefaultTypeMapping(args[0])
	right := t.factory.ApplyDefaultTypeMapping(args[1])

	return query.Operator(left, op, right, mapping.GoType, mapping)
}

// Verify Translator implements query.MethodCallTranslator.
var _ query.MethodCallTranslator = (*Translator)(nil)
