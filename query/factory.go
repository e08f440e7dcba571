package query

// ExpressionFactory produces correctly typed SQL-level expressions.
type ExpressionFactory interface {
	// ApplyDefaultTypeMapping returns e with the default mapping for its Go
	// type attached. Expressions that already carry a mapping, and
	// expressions that are never bound, are returned unchanged.
	ApplyDefaultTypeMapping(e Expression) Expression
}

// SQLExpressionFactory applies mappings from a TypeMappingSource.
type SQLExpressionFactory struct {
	mappings TypeMappingSource
}

// NewExpressionFactory creates a factory backed by mappings.
func NewExpressionFactory(mappings TypeMappingSource) *SQLExpressionFactory {
	return &SQLExpressionFactory{mappings: mappings}
}

// ApplyDefaultTypeMapping attaches the default mapping to unmapped columns
// and parameters. It copies rather than mutates, so shared call sites stay
// untouched. Unknown Go types are returned as is.
func (f *SQLExpressionFactory) ApplyDefaultTypeMapping(e Expression) Expression {
	if e == nil || e.TypeMapping() != nil {
		return e
	}
	switch n := e.(type) {
	case *ParamExpr:
		if m, ok := f.mappings.FindMapping(n.Type()); ok {
			return n.WithMapping(m)
		}
	case *ColumnExpr:
		if m, ok := f.mappings.FindMapping(n.Type()); ok {
			return n.WithMapping(m)
		}
	}
	return e
}

// Verify SQLExpressionFactory implements ExpressionFactory.
var _ ExpressionFactory = (*SQLExpressionFactory)(nil)
