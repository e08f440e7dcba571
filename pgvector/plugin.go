package pgvector

import (
	"fmt"
	"reflect"

	"github.com/lib/pq/oid"
	pgvec "github.com/pgvector/pgvector-go"
	"github.com/zoobzio/sift/query"
)

// VectorMapping maps pgvector.Vector values to the vector store type.
// vector is an extension type with no fixed OID, so parameters carry an
// explicit cast.
var VectorMapping = &query.TypeMapping{
	GoType:       reflect.TypeFor[pgvec.Vector](),
	StoreType:    "vector",
	OID:          oid.T_unknown,
	ExplicitCast: true,
}

// Plugin registers the pgvector translator with a query.Compiler.
type Plugin struct {
	translators []query.MethodCallTranslator
}

// NewPlugin creates the plugin and its translator.
// Fails with query.ErrMissingTypeMapping if mappings cannot map float64.
func NewPlugin(factory query.ExpressionFactory, mappings query.TypeMappingSource) (*Plugin, error) {
	t, err := NewTranslator(factory, mappings)
	if err != nil {
		return nil, err
	}
	return &Plugin{translators: []query.MethodCallTranslator{t}}, nil
}

// MustNewPlugin is like NewPlugin but panics on a misconfigured mapping source.
func MustNewPlugin(factory query.ExpressionFactory, mappings query.TypeMappingSource) *Plugin {
	p, err := NewPlugin(factory, mappings)
	if err != nil {
		panic(fmt.Errorf("pgvector: %w", err))
	}
	return p
}

// Translators returns the plugin's translators in priority order.
func (p *Plugin) Translators() []query.MethodCallTranslator {
	out := make([]query.MethodCallTranslator, len(p.translators))
	copy(out, p.translators)
	return out
}

// NewCompiler builds a compiler with the Postgres default mappings plus
// VectorMapping, the pgvector plugin first and extra plugins after it.
func NewCompiler(extra ...query.MethodCallTranslatorPlugin) (*query.Compiler, error) {
	mappings := query.NewMappingSource(VectorMapping)
	plugin, err := NewPlugin(query.NewExpressionFactory(mappings), mappings)
	if err != nil {
		return nil, err
	}
	plugins := append([]query.MethodCallTranslatorPlugin{plugin}, extra...)
	return query.NewCompiler(plugins...), nil
}

// Verify Plugin implements query.MethodCallTranslatorPlugin.
var _ query.MethodCallTranslatorPlugin = (*Plugin)(nil)
