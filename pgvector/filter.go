package pgvector

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lib/pq"
	"github.com/zoobzio/sift"
	"github.com/zoobzio/sift/query"
	"github.com/zoobzio/vecna"
)

var (
	stringsType = reflect.TypeFor[[]string]()
	rawJSONType = reflect.TypeFor[json.RawMessage]()
	boolType    = reflect.TypeFor[bool]()
)

// filterBuilder translates vecna filters into predicates over a JSONB
// metadata column.
type filterBuilder struct {
	metadata *query.ColumnExpr
	factory  query.ExpressionFactory
}

// build converts f into a predicate. A nil filter yields a nil predicate.
func (b *filterBuilder) build(f *vecna.Filter) (query.Expression, error) {
	if f == nil {
		return nil, nil
	}
	if err := f.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", sift.ErrInvalidQuery, err)
	}

	switch f.Op() {
	case vecna.And, vecna.Or:
		children := f.Children()
		parts := make([]query.Expression, 0, len(children))
		for _, child := range children {
			part, err := b.build(child)
			if err != nil {
				return nil, err
			}
			if part != nil {
				parts = append(parts, part)
			}
		}
		if f.Op() == vecna.And {
			return query.And(parts...), nil
		}
		return query.Or(parts...), nil

	case vecna.Not:
		children := f.Children()
		if len(children) != 1 {
			return nil, fmt.Errorf("%w: not requires exactly one child", sift.ErrInvalidQuery)
		}
		part, err := b.build(children[0])
		if err != nil || part == nil {
			return nil, err
		}
		return query.Not(part), nil

	case vecna.Eq:
		return query.Eq(b.text(f.Field()), query.Param(fmt.Sprintf("%v", f.Value()))), nil
	case vecna.Ne:
		return query.Ne(b.text(f.Field()), query.Param(fmt.Sprintf("%v", f.Value()))), nil

	case vecna.Gt:
		return b.numeric(f, query.OpGreaterThan)
	case vecna.Gte:
		return b.numeric(f, query.OpGreaterThanOrEqual)
	case vecna.Lt:
		return b.numeric(f, query.OpLessThan)
	case vecna.Lte:
		return b.numeric(f, query.OpLessThanOrEqual)

	case vecna.In:
		values, err := stringsOf(f)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return query.False, nil
		}
		return query.In(b.text(f.Field()), b.array(values)), nil

	case vecna.Nin:
		values, err := stringsOf(f)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return query.True, nil
		}
		return query.NotIn(b.text(f.Field()), b.array(values)), nil

	case vecna.Like:
		pattern, ok := f.Value().(string)
		if !ok {
			return nil, fmt.Errorf("%w: like requires a string pattern for %s", sift.ErrInvalidQuery, f.Field())
		}
		return query.Binary(b.text(f.Field()), query.OpLike, query.Param(pattern)), nil

	case vecna.Contains:
		doc, err := json.Marshal([]any{f.Value()})
		if err != nil {
			return nil, fmt.Errorf("%w: contains value for %s: %v", sift.ErrInvalidQuery, f.Field(), err)
		}
		param := b.factory.ApplyDefaultTypeMapping(query.ParamOf(string(doc), rawJSONType))
		return query.Operator(query.JSONValue(b.metadata, f.Field()), "@>", param, boolType, nil), nil

	default:
		return nil, fmt.Errorf("%w: %s", sift.ErrOperatorNotSupported, f.Op())
	}
}

func (b *filterBuilder) text(field string) *query.JSONFieldExpr {
	return query.JSONText(b.metadata, field)
}

// numeric compares the field cast to numeric against a numeric value.
func (b *filterBuilder) numeric(f *vecna.Filter, op query.BinaryOp) (query.Expression, error) {
	switch f.Value().(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
	default:
		return nil, fmt.Errorf("%w: %s requires a numeric value for %s", sift.ErrInvalidQuery, f.Op(), f.Field())
	}
	field := query.Cast(b.text(f.Field()), "numeric", float64Type)
	return query.Binary(field, op, query.Param(f.Value())), nil
}

func (b *filterBuilder) array(values []string) query.Expression {
	return b.factory.ApplyDefaultTypeMapping(query.ParamOf(pq.StringArray(values), stringsType))
}

// stringsOf renders the elements of an in/nin value as strings.
func stringsOf(f *vecna.Filter) ([]string, error) {
	items, ok := f.Value().([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires a slice value for %s", sift.ErrInvalidQuery, f.Op(), f.Field())
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprintf("%v", item)
	}
	return out, nil
}
