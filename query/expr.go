// Package query provides the expression tree, type mappings, translator
// pipeline, and Postgres renderer used to build parameterized statements.
//
// Front ends build expression trees containing CallExpr nodes for
// high-level functions. A Compiler offers every call to its registered
// MethodCallTranslators in priority order and substitutes the first
// replacement; the Renderer then turns the translated tree into SQL.
package query

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Expression is a node in a query expression tree.
type Expression interface {
	// Type returns the semantic Go type the expression evaluates to.
	Type() reflect.Type

	// TypeMapping returns the wire-level mapping, or nil if none is attached yet.
	TypeMapping() *TypeMapping
}

// Function identifies a specific callable. Identity is the dynamic type and
// value of the implementation, never its name.
type Function interface {
	// Name returns a human-readable name for diagnostics.
	Name() string

	// ReturnType returns the Go type the function evaluates to.
	ReturnType() reflect.Type

	// Arity is the number of arguments a call site must pass.
	Arity() int
}

// ColumnExpr references a table column.
type ColumnExpr struct {
	Name    string
	typ     reflect.Type
	mapping *TypeMapping
}

// Column creates a column reference of Go type t with no mapping attached.
func Column(name string, t reflect.Type) *ColumnExpr {
	return &ColumnExpr{Name: name, typ: t}
}

// Type returns the column's Go type.
func (c *ColumnExpr) Type() reflect.Type { return c.typ }

// TypeMapping returns the column's mapping.
func (c *ColumnExpr) TypeMapping() *TypeMapping { return c.mapping }

// WithMapping returns a copy of c carrying m.
func (c *ColumnExpr) WithMapping(m *TypeMapping) *ColumnExpr {
	cp := *c
	cp.mapping = m
	return &cp
}

// ParamExpr is a value bound as a positional parameter.
type ParamExpr struct {
	Value   any
	typ     reflect.Type
	mapping *TypeMapping
}

// Param creates a parameter whose semantic type is the dynamic type of v.
func Param(v any) *ParamExpr {
	return &ParamExpr{Value: v, typ: reflect.TypeOf(v)}
}

// ParamOf creates a parameter with an explicit semantic type, for values
// whose bound representation differs from their semantic type.
func ParamOf(v any, t reflect.Type) *ParamExpr {
	return &ParamExpr{Value: v, typ: t}
}

// Type returns the parameter's semantic type.
func (p *ParamExpr) Type() reflect.Type { return p.typ }

// TypeMapping returns the parameter's mapping.
func (p *ParamExpr) TypeMapping() *TypeMapping { return p.mapping }

// WithMapping returns a copy of p carrying m. The bound value is shared.
func (p *ParamExpr) WithMapping(m *TypeMapping) *ParamExpr {
	cp := *p
	cp.mapping = m
	return &cp
}

// CallExpr is a call to a Function awaiting translation.
// Receiver is nil for free functions.
type CallExpr struct {
	Receiver Expression
	Func     Function
	Args     []Expression
}

// Call creates a call site.
func Call(receiver Expression, fn Function, args ...Expression) *CallExpr {
	return &CallExpr{Receiver: receiver, Func: fn, Args: args}
}

// Type returns the function's return type.
func (c *CallExpr) Type() reflect.Type { return c.Func.ReturnType() }

// TypeMapping is always nil; calls gain a mapping only through translation.
func (*CallExpr) TypeMapping() *TypeMapping { return nil }

// BinaryOp is a standard SQL binary operator.
type BinaryOp string

// Standard binary operators.
const (
	OpEqual              BinaryOp = "="
	OpNotEqual           BinaryOp = "<>"
	OpLessThan           BinaryOp = "<"
	OpLessThanOrEqual    BinaryOp = "<="
	OpGreaterThan        BinaryOp = ">"
	OpGreaterThanOrEqual BinaryOp = ">="
	OpLike               BinaryOp = "LIKE"
	OpAnd                BinaryOp = "AND"
	OpOr                 BinaryOp = "OR"
)

// logical reports whether op combines predicates.
func (op BinaryOp) logical() bool {
	return op == OpAnd || op == OpOr
}

// BinaryExpr applies a standard operator to two operands. The result is boolean.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Binary creates a binary expression.
func Binary(left Expression, op BinaryOp, right Expression) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

// Eq builds left = right.
func Eq(left, right Expression) *BinaryExpr { return Binary(left, OpEqual, right) }

// Ne builds left <> right.
func Ne(left, right Expression) *BinaryExpr { return Binary(left, OpNotEqual, right) }

// Lt builds left < right.
func Lt(left, right Expression) *BinaryExpr { return Binary(left, OpLessThan, right) }

// Lte builds left <= right.
func Lte(left, right Expression) *BinaryExpr { return Binary(left, OpLessThanOrEqual, right) }

// Gt builds left > right.
func Gt(left, right Expression) *BinaryExpr { return Binary(left, OpGreaterThan, right) }

// Gte builds left >= right.
func Gte(left, right Expression) *BinaryExpr { return Binary(left, OpGreaterThanOrEqual, right) }

// And joins predicates with AND. A single predicate is returned as is; none yields nil.
func And(preds ...Expression) Expression { return fold(OpAnd, preds) }

// Or joins predicates with OR. A single predicate is returned as is; none yields nil.
func Or(preds ...Expression) Expression { return fold(OpOr, preds) }

func fold(op BinaryOp, preds []Expression) Expression {
	var out Expression
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = Binary(out, op, p)
	}
	return out
}

// Type is always bool.
func (*BinaryExpr) Type() reflect.Type { return boolType }

// TypeMapping is nil; predicates are never bound.
func (*BinaryExpr) TypeMapping() *TypeMapping { return nil }

// OperatorExpr applies an engine-native infix operator, such as a pgvector
// distance operator, and carries its own result type and mapping.
type OperatorExpr struct {
	Left     Expression
	Operator string
	Right    Expression
	typ      reflect.Type
	mapping  *TypeMapping
}

// Operator creates an engine-native operator expression.
func Operator(left Expression, operator string, right Expression, t reflect.Type, m *TypeMapping) *OperatorExpr {
	return &OperatorExpr{Left: left, Operator: operator, Right: right, typ: t, mapping: m}
}

// Type returns the result type.
func (o *OperatorExpr) Type() reflect.Type { return o.typ }

// TypeMapping returns the result mapping.
func (o *OperatorExpr) TypeMapping() *TypeMapping { return o.mapping }

// NotExpr negates a predicate.
type NotExpr struct {
	Operand Expression
}

// Not creates a negation.
func Not(e Expression) *NotExpr { return &NotExpr{Operand: e} }

// Type is always bool.
func (*NotExpr) Type() reflect.Type { return boolType }

// TypeMapping is nil.
func (*NotExpr) TypeMapping() *TypeMapping { return nil }

// JSONFieldExpr extracts a top-level key from a json/jsonb column,
// as text (->>) or as json (->).
type JSONFieldExpr struct {
	Column *ColumnExpr
	Key    string
	AsText bool
}

// JSONText builds column->>'key'.
func JSONText(col *ColumnExpr, key string) *JSONFieldExpr {
	return &JSONFieldExpr{Column: col, Key: key, AsText: true}
}

// JSONValue builds column->'key'.
func JSONValue(col *ColumnExpr, key string) *JSONFieldExpr {
	return &JSONFieldExpr{Column: col, Key: key}
}

// Type is string for text extraction and json.RawMessage otherwise.
func (j *JSONFieldExpr) Type() reflect.Type {
	if j.AsText {
		return stringType
	}
	return rawJSONType
}

// TypeMapping is nil.
func (*JSONFieldExpr) TypeMapping() *TypeMapping { return nil }

// CastExpr converts an operand to a store type.
type CastExpr struct {
	Operand   Expression
	StoreType string
	typ       reflect.Type
}

// Cast builds (operand)::storeType evaluating to Go type t.
func Cast(operand Expression, storeType string, t reflect.Type) *CastExpr {
	return &CastExpr{Operand: operand, StoreType: storeType, typ: t}
}

// Type returns the target Go type.
func (c *CastExpr) Type() reflect.Type { return c.typ }

// TypeMapping is nil.
func (*CastExpr) TypeMapping() *TypeMapping { return nil }

// AnyExpr compares an operand against every element of an array:
// left op ANY(array), or left op ALL(array) when All is set.
type AnyExpr struct {
	Left  Expression
	Op    BinaryOp
	Array Expression
	All   bool
}

// In builds left = ANY(array).
func In(left, array Expression) *AnyExpr {
	return &AnyExpr{Left: left, Op: OpEqual, Array: array}
}

// NotIn builds left <> ALL(array).
func NotIn(left, array Expression) *AnyExpr {
	return &AnyExpr{Left: left, Op: OpNotEqual, Array: array, All: true}
}

// Type is always bool.
func (*AnyExpr) Type() reflect.Type { return boolType }

// TypeMapping is nil.
func (*AnyExpr) TypeMapping() *TypeMapping { return nil }

// Literal is raw SQL emitted verbatim, for constant predicates such as TRUE.
type Literal string

// Literal constants.
const (
	True  Literal = "TRUE"
	False Literal = "FALSE"
)

// Type is always bool.
func (Literal) Type() reflect.Type { return boolType }

// TypeMapping is nil.
func (Literal) TypeMapping() *TypeMapping { return nil }

var (
	boolType    = reflect.TypeFor[bool]()
	stringType  = reflect.TypeFor[string]()
	rawJSONType = reflect.TypeFor[json.RawMessage]()
)

// quoteLiteral escapes s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
