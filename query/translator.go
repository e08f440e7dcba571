package query

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
)

// MethodCallTranslator rewrites call sites into engine-native expressions.
//
// Translate returns a replacement expression, or nil to decline. Declining
// is not an error; the compiler moves on to the next translator.
type MethodCallTranslator interface {
	Translate(receiver Expression, fn Function, args []Expression) Expression
}

// MethodCallTranslatorPlugin supplies translators to a Compiler at
// construction time.
type MethodCallTranslatorPlugin interface {
	Translators() []MethodCallTranslator
}

// Compiler translates call sites and renders statements.
// It is immutable after construction and safe for concurrent use.
type Compiler struct {
	translators []MethodCallTranslator
}

// NewCompiler creates a Compiler consulting the translators of plugins in
// the order given.
func NewCompiler(plugins ...MethodCallTranslatorPlugin) *Compiler {
	var translators []MethodCallTranslator
	for _, p := range plugins {
		if p == nil {
			continue
		}
		translators = append(translators, p.Translators()...)
	}
	return &Compiler{translators: translators}
}

// Translators returns a copy of the registered translators in priority order.
func (c *Compiler) Translators() []MethodCallTranslator {
	out := make([]MethodCallTranslator, len(c.translators))
	copy(out, c.translators)
	return out
}

// Translate rewrites every CallExpr in e, bottom-up. A call whose argument
// count differs from its function's arity yields ErrInvalidStatement before
// any translator sees it; a call no translator accepts yields
// ErrUntranslatable.
func (c *Compiler) Translate(e Expression) (Expression, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil
	case *CallExpr:
		return c.translateCall(n)
	case *BinaryExpr:
		left, right, err := c.translatePair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		if left == n.Left && right == n.Right {
			return n, nil
		}
		return Binary(left, n.Op, right), nil
	case *OperatorExpr:
		left, right, err := c.translatePair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		if left == n.Left && right == n.Right {
			return n, nil
		}
		return Operator(left, n.Operator, right, n.typ, n.mapping), nil
	case *AnyExpr:
		left, array, err := c.translatePair(n.Left, n.Array)
		if err != nil {
			return nil, err
		}
		if left == n.Left && array == n.Array {
			return n, nil
		}
		return &AnyExpr{Left: left, Op: n.Op, Array: array, All: n.All}, nil
	case *NotExpr:
		operand, err := c.Translate(n.Operand)
		if err != nil {
			return nil, err
		}
		if operand == n.Operand {
			return n, nil
		}
		return Not(operand), nil
	case *CastExpr:
		operand, err := c.Translate(n.Operand)
		if err != nil {
			return nil, err
		}
		if operand == n.Operand {
			return n, nil
		}
		return Cast(operand, n.StoreType, n.typ), nil
	default:
		return e, nil
	}
}

func (c *Compiler) translatePair(a, b Expression) (Expression, Expression, error) {
	ta, err := c.Translate(a)
	if err != nil {
		return nil, nil, err
	}
	tb, err := c.Translate(b)
	if err != nil {
		return nil, nil, err
	}
	return ta, tb, nil
}

func (c *Compiler) translateCall(call *CallExpr) (Expression, error) {
	if call.Func == nil {
		return nil, fmt.Errorf("%w: call without function", ErrInvalidStatement)
	}
	if want := call.Func.Arity(); len(call.Args) != want {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidStatement, call.Func.Name(), want, len(call.Args))
	}

	receiver, err := c.Translate(call.Receiver)
	if err != nil {
		return nil, err
	}
	args := make([]Expression, len(call.Args))
	for i, a := range call.Args {
		if args[i], err = c.Translate(a); err != nil {
			return nil, err
		}
	}
	for _, t := range c.translators {
		if out := t.Translate(receiver, call.Func, args); out != nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUntranslatable, call.Func.Name())
}

// Compile translates every clause of stmt and renders it.
func (c *Compiler) Compile(ctx context.Context, stmt *Select) (*Statement, error) {
	start := time.Now()

	out, err := c.compile(stmt)
	if err != nil {
		capitan.Emit(ctx, CompileFailed,
			FieldTable.Field(tableOf(stmt)),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return nil, err
	}

	capitan.Emit(ctx, CompileCompleted,
		FieldTable.Field(stmt.Table),
		FieldSQL.Field(out.SQL),
		FieldParams.Field(len(out.Args)),
		FieldDuration.Field(time.Since(start)),
	)
	return out, nil
}

func (c *Compiler) compile(stmt *Select) (*Statement, error) {
	if stmt == nil {
		return nil, fmt.Errorf("%w: nil statement", ErrInvalidStatement)
	}

	translated := *stmt

	translated.Projections = make([]Projection, len(stmt.Projections))
	for i, p := range stmt.Projections {
		e, err := c.Translate(p.Expr)
		if err != nil {
			return nil, err
		}
		translated.Projections[i] = Projection{Expr: e, Alias: p.Alias}
	}

	where, err := c.Translate(stmt.Where)
	if err != nil {
		return nil, err
	}
	translated.Where = where

	translated.OrderBy = make([]Ordering, len(stmt.OrderBy))
	for i, o := range stmt.OrderBy {
		e, err := c.Translate(o.Expr)
		if err != nil {
			return nil, err
		}
		translated.OrderBy[i] = Ordering{Expr: e, Descending: o.Descending}
	}

	return Render(&translated)
}

func tableOf(stmt *Select) string {
	if stmt == nil {
		return ""
	}
	return stmt.Table
}
