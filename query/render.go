package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Select describes a single-table SELECT statement.
type Select struct {
	// Table is the source table name.
	Table string

	// Columns are the plain columns to return. Empty means *.
	Columns []string

	// Projections are computed columns appended after Columns.
	Projections []Projection

	// Where is the filter predicate, or nil.
	Where Expression

	// OrderBy lists sort keys in priority order.
	OrderBy []Ordering

	// Limit caps the row count. 0 means no limit.
	Limit int

	// Offset skips leading rows. 0 means none.
	Offset int
}

// Projection is a computed output column.
type Projection struct {
	Expr  Expression
	Alias string
}

// Ordering is a sort key.
type Ordering struct {
	Expr       Expression
	Descending bool
}

// Statement is rendered SQL with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Render renders stmt as Postgres SQL with $n placeholders numbered in
// textual order. Calls must already be translated.
func Render(stmt *Select) (*Statement, error) {
	if stmt == nil || stmt.Table == "" {
		return nil, fmt.Errorf("%w: missing table", ErrInvalidStatement)
	}

	r := &renderer{}
	r.sql.WriteString("SELECT ")

	fields := make([]string, 0, len(stmt.Columns)+len(stmt.Projections))
	for _, col := range stmt.Columns {
		fields = append(fields, quoteIdent(col))
	}
	if len(fields) == 0 {
		fields = append(fields, "*")
	}
	r.sql.WriteString(strings.Join(fields, ", "))

	for _, p := range stmt.Projections {
		if p.Alias == "" {
			return nil, fmt.Errorf("%w: projection without alias", ErrInvalidStatement)
		}
		r.sql.WriteString(", ")
		if err := r.expr(p.Expr, false); err != nil {
			return nil, err
		}
		r.sql.WriteString(" AS ")
		r.sql.WriteString(quoteIdent(p.Alias))
	}

	r.sql.WriteString(" FROM ")
	r.sql.WriteString(quoteIdent(stmt.Table))

	if stmt.Where != nil {
		r.sql.WriteString(" WHERE ")
		if err := r.expr(stmt.Where, false); err != nil {
			return nil, err
		}
	}

	for i, o := range stmt.OrderBy {
		if i == 0 {
			r.sql.WriteString(" ORDER BY ")
		} else {
			r.sql.WriteString(", ")
		}
		if err := r.expr(o.Expr, false); err != nil {
			return nil, err
		}
		if o.Descending {
			r.sql.WriteString(" DESC")
		}
	}

	if stmt.Limit > 0 {
		r.sql.WriteString(" LIMIT ")
		r.sql.WriteString(strconv.Itoa(stmt.Limit))
	}
	if stmt.Offset > 0 {
		r.sql.WriteString(" OFFSET ")
		r.sql.WriteString(strconv.Itoa(stmt.Offset))
	}

	return &Statement{SQL: r.sql.String(), Args: r.args}, nil
}

type renderer struct {
	sql  strings.Builder
	args []any
}

// expr writes e. nested wraps infix expressions in parentheses so operand
// grouping never depends on operator precedence.
func (r *renderer) expr(e Expression, nested bool) error {
	switch n := e.(type) {
	case *ColumnExpr:
		r.sql.WriteString(quoteIdent(n.Name))
	case *ParamExpr:
		r.args = append(r.args, n.Value)
		r.sql.WriteString("$" + strconv.Itoa(len(r.args)))
		if m := n.TypeMapping(); m != nil && m.ExplicitCast {
			r.sql.WriteString("::" + m.StoreType)
		}
	case *CallExpr:
		return fmt.Errorf("%w: %s", ErrUntranslatable, n.Func.Name())
	case *BinaryExpr:
		if n.Op.logical() {
			return r.infix(n.Left, string(n.Op), n.Right, true, false)
		}
		return r.infix(n.Left, string(n.Op), n.Right, nested, true)
	case *OperatorExpr:
		return r.infix(n.Left, n.Operator, n.Right, nested, true)
	case *AnyExpr:
		if nested {
			r.sql.WriteString("(")
		}
		if err := r.expr(n.Left, true); err != nil {
			return err
		}
		quant := " ANY("
		if n.All {
			quant = " ALL("
		}
		r.sql.WriteString(" " + string(n.Op) + quant)
		if err := r.expr(n.Array, false); err != nil {
			return err
		}
		r.sql.WriteString(")")
		if nested {
			r.sql.WriteString(")")
		}
	case *NotExpr:
		r.sql.WriteString("NOT (")
		if err := r.expr(n.Operand, false); err != nil {
			return err
		}
		r.sql.WriteString(")")
	case *JSONFieldExpr:
		op := "->"
		if n.AsText {
			op = "->>"
		}
		r.sql.WriteString(quoteIdent(n.Column.Name) + op + quoteLiteral(n.Key))
	case *CastExpr:
		r.sql.WriteString("(")
		if err := r.expr(n.Operand, false); err != nil {
			return err
		}
		r.sql.WriteString(")::" + n.StoreType)
	case Literal:
		r.sql.WriteString(string(n))
	case nil:
		return fmt.Errorf("%w: nil expression", ErrInvalidStatement)
	default:
		return fmt.Errorf("%w: unsupported expression %T", ErrInvalidStatement, e)
	}
	return nil
}

// infix writes left op right. Operands of AND/OR are not wrapped since
// every comparison binds tighter than both.
func (r *renderer) infix(left Expression, op string, right Expression, paren, wrapOperands bool) error {
	if paren {
		r.sql.WriteString("(")
	}
	if err := r.expr(left, wrapOperands); err != nil {
		return err
	}
	r.sql.WriteString(" " + op + " ")
	if err := r.expr(right, wrapOperands); err != nil {
		return err
	}
	if paren {
		r.sql.WriteString(")")
	}
	return nil
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
