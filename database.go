package sift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/sentinel"
	"github.com/zoobzio/sift/query"
)

func init() {
	sentinel.Tag("db")
}

// Database provides type-safe SQL reads for T whose queries may contain
// translatable calls, such as vector distances.
//
// The db parameter accepts sqlx.ExtContext, which is satisfied by both
// *sqlx.DB and *sqlx.Tx.
type Database[T any] struct {
	db       sqlx.ExtContext
	table    string
	keyCol   string
	compiler *query.Compiler
	mapper   *reflectx.Mapper
	metadata sentinel.Metadata
	columns  []string
	types    map[string]reflect.Type
}

// NewDatabase creates a Database for type T over table.
// Columns come from T's db tags; keyCol must be one of them.
func NewDatabase[T any](db sqlx.ExtContext, table, keyCol string, compiler *query.Compiler) (*Database[T], error) {
	if table == "" {
		return nil, fmt.Errorf("%w: missing table", query.ErrInvalidStatement)
	}
	if compiler == nil {
		compiler = query.NewCompiler()
	}

	meta := sentinel.Inspect[T]()
	mapper := reflectx.NewMapperFunc("db", strings.ToLower)
	structMap := mapper.TypeMap(reflect.TypeFor[T]())

	d := &Database[T]{
		db:       db,
		table:    table,
		keyCol:   keyCol,
		compiler: compiler,
		mapper:   mapper,
		metadata: meta,
		types:    make(map[string]reflect.Type),
	}
	for _, field := range meta.Fields {
		col := field.Tags["db"]
		if col == "" || col == "-" {
			continue
		}
		fi := structMap.GetByPath(col)
		if fi == nil {
			continue
		}
		d.columns = append(d.columns, col)
		d.types[col] = fi.Field.Type
	}

	if _, ok := d.types[keyCol]; !ok {
		return nil, fmt.Errorf("%w: %q is not a column of %s", ErrInvalidKey, keyCol, meta.TypeName)
	}
	return d, nil
}

// Metadata returns the sentinel metadata for type T.
func (d *Database[T]) Metadata() sentinel.Metadata {
	return d.metadata
}

// Columns returns the mapped column names in field order.
func (d *Database[T]) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Column returns a reference to a column of T typed from its field.
// Panics if name is not a mapped column.
func (d *Database[T]) Column(name string) *query.ColumnExpr {
	t, ok := d.types[name]
	if !ok {
		panic(fmt.Errorf("%w: %s.%s", ErrUnknownColumn, d.table, name))
	}
	return query.Column(name, t)
}

// Get retrieves the record whose key column equals key.
// Returns ErrNotFound if no row matches.
func (d *Database[T]) Get(ctx context.Context, key any) (*T, error) {
	start := time.Now()
	keyStr := fmt.Sprint(key)
	capitan.Emit(ctx, GetStarted, FieldTable.Field(d.table), FieldKey.Field(keyStr))

	fail := func(err error) (*T, error) {
		capitan.Emit(ctx, GetFailed,
			FieldTable.Field(d.table),
			FieldKey.Field(keyStr),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return nil, err
	}

	records, err := d.Query().Where(d.byKey(key)).Limit(1).fetch(ctx, "")
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 {
		return fail(ErrNotFound)
	}
	if err := callAfterLoad(ctx, records[0].Record); err != nil {
		return fail(err)
	}

	capitan.Emit(ctx, GetCompleted,
		FieldTable.Field(d.table),
		FieldKey.Field(keyStr),
		FieldDuration.Field(time.Since(start)),
	)
	return records[0].Record, nil
}

// Exists checks whether a record with key exists.
func (d *Database[T]) Exists(ctx context.Context, key any) (bool, error) {
	stmt, err := d.compiler.Compile(ctx, &query.Select{
		Table:   d.table,
		Columns: []string{d.keyCol},
		Where:   d.byKey(key),
		Limit:   1,
	})
	if err != nil {
		return false, err
	}

	var found any
	err = d.db.QueryRowxContext(ctx, stmt.SQL, stmt.Args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the record whose key column equals key.
// Returns ErrNotFound if no row was deleted.
func (d *Database[T]) Delete(ctx context.Context, key any) error {
	start := time.Now()
	keyStr := fmt.Sprint(key)
	capitan.Emit(ctx, DeleteStarted, FieldTable.Field(d.table), FieldKey.Field(keyStr))

	err := d.delete(ctx, key)
	if err != nil {
		capitan.Emit(ctx, DeleteFailed,
			FieldTable.Field(d.table),
			FieldKey.Field(keyStr),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return err
	}

	capitan.Emit(ctx, DeleteCompleted,
		FieldTable.Field(d.table),
		FieldKey.Field(keyStr),
		FieldDuration.Field(time.Since(start)),
	)
	return nil
}

func (d *Database[T]) delete(ctx context.Context, key any) error {
	if err := callBeforeDelete[T](ctx); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`DELETE FROM %q WHERE %q = $1`, d.table, d.keyCol)
	result, err := d.db.ExecContext(ctx, stmt, key)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return callAfterDelete[T](ctx)
}

// Raw runs caller-written SQL and scans the rows into T.
// Columns that T does not map are ignored.
func (d *Database[T]) Raw(ctx context.Context, stmt string, args ...any) ([]*T, error) {
	scored, err := d.run(ctx, &query.Statement{SQL: stmt, Args: args}, "")
	if err != nil {
		return nil, err
	}
	records := unwrap(scored)
	if err := callAfterLoadSlice(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Query starts a query over all mapped columns of T.
func (d *Database[T]) Query() *Query[T] {
	return &Query[T]{
		db: d,
		stmt: query.Select{
			Table:   d.table,
			Columns: d.Columns(),
		},
	}
}

func (d *Database[T]) byKey(key any) query.Expression {
	return query.Eq(d.Column(d.keyCol), query.ParamOf(key, d.types[d.keyCol]))
}

// run executes stmt and scans each row into T. The column named scoreCol,
// if present, is scanned as the row's score. Other unmapped columns are
// discarded.
func (d *Database[T]) run(ctx context.Context, stmt *query.Statement, scoreCol string) ([]Scored[T], error) {
	rows, err := d.db.QueryxContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	traversals := d.mapper.TraversalsByName(reflect.TypeFor[T](), cols)

	var out []Scored[T]
	for rows.Next() {
		record := new(T)
		v := reflect.ValueOf(record).Elem()

		var score sql.NullFloat64
		dest := make([]any, len(cols))
		for i, col := range cols {
			switch {
			case scoreCol != "" && col == scoreCol:
				dest[i] = &score
			case len(traversals[i]) > 0:
				dest[i] = reflectx.FieldByIndexes(v, traversals[i]).Addr().Interface()
			default:
				dest[i] = new(any)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, Scored[T]{Record: record, Score: score.Float64})
	}

	return out, rows.Err()
}

func unwrap[T any](scored []Scored[T]) []*T {
	out := make([]*T, len(scored))
	for i, s := range scored {
		out[i] = s.Record
	}
	return out
}

// Query builds a SELECT over a Database's table. Conditions and sort keys
// may contain calls that the Database's compiler translates.
// A Query is not safe for concurrent use.
type Query[T any] struct {
	db   *Database[T]
	stmt query.Select
}

// Where adds a predicate. Multiple predicates are joined with AND.
func (q *Query[T]) Where(pred query.Expression) *Query[T] {
	q.stmt.Where = query.And(q.stmt.Where, pred)
	return q
}

// OrderBy appends an ascending sort key.
func (q *Query[T]) OrderBy(e query.Expression) *Query[T] {
	q.stmt.OrderBy = append(q.stmt.OrderBy, query.Ordering{Expr: e})
	return q
}

// OrderByDesc appends a descending sort key.
func (q *Query[T]) OrderByDesc(e query.Expression) *Query[T] {
	q.stmt.OrderBy = append(q.stmt.OrderBy, query.Ordering{Expr: e, Descending: true})
	return q
}

// Limit caps the number of rows. 0 means no limit.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.stmt.Limit = n
	return q
}

// Offset skips leading rows.
func (q *Query[T]) Offset(n int) *Query[T] {
	q.stmt.Offset = n
	return q
}

// Project adds a computed column returned as alias.
// ExecScored reads the first projection as the score.
func (q *Query[T]) Project(alias string, e query.Expression) *Query[T] {
	q.stmt.Projections = append(q.stmt.Projections, query.Projection{Expr: e, Alias: alias})
	return q
}

// Render compiles the query without executing it.
func (q *Query[T]) Render(ctx context.Context) (*query.Statement, error) {
	return q.db.compiler.Compile(ctx, &q.stmt)
}

// Exec runs the query and returns the matching records.
// AfterLoad hooks run on every record.
func (q *Query[T]) Exec(ctx context.Context) ([]*T, error) {
	scored, err := q.observe(ctx, "")
	if err != nil {
		return nil, err
	}
	return unwrap(scored), nil
}

// ExecScored runs the query and pairs each record with the value of its
// first projection. Returns ErrInvalidQuery if the query has no projection.
func (q *Query[T]) ExecScored(ctx context.Context) ([]Scored[T], error) {
	if len(q.stmt.Projections) == 0 {
		return nil, fmt.Errorf("%w: scored query requires a projection", ErrInvalidQuery)
	}
	return q.observe(ctx, q.stmt.Projections[0].Alias)
}

func (q *Query[T]) observe(ctx context.Context, scoreCol string) ([]Scored[T], error) {
	start := time.Now()
	table := q.db.table
	capitan.Emit(ctx, QueryStarted, FieldTable.Field(table), FieldLimit.Field(q.stmt.Limit))

	out, err := q.fetch(ctx, scoreCol)
	if err == nil {
		for _, s := range out {
			if err = callAfterLoad(ctx, s.Record); err != nil {
				break
			}
		}
	}
	if err != nil {
		capitan.Emit(ctx, QueryFailed,
			FieldTable.Field(table),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return nil, err
	}

	capitan.Emit(ctx, QueryCompleted,
		FieldTable.Field(table),
		FieldCount.Field(len(out)),
		FieldDuration.Field(time.Since(start)),
	)
	return out, nil
}

// fetch compiles and runs the query without hooks or signals.
func (q *Query[T]) fetch(ctx context.Context, scoreCol string) ([]Scored[T], error) {
	stmt, err := q.Render(ctx)
	if err != nil {
		return nil, err
	}
	return q.db.run(ctx, stmt, scoreCol)
}
