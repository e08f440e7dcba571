package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	pgvec "github.com/pgvector/pgvector-go"
	"github.com/zoobzio/astql"
	"github.com/zoobzio/dbml"
	"github.com/zoobzio/sift"
	"github.com/zoobzio/sift/query"
	"github.com/zoobzio/vecna"
)

// ScoreAlias is the output column carrying the distance in similarity queries.
const ScoreAlias = "score"

// Config holds configuration for the pgvector provider.
type Config struct {
	// Table is the name of the table storing vectors.
	Table string

	// IDColumn is the primary key column name (default: "id").
	IDColumn string

	// VectorColumn is the pgvector column name (default: "embedding").
	VectorColumn string

	// MetadataColumn is the JSONB column name (default: "metadata").
	MetadataColumn string

	// Distance is the distance metric to use (default: L2).
	Distance sift.DistanceMetric
}

// withDefaults returns a Config with default values applied.
func (c Config) withDefaults() Config {
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	if c.VectorColumn == "" {
		c.VectorColumn = "embedding"
	}
	if c.MetadataColumn == "" {
		c.MetadataColumn = "metadata"
	}
	if c.Distance == "" {
		c.Distance = sift.DistanceL2
	}
	return c
}

// Provider implements sift.VectorProvider for pgvector.
// Similarity is expressed with distance calls and compiled into native
// operators by the pgvector translator.
type Provider struct {
	db       *sqlx.DB
	config   Config
	compiler *query.Compiler
	distance Function
	filters  *filterBuilder

	id       *query.ColumnExpr
	vector   *query.ColumnExpr
	metadata *query.ColumnExpr
}

// New creates a pgvector provider with the given database connection and config.
// Panics if the config names invalid identifiers.
func New(db *sqlx.DB, config Config) *Provider {
	config = config.withDefaults()

	// Build DBML schema from config - validates identifiers at construction.
	project := dbml.NewProject("pgvector")
	table := dbml.NewTable(config.Table).
		AddColumn(dbml.NewColumn(config.IDColumn, "varchar")).
		AddColumn(dbml.NewColumn(config.VectorColumn, "vector")).
		AddColumn(dbml.NewColumn(config.MetadataColumn, "jsonb"))
	project.AddTable(table)

	if _, err := astql.NewFromDBML(project); err != nil {
		panic(fmt.Errorf("invalid pgvector config: %w", err))
	}

	mappings := query.NewMappingSource(VectorMapping)
	factory := query.NewExpressionFactory(mappings)

	metadata := query.Column(config.MetadataColumn, rawJSONType)
	return &Provider{
		db:       db,
		config:   config,
		compiler: query.NewCompiler(MustNewPlugin(factory, mappings)),
		distance: functionFor(config.Distance),
		filters:  &filterBuilder{metadata: metadata, factory: factory},
		id:       query.Column(config.IDColumn, reflect.TypeFor[string]()),
		vector:   query.Column(config.VectorColumn, VectorMapping.GoType),
		metadata: metadata,
	}
}

// Distance builds the configured distance call between the vector column and v.
func (p *Provider) Distance(v []float32) *query.CallExpr {
	return query.Call(nil, p.distance, p.vector, query.Param(pgvec.NewVector(v)))
}

// Upsert stores or updates a vector with associated metadata.
func (p *Provider) Upsert(ctx context.Context, id uuid.UUID, vector []float32, metadata []byte) error {
	stmt := fmt.Sprintf(
		`INSERT INTO %q (%q, %q, %q) VALUES ($1, $2, $3)
		 ON CONFLICT (%q) DO UPDATE SET %q = $2, %q = $3`,
		p.config.Table,
		p.config.IDColumn,
		p.config.VectorColumn,
		p.config.MetadataColumn,
		p.config.IDColumn,
		p.config.VectorColumn,
		p.config.MetadataColumn,
	)

	_, err := p.db.ExecContext(ctx, stmt, id.String(), pgvec.NewVector(vector), metadataOrNull(metadata))
	return err
}

// UpsertBatch stores or updates multiple vectors in one statement.
func (p *Provider) UpsertBatch(ctx context.Context, vectors []sift.VectorRecord) error {
	if len(vectors) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, `INSERT INTO %q (%q, %q, %q) VALUES `,
		p.config.Table,
		p.config.IDColumn,
		p.config.VectorColumn,
		p.config.MetadataColumn,
	)

	args := make([]any, 0, len(vectors)*3)
	for i, v := range vectors {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 3
		fmt.Fprintf(&b, "($%d, $%d, $%d)", n+1, n+2, n+3)
		args = append(args, v.ID.String(), pgvec.NewVector(v.Vector), metadataOrNull(v.Metadata))
	}

	fmt.Fprintf(&b, ` ON CONFLICT (%q) DO UPDATE SET %q = EXCLUDED.%q, %q = EXCLUDED.%q`,
		p.config.IDColumn,
		p.config.VectorColumn, p.config.VectorColumn,
		p.config.MetadataColumn, p.config.MetadataColumn,
	)

	_, err := p.db.ExecContext(ctx, b.String(), args...)
	return err
}

// Get retrieves a vector by ID.
func (p *Provider) Get(ctx context.Context, id uuid.UUID) ([]float32, *sift.VectorInfo, error) {
	stmt, err := p.compiler.Compile(ctx, &query.Select{
		Table:   p.config.Table,
		Columns: p.columns(),
		Where:   p.byID(id),
		Limit:   1,
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		rowID    string
		vec      pgvec.Vector
		metadata sql.NullString
	)
	err = p.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&rowID, &vec, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, sift.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	values := vec.Slice()
	return values, &sift.VectorInfo{
		ID:        id,
		Dimension: len(values),
		Metadata:  metadataBytes(metadata),
	}, nil
}

// Delete removes a vector by ID.
func (p *Provider) Delete(ctx context.Context, id uuid.UUID) error {
	exists, err := p.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return sift.ErrNotFound
	}

	stmt := fmt.Sprintf(`DELETE FROM %q WHERE %q = $1`, p.config.Table, p.config.IDColumn)
	_, err = p.db.ExecContext(ctx, stmt, id.String())
	return err
}

// DeleteBatch removes multiple vectors by ID.
func (p *Provider) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`DELETE FROM %q WHERE %q = ANY($1::varchar[])`, p.config.Table, p.config.IDColumn)
	_, err := p.db.ExecContext(ctx, stmt, idArray(ids))
	return err
}

// Search returns the k nearest neighbors, optionally restricted to rows
// whose metadata fields equal the given values.
func (p *Provider) Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]sift.VectorResult, error) {
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	preds := make([]query.Expression, 0, len(fields))
	for _, field := range fields {
		preds = append(preds, query.Eq(
			query.JSONText(p.metadata, field),
			query.Param(fmt.Sprintf("%v", filter[field])),
		))
	}

	return p.nearest(ctx, vector, k, query.And(preds...))
}

// Query performs similarity search with vecna filter support.
func (p *Provider) Query(ctx context.Context, vector []float32, k int, filter *vecna.Filter) ([]sift.VectorResult, error) {
	where, err := p.filters.build(filter)
	if err != nil {
		return nil, err
	}
	return p.nearest(ctx, vector, k, where)
}

// nearest runs a similarity query ordered by ascending distance.
func (p *Provider) nearest(ctx context.Context, vector []float32, k int, where query.Expression) ([]sift.VectorResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", sift.ErrInvalidVector)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", sift.ErrInvalidQuery, k)
	}

	distance := p.Distance(vector)
	stmt, err := p.compiler.Compile(ctx, &query.Select{
		Table:       p.config.Table,
		Columns:     p.columns(),
		Projections: []query.Projection{{Expr: distance, Alias: ScoreAlias}},
		Where:       where,
		OrderBy:     []query.Ordering{{Expr: distance}},
		Limit:       k,
	})
	if err != nil {
		return nil, err
	}
	return p.scan(ctx, stmt, true)
}

// Filter returns vectors matching the metadata filter without similarity search.
// Results are ordered by ID descending.
func (p *Provider) Filter(ctx context.Context, filter *vecna.Filter, limit int) ([]sift.VectorResult, error) {
	where, err := p.filters.build(filter)
	if err != nil {
		return nil, err
	}

	stmt, err := p.compiler.Compile(ctx, &query.Select{
		Table:   p.config.Table,
		Columns: p.columns(),
		Where:   where,
		OrderBy: []query.Ordering{{Expr: p.id, Descending: true}},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return p.scan(ctx, stmt, false)
}

// scan reads id, vector and metadata rows, plus the score when scored is set.
func (p *Provider) scan(ctx context.Context, stmt *query.Statement, scored bool) ([]sift.VectorResult, error) {
	rows, err := p.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []sift.VectorResult
	for rows.Next() {
		var (
			rowID    string
			vec      pgvec.Vector
			metadata sql.NullString
			score    float64
		)
		dest := []any{&rowID, &vec, &metadata}
		if scored {
			dest = append(dest, &score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(rowID)
		if err != nil {
			return nil, err
		}
		results = append(results, sift.VectorResult{
			ID:       id,
			Vector:   vec.Slice(),
			Metadata: metadataBytes(metadata),
			Score:    score,
		})
	}

	return results, rows.Err()
}

// List returns vector IDs.
func (p *Provider) List(ctx context.Context, limit int) ([]uuid.UUID, error) {
	stmt, err := p.compiler.Compile(ctx, &query.Select{
		Table:   p.config.Table,
		Columns: []string{p.config.IDColumn},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Exists checks whether a vector ID exists.
func (p *Provider) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	stmt, err := p.compiler.Compile(ctx, &query.Select{
		Table:   p.config.Table,
		Columns: []string{p.config.IDColumn},
		Where:   p.byID(id),
		Limit:   1,
	})
	if err != nil {
		return false, err
	}

	var found string
	err = p.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) columns() []string {
	return []string{p.config.IDColumn, p.config.VectorColumn, p.config.MetadataColumn}
}

func (p *Provider) byID(id uuid.UUID) query.Expression {
	return query.Eq(p.id, query.Param(id.String()))
}

// metadataOrNull returns metadata or nil for SQL NULL.
func metadataOrNull(metadata []byte) any {
	if len(metadata) == 0 {
		return nil
	}
	return string(metadata)
}

func metadataBytes(s sql.NullString) []byte {
	if !s.Valid || s.String == "" {
		return nil
	}
	return []byte(s.String)
}

func idArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Verify Provider implements sift.VectorProvider.
var _ sift.VectorProvider = (*Provider)(nil)
