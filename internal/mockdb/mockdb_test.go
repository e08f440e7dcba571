package mockdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
)

func TestNew(t *testing.T) {
	db, capture := New()
	if db == nil {
		t.Fatal("New returned nil db")
	}
	if capture == nil {
		t.Fatal("New returned nil capture")
	}
	if err := db.PingContext(context.Background()); err != nil {
		t.Errorf("db.PingContext failed: %v", err)
	}
}

func TestNew_ResetsState(t *testing.T) {
	db, capture, config := NewWithConfig()
	ctx := context.Background()

	config.SetQueryErr(errors.New("boom"))
	config.AddResult([]string{"id"}, []driver.Value{"a"})
	_, _ = db.ExecContext(ctx, `DELETE FROM "vectors"`)
	if len(capture.Queries) == 0 {
		t.Fatal("expected statement to be captured")
	}

	_, capture, config = NewWithConfig()
	if len(capture.Queries) != 0 {
		t.Errorf("expected capture to be reset, got %d queries", len(capture.Queries))
	}
	if config.getQueryErr() != nil {
		t.Error("expected QueryErr to be reset")
	}
	if set := config.nextResult(); set.Columns != nil {
		t.Errorf("expected queued results to be reset, got %v", set.Columns)
	}
}

func TestCapture_Last(t *testing.T) {
	c := &Capture{}
	if _, ok := c.Last(); ok {
		t.Error("expected no last query on empty capture")
	}

	c.add(`SELECT "id" FROM "a"`, []any{1})
	c.add(`SELECT "id" FROM "b"`, []any{2})

	last, ok := c.Last()
	if !ok {
		t.Fatal("expected last query")
	}
	if last.Query != `SELECT "id" FROM "b"` {
		t.Errorf("unexpected query: %s", last.Query)
	}

	c.Reset()
	if len(c.Queries) != 0 {
		t.Errorf("expected reset capture, got %d queries", len(c.Queries))
	}
}

func TestConn_QueryContext(t *testing.T) {
	capture := &Capture{}
	conn := &Conn{capture: capture, config: &Config{}}

	args := []driver.NamedValue{
		{Ordinal: 1, Value: "[1,1,1]"},
		{Ordinal: 2, Value: 1.5},
	}

	rows, err := conn.QueryContext(context.Background(), `SELECT * FROM "items" WHERE ("embedding" <-> $1::vector) < $2`, args)
	if err != nil {
		t.Fatalf("QueryContext failed: %v", err)
	}
	if err := rows.Next(make([]driver.Value, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("expected no rows without a queued result, got %v", err)
	}

	last, ok := capture.Last()
	if !ok {
		t.Fatal("query not captured")
	}
	if len(last.Args) != 2 || last.Args[0] != "[1,1,1]" || last.Args[1] != 1.5 {
		t.Errorf("unexpected args: %v", last.Args)
	}
}

func TestConn_QueryContext_Error(t *testing.T) {
	capture := &Capture{}
	config := &Config{}
	conn := &Conn{capture: capture, config: config}

	testErr := errors.New("query failed")
	config.SetQueryErr(testErr)

	_, err := conn.QueryContext(context.Background(), "SELECT 1", nil)
	if !errors.Is(err, testErr) {
		t.Errorf("expected query error, got: %v", err)
	}
	if len(capture.Queries) != 1 {
		t.Error("expected query to be captured even on error")
	}
}

func TestConn_ExecContext(t *testing.T) {
	capture := &Capture{}
	config := &Config{}
	conn := &Conn{capture: capture, config: config}

	result, err := conn.ExecContext(context.Background(), `DELETE FROM "items" WHERE "id" = $1`, []driver.NamedValue{{Ordinal: 1, Value: "x"}})
	if err != nil {
		t.Fatalf("ExecContext failed: %v", err)
	}
	n, _ := result.RowsAffected()
	if n != 1 {
		t.Errorf("expected default RowsAffected 1, got %d", n)
	}

	config.SetRowsAffected(0)
	result, _ = conn.ExecContext(context.Background(), "DELETE", nil)
	if n, _ := result.RowsAffected(); n != 0 {
		t.Errorf("expected RowsAffected 0, got %d", n)
	}

	testErr := errors.New("exec failed")
	config.SetExecErr(testErr)
	if _, err := conn.ExecContext(context.Background(), "DELETE", nil); !errors.Is(err, testErr) {
		t.Errorf("expected exec error, got %v", err)
	}
}

func TestConfig_AddResult(t *testing.T) {
	capture := &Capture{}
	config := &Config{}
	conn := &Conn{capture: capture, config: config}

	config.AddResult([]string{"id", "score"},
		[]driver.Value{"a", 0.0},
		[]driver.Value{"b", 1.7},
	)
	config.AddResult([]string{"id"}, []driver.Value{"c"})

	rows, err := conn.QueryContext(context.Background(), "SELECT 1", nil)
	if err != nil {
		t.Fatalf("QueryContext failed: %v", err)
	}
	cols := rows.Columns()
	if len(cols) != 2 || cols[0] != "id" || cols[1] != "score" {
		t.Fatalf("unexpected columns: %v", cols)
	}

	dest := make([]driver.Value, 2)
	var got []any
	for rows.Next(dest) == nil {
		got = append(got, dest[0], dest[1])
	}
	if len(got) != 4 || got[0] != "a" || got[3] != 1.7 {
		t.Errorf("unexpected rows: %v", got)
	}

	rows, _ = conn.QueryContext(context.Background(), "SELECT 2", nil)
	if cols := rows.Columns(); len(cols) != 1 || cols[0] != "id" {
		t.Errorf("expected second result set, got %v", cols)
	}

	rows, _ = conn.QueryContext(context.Background(), "SELECT 3", nil)
	if cols := rows.Columns(); len(cols) != 0 {
		t.Errorf("expected empty result once queue drained, got %v", cols)
	}
}

func TestRows_Close(t *testing.T) {
	r := &Rows{columns: []string{"id"}, rows: [][]driver.Value{{"a"}}}
	if err := r.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	if err := r.Next(make([]driver.Value, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after Close, got %v", err)
	}
}

func TestStmt(t *testing.T) {
	capture := &Capture{}
	s := &Stmt{query: "SELECT 1", capture: capture}

	if s.NumInput() != -1 {
		t.Errorf("expected NumInput -1, got %d", s.NumInput())
	}
	if _, err := s.Exec([]driver.Value{"x"}); err != nil {
		t.Errorf("Exec failed: %v", err)
	}
	if _, err := s.Query(nil); err != nil {
		t.Errorf("Query failed: %v", err)
	}
	if len(capture.Queries) != 2 {
		t.Errorf("expected 2 captured statements, got %d", len(capture.Queries))
	}
}
