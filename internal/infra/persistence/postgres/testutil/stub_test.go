package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBUpsertsAndFiltersRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO snapshots (name, items) VALUES ($1,$2) ON CONFLICT(name) DO UPDATE SET items=EXCLUDED.items"
	for _, args := range [][]driver.NamedValue{
		{{Value: "a"}, {Value: int64(1)}},
		{{Value: "b"}, {Value: int64(2)}},
		{{Value: "a"}, {Value: int64(3)}},
	} {
		if _, err := conn.ExecContext(ctx, upsert, args); err != nil {
			t.Fatalf("ExecContext: %v", err)
		}
	}
	if got := len(conn.Tables["snapshots"]); got != 2 {
		t.Fatalf("expected upsert to keep 2 rows, got %d", got)
	}
	if len(conn.Execs) != 3 {
		t.Fatalf("expected 3 recorded statements, got %d", len(conn.Execs))
	}

	rows, err := conn.QueryContext(ctx, "SELECT name, items FROM snapshots WHERE name = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "a" || dest[1] != int64(3) {
		t.Fatalf("unexpected row values: %v", dest)
	}
	if err := rows.Next(dest); err == nil {
		t.Fatalf("expected a single matching row")
	}

	if _, err := conn.ExecContext(ctx, "INSERT INTO snapshots (name, items) VALUES ($1,$2,$3)", []driver.NamedValue{{Value: "x"}, {Value: 1}, {Value: 2}}); err == nil {
		t.Fatalf("expected column/arg mismatch")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, upsert, nil); err == nil {
		t.Fatalf("expected exec failure")
	}
}

func TestStubDBHandlesQuotedMultiRowStatements(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	insert := `INSERT INTO "rows" ("snapshot","idx") VALUES ($1,$2),($3,$4),($5,$6)`
	args := []driver.NamedValue{{Value: "a"}, {Value: int64(2)}, {Value: "b"}, {Value: int64(0)}, {Value: "a"}, {Value: int64(1)}}
	if _, err := conn.ExecContext(ctx, insert, args); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if got := len(conn.Tables["rows"]); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}

	rows, err := conn.QueryContext(ctx, `SELECT * FROM "rows" WHERE snapshot = $1 ORDER BY "rows"."idx" LIMIT $2`, []driver.NamedValue{{Value: "a"}, {Value: int64(10)}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	if cols := rows.Columns(); len(cols) != 2 || cols[0] != "idx" || cols[1] != "snapshot" {
		t.Fatalf("unexpected columns %v", cols)
	}
	dest := make([]driver.Value, 2)
	var order []int64
	for rows.Next(dest) == nil {
		order = append(order, dest[0].(int64))
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected filtered rows ordered by idx, got %v", order)
	}

	res, err := conn.ExecContext(ctx, `DELETE FROM "rows" WHERE snapshot = $1`, []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 2 || len(conn.Tables["rows"]) != 1 {
		t.Fatalf("delete removed %d, left %d", n, len(conn.Tables["rows"]))
	}

	empty, err := conn.QueryContext(ctx, `SELECT * FROM "missing"`, nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	if err := empty.Next(dest); err == nil {
		t.Fatalf("expected no rows")
	}
}
