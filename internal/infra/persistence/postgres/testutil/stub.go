// Package testutil provides an in-memory database/sql driver that
// understands the handful of statements the postgres and gorm table stores
// issue: inserts (multi-row, optionally ON CONFLICT), DELETE and SELECT with
// one "col = $1" predicate, and ORDER BY one column.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

var stubSeq atomic.Uint64

// StubConn records statements and keeps inserted rows per table.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	RowsErr    error
}

// NewStubDB registers a sql.DB backed by a fresh stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext. INSERT statements store one
// row per group of column values; an ON CONFLICT clause replaces rows
// sharing the first column. DELETE removes the rows matching its predicate.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	verb := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(verb, "DELETE FROM") {
		return c.delete(query, args)
	}
	if !strings.HasPrefix(verb, "INSERT INTO") {
		return driver.RowsAffected(0), nil
	}
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 || len(args) == 0 || len(args)%len(cols) != 0 {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	upsert := strings.Contains(verb, "ON CONFLICT")
	for start := 0; start < len(args); start += len(cols) {
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[start+i].Value
		}
		if upsert {
			primary := cols[0]
			kept := c.Tables[table][:0:0]
			for _, existing := range c.Tables[table] {
				if existing[primary] != row[primary] {
					kept = append(kept, existing)
				}
			}
			c.Tables[table] = kept
		}
		c.Tables[table] = append(c.Tables[table], row)
	}
	return driver.RowsAffected(int64(len(args) / len(cols))), nil
}

func (c *StubConn) delete(query string, args []driver.NamedValue) (driver.Result, error) {
	table, where, _ := parseTail(strings.TrimSpace(query)[len("DELETE FROM "):])
	kept := c.Tables[table][:0:0]
	for _, row := range c.Tables[table] {
		if where == "" || (len(args) > 0 && row[where] == args[0].Value) {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(c.Tables[table]) - len(kept)
	c.Tables[table] = kept
	return driver.RowsAffected(int64(removed)), nil
}

// QueryContext implements driver.QueryerContext. A single "WHERE col = $1"
// predicate and an "ORDER BY col" clause are honoured; "SELECT *" returns
// every stored column in name order.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	table, cols, where, order, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	var matched []map[string]any
	for _, row := range c.Tables[table] {
		if where != "" && len(args) > 0 && row[where] != args[0].Value {
			continue
		}
		matched = append(matched, row)
	}
	if order != "" {
		sort.SliceStable(matched, func(i, j int) bool { return less(matched[i][order], matched[j][order]) })
	}
	if len(cols) == 1 && cols[0] == "*" {
		cols = nil
		if len(matched) > 0 {
			for col := range matched[0] {
				cols = append(cols, col)
			}
			sort.Strings(cols)
		}
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

func less(a, b any) bool {
	switch x := a.(type) {
	case int64:
		y, _ := b.(int64)
		return x < y
	case string:
		y, _ := b.(string)
		return x < y
	case time.Time:
		y, _ := b.(time.Time)
		return x.Before(y)
	}
	return false
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	return ident(rest[:open]), splitColumns(rest[open+1 : closeIdx]), nil
}

func parseSelect(query string) (table string, cols []string, where, order string, err error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(lower, "select ") {
		return "", nil, "", "", fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return "", nil, "", "", fmt.Errorf("cannot parse select: %s", query)
	}
	table, where, order = parseTail(lower[fromIdx+len(" from "):])
	if table == "" {
		return "", nil, "", "", fmt.Errorf("cannot parse select: %s", query)
	}
	return table, splitColumns(lower[len("select "):fromIdx]), where, order, nil
}

// parseTail reads "table [WHERE col = $1] [ORDER BY col ...]".
func parseTail(tail string) (table, where, order string) {
	fields := strings.Fields(strings.ToLower(tail))
	if len(fields) == 0 {
		return "", "", ""
	}
	table = ident(fields[0])
	for i := 1; i < len(fields); i++ {
		switch {
		case fields[i] == "where" && i+1 < len(fields):
			where = ident(strings.SplitN(fields[i+1], "=", 2)[0])
		case fields[i] == "order" && i+2 < len(fields) && fields[i+1] == "by":
			order = ident(strings.TrimSuffix(fields[i+2], ","))
		}
	}
	return table, where, order
}

// ident strips quoting and any table qualifier from an identifier.
func ident(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if dot := strings.LastIndex(raw, "."); dot >= 0 {
		raw = raw[dot+1:]
	}
	return strings.Trim(raw, `"`)
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, ident(part))
	}
	return out
}
