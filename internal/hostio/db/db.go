// Package db backs the #io_db_open/#io_db_query/#io_db_exec host
// facilities with database/sql, keeping one handle table per Manager so
// a single process can have multiple independent Lambo IO drivers (and
// tests) without sharing connections.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Manager owns the live *sql.DB handles a running program has opened.
// Every dial/query/exec runs under a context bounded by timeout so a
// hung connection cannot wedge the driver forever; timeout <= 0 means
// no bound is applied.
type Manager struct {
	conns   map[int64]*sql.DB
	next    int64
	timeout time.Duration
}

func NewManager() *Manager {
	return &Manager{conns: map[int64]*sql.DB{}}
}

// NewManagerWithTimeout returns a Manager whose operations are each
// bounded by timeout.
func NewManagerWithTimeout(timeout time.Duration) *Manager {
	return &Manager{conns: map[int64]*sql.DB{}, timeout: timeout}
}

func (m *Manager) context() (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *Manager) driverName(driver string) (string, error) {
	switch driver {
	case "sqlite3", "mysql", "postgres":
		return driver, nil
	default:
		return "", fmt.Errorf("db: unsupported driver %q", driver)
	}
}

// Open establishes a connection and returns an opaque handle.
func (m *Manager) Open(driver, dsn string) (int64, error) {
	name, err := m.driverName(driver)
	if err != nil {
		return 0, err
	}
	conn, err := sql.Open(name, dsn)
	if err != nil {
		return 0, err
	}
	ctx, cancel := m.context()
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return 0, err
	}
	m.next++
	m.conns[m.next] = conn
	return m.next, nil
}

// Row is one result row; each cell holds whatever database/sql scanned
// it as (int64, float64, string, []byte, bool or nil).
type Row []any

// Query runs a SELECT and returns the column names alongside every row.
func (m *Manager) Query(handle int64, query string) ([]string, []Row, error) {
	conn, ok := m.conns[handle]
	if !ok {
		return nil, nil, fmt.Errorf("db: invalid handle %d", handle)
	}
	ctx, cancel := m.context()
	defer cancel()
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, Row(vals))
	}
	return cols, out, rows.Err()
}

// Exec runs a statement with no result set and returns the number of
// affected rows.
func (m *Manager) Exec(handle int64, stmt string) (int64, error) {
	conn, ok := m.conns[handle]
	if !ok {
		return 0, fmt.Errorf("db: invalid handle %d", handle)
	}
	ctx, cancel := m.context()
	defer cancel()
	res, err := conn.ExecContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases a handle. Closing an unknown handle is a no-op.
func (m *Manager) Close(handle int64) error {
	conn, ok := m.conns[handle]
	if !ok {
		return nil
	}
	delete(m.conns, handle)
	return conn.Close()
}
