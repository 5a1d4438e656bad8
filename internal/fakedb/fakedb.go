// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb registers an in-memory database/sql driver that
// serves canned rows, for tests exercising conddb queries without a
// MySQL server.
package fakedb // import "github.com/go-lpc/camac/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
}

// Run serves the given rows to every query issued from within f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows

	return f(ctx)
}

func init() {
	sql.Register("fakedb", &Driver{})
}

// Driver is the fake database driver.
type Driver struct{}

func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &conn{}, nil
}

type conn struct{}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	panic("fakedb: transactions not implemented")
}

type stmt struct{}

func (st *stmt) Close() error { return nil }

// NumInput returns -1 so the sql package skips argument count checks:
// the canned rows do not depend on the placeholders.
func (st *stmt) NumInput() int { return -1 }

func (st *stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("fakedb: exec not implemented")
}

func (st *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return &query.rows, nil
}

// Rows is the canned result set served to queries.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string { return rows.Names }

func (rows *Rows) Close() error { return nil }

func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*conn)(nil)
	_ driver.Stmt   = (*stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
