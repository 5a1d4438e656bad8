// Copyright 2023 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb retrieves named CAMAC module maps from the
// experiment configuration database.
package conddb // import "github.com/go-lpc/camac/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/go-lpc/camac/cfg"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve CAMAC module maps from
// the configuration database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the configuration database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("could not ping %q: %w", dbname, err)
	}
	return nil
}

// Close closes the connection to the database.
func (db *DB) Close() error { return db.db.Close() }

// LastModuleMap returns the name of the most recent module map.
func (db *DB) LastModuleMap(ctx context.Context) (string, error) {
	const query = "SELECT name FROM module_maps ORDER BY datetime DESC LIMIT 1"

	var name string
	err := db.db.QueryRowContext(ctx, query).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("conddb: could not get last module map: %w", err)
	}
	return name, nil
}

// Modules returns the module entries of the named map, in slot order.
func (db *DB) Modules(ctx context.Context, name string) ([]cfg.Entry, error) {
	const query = "SELECT module, branch, crate, station, comment FROM modules WHERE map=? ORDER BY station"

	rows, err := db.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not query modules for map %q: %w", name, err)
	}
	defer rows.Close()

	var entries []cfg.Entry
	for rows.Next() {
		var e cfg.Entry
		err = rows.Scan(&e.Name, &e.Branch, &e.Crate, &e.Station, &e.Comment)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not scan module row for map %q: %w", name, err)
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("conddb: could not iterate modules for map %q: %w", name, err)
	}

	return entries, nil
}
