// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrStateNotFound = errors.New("workspace state database not found")
	ErrKeyNotFound   = errors.New("key not found in workspace state")
)

// =============================================================================
// WORKSPACE STATE
// =============================================================================

// Item is one key/value pair from the state database.
type Item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DB is a read-only handle on one state.vscdb file.
type DB struct {
	db   *sql.DB
	path string
}

// OpenRO opens a state database read-only. VSCode holds the file open
// while running, so nothing here may write; a single connection is
// enough for the lookups made here.
func OpenRO(path string) (*DB, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, path)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &DB{db: db, path: path}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// ReadKey returns the value stored under one exact key.
func (d *DB) ReadKey(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx,
		`SELECT value FROM ItemTable WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

// Keys returns every item whose key starts with prefix, ordered by key.
// An empty prefix returns the whole table.
func (d *DB) Keys(ctx context.Context, prefix string) ([]Item, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT key, value FROM ItemTable WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
