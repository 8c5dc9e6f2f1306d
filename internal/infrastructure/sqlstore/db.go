// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlstore implements the meeting and agent repositories on a SQL
// database through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	// Database drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported SQL backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open connects to the database for backend and wraps it with the matching
// bun dialect.
func Open(backend, dsn string) (*bun.DB, error) {
	switch backend {
	case BackendSQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	case BackendPostgres:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported sql backend %q", backend)
	}
}

// CreateSchema creates the tables used by the repositories if they do not
// exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*meetingRecord)(nil), (*agentRecord)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
