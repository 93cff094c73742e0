// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// sqliteParams are appended to SQLite DSNs that do not set them already.
// Immediate transactions plus a busy timeout serialize concurrent writers
// instead of failing them with SQLITE_BUSY.
var sqliteParams = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_txlock=immediate",
}

// Open connects to the database and verifies the connection.
func Open(dbType, url string) (*sql.DB, error) {
	var driver, dsn string
	switch dbType {
	case TypePostgres:
		driver, dsn = "postgres", url
	case TypeSQLite:
		driver, dsn = "sqlite", SQLiteDSN(url)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dbType, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dbType, err)
	}

	return conn, nil
}

// SQLiteDSN adds the connection parameters the app relies on to a SQLite path or URI.
func SQLiteDSN(url string) string {
	var missing []string
	for _, p := range sqliteParams {
		name := p[:strings.Index(p, "=")+1]
		if strings.HasPrefix(p, "_pragma=") {
			name = p[:strings.Index(p, "(")]
		}
		if !strings.Contains(url, name) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return url
	}

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(missing, "&")
}

// IsUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint, for either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// ForUpdate returns the row-locking suffix for a SELECT on conn's driver.
// Postgres gets " FOR UPDATE"; SQLite has no row locks and its immediate
// transactions already hold the write lock, so it gets "".
func ForUpdate(conn *sql.DB) string {
	if _, ok := conn.Driver().(*pq.Driver); ok {
		return " FOR UPDATE"
	}
	return ""
}
