// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("file:fic.db")
	if !strings.HasPrefix(dsn, "file:fic.db?") {
		t.Errorf("expected params after '?', got %s", dsn)
	}
	for _, p := range sqliteParams {
		if !strings.Contains(dsn, p) {
			t.Errorf("DSN %s missing %s", dsn, p)
		}
	}

	// Existing settings are kept and not duplicated
	custom := SQLiteDSN("file:fic.db?_pragma=busy_timeout(100)")
	if strings.Count(custom, "busy_timeout") != 1 {
		t.Errorf("busy_timeout duplicated: %s", custom)
	}
	if !strings.Contains(custom, "&_txlock=immediate") {
		t.Errorf("expected appended params with '&': %s", custom)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestCreateSchemaIdempotent(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "fic.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn); err != nil {
		t.Fatalf("first CreateSchema() error = %v", err)
	}
	if err := CreateSchema(conn); err != nil {
		t.Fatalf("second CreateSchema() error = %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "fic.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn); err != nil {
		t.Fatalf("CreateSchema() error = %v", err)
	}

	insert := `INSERT INTO dimension_vote (voter_email, dimension, created_at) VALUES ($1, $2, $3)`
	if _, err := conn.Exec(insert, "a@x.com", "clima", time.Now()); err != nil {
		t.Fatalf("first insert error = %v", err)
	}

	_, err = conn.Exec(insert, "a@x.com", "clima", time.Now())
	if err == nil {
		t.Fatal("expected duplicate (email, dimension) to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}

	// CHECK failures are not unique violations
	_, err = conn.Exec(`INSERT INTO questionnaire (id, dimension, status) VALUES ($1, $2, $3)`, "q1", "clima", "bogus")
	if err == nil {
		t.Fatal("expected CHECK constraint failure")
	}
	if IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = true for a CHECK failure", err)
	}

	if IsUniqueViolation(nil) || IsUniqueViolation(errors.New("UNIQUE")) {
		t.Error("IsUniqueViolation should only match driver errors")
	}
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("IsUniqueViolation should match pq unique_violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("IsUniqueViolation should not match pq foreign_key_violation")
	}
}

func TestForUpdate(t *testing.T) {
	lite, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "fic.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer lite.Close()
	if got := ForUpdate(lite); got != "" {
		t.Errorf("ForUpdate(sqlite) = %q, want empty", got)
	}

	// sql.Open does not connect, so no server is needed
	pg, err := sql.Open("postgres", "postgres://fic@localhost/fic?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer pg.Close()
	if got := ForUpdate(pg); got != " FOR UPDATE" {
		t.Errorf("ForUpdate(postgres) = %q, want \" FOR UPDATE\"", got)
	}
}
