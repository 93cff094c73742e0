// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Open picks the driver from the configured type:

	conn, err := db.Open(db.TypePostgres, "postgres://...")  // lib/pq
	conn, err := db.Open(db.TypeSQLite, "file:fic.db")      // modernc.org/sqlite

SQLite connections get foreign keys, WAL, a busy timeout and immediate
transactions. SQLite databases must be files; ":memory:" gives every pooled
connection its own empty database.

Queries use $1-style placeholders, which both drivers accept. With SQLite
the placeholders must first appear in ascending order.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - questionnaire: one FIC response (dimension, group, three text sections, status)
  - questionnaire_option: options split from the text, with stable IDs
  - vote: one row per chosen option
  - dimension_vote: one row per (voter_email, dimension), primary key enforced
  - registered_voter: emails allowed to vote
  - admin_user: administrator credentials
  - backup: JSON snapshots written by export-and-clear
  - report: AI-generated analyses

# Relationships

	questionnaire 1──* questionnaire_option
	questionnaire 1──* vote
	questionnaire_option 1──* vote (option_id, SET NULL on delete)

# Constraint Errors

IsUniqueViolation recognizes duplicate-key errors from both drivers:

	if db.IsUniqueViolation(err) {
		// already voted
	}
*/
package db
