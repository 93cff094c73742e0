// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL sticks to types and defaults that PostgreSQL and SQLite share.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Questionnaires
CREATE TABLE IF NOT EXISTS questionnaire (
    id TEXT PRIMARY KEY,
    dimension TEXT NOT NULL,
    group_name TEXT NOT NULL DEFAULT '',
    strengths TEXT NOT NULL DEFAULT '',
    challenges TEXT NOT NULL DEFAULT '',
    opportunities TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'completed')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_questionnaire_dimension ON questionnaire(dimension);
CREATE INDEX IF NOT EXISTS idx_questionnaire_status ON questionnaire(status);

-- Options split from questionnaire text
CREATE TABLE IF NOT EXISTS questionnaire_option (
    id TEXT PRIMARY KEY,
    questionnaire_id TEXT NOT NULL REFERENCES questionnaire(id) ON DELETE CASCADE,
    section TEXT NOT NULL CHECK (section IN ('strengths', 'challenges', 'opportunities')),
    position INTEGER NOT NULL CHECK (position >= 1),
    text TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active')),
    UNIQUE (questionnaire_id, section, position)
);

CREATE INDEX IF NOT EXISTS idx_option_questionnaire_id ON questionnaire_option(questionnaire_id);

-- Votes
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    questionnaire_id TEXT NOT NULL REFERENCES questionnaire(id) ON DELETE CASCADE,
    section TEXT NOT NULL CHECK (section IN ('strengths', 'challenges', 'opportunities')),
    option_index INTEGER NOT NULL CHECK (option_index >= 1),
    option_id TEXT REFERENCES questionnaire_option(id) ON DELETE SET NULL,
    direction TEXT NOT NULL CHECK (direction IN ('upvote', 'downvote')),
    voter_email TEXT,
    ip_hash TEXT,
    user_agent TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_vote_questionnaire_id ON vote(questionnaire_id);
CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);

-- One row per voter per dimension
CREATE TABLE IF NOT EXISTS dimension_vote (
    voter_email TEXT NOT NULL,
    dimension TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (voter_email, dimension)
);

-- Voter allow-list
CREATE TABLE IF NOT EXISTS registered_voter (
    email TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Administrators
CREATE TABLE IF NOT EXISTS admin_user (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Export-and-clear snapshots
CREATE TABLE IF NOT EXISTS backup (
    id TEXT PRIMARY KEY,
    dimension TEXT NOT NULL,
    payload TEXT NOT NULL,
    questionnaire_count INTEGER NOT NULL DEFAULT 0,
    vote_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_backup_created_at ON backup(created_at);

-- AI reports
CREATE TABLE IF NOT EXISTS report (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK (kind IN ('analysis', 'consolidated', 'grouping')),
    dimension TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_report_created_at ON report(created_at);
`
