// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Sistema FIC API server.

Sistema FIC collects cooperative feedback questionnaires (strengths,
challenges, opportunities) per dimension, lets members vote for exactly
three options in each section once per dimension, and tallies the result.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=fic.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 8080 -d "postgres://..." --jwt-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - JWT_SECRET (--jwt-secret): Secret for admin token signing

Optional settings:

  - PORT (-p): Server port (default: 8080)
  - DATABASE_TYPE (-t): sqlite or postgres, inferred from the URL
  - IP_HASH_SALT (--ip-salt): Salt for voter IP hashes
  - FIC_CONFIG (-c): YAML file with dimensions, AI and timeouts
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - AI_ENDPOINT, AI_MODEL, AI_API_KEY: OpenAI-compatible endpoint

A .env file in the working directory is read but never overrides the
environment.

# Architecture

  - handlers: HTTP request handlers (questionnaires, votes, sessions, tally, export, AI)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, admin auth
  - options: Free-text splitting into numbered options
  - selection: In-memory voting sessions
  - ai: Chat-completion client and prompts
  - export: CSV encoding and voter import
  - metrics: Prometheus collectors
  - models: Request/response types
  - auth: IDs, password hashing and admin tokens
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing

Administrative tasks without the HTTP surface live in cmd/ficctl.
*/
package main
