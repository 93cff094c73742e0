// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Sistema FIC API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - QuestionnaireHandler: questionnaire intake, listing and status
  - VoteHandler: vote submission and voting status
  - SessionHandler: server-side selection sessions
  - TallyHandler, AnalyticsHandler: aggregation
  - VoterHandler: registered voter roster
  - ExportHandler: export, backup and clear
  - AIHandler: analysis, consolidated report and grouping
  - AdminHandler: login

Handlers are created via constructor functions that accept *sql.DB and Config:

	voteHandler := handlers.NewVoteHandler(db, cfg)

# Questionnaire Lifecycle

Questionnaires move pending → active on the first vote, and an admin may
mark them completed:

	POST  /questionnaires              → Create (splits texts into options)
	PATCH /questionnaires/{id}/status  → UpdateStatus (admin)

# Voting Flow

A voter picks exactly three options per section and submits once per
dimension:

	POST /questionnaires/{id}/votes → Submit
	GET  /voting/status             → Status

The dimension lock and the votes are written in one transaction. A
second submission for the same email and dimension gets 409 Conflict.

# Tally

	result, err := ComputeTally(ctx, db, dimension)

ComputeTally keys counts by option index across questionnaires.
ComputeOptionTally keys them by option id.

Admin operations require a bearer token from POST /auth/login.
*/
package handlers
