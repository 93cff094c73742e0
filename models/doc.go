// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateQuestionnaireRequest: dimension, group and the three section texts
  - SubmitVotesRequest: email and 1-based indices per section
  - ToggleSelectionRequest, ConfirmSessionRequest: voting session steps
  - AddVoterRequest, LoginRequest, ClearDataRequest
  - AnalysisRequest, ReportRequest, GroupRequest: AI operations

# Domain Types

  - Questionnaire: one group's free-text feedback for a dimension
  - Option: a numbered fragment of a section text
  - Vote: one upvote for one option index
  - DimensionVote: the lock recording that an email voted in a dimension
  - RegisteredVoter, Dimension, Backup, BackupPayload, Report

# Tally Types

TallyResult groups entries by section. Entries are keyed by option index
only, so index 2 of every questionnaire in scope counts toward the same
entry. OptionTallyEntry keys by option id instead.

# Constants

Status values:

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"

Sections:

	SectionStrengths     = "strengths"
	SectionChallenges    = "challenges"
	SectionOpportunities = "opportunities"
*/
package models
