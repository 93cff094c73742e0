// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Questionnaire status constants
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Section keys
const (
	SectionStrengths     = "strengths"
	SectionChallenges    = "challenges"
	SectionOpportunities = "opportunities"
)

// Vote directions
const (
	DirectionUpvote   = "upvote"
	DirectionDownvote = "downvote"
)

// DimensionAll selects every dimension in tally, analytics and export queries.
const DimensionAll = "all"

// Report kinds
const (
	ReportAnalysis     = "analysis"
	ReportConsolidated = "consolidated"
	ReportGrouping     = "grouping"
)

// Request types

type CreateQuestionnaireRequest struct {
	Dimension     string `json:"dimension"`
	Group         string `json:"group"`
	Strengths     string `json:"strengths"`
	Challenges    string `json:"challenges"`
	Opportunities string `json:"opportunities"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// section -> chosen 1-based option indices
type SectionChoices struct {
	Strengths     []int `json:"strengths"`
	Challenges    []int `json:"challenges"`
	Opportunities []int `json:"opportunities"`
}

type SubmitVotesRequest struct {
	Email      string         `json:"email"`
	Selections SectionChoices `json:"selections"`
}

type ToggleSelectionRequest struct {
	QuestionnaireID string `json:"questionnaire_id"`
	Section         string `json:"section"`
	Index           int    `json:"index"`
}

type ConfirmSessionRequest struct {
	QuestionnaireID string `json:"questionnaire_id"`
	Email           string `json:"email"`
}

type AddVoterRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ClearDataRequest struct {
	Dimension string `json:"dimension"`
}

type AnalysisRequest struct {
	Dimension string   `json:"dimension"`
	BackupIDs []string `json:"backup_ids"`
}

type ReportRequest struct {
	Dimension string `json:"dimension"`
}

type GroupRequest struct {
	Dimension string `json:"dimension"`
	Section   string `json:"section"`
}

// Response types

type CreateQuestionnaireResponse struct {
	QuestionnaireID string         `json:"questionnaire_id"`
	OptionCounts    map[string]int `json:"option_counts"`
}

type SubmitVotesResponse struct {
	Dimension     string `json:"dimension"`
	VotesRecorded int    `json:"votes_recorded"`
	Message       string `json:"message"`
}

type SessionResponse struct {
	SessionToken string                    `json:"session_token"`
	Selections   map[string]SectionChoices `json:"selections"`
}

type ToggleSelectionResponse struct {
	Selected bool           `json:"selected"`
	Counts   map[string]int `json:"counts"`
	Complete bool           `json:"complete"`
}

type VotingStatusResponse struct {
	Email     string `json:"email"`
	Dimension string `json:"dimension"`
	HasVoted  bool   `json:"has_voted"`
}

type VoterCheckResponse struct {
	Email      string `json:"email"`
	Registered bool   `json:"registered"`
}

type ImportVotersResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ClearDataResponse struct {
	BackupID           string `json:"backup_id"`
	QuestionnaireCount int    `json:"questionnaire_count"`
	VoteCount          int    `json:"vote_count"`
}

type AnalysisResponse struct {
	ReportID string         `json:"report_id"`
	Analysis string         `json:"analysis"`
	Metrics  map[string]int `json:"metrics"`
}

type GroupEntry struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
	Votes int      `json:"votes"` // upvotes summed over the items
}

type GroupResponse struct {
	ReportID  string       `json:"report_id"`
	Dimension string       `json:"dimension"`
	Section   string       `json:"section"`
	Groups    []GroupEntry `json:"groups"`
}

// Domain types

type Questionnaire struct {
	ID            string              `json:"id"`
	Dimension     string              `json:"dimension"`
	Group         string              `json:"group"`
	Strengths     string              `json:"strengths"`
	Challenges    string              `json:"challenges"`
	Opportunities string              `json:"opportunities"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	Options       []Option            `json:"options,omitempty"`
	Statuses      map[string][]string `json:"section_statuses,omitempty"`
}

// Text returns the free-text blob for a section key.
func (q *Questionnaire) Text(section string) string {
	switch section {
	case SectionStrengths:
		return q.Strengths
	case SectionChallenges:
		return q.Challenges
	case SectionOpportunities:
		return q.Opportunities
	}
	return ""
}

type Option struct {
	ID              string `json:"id"`
	QuestionnaireID string `json:"questionnaire_id"`
	Section         string `json:"section"`
	Position        int    `json:"position"` // 1-indexed
	Text            string `json:"text"`
	Status          string `json:"status"`
}

type Vote struct {
	ID              string    `json:"id"`
	QuestionnaireID string    `json:"questionnaire_id"`
	Section         string    `json:"section"`
	OptionIndex     int       `json:"option_index"`
	OptionID        *string   `json:"option_id,omitempty"`
	Direction       string    `json:"direction"`
	VoterEmail      *string   `json:"voter_email,omitempty"`
	IPHash          *string   `json:"-"` // Never expose in JSON
	UserAgent       *string   `json:"-"` // Never expose in JSON
	CreatedAt       time.Time `json:"created_at"`
}

type DimensionVote struct {
	VoterEmail string    `json:"voter_email"`
	Dimension  string    `json:"dimension"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisteredVoter struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Dimension struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

type Backup struct {
	ID                 string    `json:"id"`
	Dimension          string    `json:"dimension"`
	QuestionnaireCount int       `json:"questionnaire_count"`
	VoteCount          int       `json:"vote_count"`
	Size               string    `json:"size"` // humanized payload size
	CreatedAt          time.Time `json:"created_at"`
}

// BackupPayload is the JSON document stored in a backup row and served by exports.
type BackupPayload struct {
	Dimension      string          `json:"dimension"`
	ExportedAt     time.Time       `json:"exported_at"`
	Questionnaires []Questionnaire `json:"questionnaires"`
	Votes          []Vote          `json:"votes"`
	DimensionVotes []DimensionVote `json:"dimension_votes"`
}

type Report struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Dimension string    `json:"dimension"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally types

type TallyEntry struct {
	OptionIndex int    `json:"option_index"` // 1-indexed
	Count       int    `json:"count"`
	Text        string `json:"text"`
}

// section -> entries
type TallyResult struct {
	Dimension string                  `json:"dimension"`
	Sections  map[string][]TallyEntry `json:"sections"`
}

type OptionTallyEntry struct {
	OptionID        string `json:"option_id"`
	QuestionnaireID string `json:"questionnaire_id"`
	Section         string `json:"section"`
	Position        int    `json:"position"`
	Text            string `json:"text"`
	Status          string `json:"status"`
	Upvotes         int    `json:"upvotes"`
	Downvotes       int    `json:"downvotes"`
}

type DimensionStats struct {
	Dimension      string `json:"dimension"`
	Questionnaires int    `json:"questionnaires"`
	Votes          int    `json:"votes"`
	Voters         int    `json:"voters"`
}

type AnalyticsResponse struct {
	Dimension      string           `json:"dimension"`
	ByStatus       map[string]int   `json:"by_status"`
	Questionnaires int              `json:"questionnaires"`
	Votes          int              `json:"votes"`
	Voters         int              `json:"voters"`
	Registered     int              `json:"registered_voters"`
	Participation  float64          `json:"participation"` // voters / registered
	PerDimension   []DimensionStats `json:"per_dimension"`
	Tally          *TallyResult     `json:"tally"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
