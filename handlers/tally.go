// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"

	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

type TallyHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewTallyHandler(db *sql.DB, cfg cliparse.Config) *TallyHandler {
	return &TallyHandler{db: db, cfg: cfg}
}

// ComputeTally counts upvotes per (section, option index) across every
// questionnaire in the dimension ("all" for every dimension).
//
// Indices are positions within each questionnaire, so option #1 of two
// different questionnaires falls into the same bucket. The bucket's text
// comes from the first questionnaire, in creation order, that has an
// option at that position. Use ComputeOptionTally for per-option counts.
func ComputeTally(ctx context.Context, db *sql.DB, dimension string) (*models.TallyResult, error) {
	qs, err := listQuestionnaires(ctx, db, dimension, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaires: %w", err)
	}
	votes, err := listVotes(ctx, db, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes: %w", err)
	}
	return TallyFrom(dimension, qs, votes), nil
}

// TallyFrom is ComputeTally over already loaded rows. Votes on
// questionnaires outside qs are ignored.
func TallyFrom(dimension string, qs []models.Questionnaire, votes []models.Vote) *models.TallyResult {
	if dimension == "" {
		dimension = models.DimensionAll
	}

	inScope := make(map[string]bool, len(qs))
	for i := range qs {
		inScope[qs[i].ID] = true
	}

	type key struct {
		section string
		index   int
	}
	counts := make(map[key]int)
	for _, v := range votes {
		if v.Direction != models.DirectionUpvote || !inScope[v.QuestionnaireID] {
			continue
		}
		counts[key{v.Section, v.OptionIndex}]++
	}

	// split once per questionnaire and section
	split := make([]map[string][]string, len(qs))
	for i := range qs {
		split[i] = options.SplitAll(&qs[i])
	}
	textFor := func(section string, index int) string {
		for i := range qs {
			opts := split[i][section]
			if index >= 1 && index <= len(opts) && opts[index-1] != "" {
				return opts[index-1]
			}
		}
		return ""
	}

	result := &models.TallyResult{
		Dimension: dimension,
		Sections:  make(map[string][]models.TallyEntry, len(options.Sections)),
	}
	for _, section := range options.Sections {
		result.Sections[section] = []models.TallyEntry{}
	}
	for k, n := range counts {
		result.Sections[k.section] = append(result.Sections[k.section], models.TallyEntry{
			OptionIndex: k.index,
			Count:       n,
			Text:        textFor(k.section, k.index),
		})
	}

	for _, entries := range result.Sections {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Count != entries[j].Count {
				return entries[i].Count > entries[j].Count
			}
			return entries[i].OptionIndex < entries[j].OptionIndex
		})
	}
	return result
}

// ComputeOptionTally counts votes per stored option, so options at the same
// position in different questionnaires are kept apart. Options without votes
// are included with zero counts.
func ComputeOptionTally(ctx context.Context, db *sql.DB, dimension string) ([]models.OptionTallyEntry, error) {
	f := questionnaireFilter("q.", dimension, "")
	rows, err := db.QueryContext(ctx, `
		SELECT o.id, o.questionnaire_id, o.section, o.position, o.text, o.status,
		       SUM(CASE WHEN v.direction = 'upvote' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN v.direction = 'downvote' THEN 1 ELSE 0 END)
		FROM questionnaire_option o
		JOIN questionnaire q ON q.id = o.questionnaire_id
		LEFT JOIN vote v ON v.option_id = o.id`+f.where()+`
		GROUP BY o.id, o.questionnaire_id, o.section, o.position, o.text, o.status
		ORDER BY o.questionnaire_id, o.section, o.position
	`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query option tally: %w", err)
	}
	defer rows.Close()

	entries := []models.OptionTallyEntry{}
	for rows.Next() {
		var e models.OptionTallyEntry
		if err := rows.Scan(&e.OptionID, &e.QuestionnaireID, &e.Section, &e.Position, &e.Text, &e.Status,
			&e.Upvotes, &e.Downvotes); err != nil {
			return nil, fmt.Errorf("failed to scan option tally: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Upvotes != entries[j].Upvotes {
			return entries[i].Upvotes > entries[j].Upvotes
		}
		return slices.Index(options.Sections, entries[i].Section) < slices.Index(options.Sections, entries[j].Section)
	})
	return entries, nil
}

// GetTally handles GET /tally?dimension=
func (h *TallyHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	dimension := dimensionParam(r)

	result, err := ComputeTally(r.Context(), h.db, dimension)
	if err != nil {
		slog.Error("failed to compute tally", "error", err, "dimension", dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute tally")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, result)
}

// GetOptionTally handles GET /tally/options?dimension= (admin)
func (h *TallyHandler) GetOptionTally(w http.ResponseWriter, r *http.Request) {
	dimension := dimensionParam(r)

	entries, err := ComputeOptionTally(r.Context(), h.db, dimension)
	if err != nil {
		slog.Error("failed to compute option tally", "error", err, "dimension", dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute tally")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, entries)
}

// dimensionParam reads ?dimension=, defaulting to every dimension
func dimensionParam(r *http.Request) string {
	if d := r.URL.Query().Get("dimension"); d != "" {
		return d
	}
	return models.DimensionAll
}
