// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
)

type AnalyticsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAnalyticsHandler(db *sql.DB, cfg cliparse.Config) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, cfg: cfg}
}

// GetAnalytics handles GET /analytics?dimension= (admin)
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	dimension := dimensionParam(r)

	resp, err := ComputeAnalytics(r.Context(), h.db, dimension)
	if err != nil {
		slog.Error("failed to compute analytics", "error", err, "dimension", dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ComputeAnalytics gathers dashboard figures for one dimension or "all"
func ComputeAnalytics(ctx context.Context, db *sql.DB, dimension string) (*models.AnalyticsResponse, error) {
	resp := &models.AnalyticsResponse{
		Dimension: dimension,
		ByStatus: map[string]int{
			models.StatusPending:   0,
			models.StatusActive:    0,
			models.StatusCompleted: 0,
		},
	}

	qf := questionnaireFilter("", dimension, "")
	byStatus, err := countBy(ctx, db,
		`SELECT status, COUNT(*) FROM questionnaire`+qf.where()+` GROUP BY status`, qf.args...)
	if err != nil {
		return nil, err
	}
	for status, n := range byStatus {
		resp.ByStatus[status] = n
		resp.Questionnaires += n
	}

	questionnaires, err := countBy(ctx, db, `SELECT dimension, COUNT(*) FROM questionnaire GROUP BY dimension`)
	if err != nil {
		return nil, err
	}
	votes, err := countBy(ctx, db, `
		SELECT q.dimension, COUNT(*)
		FROM vote v
		JOIN questionnaire q ON q.id = v.questionnaire_id
		GROUP BY q.dimension
	`)
	if err != nil {
		return nil, err
	}
	voters, err := countBy(ctx, db, `SELECT dimension, COUNT(*) FROM dimension_vote GROUP BY dimension`)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool)
	for _, m := range []map[string]int{questionnaires, votes, voters} {
		for k := range m {
			keys[k] = true
		}
	}
	resp.PerDimension = []models.DimensionStats{}
	for k := range keys {
		resp.PerDimension = append(resp.PerDimension, models.DimensionStats{
			Dimension:      k,
			Questionnaires: questionnaires[k],
			Votes:          votes[k],
			Voters:         voters[k],
		})
	}
	sort.Slice(resp.PerDimension, func(i, j int) bool {
		return resp.PerDimension[i].Dimension < resp.PerDimension[j].Dimension
	})

	if dimension == models.DimensionAll {
		for _, n := range votes {
			resp.Votes += n
		}
		// distinct people who voted in any dimension
		if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT voter_email) FROM dimension_vote`).Scan(&resp.Voters); err != nil {
			return nil, fmt.Errorf("count voters: %w", err)
		}
	} else {
		resp.Votes = votes[dimension]
		resp.Voters = voters[dimension]
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registered_voter`).Scan(&resp.Registered); err != nil {
		return nil, fmt.Errorf("count registered voters: %w", err)
	}
	if resp.Registered > 0 {
		resp.Participation = float64(resp.Voters) / float64(resp.Registered)
	}

	resp.Tally, err = ComputeTally(ctx, db, dimension)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// countBy runs a "SELECT key, COUNT(*) ... GROUP BY key" query
func countBy(ctx context.Context, db queryer, query string, args ...any) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}
