// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/danielhkuo/sistema-fic/ai"
	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/metrics"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

var ErrReportNotFound = errors.New("report not found")

// AIHandler serves the model-backed analysis endpoints. Counts and tallies
// are always computed locally; the model only writes prose and groupings.
type AIHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	client *ai.Client
}

func NewAIHandler(db *sql.DB, cfg cliparse.Config, client *ai.Client) *AIHandler {
	return &AIHandler{db: db, cfg: cfg, client: client}
}

type reportResponse struct {
	ReportID string     `json:"report_id"`
	Report   *ai.Report `json:"report"`
}

// Analysis handles POST /ai/analysis (admin)
// Analyzes live data, or the given backups when backup_ids is set.
func (h *AIHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Dimension == "" {
		req.Dimension = models.DimensionAll
	}

	qs, votes, err := h.source(r.Context(), req.Dimension, req.BackupIDs)
	if errors.Is(err, ErrBackupNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to load analysis data", "error", err, "dimension", req.Dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	in := ai.Input{Dimension: req.Dimension, Questionnaires: qs, Tally: TallyFrom(req.Dimension, qs, votes)}
	system, user := ai.AnalysisPrompt(in)
	content, ok := h.complete(w, r, models.ReportAnalysis, system, user)
	if !ok {
		return
	}

	id, err := saveReport(r.Context(), h.db, models.ReportAnalysis, req.Dimension, content)
	if err != nil {
		slog.Error("failed to save report", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AnalysisResponse{
		ReportID: id,
		Analysis: content,
		Metrics:  analysisMetrics(qs, votes),
	})
}

// Report handles POST /ai/report (admin)
func (h *AIHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Dimension == "" {
		req.Dimension = models.DimensionAll
	}

	qs, votes, err := h.source(r.Context(), req.Dimension, nil)
	if err != nil {
		slog.Error("failed to load report data", "error", err, "dimension", req.Dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	in := ai.Input{Dimension: req.Dimension, Questionnaires: qs, Tally: TallyFrom(req.Dimension, qs, votes)}
	system, user := ai.ReportPrompt(in)
	content, ok := h.complete(w, r, models.ReportConsolidated, system, user)
	if !ok {
		return
	}

	report, err := ai.ParseReport(content)
	if err != nil {
		slog.Warn("unparseable report from model", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "AI returned an invalid report")
		return
	}

	raw, _ := json.Marshal(report)
	id, err := saveReport(r.Context(), h.db, models.ReportConsolidated, req.Dimension, string(raw))
	if err != nil {
		slog.Error("failed to save report", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, reportResponse{ReportID: id, Report: report})
}

// Group handles POST /ai/group (admin)
// Clusters the options of one section and sums their upvotes per cluster.
func (h *AIHandler) Group(w http.ResponseWriter, r *http.Request) {
	var req models.GroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Dimension == "" {
		req.Dimension = models.DimensionAll
	}
	if !slices.Contains(options.Sections, req.Section) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "section must be strengths, challenges or opportunities")
		return
	}

	entries, err := ComputeOptionTally(r.Context(), h.db, req.Dimension)
	if err != nil {
		slog.Error("failed to load options", "error", err, "dimension", req.Dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	var items []models.OptionTallyEntry
	for _, e := range entries {
		if e.Section == req.Section {
			items = append(items, e)
		}
	}
	if len(items) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "no options to group")
		return
	}

	texts := make([]string, len(items))
	for i, e := range items {
		texts[i] = e.Text
	}
	system, user := ai.GroupPrompt(req.Dimension, req.Section, texts)
	content, ok := h.complete(w, r, models.ReportGrouping, system, user)
	if !ok {
		return
	}

	groups, err := ai.ParseGroups(content, len(items))
	if err != nil {
		slog.Warn("unparseable groups from model", "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "AI returned invalid groups")
		return
	}

	resp := models.GroupResponse{
		Dimension: req.Dimension,
		Section:   req.Section,
		Groups:    groupEntries(groups, items),
	}
	raw, _ := json.Marshal(resp.Groups)
	resp.ReportID, err = saveReport(r.Context(), h.db, models.ReportGrouping, req.Dimension, string(raw))
	if err != nil {
		slog.Error("failed to save report", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ListReports handles GET /reports?dimension=&kind= (admin)
func (h *AIHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	f := &filter{}
	if d := r.URL.Query().Get("dimension"); d != "" && d != models.DimensionAll {
		f.add("dimension = ?", d)
	}
	if k := r.URL.Query().Get("kind"); k != "" {
		f.add("kind = ?", k)
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, kind, dimension, content, created_at
		FROM report`+f.where()+`
		ORDER BY created_at DESC, id
	`, f.args...)
	if err != nil {
		slog.Error("failed to query reports", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.Kind, &rep.Dimension, &rep.Content, &rep.CreatedAt); err != nil {
			slog.Error("failed to scan report", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read reports", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, reports)
}

// GetReport handles GET /reports/{id} (admin)
func (h *AIHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var rep models.Report
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, kind, dimension, content, created_at FROM report WHERE id = $1
	`, id).Scan(&rep.ID, &rep.Kind, &rep.Dimension, &rep.Content, &rep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, ErrReportNotFound.Error())
		return
	}
	if err != nil {
		slog.Error("failed to query report", "error", err, "report_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, rep)
}

// complete calls the model and writes the error response on failure
func (h *AIHandler) complete(w http.ResponseWriter, r *http.Request, kind, system, user string) (string, bool) {
	if h.client == nil || !h.client.Enabled() {
		metrics.AIRequests.WithLabelValues(kind, "disabled").Inc()
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return "", false
	}

	start := time.Now()
	content, err := h.client.Complete(r.Context(), system, user)
	if err != nil {
		metrics.AIRequests.WithLabelValues(kind, "error").Inc()
		slog.Error("ai completion failed", "error", err, "kind", kind, "transient", ai.IsTransient(err))
		middleware.ErrorResponse(w, http.StatusBadGateway, "AI request failed")
		return "", false
	}
	metrics.AIRequests.WithLabelValues(kind, "ok").Inc()
	slog.Info("ai completion", "kind", kind, "duration", time.Since(start), "chars", len(content))
	return content, true
}

// source loads questionnaires and votes for a dimension, from live tables
// or from the listed backups.
func (h *AIHandler) source(ctx context.Context, dimension string, backupIDs []string) ([]models.Questionnaire, []models.Vote, error) {
	if len(backupIDs) == 0 {
		qs, err := loadQuestionnairesWithOptions(ctx, h.db, dimension, "")
		if err != nil {
			return nil, nil, err
		}
		votes, err := listVotes(ctx, h.db, dimension)
		if err != nil {
			return nil, nil, err
		}
		return qs, votes, nil
	}

	var qs []models.Questionnaire
	var votes []models.Vote
	for _, id := range backupIDs {
		p, err := LoadBackup(ctx, h.db, id)
		if err != nil {
			return nil, nil, fmt.Errorf("backup %s: %w", id, err)
		}
		for _, q := range p.Questionnaires {
			if dimension == models.DimensionAll || q.Dimension == dimension {
				qs = append(qs, q)
			}
		}
		votes = append(votes, p.Votes...)
	}
	return qs, votes, nil
}

func analysisMetrics(qs []models.Questionnaire, votes []models.Vote) map[string]int {
	m := map[string]int{"questionnaires": len(qs)}

	inScope := make(map[string]bool, len(qs))
	for i := range qs {
		inScope[qs[i].ID] = true
		for section, opts := range options.SplitAll(&qs[i]) {
			m[section] += len(opts)
		}
	}

	voters := make(map[string]bool)
	for _, v := range votes {
		if !inScope[v.QuestionnaireID] {
			continue
		}
		m["votes"]++
		if v.VoterEmail != nil {
			voters[*v.VoterEmail] = true
		}
	}
	m["voters"] = len(voters)
	return m
}

func groupEntries(groups []ai.Group, items []models.OptionTallyEntry) []models.GroupEntry {
	out := make([]models.GroupEntry, 0, len(groups))
	for _, g := range groups {
		e := models.GroupEntry{Label: g.Label}
		for _, m := range g.Members {
			e.Items = append(e.Items, items[m-1].Text)
			e.Votes += items[m-1].Upvotes
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	return out
}

func saveReport(ctx context.Context, db queryer, kind, dimension, content string) (string, error) {
	id := auth.NewID()
	_, err := db.ExecContext(ctx, `
		INSERT INTO report (id, kind, dimension, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, kind, dimension, content, time.Now())
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}
