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
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

type QuestionnaireHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewQuestionnaireHandler(db *sql.DB, cfg cliparse.Config) *QuestionnaireHandler {
	return &QuestionnaireHandler{db: db, cfg: cfg}
}

// Create handles POST /questionnaires
func (h *QuestionnaireHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionnaireRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		if middleware.BodyTooLarge(err) {
			middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Dimension = strings.TrimSpace(req.Dimension)
	if req.Dimension == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "dimension is required")
		return
	}
	if !h.cfg.HasDimension(req.Dimension) {
		middleware.ErrorResponse(w, http.StatusBadRequest, ErrInvalidDimension.Error())
		return
	}

	q := models.Questionnaire{
		ID:            auth.NewID(),
		Dimension:     req.Dimension,
		Group:         strings.TrimSpace(req.Group),
		Strengths:     req.Strengths,
		Challenges:    req.Challenges,
		Opportunities: req.Opportunities,
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
	}

	split := options.SplitAll(&q)
	total := 0
	counts := make(map[string]int, len(split))
	for section, opts := range split {
		counts[section] = len(opts)
		total += len(opts)
	}
	if total == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one section must have content")
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if err := insertQuestionnaire(r.Context(), tx, &q, split); err != nil {
		slog.Error("failed to insert questionnaire", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create questionnaire")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create questionnaire")
		return
	}

	slog.Info("questionnaire created", "questionnaire_id", q.ID, "dimension", q.Dimension, "options", total)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateQuestionnaireResponse{
		QuestionnaireID: q.ID,
		OptionCounts:    counts,
	})
}

// insertQuestionnaire stores a questionnaire row and one row per split option
func insertQuestionnaire(ctx context.Context, tx queryer, q *models.Questionnaire, split map[string][]string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO questionnaire (id, dimension, group_name, strengths, challenges, opportunities, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, q.ID, q.Dimension, q.Group, q.Strengths, q.Challenges, q.Opportunities, q.Status, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert questionnaire: %w", err)
	}

	for _, section := range options.Sections {
		for i, text := range split[section] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO questionnaire_option (id, questionnaire_id, section, position, text, status)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, auth.NewID(), q.ID, section, i+1, text, models.StatusPending)
			if err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}
	return nil
}

// List handles GET /questionnaires?dimension=&status=
func (h *QuestionnaireHandler) List(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	status := r.URL.Query().Get("status")
	if status != "" && !validStatus(status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid status")
		return
	}

	list, err := loadQuestionnairesWithOptions(r.Context(), h.db, dimension, status)
	if err != nil {
		slog.Error("failed to list questionnaires", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, list)
}

// Get handles GET /questionnaires/{id}
func (h *QuestionnaireHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := getQuestionnaire(r.Context(), h.db, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, "get questionnaire")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, q)
}

// UpdateStatus handles PATCH /questionnaires/{id}/status (admin)
func (h *QuestionnaireHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.UpdateStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !validStatus(req.Status) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "status must be pending, active or completed")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `UPDATE questionnaire SET status = $1 WHERE id = $2`, req.Status, id)
	if err != nil {
		slog.Error("failed to update questionnaire status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}

	slog.Info("questionnaire status updated", "questionnaire_id", id, "status", req.Status)

	q, err := getQuestionnaire(r.Context(), h.db, id)
	if err != nil {
		writeDomainError(w, err, "get questionnaire")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, q)
}

// UpdateOptionStatus handles PATCH /questionnaires/{id}/options/{section}/{index} (admin)
func (h *QuestionnaireHandler) UpdateOptionStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	section := r.PathValue("section")
	if !options.ValidSection(section) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid section")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "index must be a positive integer")
		return
	}

	var req models.UpdateStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Status != models.StatusPending && req.Status != models.StatusActive {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option status must be pending or active")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE questionnaire_option SET status = $1
		WHERE questionnaire_id = $2 AND section = $3 AND position = $4
	`, req.Status, id, section, index)
	if err != nil {
		slog.Error("failed to update option status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "option not found")
		return
	}

	q, err := getQuestionnaire(r.Context(), h.db, id)
	if err != nil {
		writeDomainError(w, err, "get questionnaire")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, q)
}

// Dimensions handles GET /dimensions
// Returns the configured catalogue followed by any other dimension found in data.
func (h *QuestionnaireHandler) Dimensions(w http.ResponseWriter, r *http.Request) {
	dims := append([]models.Dimension{}, h.cfg.Dimensions...)
	known := make(map[string]bool, len(dims))
	for _, d := range dims {
		known[d.Key] = true
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT dimension FROM questionnaire
		UNION
		SELECT dimension FROM dimension_vote
	`)
	if err != nil {
		slog.Error("failed to query dimensions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var extra []models.Dimension
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			slog.Error("failed to scan dimension", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if !known[key] {
			known[key] = true
			extra = append(extra, models.Dimension{Key: key, Label: key})
		}
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read dimensions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Key < extra[j].Key })

	middleware.JSONResponse(w, http.StatusOK, append(dims, extra...))
}

func validStatus(s string) bool {
	return s == models.StatusPending || s == models.StatusActive || s == models.StatusCompleted
}
