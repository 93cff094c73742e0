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
	"time"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/db"
	"github.com/danielhkuo/sistema-fic/export"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
)

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrClearConflict  = errors.New("data changed during clear, retry")
)

type ExportHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewExportHandler(db *sql.DB, cfg cliparse.Config) *ExportHandler {
	return &ExportHandler{db: db, cfg: cfg}
}

// Export handles GET /export?dimension=&format=json|csv&kind=options|votes (admin)
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	dimension := dimensionParam(r)

	payload, err := BuildPayload(r.Context(), h.db, dimension)
	if err != nil {
		slog.Error("failed to build export", "error", err, "dimension", dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export data")
		return
	}

	writePayload(w, r, payload, "fic-"+dimension+"-"+payload.ExportedAt.Format("20060102-150405"))
}

// Clear handles POST /export/clear (admin)
// Snapshots the data into a backup and deletes it.
func (h *ExportHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req models.ClearDataRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Dimension == "" {
		req.Dimension = models.DimensionAll
	}

	resp, err := ExportAndClear(r.Context(), h.db, req.Dimension)
	if errors.Is(err, ErrClearConflict) {
		slog.Warn("clear aborted", "error", err, "dimension", req.Dimension)
		middleware.ErrorResponse(w, http.StatusConflict, ErrClearConflict.Error())
		return
	}
	if err != nil {
		slog.Error("failed to clear data", "error", err, "dimension", req.Dimension)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to clear data")
		return
	}

	if admin, ok := middleware.AdminFromContext(r.Context()); ok {
		slog.Info("data cleared", "backup_id", resp.BackupID, "dimension", req.Dimension,
			"questionnaires", resp.QuestionnaireCount, "votes", resp.VoteCount, "admin", admin.Email)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ListBackups handles GET /backups (admin)
func (h *ExportHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, dimension, questionnaire_count, vote_count, LENGTH(payload), created_at
		FROM backup
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		slog.Error("failed to query backups", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	backups := []models.Backup{}
	for rows.Next() {
		var b models.Backup
		var size int
		if err := rows.Scan(&b.ID, &b.Dimension, &b.QuestionnaireCount, &b.VoteCount, &size, &b.CreatedAt); err != nil {
			slog.Error("failed to scan backup", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		b.Size = export.Size(size)
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read backups", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, backups)
}

// GetBackup handles GET /backups/{id}?format=json|csv (admin)
func (h *ExportHandler) GetBackup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	payload, err := LoadBackup(r.Context(), h.db, id)
	if errors.Is(err, ErrBackupNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to load backup", "error", err, "backup_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	writePayload(w, r, payload, "fic-backup-"+id)
}

// writePayload answers with JSON, or CSV when ?format=csv
func writePayload(w http.ResponseWriter, r *http.Request, p *models.BackupPayload, name string) {
	if r.URL.Query().Get("format") != "csv" {
		middleware.JSONResponse(w, http.StatusOK, p)
		return
	}

	render, suffix := export.OptionsCSV, "-options.csv"
	if r.URL.Query().Get("kind") == "votes" {
		render, suffix = export.VotesCSV, "-votes.csv"
	}
	body, err := render(p)
	if err != nil {
		slog.Error("failed to render CSV", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export data")
		return
	}
	writeDownload(w, "text/csv; charset=utf-8", name+suffix, body)
}

// BuildPayload collects questionnaires, votes and dimension locks for a dimension
func BuildPayload(ctx context.Context, db queryer, dimension string) (*models.BackupPayload, error) {
	qs, err := loadQuestionnairesWithOptions(ctx, db, dimension, "")
	if err != nil {
		return nil, err
	}
	votes, err := listVotes(ctx, db, dimension)
	if err != nil {
		return nil, err
	}
	locks, err := listDimensionVotes(ctx, db, dimension)
	if err != nil {
		return nil, err
	}
	return &models.BackupPayload{
		Dimension:      dimension,
		ExportedAt:     time.Now().UTC(),
		Questionnaires: qs,
		Votes:          votes,
		DimensionVotes: locks,
	}, nil
}

// ExportAndClear writes a backup of the dimension and deletes exactly the
// rows it captured, all in one transaction. The questionnaire rows are
// locked before the snapshot so no vote can land between the two.
func ExportAndClear(ctx context.Context, conn *sql.DB, dimension string) (*models.ClearDataResponse, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockQuestionnaires(ctx, tx, db.ForUpdate(conn), dimension); err != nil {
		return nil, err
	}

	payload, err := BuildPayload(ctx, tx, dimension)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	backupID := auth.NewID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO backup (id, dimension, payload, questionnaire_count, vote_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, backupID, dimension, string(raw), len(payload.Questionnaires), len(payload.Votes), time.Now())
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}

	if err := clearCaptured(ctx, tx, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear: %w", err)
	}

	return &models.ClearDataResponse{
		BackupID:           backupID,
		QuestionnaireCount: len(payload.Questionnaires),
		VoteCount:          len(payload.Votes),
	}, nil
}

// clearCaptured deletes the rows of p. Votes go per questionnaire, and a
// count that differs from the snapshot fails with ErrClearConflict so the
// caller rolls back instead of cascading away votes the backup lacks.
func clearCaptured(ctx context.Context, tx queryer, p *models.BackupPayload) error {
	captured := make(map[string]int64, len(p.Questionnaires))
	for _, v := range p.Votes {
		captured[v.QuestionnaireID]++
	}

	for _, q := range p.Questionnaires {
		res, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE questionnaire_id = $1`, q.ID)
		if err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("count deleted votes: %w", err)
		}
		if n != captured[q.ID] {
			return fmt.Errorf("%w: questionnaire %s had %d votes, backup holds %d",
				ErrClearConflict, q.ID, n, captured[q.ID])
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM questionnaire_option WHERE questionnaire_id = $1`, q.ID); err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questionnaire WHERE id = $1`, q.ID); err != nil {
			return fmt.Errorf("delete questionnaire: %w", err)
		}
	}

	for _, dv := range p.DimensionVotes {
		_, err := tx.ExecContext(ctx, `DELETE FROM dimension_vote WHERE voter_email = $1 AND dimension = $2`,
			dv.VoterEmail, dv.Dimension)
		if err != nil {
			return fmt.Errorf("delete dimension vote: %w", err)
		}
	}
	return nil
}

// LoadBackup decodes a stored backup payload
func LoadBackup(ctx context.Context, db queryer, id string) (*models.BackupPayload, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT payload FROM backup WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query backup: %w", err)
	}

	var p models.BackupPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", id, err)
	}
	return &p, nil
}
