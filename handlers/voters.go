// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/export"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
)

const maxImportSize = 5 << 20

type VoterHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVoterHandler(db *sql.DB, cfg cliparse.Config) *VoterHandler {
	return &VoterHandler{db: db, cfg: cfg}
}

// List handles GET /voters (admin). ?format=csv downloads the list.
func (h *VoterHandler) List(w http.ResponseWriter, r *http.Request) {
	voters, err := ListVoters(r.Context(), h.db)
	if err != nil {
		slog.Error("failed to list voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		body, err := export.VotersCSV(voters)
		if err != nil {
			slog.Error("failed to render voters CSV", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export voters")
			return
		}
		writeDownload(w, "text/csv; charset=utf-8", "registered-voters.csv", body)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, voters)
}

// Add handles POST /voters (admin)
func (h *VoterHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.AddVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email, err := normalizeVoterEmail(req.Email)
	if err != nil {
		writeDomainError(w, err, "add voter")
		return
	}

	v := models.RegisteredVoter{Email: email, Name: strings.TrimSpace(req.Name), CreatedAt: time.Now()}
	if err := UpsertVoter(r.Context(), h.db, v); err != nil {
		slog.Error("failed to add voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add voter")
		return
	}

	slog.Info("voter registered", "email", email)
	middleware.JSONResponse(w, http.StatusCreated, v)
}

// Delete handles DELETE /voters/{email} (admin)
func (h *VoterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email, err := normalizeVoterEmail(r.PathValue("email"))
	if err != nil {
		writeDomainError(w, err, "delete voter")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM registered_voter WHERE email = $1`, email)
	if err != nil {
		slog.Error("failed to delete voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "voter not found")
		return
	}

	slog.Info("voter removed", "email", email)
	w.WriteHeader(http.StatusNoContent)
}

// Check handles GET /voters/check?email=
// Public: the voting form asks before showing the ballot.
func (h *VoterHandler) Check(w http.ResponseWriter, r *http.Request) {
	email, err := normalizeVoterEmail(r.URL.Query().Get("email"))
	if err != nil {
		writeDomainError(w, err, "check voter")
		return
	}

	ok, err := isRegistered(r.Context(), h.db, email)
	if err != nil {
		writeDomainError(w, err, "check voter")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoterCheckResponse{Email: email, Registered: ok})
}

// Import handles POST /voters/import (admin)
// Accepts a name,email CSV either as the raw body or as multipart field "file".
func (h *VoterHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "multipart field 'file' is required")
			return
		}
		defer file.Close()
		src = file
	}

	voters, skipped, err := export.ParseVoters(src)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	imported, err := ImportVoters(r.Context(), h.db, voters)
	if err != nil {
		slog.Error("failed to import voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import voters")
		return
	}

	slog.Info("voters imported", "imported", imported, "skipped", skipped)
	middleware.JSONResponse(w, http.StatusOK, models.ImportVotersResponse{Imported: imported, Skipped: skipped})
}

// ListVoters returns the registered voters ordered by email
func ListVoters(ctx context.Context, db *sql.DB) ([]models.RegisteredVoter, error) {
	rows, err := db.QueryContext(ctx, `SELECT email, name, created_at FROM registered_voter ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query voters: %w", err)
	}
	defer rows.Close()

	voters := []models.RegisteredVoter{}
	for rows.Next() {
		var v models.RegisteredVoter
		if err := rows.Scan(&v.Email, &v.Name, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

// UpsertVoter inserts a voter or updates the name of an existing one
func UpsertVoter(ctx context.Context, db queryer, v models.RegisteredVoter) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO registered_voter (email, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET name = excluded.name
	`, v.Email, v.Name, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert voter: %w", err)
	}
	return nil
}

// ImportVoters upserts every voter in one transaction and returns how many were written
func ImportVoters(ctx context.Context, db *sql.DB, voters []models.RegisteredVoter) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, v := range voters {
		v.CreatedAt = now
		if err := UpsertVoter(ctx, tx, v); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(voters), nil
}

func writeDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write download", "error", err)
	}
}
