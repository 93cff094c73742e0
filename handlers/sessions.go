// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/metrics"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
	"github.com/danielhkuo/sistema-fic/selection"
)

// SessionHandler keeps each voter's tentative picks in memory until they
// are confirmed. Sessions are addressed by an unguessable token.
type SessionHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	store *selection.Store
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config, store *selection.Store) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg, store: store}
}

// Create handles POST /voting/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		slog.Error("failed to generate session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	h.store.Put(token)
	metrics.ActiveSessions.Set(float64(h.store.Len()))

	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{
		SessionToken: token,
		Selections:   map[string]models.SectionChoices{},
	})
}

// Get handles GET /voting/sessions/{token}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	sel, ok := h.store.Get(token)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "session not found")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{
		SessionToken: token,
		Selections:   sel.All(),
	})
}

// Delete handles DELETE /voting/sessions/{token}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.store.Delete(r.PathValue("token"))
	metrics.ActiveSessions.Set(float64(h.store.Len()))
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /voting/sessions/{token}/toggle
// Selects an option, or deselects it when already selected.
func (h *SessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.store.Get(r.PathValue("token"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "session not found")
		return
	}

	var req models.ToggleSelectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !options.ValidSection(req.Section) {
		writeDomainError(w, selection.ErrInvalidSection, "toggle selection")
		return
	}
	if req.Index < 1 {
		writeDomainError(w, selection.ErrInvalidIndex, "toggle selection")
		return
	}

	// Deselecting never needs the option to exist; selecting does
	if !sel.IsSelected(req.QuestionnaireID, req.Section, req.Index) {
		var n int
		err := h.db.QueryRowContext(r.Context(), `
			SELECT COUNT(*) FROM questionnaire_option
			WHERE questionnaire_id = $1 AND section = $2 AND position = $3
		`, req.QuestionnaireID, req.Section, req.Index).Scan(&n)
		if err != nil {
			writeDomainError(w, err, "toggle selection")
			return
		}
		if n == 0 {
			middleware.ErrorResponse(w, http.StatusNotFound, "option not found")
			return
		}
	}

	selected, err := sel.Toggle(req.QuestionnaireID, req.Section, req.Index)
	if err != nil {
		writeDomainError(w, err, "toggle selection")
		return
	}

	counts := make(map[string]int, len(options.Sections))
	for _, section := range options.Sections {
		counts[section] = sel.Count(req.QuestionnaireID, section)
	}

	middleware.JSONResponse(w, http.StatusOK, models.ToggleSelectionResponse{
		Selected: selected,
		Counts:   counts,
		Complete: sel.IsComplete(req.QuestionnaireID),
	})
}

// Confirm handles POST /voting/sessions/{token}/confirm
// Records the session's selection for one questionnaire and clears it.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.store.Get(r.PathValue("token"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "session not found")
		return
	}

	var req models.ConfirmSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	choices := sel.Get(req.QuestionnaireID)
	if !selection.Complete(choices) {
		writeDomainError(w, ErrIncompleteSelection, "confirm selection")
		return
	}

	resp, err := submitBallot(r.Context(), h.db, ballot{
		QuestionnaireID: req.QuestionnaireID,
		Email:           req.Email,
		Choices:         choices,
		IPHash:          auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		writeDomainError(w, err, "confirm selection")
		return
	}

	sel.Clear(req.QuestionnaireID)
	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// Sweep drops sessions idle longer than the configured timeout
func (h *SessionHandler) Sweep() int {
	removed := h.store.Sweep(h.cfg.SessionIdleTimeout)
	metrics.ActiveSessions.Set(float64(h.store.Len()))
	if removed > 0 {
		slog.Info("expired voting sessions", "removed", removed)
	}
	return removed
}
