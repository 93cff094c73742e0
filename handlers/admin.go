// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/db"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrAdminExists    = errors.New("admin already exists")
)

type AdminHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

// Login handles POST /auth/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var id, hash string
	err = h.db.QueryRowContext(r.Context(), `
		SELECT id, password_hash FROM admin_user WHERE email = $1
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		// same answer as a wrong password
		slog.Warn("admin login failed", "email", email, "ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}
	if err != nil {
		slog.Error("failed to query admin", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(req.Password, hash); err != nil {
		slog.Warn("admin login failed", "email", email, "ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, ErrBadCredentials.Error())
		return
	}

	token, expiresAt, err := auth.SignAdminToken(id, email, h.cfg.JWTSecret, h.cfg.AdminTokenTTL)
	if err != nil {
		slog.Error("failed to sign admin token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign token")
		return
	}

	slog.Info("admin logged in", "admin_id", id, "email", email)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Me handles GET /auth/me (admin)
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]any{
		"admin_id":   claims.AdminID,
		"email":      claims.Email,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// CreateAdmin stores a new administrator with a bcrypt-hashed password
func CreateAdmin(ctx context.Context, conn *sql.DB, email, password string) (string, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	id := auth.NewID()
	_, err = conn.ExecContext(ctx, `
		INSERT INTO admin_user (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, email, hash, time.Now())
	if db.IsUniqueViolation(err) {
		return "", ErrAdminExists
	}
	if err != nil {
		return "", fmt.Errorf("insert admin: %w", err)
	}
	return id, nil
}
