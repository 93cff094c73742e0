// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/sistema-fic/ai"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/handlers"
	"github.com/danielhkuo/sistema-fic/metrics"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/selection"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, sessions *selection.Store) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	questionnaireHandler := handlers.NewQuestionnaireHandler(db, cfg)
	voteHandler := handlers.NewVoteHandler(db, cfg)
	sessionHandler := handlers.NewSessionHandler(db, cfg, sessions)
	tallyHandler := handlers.NewTallyHandler(db, cfg)
	voterHandler := handlers.NewVoterHandler(db, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg)
	exportHandler := handlers.NewExportHandler(db, cfg)
	aiHandler := handlers.NewAIHandler(db, cfg, ai.New(cfg.AI))
	adminHandler := handlers.NewAdminHandler(db, cfg)

	public := middleware.WithLogging
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.JWTSecret, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Questionnaires (submission form is public)
	mux.HandleFunc("POST /questionnaires", public(questionnaireHandler.Create))
	mux.HandleFunc("GET /questionnaires", public(questionnaireHandler.List))
	mux.HandleFunc("GET /questionnaires/{id}", public(questionnaireHandler.Get))
	mux.HandleFunc("PATCH /questionnaires/{id}/status", admin(questionnaireHandler.UpdateStatus))
	mux.HandleFunc("PATCH /questionnaires/{id}/options/{section}/{index}", admin(questionnaireHandler.UpdateOptionStatus))
	mux.HandleFunc("GET /dimensions", public(questionnaireHandler.Dimensions))

	// Voting (public)
	mux.HandleFunc("POST /questionnaires/{id}/votes", public(voteHandler.Submit))
	mux.HandleFunc("GET /voting/status", public(voteHandler.Status))
	mux.HandleFunc("POST /voting/sessions", public(sessionHandler.Create))
	mux.HandleFunc("GET /voting/sessions/{token}", public(sessionHandler.Get))
	mux.HandleFunc("DELETE /voting/sessions/{token}", public(sessionHandler.Delete))
	mux.HandleFunc("POST /voting/sessions/{token}/toggle", public(sessionHandler.Toggle))
	mux.HandleFunc("POST /voting/sessions/{token}/confirm", public(sessionHandler.Confirm))

	// Results
	mux.HandleFunc("GET /tally", public(tallyHandler.GetTally))
	mux.HandleFunc("GET /tally/options", admin(tallyHandler.GetOptionTally))
	mux.HandleFunc("GET /analytics", admin(analyticsHandler.GetAnalytics))

	// Registered voters
	mux.HandleFunc("GET /voters/check", public(voterHandler.Check))
	mux.HandleFunc("GET /voters", admin(voterHandler.List))
	mux.HandleFunc("POST /voters", admin(voterHandler.Add))
	mux.HandleFunc("POST /voters/import", admin(voterHandler.Import))
	mux.HandleFunc("DELETE /voters/{email}", admin(voterHandler.Delete))

	// Export and backups
	mux.HandleFunc("GET /export", admin(exportHandler.Export))
	mux.HandleFunc("POST /export/clear", admin(exportHandler.Clear))
	mux.HandleFunc("GET /backups", admin(exportHandler.ListBackups))
	mux.HandleFunc("GET /backups/{id}", admin(exportHandler.GetBackup))

	// AI reports
	mux.HandleFunc("POST /ai/analysis", admin(aiHandler.Analysis))
	mux.HandleFunc("POST /ai/report", admin(aiHandler.Report))
	mux.HandleFunc("POST /ai/group", admin(aiHandler.Group))
	mux.HandleFunc("GET /reports", admin(aiHandler.ListReports))
	mux.HandleFunc("GET /reports/{id}", admin(aiHandler.GetReport))

	// Admin authentication
	mux.HandleFunc("POST /auth/login", public(adminHandler.Login))
	mux.HandleFunc("GET /auth/me", admin(adminHandler.Me))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sistema-fic API v1"))
	})

	return mux
}
