// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /tally", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms), and records the request in the fic_http_* metrics under the
matched route pattern.

# Admin Routes

	mux.HandleFunc("POST /questionnaires",
		middleware.WithLogging(middleware.RequireAdmin(cfg.JWTSecret, h.Create)))

RequireAdmin expects "Authorization: Bearer <jwt>" and answers 401 with a
JSON error otherwise. Handlers read the caller with AdminFromContext.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PATCH, DELETE, OPTIONS with headers
Content-Type and Authorization.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.SubmitVotesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Handles X-Forwarded-For and X-Real-IP. Only the salted hash of the IP is
stored with votes.
*/
package middleware
