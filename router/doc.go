// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Sistema FIC API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints. The
selection store is passed in so the caller can sweep idle sessions:

	store := selection.NewStore()
	mux := router.NewRouter(db, cfg, store)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Questionnaires:

	POST  /questionnaires                                - Submit feedback (public)
	GET   /questionnaires                                - List with options
	GET   /questionnaires/{id}                           - One questionnaire
	PATCH /questionnaires/{id}/status                    - Set status (admin)
	PATCH /questionnaires/{id}/options/{section}/{index} - Moderate option (admin)
	GET   /dimensions                                    - Dimension catalogue

Voting (public):

	POST   /questionnaires/{id}/votes        - Submit 3/3/3 selection
	GET    /voting/status                    - Has email voted in dimension
	POST   /voting/sessions                  - Start selection session
	GET    /voting/sessions/{token}          - Current selection
	DELETE /voting/sessions/{token}          - Drop session
	POST   /voting/sessions/{token}/toggle   - Select or deselect option
	POST   /voting/sessions/{token}/confirm  - Record selection

Results:

	GET /tally          - Index-keyed tally (public)
	GET /tally/options  - Per-option tally (admin)
	GET /analytics      - Dashboard figures (admin)

Voters (admin unless noted):

	GET    /voters/check   - Is email registered (public)
	GET    /voters         - List, ?format=csv to download
	POST   /voters         - Add or rename
	POST   /voters/import  - CSV import
	DELETE /voters/{email} - Remove

Export, backups and AI reports (admin):

	GET  /export, POST /export/clear
	GET  /backups, GET /backups/{id}
	POST /ai/analysis, POST /ai/report, POST /ai/group
	GET  /reports, GET /reports/{id}

Admin authentication:

	POST /auth/login - Exchange email and password for a bearer token
	GET  /auth/me    - Token owner (admin)

Admin routes are wrapped in middleware.RequireAdmin and answer 401 without
a valid "Authorization: Bearer" token.
*/
package router
