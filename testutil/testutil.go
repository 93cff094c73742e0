// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/db"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

// TestJWTSecret signs admin tokens in tests
const TestJWTSecret = "test-jwt-secret"

// base time for fixtures; each fixture gets a later timestamp so creation order is stable
var (
	fixtureBase = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	fixtureSeq  atomic.Int64
)

// NextTimestamp returns a strictly increasing timestamp for fixture rows
func NextTimestamp() time.Time {
	return fixtureBase.Add(time.Duration(fixtureSeq.Add(1)) * time.Second)
}

// SetupTestDB creates a fresh SQLite database file with the full schema.
// The file lives in t.TempDir and is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, filepath.Join(t.TempDir(), "fic.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         8080,
		DatabaseType: cliparse.DatabaseSQLite,
		JWTSecret:    TestJWTSecret,
		IPHashSalt:   "test-ip-salt",
		Dimensions: []models.Dimension{
			{Key: "governanca", Label: "Governança"},
			{Key: "educacao", Label: "Educação"},
		},
		SessionIdleTimeout: time.Hour,
		AdminTokenTTL:      time.Hour,
	}
}

// CreateTestQuestionnaire stores a questionnaire with its split options and
// returns its ID
func CreateTestQuestionnaire(t *testing.T, conn *sql.DB, dimension, strengths, challenges, opportunities string) string {
	t.Helper()

	id := auth.NewID()
	created := NextTimestamp()
	_, err := conn.Exec(`
		INSERT INTO questionnaire (id, dimension, group_name, strengths, challenges, opportunities, status, created_at)
		VALUES ($1, $2, 'Test Group', $3, $4, $5, $6, $7)
	`, id, dimension, strengths, challenges, opportunities, models.StatusPending, created)
	if err != nil {
		t.Fatalf("Failed to create test questionnaire: %v", err)
	}

	texts := map[string]string{
		models.SectionStrengths:     strengths,
		models.SectionChallenges:    challenges,
		models.SectionOpportunities: opportunities,
	}
	for _, section := range options.Sections {
		for i, text := range options.Split(texts[section]) {
			_, err := conn.Exec(`
				INSERT INTO questionnaire_option (id, questionnaire_id, section, position, text, status)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, auth.NewID(), id, section, i+1, text, models.StatusPending)
			if err != nil {
				t.Fatalf("Failed to create test option: %v", err)
			}
		}
	}

	return id
}

// CreateFullQuestionnaire stores a questionnaire with three options in every section
func CreateFullQuestionnaire(t *testing.T, conn *sql.DB, dimension string) string {
	t.Helper()
	return CreateTestQuestionnaire(t, conn, dimension,
		"Forte 1\nForte 2\nForte 3",
		"Desafio 1\nDesafio 2\nDesafio 3",
		"Oportunidade 1\nOportunidade 2\nOportunidade 3",
	)
}

// RegisterTestVoter adds an email to the registered voter list
func RegisterTestVoter(t *testing.T, conn *sql.DB, email string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO registered_voter (email, name, created_at)
		VALUES ($1, 'Test Voter', $2)
	`, email, NextTimestamp())
	if err != nil {
		t.Fatalf("Failed to register test voter: %v", err)
	}
}

// CastTestVote inserts a single vote row directly, bypassing submission rules
func CastTestVote(t *testing.T, conn *sql.DB, questionnaireID, section string, index int, direction string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO vote (id, questionnaire_id, section, option_index, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, auth.NewID(), questionnaireID, section, index, direction, NextTimestamp())
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
}

// CountRows returns the row count of a table, optionally filtered
func CountRows(t *testing.T, conn *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// CreateTestAdmin stores an admin user and returns its ID
func CreateTestAdmin(t *testing.T, conn *sql.DB, email, password string) string {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	id := auth.NewID()
	_, err = conn.Exec(`
		INSERT INTO admin_user (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, email, hash, NextTimestamp())
	if err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}
	return id
}

// AdminHeaders returns request headers carrying a valid admin bearer token
func AdminHeaders(t *testing.T, cfg cliparse.Config) map[string]string {
	t.Helper()

	token, _, err := auth.SignAdminToken("test-admin", "admin@coop.com", cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign admin token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// FullSelection picks options 1-3 in every section
func FullSelection() models.SectionChoices {
	return models.SectionChoices{
		Strengths:     []int{1, 2, 3},
		Challenges:    []int{1, 2, 3},
		Opportunities: []int{1, 2, 3},
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
