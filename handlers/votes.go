// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/db"
	"github.com/danielhkuo/sistema-fic/metrics"
	"github.com/danielhkuo/sistema-fic/middleware"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
	"github.com/danielhkuo/sistema-fic/selection"
)

type VoteHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVoteHandler(db *sql.DB, cfg cliparse.Config) *VoteHandler {
	return &VoteHandler{db: db, cfg: cfg}
}

// ballot is one confirmed selection ready to be recorded
type ballot struct {
	QuestionnaireID string
	Email           string
	Choices         models.SectionChoices
	IPHash          string
	UserAgent       string
}

// Submit handles POST /questionnaires/{id}/votes
func (h *VoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVotesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := submitBallot(r.Context(), h.db, ballot{
		QuestionnaireID: r.PathValue("id"),
		Email:           req.Email,
		Choices:         req.Selections,
		IPHash:          auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt),
		UserAgent:       r.UserAgent(),
	})
	if err != nil {
		writeDomainError(w, err, "submit votes")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// Status handles GET /voting/status?email=&dimension=
func (h *VoteHandler) Status(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "dimension is required")
		return
	}
	email, err := normalizeVoterEmail(r.URL.Query().Get("email"))
	if err != nil {
		writeDomainError(w, err, "voting status")
		return
	}

	voted, err := hasVoted(r.Context(), h.db, email, dimension)
	if err != nil {
		writeDomainError(w, err, "voting status")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VotingStatusResponse{
		Email:     email,
		Dimension: dimension,
		HasVoted:  voted,
	})
}

func normalizeVoterEmail(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmailRequired
	}
	return auth.NormalizeEmail(raw)
}

// validateChoices checks that every section holds exactly 3 distinct indices >= 1
func validateChoices(c models.SectionChoices) error {
	bySection := selection.BySection(c)
	for _, section := range options.Sections {
		picks := bySection[section]
		if len(picks) != selection.MaxPerSection {
			return fmt.Errorf("%w (%s has %d)", ErrIncompleteSelection, section, len(picks))
		}
		seen := make(map[int]bool, len(picks))
		for _, idx := range picks {
			if idx < 1 {
				return fmt.Errorf("%w: %s #%d", ErrIndexOutOfRange, section, idx)
			}
			if seen[idx] {
				return fmt.Errorf("%w: %s #%d", ErrDuplicateIndex, section, idx)
			}
			seen[idx] = true
		}
	}
	return nil
}

// submitBallot records a confirmed selection. Checks run in order:
// input validation and voter registration, then inside one transaction the
// questionnaire lookup (row-locked), option range, the dimension lock, the
// vote rows and the questionnaire status. A voter who already holds the
// dimension lock gets ErrAlreadyVoted and nothing is written.
func submitBallot(ctx context.Context, conn *sql.DB, b ballot) (*models.SubmitVotesResponse, error) {
	email, err := normalizeVoterEmail(b.Email)
	if err != nil {
		return nil, err
	}
	if err := validateChoices(b.Choices); err != nil {
		return nil, err
	}

	registered, err := isRegistered(ctx, conn, email)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, ErrNotRegistered
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Waits out a concurrent clear; a cleared questionnaire is ErrNotFound
	if err := lockQuestionnaire(ctx, tx, db.ForUpdate(conn), b.QuestionnaireID); err != nil {
		return nil, err
	}
	q, err := getQuestionnaire(ctx, tx, b.QuestionnaireID)
	if err != nil {
		return nil, err
	}

	// section -> position -> option id
	optionIDs := make(map[string]map[int]string)
	for _, o := range q.Options {
		if optionIDs[o.Section] == nil {
			optionIDs[o.Section] = make(map[int]string)
		}
		optionIDs[o.Section][o.Position] = o.ID
	}
	picks := selection.BySection(b.Choices)
	for _, section := range options.Sections {
		for _, idx := range picks[section] {
			if _, ok := optionIDs[section][idx]; !ok {
				return nil, fmt.Errorf("%w: %s #%d", ErrIndexOutOfRange, section, idx)
			}
		}
	}

	voted, err := hasVoted(ctx, tx, email, q.Dimension)
	if err != nil {
		return nil, err
	}
	if voted {
		metrics.VoteConflicts.Inc()
		return nil, ErrAlreadyVoted
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO dimension_vote (voter_email, dimension, created_at)
		VALUES ($1, $2, $3)
	`, email, q.Dimension, now)
	if err != nil {
		// a concurrent submission took the lock first
		if db.IsUniqueViolation(err) {
			metrics.VoteConflicts.Inc()
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("insert dimension vote: %w", err)
	}

	recorded := 0
	for _, section := range options.Sections {
		for _, idx := range picks[section] {
			optionID := optionIDs[section][idx]
			_, err := tx.ExecContext(ctx, `
				INSERT INTO vote (id, questionnaire_id, section, option_index, option_id, direction, voter_email, ip_hash, user_agent, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, auth.NewID(), q.ID, section, idx, optionID, models.DirectionUpvote, email, b.IPHash, b.UserAgent, now)
			if err != nil {
				return nil, fmt.Errorf("insert vote: %w", err)
			}
			recorded++
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE questionnaire SET status = $1 WHERE id = $2 AND status = $3
	`, models.StatusActive, q.ID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("update questionnaire status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			metrics.VoteConflicts.Inc()
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("commit votes: %w", err)
	}

	metrics.VotesRecorded.WithLabelValues(q.Dimension).Add(float64(recorded))
	slog.Info("votes recorded",
		"questionnaire_id", q.ID,
		"dimension", q.Dimension,
		"votes", recorded,
	)

	return &models.SubmitVotesResponse{
		Dimension:     q.Dimension,
		VotesRecorded: recorded,
		Message:       "Votes recorded successfully",
	}, nil
}
