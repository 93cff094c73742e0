// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/danielhkuo/sistema-fic/models"
)

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// filter builds a WHERE clause with $n placeholders numbered in order
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// questionnaireFilter selects questionnaires by dimension ("all" or empty
// means every dimension) and optional status. col prefixes the columns.
func questionnaireFilter(col, dimension, status string) *filter {
	f := &filter{}
	if dimension != "" && dimension != models.DimensionAll {
		f.add(col+"dimension = ?", dimension)
	}
	if status != "" {
		f.add(col+"status = ?", status)
	}
	return f
}

const questionnaireColumns = `id, dimension, group_name, strengths, challenges, opportunities, status, created_at`

func scanQuestionnaire(sc interface{ Scan(...any) error }, q *models.Questionnaire) error {
	return sc.Scan(&q.ID, &q.Dimension, &q.Group, &q.Strengths, &q.Challenges, &q.Opportunities, &q.Status, &q.CreatedAt)
}

// listQuestionnaires returns questionnaires in creation order, without options
func listQuestionnaires(ctx context.Context, db queryer, dimension, status string) ([]models.Questionnaire, error) {
	f := questionnaireFilter("", dimension, status)
	rows, err := db.QueryContext(ctx,
		`SELECT `+questionnaireColumns+` FROM questionnaire`+f.where()+` ORDER BY created_at, id`,
		f.args...)
	if err != nil {
		return nil, fmt.Errorf("query questionnaires: %w", err)
	}
	defer rows.Close()

	list := []models.Questionnaire{}
	for rows.Next() {
		var q models.Questionnaire
		if err := scanQuestionnaire(rows, &q); err != nil {
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// lockQuestionnaire locks one questionnaire row for the rest of tx. lock is
// the driver's row-locking suffix from db.ForUpdate.
func lockQuestionnaire(ctx context.Context, tx queryer, lock, id string) error {
	var got string
	err := tx.QueryRowContext(ctx, `SELECT id FROM questionnaire WHERE id = $1`+lock, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock questionnaire: %w", err)
	}
	return nil
}

// lockQuestionnaires locks every questionnaire in a dimension, in id order,
// and returns their ids
func lockQuestionnaires(ctx context.Context, tx queryer, lock, dimension string) ([]string, error) {
	f := questionnaireFilter("", dimension, "")
	rows, err := tx.QueryContext(ctx, `SELECT id FROM questionnaire`+f.where()+` ORDER BY id`+lock, f.args...)
	if err != nil {
		return nil, fmt.Errorf("lock questionnaires: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan questionnaire id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// getQuestionnaire loads one questionnaire with its options
func getQuestionnaire(ctx context.Context, db queryer, id string) (*models.Questionnaire, error) {
	var q models.Questionnaire
	err := scanQuestionnaire(db.QueryRowContext(ctx,
		`SELECT `+questionnaireColumns+` FROM questionnaire WHERE id = $1`, id), &q)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query questionnaire: %w", err)
	}

	opts, err := listOptions(ctx, db, &filter{conds: []string{"o.questionnaire_id = $1"}, args: []any{id}})
	if err != nil {
		return nil, err
	}
	attachOptions([]*models.Questionnaire{&q}, opts)
	return &q, nil
}

// listOptions returns option rows joined to their questionnaire, ordered
// by questionnaire, section and position
func listOptions(ctx context.Context, db queryer, f *filter) ([]models.Option, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT o.id, o.questionnaire_id, o.section, o.position, o.text, o.status
		FROM questionnaire_option o
		JOIN questionnaire q ON q.id = o.questionnaire_id`+f.where()+`
		ORDER BY o.questionnaire_id, o.section, o.position
	`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	var opts []models.Option
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.QuestionnaireID, &o.Section, &o.Position, &o.Text, &o.Status); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// attachOptions fills Options and per-section Statuses on each questionnaire
func attachOptions(qs []*models.Questionnaire, opts []models.Option) {
	byID := make(map[string]*models.Questionnaire, len(qs))
	for _, q := range qs {
		q.Options = []models.Option{}
		q.Statuses = map[string][]string{
			models.SectionStrengths:     {},
			models.SectionChallenges:    {},
			models.SectionOpportunities: {},
		}
		byID[q.ID] = q
	}
	for _, o := range opts {
		q, ok := byID[o.QuestionnaireID]
		if !ok {
			continue
		}
		q.Options = append(q.Options, o)
		q.Statuses[o.Section] = append(q.Statuses[o.Section], o.Status)
	}
}

// loadQuestionnairesWithOptions lists questionnaires and attaches their options
func loadQuestionnairesWithOptions(ctx context.Context, db queryer, dimension, status string) ([]models.Questionnaire, error) {
	list, err := listQuestionnaires(ctx, db, dimension, status)
	if err != nil {
		return nil, err
	}
	opts, err := listOptions(ctx, db, questionnaireFilter("q.", dimension, status))
	if err != nil {
		return nil, err
	}

	ptrs := make([]*models.Questionnaire, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	attachOptions(ptrs, opts)
	return list, nil
}

// listVotes returns votes on questionnaires in the given dimension
func listVotes(ctx context.Context, db queryer, dimension string) ([]models.Vote, error) {
	f := questionnaireFilter("q.", dimension, "")
	rows, err := db.QueryContext(ctx, `
		SELECT v.id, v.questionnaire_id, v.section, v.option_index, v.option_id,
		       v.direction, v.voter_email, v.created_at
		FROM vote v
		JOIN questionnaire q ON q.id = v.questionnaire_id`+f.where()+`
		ORDER BY v.created_at, v.id
	`, f.args...)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.QuestionnaireID, &v.Section, &v.OptionIndex, &v.OptionID,
			&v.Direction, &v.VoterEmail, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// listDimensionVotes returns dimension locks, optionally for one dimension
func listDimensionVotes(ctx context.Context, db queryer, dimension string) ([]models.DimensionVote, error) {
	f := &filter{}
	if dimension != "" && dimension != models.DimensionAll {
		f.add("dimension = ?", dimension)
	}
	rows, err := db.QueryContext(ctx,
		`SELECT voter_email, dimension, created_at FROM dimension_vote`+f.where()+` ORDER BY created_at, voter_email`,
		f.args...)
	if err != nil {
		return nil, fmt.Errorf("query dimension votes: %w", err)
	}
	defer rows.Close()

	out := []models.DimensionVote{}
	for rows.Next() {
		var dv models.DimensionVote
		if err := rows.Scan(&dv.VoterEmail, &dv.Dimension, &dv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dimension vote: %w", err)
		}
		out = append(out, dv)
	}
	return out, rows.Err()
}

func isRegistered(ctx context.Context, db queryer, email string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registered_voter WHERE email = $1`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check registered voter: %w", err)
	}
	return n > 0, nil
}

func hasVoted(ctx context.Context, db queryer, email, dimension string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dimension_vote WHERE voter_email = $1 AND dimension = $2`,
		email, dimension).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check dimension vote: %w", err)
	}
	return n > 0, nil
}
