// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/sistema-fic/auth"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

var optionHeader = []string{
	"dimension", "questionnaire_id", "group", "status",
	"section", "position", "text", "upvotes", "downvotes", "created_at",
}

var voteHeader = []string{
	"vote_id", "questionnaire_id", "dimension", "section",
	"option_index", "option_text", "direction", "voter_email", "created_at",
}

// OptionsCSV renders one row per option in the payload with its vote counts.
// Options come from the stored rows when present, else from splitting the text.
func OptionsCSV(p *models.BackupPayload) ([]byte, error) {
	type key struct {
		qid, section string
		pos          int
	}
	up := make(map[key]int)
	down := make(map[key]int)
	for _, v := range p.Votes {
		k := key{v.QuestionnaireID, v.Section, v.OptionIndex}
		if v.Direction == models.DirectionDownvote {
			down[k]++
		} else {
			up[k]++
		}
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(optionHeader)
	for i := range p.Questionnaires {
		q := &p.Questionnaires[i]
		for _, opt := range optionsOf(q) {
			k := key{q.ID, opt.Section, opt.Position}
			rec := []string{
				q.Dimension, q.ID, q.Group, q.Status,
				opt.Section, strconv.Itoa(opt.Position), opt.Text,
				strconv.Itoa(up[k]), strconv.Itoa(down[k]),
				q.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// VotesCSV renders one row per vote, resolving option text against the
// questionnaire the vote was cast on.
func VotesCSV(p *models.BackupPayload) ([]byte, error) {
	byID := make(map[string]*models.Questionnaire, len(p.Questionnaires))
	for i := range p.Questionnaires {
		byID[p.Questionnaires[i].ID] = &p.Questionnaires[i]
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(voteHeader)
	for _, v := range p.Votes {
		var dimension, text string
		if q, ok := byID[v.QuestionnaireID]; ok {
			dimension = q.Dimension
			if opts := options.Split(q.Text(v.Section)); v.OptionIndex >= 1 && v.OptionIndex <= len(opts) {
				text = opts[v.OptionIndex-1]
			}
		}
		email := ""
		if v.VoterEmail != nil {
			email = *v.VoterEmail
		}
		rec := []string{
			v.ID, v.QuestionnaireID, dimension, v.Section,
			strconv.Itoa(v.OptionIndex), text, v.Direction, email,
			v.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func optionsOf(q *models.Questionnaire) []models.Option {
	if len(q.Options) > 0 {
		return q.Options
	}
	var out []models.Option
	for _, section := range options.Sections {
		for i, text := range options.Split(q.Text(section)) {
			out = append(out, models.Option{
				QuestionnaireID: q.ID,
				Section:         section,
				Position:        i + 1,
				Text:            text,
				Status:          models.StatusPending,
			})
		}
	}
	return out
}

// ParseVoters reads a name,email CSV. A header row is optional and a
// single-column file is read as emails only. Rows with an invalid email, and
// repeats of an email already read, are counted in skipped.
func ParseVoters(r io.Reader) (voters []models.RegisteredVoter, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[string]bool)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("csv line %d: %w", line, err)
		}

		var name, rawEmail string
		switch len(rec) {
		case 0:
			continue
		case 1:
			rawEmail = rec[0]
		default:
			name, rawEmail = rec[0], rec[1]
		}

		email, err := auth.NormalizeEmail(rawEmail)
		if err != nil {
			if line == 1 && strings.EqualFold(strings.TrimSpace(rawEmail), "email") {
				continue
			}
			skipped++
			continue
		}
		if seen[email] {
			skipped++
			continue
		}
		seen[email] = true
		voters = append(voters, models.RegisteredVoter{Email: email, Name: strings.TrimSpace(name)})
	}
	return voters, skipped, nil
}

// VotersCSV renders the registered voter list in the same name,email
// layout ParseVoters reads.
func VotersCSV(voters []models.RegisteredVoter) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"name", "email"})
	for _, v := range voters {
		if err := w.Write([]string{v.Name, v.Email}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Size formats a payload length for display, e.g. "12 kB".
func Size(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
