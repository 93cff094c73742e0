// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

var ErrNoJSON = errors.New("no JSON found in model output")

var sectionTitles = map[string]string{
	models.SectionStrengths:     "Strengths",
	models.SectionChallenges:    "Challenges",
	models.SectionOpportunities: "Opportunities",
}

const systemPrompt = `You are an organizational development analyst for cooperatives.
You read member feedback gathered with the FIC method (strengths, challenges,
opportunities) and the votes members cast on it. Answer in the same language
as the feedback. Be concrete and faithful to the data; do not invent items.`

// Input is the data a prompt is built from.
type Input struct {
	Dimension      string
	Questionnaires []models.Questionnaire
	Tally          *models.TallyResult
}

// AnalysisPrompt asks for a free-text analysis of one dimension.
func AnalysisPrompt(in Input) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimension: %s\n", in.Dimension)
	fmt.Fprintf(&b, "Questionnaires: %d\n\n", len(in.Questionnaires))
	writeFeedback(&b, in.Questionnaires)
	writeTally(&b, in.Tally)
	b.WriteString("\nWrite an analysis of this dimension: the main themes per section, " +
		"which items members prioritized with their votes, and practical recommendations.")
	return systemPrompt, b.String()
}

// Report is the consolidated report the model is asked to return.
type Report struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Challenges      []string `json:"challenges"`
	Opportunities   []string `json:"opportunities"`
	Recommendations []string `json:"recommendations"`
}

// ReportPrompt asks for a consolidated report as a JSON object.
func ReportPrompt(in Input) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimension: %s\n\n", in.Dimension)
	writeFeedback(&b, in.Questionnaires)
	writeTally(&b, in.Tally)
	b.WriteString(`
Consolidate this feedback. Respond ONLY with JSON in this format:
{
  "summary": "one paragraph",
  "strengths": ["..."],
  "challenges": ["..."],
  "opportunities": ["..."],
  "recommendations": ["..."]
}`)
	return systemPrompt, b.String()
}

// ParseReport extracts a Report from model output.
func ParseReport(content string) (*Report, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, ErrNoJSON
	}
	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Group is a cluster of similar options. Members are 1-based positions in
// the list given to GroupPrompt.
type Group struct {
	Label   string `json:"label"`
	Members []int  `json:"members"`
}

// GroupPrompt asks the model to cluster option texts of one section.
func GroupPrompt(dimension, section string, items []string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimension: %s\nSection: %s\n\nItems:\n", dimension, sectionTitles[section])
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(item))
	}
	b.WriteString(`
Group items that express the same idea. Every item belongs to exactly one
group. Respond ONLY with a JSON array:
[{"label": "short group name", "members": [1, 4]}]`)
	return systemPrompt, b.String()
}

// ParseGroups extracts groups from model output, dropping member numbers
// outside 1..n and members already claimed by an earlier group.
func ParseGroups(content string, n int) ([]Group, error) {
	raw := ExtractJSONArray(content)
	if raw == "" {
		return nil, ErrNoJSON
	}
	var groups []Group
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}

	seen := make(map[int]bool)
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		var members []int
		for _, m := range g.Members {
			if m < 1 || m > n || seen[m] {
				continue
			}
			seen[m] = true
			members = append(members, m)
		}
		if len(members) > 0 {
			out = append(out, Group{Label: g.Label, Members: members})
		}
	}
	return out, nil
}

func writeFeedback(b *strings.Builder, qs []models.Questionnaire) {
	for _, section := range options.Sections {
		fmt.Fprintf(b, "## %s\n", sectionTitles[section])
		for i := range qs {
			for _, opt := range options.Split(qs[i].Text(section)) {
				fmt.Fprintf(b, "- [%s] %s\n", qs[i].Group, oneLine(opt))
			}
		}
		b.WriteString("\n")
	}
}

func writeTally(b *strings.Builder, t *models.TallyResult) {
	if t == nil {
		return
	}
	b.WriteString("## Votes\n")
	for _, section := range options.Sections {
		for _, e := range t.Sections[section] {
			fmt.Fprintf(b, "- %s #%d (%d votes): %s\n", sectionTitles[section], e.OptionIndex, e.Count, oneLine(e.Text))
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
