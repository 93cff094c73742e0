// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/sistema-fic/models"
)

func sampleInput() Input {
	return Input{
		Dimension: "governanca",
		Questionnaires: []models.Questionnaire{
			{Group: "Conselho", Strengths: "Transparência\n\nAssembleias regulares", Challenges: "Pouca participação"},
		},
		Tally: &models.TallyResult{
			Dimension: "governanca",
			Sections: map[string][]models.TallyEntry{
				models.SectionStrengths: {{OptionIndex: 1, Count: 4, Text: "Transparência"}},
			},
		},
	}
}

func TestAnalysisPrompt(t *testing.T) {
	system, user := AnalysisPrompt(sampleInput())
	assert.NotEmpty(t, system)
	assert.Contains(t, user, "Dimension: governanca")
	assert.Contains(t, user, "- [Conselho] Assembleias regulares")
	assert.Contains(t, user, "Strengths #1 (4 votes): Transparência")
}

func TestReportPromptAndParse(t *testing.T) {
	_, user := ReportPrompt(sampleInput())
	assert.Contains(t, user, `"recommendations"`)

	out := "```json\n{\"summary\":\"ok\",\"strengths\":[\"a\"],\"challenges\":[],\"opportunities\":[],\"recommendations\":[\"b\",],}\n```"
	r, err := ParseReport(out)
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Summary)
	assert.Equal(t, []string{"b"}, r.Recommendations)

	_, err = ParseReport("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestGroupPrompt(t *testing.T) {
	_, user := GroupPrompt("governanca", models.SectionChallenges, []string{"Pouca\nparticipação", "Falta de quórum"})
	assert.Contains(t, user, "Section: Challenges")
	assert.Contains(t, user, "1. Pouca participação")
	assert.Contains(t, user, "2. Falta de quórum")
}

func TestParseGroups(t *testing.T) {
	out := `[{"label":"Participação","members":[1,2,2]},{"label":"Outros","members":[2,3,9,0]},{"label":"Vazio","members":[]}]`
	groups, err := ParseGroups(out, 3)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{1, 2}, groups[0].Members)
	assert.Equal(t, []int{3}, groups[1].Members)

	_, err = ParseGroups("nope", 3)
	assert.ErrorIs(t, err, ErrNoJSON)
}
