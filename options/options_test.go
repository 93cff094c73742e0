// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package options

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/sistema-fic/models"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \n\n \t\n", []string{}},
		{"blank line separated", "A\n\nB\n\nC", []string{"A", "B", "C"}},
		{"single newline separated", "A\nB\nC", []string{"A", "B", "C"}},
		{"trims surrounding space", "  A  \n\n\tB\t", []string{"A", "B"}},
		{"multi-line paragraphs", "first line\nsecond line\n\nother", []string{"first line\nsecond line", "other"}},
		{"crlf line endings", "A\r\n\r\nB\r\n\r\nC", []string{"A", "B", "C"}},
		{"bare carriage returns", "A\rB\rC", []string{"A", "B", "C"}},
		{"three or more newlines", "A\n\n\n\nB", []string{"A", "B"}},
		{"blank line holding spaces", "A\n   \nB", []string{"A", "B"}},
		{"single line", "only one", []string{"only one"}},
		// One blank line among single-newline items yields two parts.
		{"mixed spacing", "A\nB\n\nC\nD", []string{"A\nB", "C\nD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, got)
		})
	}
}

func TestValidSection(t *testing.T) {
	assert.True(t, ValidSection(models.SectionStrengths))
	assert.True(t, ValidSection(models.SectionChallenges))
	assert.True(t, ValidSection(models.SectionOpportunities))
	assert.False(t, ValidSection("threats"))
	assert.False(t, ValidSection(""))
}

func TestSplitAll(t *testing.T) {
	q := &models.Questionnaire{
		Strengths:     "S1\n\nS2",
		Challenges:    "C1\nC2\nC3",
		Opportunities: "",
	}

	got := SplitAll(q)

	assert.Equal(t, []string{"S1", "S2"}, got[models.SectionStrengths])
	assert.Equal(t, []string{"C1", "C2", "C3"}, got[models.SectionChallenges])
	assert.Empty(t, got[models.SectionOpportunities])
	assert.Len(t, got, 3)
}
