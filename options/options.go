// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package options

import (
	"regexp"
	"strings"

	"github.com/danielhkuo/sistema-fic/models"
)

// blankLineRun matches a line break followed by at least one whitespace-only line.
var blankLineRun = regexp.MustCompile(`\n[ \t]*\n\s*`)

// Sections lists the section keys in display order.
var Sections = []string{
	models.SectionStrengths,
	models.SectionChallenges,
	models.SectionOpportunities,
}

// Split turns a section's free text into its ordered list of options.
//
// Paragraphs separated by a blank line are options; when the text has no
// blank line at all, every line is an option. A text mixing both styles is
// split on the blank lines only, so single-newline items inside a paragraph
// stay together.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var parts []string
	if blankLineRun.MatchString(text) {
		parts = blankLineRun.Split(text, -1)
	} else {
		parts = strings.Split(text, "\n")
	}

	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// ValidSection reports whether s is one of the three section keys.
func ValidSection(s string) bool {
	for _, key := range Sections {
		if key == s {
			return true
		}
	}
	return false
}

// SplitAll splits every section of a questionnaire, keyed by section.
func SplitAll(q *models.Questionnaire) map[string][]string {
	out := make(map[string][]string, len(Sections))
	for _, section := range Sections {
		out[section] = Split(q.Text(section))
	}
	return out
}
