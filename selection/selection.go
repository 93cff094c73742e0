// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"errors"
	"slices"
	"sync"

	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/options"
)

// MaxPerSection is the exact number of options a voter picks in each section.
const MaxPerSection = 3

var (
	ErrSectionFull    = errors.New("section already has 3 selections")
	ErrInvalidSection = errors.New("invalid section")
	ErrInvalidIndex   = errors.New("option index must be 1 or greater")
)

// Selection tracks the options one voter has tentatively picked, per
// questionnaire and section. Insertion order is kept for display only.
type Selection struct {
	mu     sync.Mutex
	chosen map[string]map[string][]int // questionnaire id -> section -> indices
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{chosen: make(map[string]map[string][]int)}
}

// Toggle flips the selected state of an option. Removing is always allowed;
// adding to a section that already holds MaxPerSection entries returns
// ErrSectionFull and leaves the selection unchanged.
func (s *Selection) Toggle(questionnaireID, section string, index int) (bool, error) {
	if !options.ValidSection(section) {
		return false, ErrInvalidSection
	}
	if index < 1 {
		return false, ErrInvalidIndex
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sections := s.chosen[questionnaireID]
	current := sections[section]
	if i := slices.Index(current, index); i >= 0 {
		sections[section] = slices.Delete(current, i, i+1)
		if isEmpty(sections) {
			delete(s.chosen, questionnaireID)
		}
		return false, nil
	}

	if len(current) >= MaxPerSection {
		return false, ErrSectionFull
	}

	if sections == nil {
		sections = make(map[string][]int)
		s.chosen[questionnaireID] = sections
	}
	sections[section] = append(current, index)
	return true, nil
}

// Count returns how many options are selected in a section.
func (s *Selection) Count(questionnaireID, section string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chosen[questionnaireID][section])
}

// IsSelected reports whether an option is currently selected.
func (s *Selection) IsSelected(questionnaireID, section string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.chosen[questionnaireID][section], index)
}

// IsComplete reports whether every section holds exactly MaxPerSection options.
func (s *Selection) IsComplete(questionnaireID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Complete(s.choicesLocked(questionnaireID))
}

// Get returns a copy of the choices made for a questionnaire.
func (s *Selection) Get(questionnaireID string) models.SectionChoices {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.choicesLocked(questionnaireID)
}

// All returns a copy of every questionnaire's choices.
func (s *Selection) All() map[string]models.SectionChoices {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.SectionChoices, len(s.chosen))
	for qid := range s.chosen {
		out[qid] = s.choicesLocked(qid)
	}
	return out
}

// Clear drops the choices made for a questionnaire.
func (s *Selection) Clear(questionnaireID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chosen, questionnaireID)
}

// choicesLocked copies the choices; untouched sections are empty, never nil
func (s *Selection) choicesLocked(questionnaireID string) models.SectionChoices {
	sections := s.chosen[questionnaireID]
	return models.SectionChoices{
		Strengths:     append([]int{}, sections[models.SectionStrengths]...),
		Challenges:    append([]int{}, sections[models.SectionChallenges]...),
		Opportunities: append([]int{}, sections[models.SectionOpportunities]...),
	}
}

func isEmpty(sections map[string][]int) bool {
	for _, idx := range sections {
		if len(idx) > 0 {
			return false
		}
	}
	return true
}

// Complete reports whether each section of c holds exactly MaxPerSection indices.
func Complete(c models.SectionChoices) bool {
	return len(c.Strengths) == MaxPerSection &&
		len(c.Challenges) == MaxPerSection &&
		len(c.Opportunities) == MaxPerSection
}

// BySection returns the indices of c keyed by section.
func BySection(c models.SectionChoices) map[string][]int {
	return map[string][]int{
		models.SectionStrengths:     c.Strengths,
		models.SectionChallenges:    c.Challenges,
		models.SectionOpportunities: c.Opportunities,
	}
}
