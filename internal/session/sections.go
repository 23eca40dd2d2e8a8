package session

import (
	"fmt"
	"sort"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

// SectionTable is the single ordered lookup table for section ranges.
// Navigation, display labeling and grading all resolve ranges through it,
// so the range logic exists exactly once.
type SectionTable struct {
	sections []models.Section
	total    int
}

// NewSectionTable validates that the sections partition [0, totalQuestions)
// without gaps or overlap and returns the table. Sections are sorted by
// start index; the input slice is not modified.
func NewSectionTable(sections []models.Section, totalQuestions int) (*SectionTable, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("section table is empty")
	}

	sorted := make([]models.Section, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	next := 0
	for _, sec := range sorted {
		if sec.Start != next {
			return nil, fmt.Errorf("section %s starts at %d, expected %d", sec.Type, sec.Start, next)
		}
		if sec.End <= sec.Start {
			return nil, fmt.Errorf("section %s has empty range [%d, %d)", sec.Type, sec.Start, sec.End)
		}
		next = sec.End
	}
	if next != totalQuestions {
		return nil, fmt.Errorf("sections cover [0, %d), paper has %d questions", next, totalQuestions)
	}

	return &SectionTable{sections: sorted, total: totalQuestions}, nil
}

// ByIndex returns the section containing the given question index.
func (t *SectionTable) ByIndex(index int) (models.Section, error) {
	if index < 0 || index >= t.total {
		return models.Section{}, ErrOutOfRange
	}
	i := sort.Search(len(t.sections), func(i int) bool { return t.sections[i].End > index })
	return t.sections[i], nil
}

// ByType returns the section of the given type, if the paper has one.
func (t *SectionTable) ByType(sectionType models.SectionType) (models.Section, bool) {
	for _, sec := range t.sections {
		if sec.Type == sectionType {
			return sec, true
		}
	}
	return models.Section{}, false
}

// Objective returns the sections holding choice questions, in paper order.
func (t *SectionTable) Objective() []models.Section {
	var out []models.Section
	for _, sec := range t.sections {
		if sec.QuestionType.IsChoice() {
			out = append(out, sec)
		}
	}
	return out
}

// All returns every section in paper order.
func (t *SectionTable) All() []models.Section {
	return t.sections
}

// TotalQuestions returns the number of questions the table covers.
func (t *SectionTable) TotalQuestions() int {
	return t.total
}
