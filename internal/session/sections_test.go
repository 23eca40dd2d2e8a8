package session

import (
	"testing"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

func validSections() []models.Section {
	return []models.Section{
		{Type: models.SectionCloze, Label: "Cloze", QuestionType: models.ClozeChoice, Start: 0, End: 20, PointsPerItem: 0.5},
		{Type: models.SectionReading, Label: "Reading", QuestionType: models.ReadingChoice, Start: 20, End: 50, PointsPerItem: 1},
		{Type: models.SectionNewType, Label: "New Type", QuestionType: models.NewTypeChoice, Start: 50, End: 60, PointsPerItem: 3},
		{Type: models.SectionTranslation, Label: "Translation", QuestionType: models.Translation, Start: 60, End: 61, MaxPoints: 15},
		{Type: models.SectionWriting, Label: "Writing", QuestionType: models.Writing, Start: 61, End: 62, MaxPoints: 15},
	}
}

func TestNewSectionTable(t *testing.T) {
	table, err := NewSectionTable(validSections(), 62)
	if err != nil {
		t.Fatalf("NewSectionTable: %v", err)
	}
	if table.TotalQuestions() != 62 {
		t.Errorf("expected 62 questions, got %d", table.TotalQuestions())
	}
	if len(table.All()) != 5 {
		t.Errorf("expected 5 sections, got %d", len(table.All()))
	}
}

func TestNewSectionTable_RejectsBadPartitions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Section) []models.Section
		total  int
	}{
		{
			name:   "empty table",
			mutate: func([]models.Section) []models.Section { return nil },
			total:  62,
		},
		{
			name: "gap between sections",
			mutate: func(s []models.Section) []models.Section {
				s[1].Start = 25
				return s
			},
			total: 62,
		},
		{
			name: "overlapping sections",
			mutate: func(s []models.Section) []models.Section {
				s[1].Start = 15
				return s
			},
			total: 62,
		},
		{
			name: "empty range",
			mutate: func(s []models.Section) []models.Section {
				s[2].End = 50
				return s
			},
			total: 62,
		},
		{
			name: "not starting at zero",
			mutate: func(s []models.Section) []models.Section {
				s[0].Start = 1
				return s
			},
			total: 62,
		},
		{
			name:   "short of paper length",
			mutate: func(s []models.Section) []models.Section { return s },
			total:  100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSectionTable(tt.mutate(validSections()), tt.total); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSectionTable_ByIndex(t *testing.T) {
	table, err := NewSectionTable(validSections(), 62)
	if err != nil {
		t.Fatalf("NewSectionTable: %v", err)
	}

	tests := []struct {
		index int
		want  models.SectionType
	}{
		{index: 0, want: models.SectionCloze},
		{index: 19, want: models.SectionCloze},
		{index: 20, want: models.SectionReading},
		{index: 49, want: models.SectionReading},
		{index: 50, want: models.SectionNewType},
		{index: 60, want: models.SectionTranslation},
		{index: 61, want: models.SectionWriting},
	}
	for _, tt := range tests {
		sec, err := table.ByIndex(tt.index)
		if err != nil {
			t.Fatalf("ByIndex(%d): %v", tt.index, err)
		}
		if sec.Type != tt.want {
			t.Errorf("ByIndex(%d) = %s, want %s", tt.index, sec.Type, tt.want)
		}
	}

	for _, index := range []int{-1, 62} {
		if _, err := table.ByIndex(index); err != ErrOutOfRange {
			t.Errorf("ByIndex(%d): expected ErrOutOfRange, got %v", index, err)
		}
	}
}

func TestSectionTable_Objective(t *testing.T) {
	table, err := NewSectionTable(validSections(), 62)
	if err != nil {
		t.Fatalf("NewSectionTable: %v", err)
	}

	objective := table.Objective()
	if len(objective) != 3 {
		t.Fatalf("expected 3 objective sections, got %d", len(objective))
	}
	for i, want := range []models.SectionType{models.SectionCloze, models.SectionReading, models.SectionNewType} {
		if objective[i].Type != want {
			t.Errorf("objective[%d] = %s, want %s", i, objective[i].Type, want)
		}
	}
}

func TestSectionTable_ByType(t *testing.T) {
	table, err := NewSectionTable(validSections(), 62)
	if err != nil {
		t.Fatalf("NewSectionTable: %v", err)
	}

	sec, ok := table.ByType(models.SectionTranslation)
	if !ok || sec.Start != 60 {
		t.Errorf("ByType(translation) = %+v ok=%v", sec, ok)
	}
	if _, ok := table.ByType("listening"); ok {
		t.Error("unknown section type must not resolve")
	}
}
