package grading

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

// GradeBand is one entry of the grade table: every total score at or above
// Min (and below the next band's Min) gets Name. Boundary values belong to
// the band whose Min they equal.
type GradeBand struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
}

// BandTable is an ordered, exhaustive, non-overlapping grade table.
type BandTable []GradeBand

// NewBandTable validates and normalizes a band table. Bands are sorted by
// descending Min; the lowest band must start at zero so every real score
// classifies.
func NewBandTable(bands []GradeBand) (BandTable, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("band table is empty")
	}
	sorted := make([]GradeBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min == sorted[i-1].Min {
			return nil, fmt.Errorf("bands %q and %q overlap at %v", sorted[i-1].Name, sorted[i].Name, sorted[i].Min)
		}
	}
	if last := sorted[len(sorted)-1]; last.Min > 0 {
		return nil, fmt.Errorf("lowest band %q starts at %v, must start at 0", last.Name, last.Min)
	}
	return BandTable(sorted), nil
}

// Classify returns the band name for a total score.
func (t BandTable) Classify(score float64) string {
	for _, b := range t {
		if score >= b.Min {
			return b.Name
		}
	}
	// Normalized tables end at 0; negative input still classifies lowest.
	return t[len(t)-1].Name
}

// Aggregate combines the objective tallies and the two subjective phase
// results into the final immutable ExamResult. This is the single place
// the detail list is serialized for audit/export.
func Aggregate(sess *models.ExamSession, objective ObjectiveResult, translation, writing PhaseResult, subjectiveDetails []models.QuestionDetail, bands BandTable) (*models.ExamResult, error) {
	total := objective.TotalScore + translation.Score + writing.Score

	details := make([]models.QuestionDetail, 0, len(objective.Details)+len(subjectiveDetails))
	details = append(details, objective.Details...)
	details = append(details, subjectiveDetails...)
	sort.Slice(details, func(i, j int) bool { return details[i].Index < details[j].Index })

	detailJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result details: %w", err)
	}
	sectionJSON, err := json.Marshal(objective.SectionScores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal section scores: %w", err)
	}

	return &models.ExamResult{
		ID:                 uuid.NewString(),
		SessionID:          sess.ID,
		PaperID:            sess.PaperID,
		StudentID:          sess.StudentID,
		SectionScores:      sectionJSON,
		TranslationScore:   translation.Score,
		TranslationComment: translation.Comment,
		WritingScore:       writing.Score,
		WritingComment:     writing.Comment,
		TotalScore:         total,
		Grade:              bands.Classify(total),
		WrongCount:         objective.WrongCount,
		Details:            detailJSON,
		GradedAt:           time.Now(),
	}, nil
}
