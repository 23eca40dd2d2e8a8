package models

import (
	"time"

	"gorm.io/datatypes"
)

// SectionScore is the objective tally for one section.
type SectionScore struct {
	Type    SectionType `json:"type"`
	Label   string      `json:"label"`
	Correct int         `json:"correct"`
	Total   int         `json:"total"`
	Score   float64     `json:"score"`
}

// QuestionDetail is one row of the per-question audit list attached to a
// result.
type QuestionDetail struct {
	Index         int          `json:"index"`
	Type          QuestionType `json:"type"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	IsCorrect     bool         `json:"is_correct"`
	Explanation   string       `json:"explanation"`
}

// ExamResult is the final, immutable outcome of one graded session. It is
// created once by the result aggregator and owned by the persistence layer
// afterwards.
type ExamResult struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	SessionID string `json:"session_id" gorm:"not null;uniqueIndex;size:36"`
	PaperID   uint   `json:"paper_id" gorm:"not null;index"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`

	// Objective tallies, one entry per objective section.
	SectionScores datatypes.JSON `json:"section_scores" gorm:"type:jsonb"` // []SectionScore

	// Subjective outcomes.
	TranslationScore   float64 `json:"translation_score"`
	TranslationComment string  `json:"translation_comment" gorm:"type:text"`
	WritingScore       float64 `json:"writing_score"`
	WritingComment     string  `json:"writing_comment" gorm:"type:text"`

	// Aggregate.
	TotalScore float64 `json:"total_score"`
	Grade      string  `json:"grade" gorm:"size:32"`
	WrongCount int     `json:"wrong_count"`

	// Full per-question detail list for audit/export.
	Details datatypes.JSON `json:"details" gorm:"type:jsonb"` // []QuestionDetail

	GradedAt  time.Time `json:"graded_at"`
	CreatedAt time.Time `json:"created_at"`
}
