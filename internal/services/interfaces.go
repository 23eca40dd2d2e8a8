package services

import (
	"context"

	"github.com/CET-Mate/exam-session-service/internal/grading"
	"github.com/CET-Mate/exam-session-service/internal/models"
)

// ===== REQUEST/RESPONSE DTOs =====

type StartSessionRequest struct {
	PaperID uint `json:"paper_id" validate:"required"`
}

type RecordChoiceRequest struct {
	QuestionIndex int `json:"question_index" validate:"min=0"`
	OptionIndex   int `json:"option_index" validate:"min=0,max=7"`
}

type RecordTextRequest struct {
	QuestionIndex int    `json:"question_index" validate:"min=0"`
	Text          string `json:"text"`
	// Staged text is draft typing: kept in memory and committed when the
	// student navigates away or submits.
	Staged bool `json:"staged"`
}

type SubmitRequest struct {
	Reason string `json:"reason" validate:"omitempty,oneof=manual time_out"`
}

// QuestionView is the in-exam projection of a question: no correct option
// and no explanation until grading is done.
type QuestionView struct {
	Index        int                 `json:"index"`
	Type         models.QuestionType `json:"type"`
	Text         string              `json:"text"`
	Options      []string            `json:"options,omitempty"`
	SectionLabel string              `json:"section_label"`
	// NumberInSection is the 1-based position inside the section range.
	NumberInSection int    `json:"number_in_section"`
	SectionTotal    int    `json:"section_total"`
	IsFirst         bool   `json:"is_first"`
	IsLast          bool   `json:"is_last"`
	Answered        bool   `json:"answered"`
	CurrentAnswer   string `json:"current_answer,omitempty"`
}

type SessionResponse struct {
	SessionID      string        `json:"session_id"`
	PaperID        uint          `json:"paper_id"`
	PaperTitle     string        `json:"paper_title"`
	TotalQuestions int           `json:"total_questions"`
	DurationSec    int           `json:"duration_sec"`
	RemainingSec   int           `json:"remaining_sec"`
	Question       *QuestionView `json:"question"`
}

// NavigationResponse is returned by every navigation call. Submitted is
// set when Next at the last question triggered the submission path
// instead of moving.
type NavigationResponse struct {
	Question     *QuestionView `json:"question,omitempty"`
	Submitted    bool          `json:"submitted"`
	RemainingSec int           `json:"remaining_sec"`
}

// GradingProgress mirrors the subjective pipeline's progress reporting.
type GradingProgress struct {
	State   grading.PipelineState `json:"state"`
	Message string                `json:"message"`
	Percent int                   `json:"percent"`
	Done    bool                  `json:"done"`
}

// ResultCallback receives the final result once per session. err is
// non-nil only for the graded-but-unsaved failure mode.
type ResultCallback func(result *models.ExamResult, err error)

// ===== SERVICE INTERFACE =====

type SessionService interface {
	// Lifecycle
	Start(ctx context.Context, req *StartSessionRequest, studentID string) (*SessionResponse, error)
	Submit(ctx context.Context, sessionID, reason string) error

	// Navigation
	MoveTo(ctx context.Context, sessionID string, index int) (*NavigationResponse, error)
	Next(ctx context.Context, sessionID string) (*NavigationResponse, error)
	Previous(ctx context.Context, sessionID string) (*NavigationResponse, error)
	JumpToSection(ctx context.Context, sessionID string, sectionType models.SectionType) (*NavigationResponse, error)

	// Answer capture
	RecordChoice(ctx context.Context, sessionID string, req *RecordChoiceRequest) error
	RecordText(ctx context.Context, sessionID string, req *RecordTextRequest) error

	// Time
	TimeRemaining(ctx context.Context, sessionID string) (int, error)

	// Grading output
	Progress(ctx context.Context, sessionID string) (*GradingProgress, error)
	Result(ctx context.Context, sessionID string) (*models.ExamResult, error)
	ExportResult(ctx context.Context, sessionID string) ([]byte, error)
}
