package models

import (
	"time"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionGraded     SessionStatus = "graded"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Submission end reasons recorded on the session row.
const (
	EndReasonManual    = "manual"
	EndReasonTimeout   = "time_out"
	EndReasonAbandoned = "abandoned"
)

// ExamSession is the durable record of one exam attempt. The live
// navigation and answer state is owned by the session engine; this row
// tracks lifecycle and timing only.
type ExamSession struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	PaperID   uint          `json:"paper_id" gorm:"not null;index"`
	StudentID string        `json:"student_id" gorm:"not null;index;size:255"`
	Status    SessionStatus `json:"status" gorm:"default:in_progress;index"`

	// Timing
	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Duration    int        `json:"duration"` // seconds granted at start

	EndReason *string `json:"end_reason" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Answers []SessionAnswer `json:"answers" gorm:"foreignKey:SessionID"`
}

// SessionAnswer is one flushed answer value. Choice answers are a single
// letter A..H; free-text answers are stored verbatim. A row is written on
// every flush and overwritten on change; absence of a row means the
// question was never answered.
type SessionAnswer struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	SessionID     string `json:"session_id" gorm:"not null;index;size:36;uniqueIndex:idx_session_question"`
	QuestionIndex int    `json:"question_index" gorm:"not null;uniqueIndex:idx_session_question"`
	Value         string `json:"value" gorm:"type:text"`

	LastModifiedAt time.Time `json:"last_modified_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
