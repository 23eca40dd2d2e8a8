package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

// ErrNotFound is the shared not-found sentinel for all repositories.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err is the repository not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	StudentID *string               `json:"student_id"`
	PaperID   *uint                 `json:"paper_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

type ResultFilters struct {
	StudentID *string    `json:"student_id"`
	PaperID   *uint      `json:"paper_id"`
	MinScore  *float64   `json:"min_score"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type PaperRepository interface {
	GetByID(ctx context.Context, id uint) (*models.ExamPaper, error)
	List(ctx context.Context, limit, offset int) ([]*models.ExamPaper, int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.ExamSession) error
	GetByID(ctx context.Context, id string) (*models.ExamSession, error)
	Update(ctx context.Context, session *models.ExamSession) error
	GetActiveByStudent(ctx context.Context, studentID string, paperID uint) (*models.ExamSession, error)
	List(ctx context.Context, filters SessionFilters) ([]*models.ExamSession, int64, error)
}

// AnswerRepository is the incremental flush target of the answer sheet.
// SaveAnswer overwrites any previous value for the question; saving the
// same value again is a no-op in effect. An empty value clears the row.
type AnswerRepository interface {
	SaveAnswer(ctx context.Context, sessionID string, questionIndex int, value string) error
	SaveAnswers(ctx context.Context, sessionID string, answers map[int]string) error
	GetBySession(ctx context.Context, sessionID string) ([]*models.SessionAnswer, error)
}

type ResultRepository interface {
	// Create writes the final result exactly once per session.
	Create(ctx context.Context, result *models.ExamResult) error
	GetBySession(ctx context.Context, sessionID string) (*models.ExamResult, error)
	List(ctx context.Context, filters ResultFilters) ([]*models.ExamResult, int64, error)
}

// Repository bundles all repositories behind one handle.
type Repository interface {
	Paper() PaperRepository
	Session() SessionRepository
	Answer() AnswerRepository
	Result() ResultRepository

	Ping(ctx context.Context) error
	Close() error
}
