package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

type answerRepository struct {
	db *gorm.DB
}

// SaveAnswer upserts one answer value. An empty value deletes the row so
// "unanswered" and "answered empty" stay indistinguishable in storage,
// matching the in-memory sheet.
func (r *answerRepository) SaveAnswer(ctx context.Context, sessionID string, questionIndex int, value string) error {
	if value == "" {
		err := r.db.WithContext(ctx).
			Where("session_id = ? AND question_index = ?", sessionID, questionIndex).
			Delete(&models.SessionAnswer{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear answer: %w", err)
		}
		return nil
	}

	answer := models.SessionAnswer{
		SessionID:      sessionID,
		QuestionIndex:  questionIndex,
		Value:          value,
		LastModifiedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "last_modified_at", "updated_at"}),
	}).Create(&answer).Error
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

// SaveAnswers bulk-flushes a snapshot at submission time. Idempotent:
// re-flushing the same values leaves the rows unchanged in effect.
func (r *answerRepository) SaveAnswers(ctx context.Context, sessionID string, answers map[int]string) error {
	if len(answers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, value := range answers {
			if value == "" {
				continue
			}
			answer := models.SessionAnswer{
				SessionID:      sessionID,
				QuestionIndex:  index,
				Value:          value,
				LastModifiedAt: time.Now(),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_index"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "last_modified_at", "updated_at"}),
			}).Create(&answer).Error
			if err != nil {
				return fmt.Errorf("failed to save answer %d: %w", index, err)
			}
		}
		return nil
	})
}

func (r *answerRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.SessionAnswer, error) {
	var answers []*models.SessionAnswer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_index").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get session answers: %w", err)
	}
	return answers, nil
}
