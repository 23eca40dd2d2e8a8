package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CET-Mate/exam-session-service/internal/cache"
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
)

// paperRow is the storage shape of an exam paper: the question list and
// section table are JSONB documents since the engine never queries inside
// them.
type paperRow struct {
	ID        uint           `gorm:"primaryKey"`
	Title     string         `gorm:"not null;size:255"`
	Duration  int            `gorm:"not null"`
	Questions datatypes.JSON `gorm:"type:jsonb"`
	Sections  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (paperRow) TableName() string { return "exam_papers" }

type paperRepository struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func (r *paperRepository) GetByID(ctx context.Context, id uint) (*models.ExamPaper, error) {
	cacheKey := fmt.Sprintf("paper:%d", id)
	if r.cache != nil {
		var cached models.ExamPaper
		if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var row paperRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get paper: %w", err)
	}

	paper, err := row.toPaper()
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, paper, cache.PaperCacheConfig.TTL)
	}
	return paper, nil
}

func (r *paperRepository) List(ctx context.Context, limit, offset int) ([]*models.ExamPaper, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&paperRow{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	query := r.db.WithContext(ctx).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []paperRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}

	papers := make([]*models.ExamPaper, 0, len(rows))
	for _, row := range rows {
		paper, err := row.toPaper()
		if err != nil {
			return nil, 0, err
		}
		papers = append(papers, paper)
	}
	return papers, total, nil
}

func (row *paperRow) toPaper() (*models.ExamPaper, error) {
	paper := &models.ExamPaper{
		ID:       row.ID,
		Title:    row.Title,
		Duration: row.Duration,
	}
	if err := json.Unmarshal(row.Questions, &paper.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paper questions: %w", err)
	}
	if err := json.Unmarshal(row.Sections, &paper.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal paper sections: %w", err)
	}
	return paper, nil
}
