package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/CET-Mate/exam-session-service/internal/cache"
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
)

type resultRepository struct {
	db    *gorm.DB
	cache *cache.CacheHelper
}

func (r *resultRepository) Create(ctx context.Context, result *models.ExamResult) error {
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	// Results are immutable once written; warm the cache on create.
	if r.cache != nil {
		_ = r.cache.Set(ctx, cache.ResultCacheConfig.Prefix+result.SessionID, result, cache.ResultCacheConfig.TTL)
	}
	return nil
}

func (r *resultRepository) GetBySession(ctx context.Context, sessionID string) (*models.ExamResult, error) {
	cacheKey := cache.ResultCacheConfig.Prefix + sessionID
	if r.cache != nil {
		var cached models.ExamResult
		if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var result models.ExamResult
	if err := r.db.WithContext(ctx).First(&result, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, &result, cache.ResultCacheConfig.TTL)
	}
	return &result, nil
}

func (r *resultRepository) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.ExamResult, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ExamResult{})

	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.PaperID != nil {
		query = query.Where("paper_id = ?", *filters.PaperID)
	}
	if filters.MinScore != nil {
		query = query.Where("total_score >= ?", *filters.MinScore)
	}
	if filters.DateFrom != nil {
		query = query.Where("graded_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("graded_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var results []*models.ExamResult
	if err := query.Order("graded_at DESC").Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}
	return results, total, nil
}
