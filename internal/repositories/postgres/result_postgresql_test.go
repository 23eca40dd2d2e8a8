package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/CET-Mate/exam-session-service/internal/cache"
	"github.com/CET-Mate/exam-session-service/internal/models"
)

func newTestCacheHelper(t *testing.T) *cache.CacheHelper {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewCacheHelper(client, "exam:")
}

func TestResultRepository_GetBySession_CacheHit(t *testing.T) {
	helper := newTestCacheHelper(t)
	ctx := context.Background()

	stored := &models.ExamResult{
		ID:         "res-1",
		SessionID:  "sess-1",
		PaperID:    1,
		StudentID:  "student-1",
		TotalScore: 73.5,
		Grade:      "good",
		GradedAt:   time.Now(),
	}
	cacheKey := cache.ResultCacheConfig.Prefix + stored.SessionID
	if err := helper.Set(ctx, cacheKey, stored, cache.ResultCacheConfig.TTL); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	// No database behind the repository: a cached result must be served
	// without touching it.
	repo := &resultRepository{cache: helper}
	got, err := repo.GetBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if got.ID != "res-1" || got.TotalScore != 73.5 || got.Grade != "good" {
		t.Errorf("unexpected cached result %+v", got)
	}
}
