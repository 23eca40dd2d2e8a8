package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CET-Mate/exam-session-service/internal/cache"
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
)

// RepositoryConfig carries the connections the postgres repositories need.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

type postgresRepository struct {
	db      *gorm.DB
	papers  *paperRepository
	session *sessionRepository
	answers *answerRepository
	results *resultRepository
}

// NewRepository builds the Repository over an existing gorm connection.
// The redis client is optional; without it paper lookups skip the cache.
func NewRepository(cfg RepositoryConfig) repositories.Repository {
	var helper *cache.CacheHelper
	if cfg.RedisClient != nil {
		helper = cache.NewCacheHelper(cfg.RedisClient, "exam:")
	}

	return &postgresRepository{
		db:      cfg.DB,
		papers:  &paperRepository{db: cfg.DB, cache: helper},
		session: &sessionRepository{db: cfg.DB},
		answers: &answerRepository{db: cfg.DB},
		results: &resultRepository{db: cfg.DB, cache: helper},
	}
}

// Open connects to Postgres and runs migrations.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&paperRow{},
		&models.ExamSession{},
		&models.SessionAnswer{},
		&models.ExamResult{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (r *postgresRepository) Paper() repositories.PaperRepository     { return r.papers }
func (r *postgresRepository) Session() repositories.SessionRepository { return r.session }
func (r *postgresRepository) Answer() repositories.AnswerRepository   { return r.answers }
func (r *postgresRepository) Result() repositories.ResultRepository   { return r.results }

func (r *postgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *postgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
