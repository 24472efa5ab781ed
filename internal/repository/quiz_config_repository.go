package repository

import (
	"context"
	"errors"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"

	"gorm.io/gorm"
)

type QuizConfigRepository struct {
	DB *gorm.DB
}

func NewQuizConfigRepository(db *gorm.DB) *QuizConfigRepository {
	return &QuizConfigRepository{DB: db}
}

// GetConfig 不存在时返回 (nil, nil)
func (r *QuizConfigRepository) GetConfig(ctx context.Context, id string, includeDeleted bool) (*model.QuizConfig, error) {
	query := r.DB.WithContext(ctx)
	if includeDeleted {
		query = query.Unscoped()
	}

	var cfg model.QuizConfig
	err := query.First(&cfg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, util.ClassifyReadError("get quiz config", err)
	}
	return &cfg, nil
}
