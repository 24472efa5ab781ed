package repository

import (
	"context"
	"errors"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"

	"gorm.io/gorm"
)

// QuizResultRepository 每次写入都是单行单语句，作答数组作为 JSON 列随行写入。
// 同一成绩被两位老师同时修改时以最后一次写入为准，不做乐观锁。
type QuizResultRepository struct {
	DB *gorm.DB
}

func NewQuizResultRepository(db *gorm.DB) *QuizResultRepository {
	return &QuizResultRepository{DB: db}
}

func (r *QuizResultRepository) Create(ctx context.Context, result *model.QuizResult) error {
	return r.DB.WithContext(ctx).Create(result).Error
}

func (r *QuizResultRepository) Update(ctx context.Context, result *model.QuizResult) error {
	return r.DB.WithContext(ctx).Save(result).Error
}

func (r *QuizResultRepository) FindByID(ctx context.Context, id string) (*model.QuizResult, error) {
	var result model.QuizResult
	err := r.DB.WithContext(ctx).First(&result, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrResultNotFound
	}
	if err != nil {
		return nil, util.ClassifyReadError("find quiz result", err)
	}
	return &result, nil
}

func (r *QuizResultRepository) ListByStatus(ctx context.Context, status model.ResultStatus, page, limit int) ([]model.QuizResult, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.QuizResult{}).Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, util.ClassifyReadError("count quiz results", err)
	}

	var results []model.QuizResult
	offset := (page - 1) * limit
	if err := query.Order("created_at asc").Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, 0, util.ClassifyReadError("list quiz results", err)
	}
	return results, total, nil
}
