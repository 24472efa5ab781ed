package repository

import (
	"context"

	"quiz_engine/internal/model"
	"quiz_engine/internal/util"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// GetCandidateIDs 返回满足部分筛选条件的题目ID，禁用与软删除的题目不参与
func (r *QuestionRepository) GetCandidateIDs(ctx context.Context, filter model.PartFilter) ([]string, error) {
	query := r.DB.WithContext(ctx).Model(&model.Question{}).Where("is_disabled = ?", false)

	if len(filter.Subjects) > 0 {
		query = query.Where("subject IN ?", filter.Subjects)
	}
	if len(filter.Difficulties) > 0 {
		query = query.Where("difficulty IN ?", filter.Difficulties)
	}
	if len(filter.GradeLevels) > 0 {
		query = query.Where("grade_level IN ?", filter.GradeLevels)
	}
	if len(filter.QuestionTypes) > 0 {
		query = query.Where("type IN ?", filter.QuestionTypes)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}

	var ids []string
	if err := query.Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, util.ClassifyReadError("get candidate ids", err)
	}
	return ids, nil
}

// GetQuestionsByIDs 单次查询一批题目，分块与重试由 service.QuestionFetcher 负责
func (r *QuestionRepository) GetQuestionsByIDs(ctx context.Context, ids []string, includeDeleted bool) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := r.DB.WithContext(ctx)
	if includeDeleted {
		query = query.Unscoped()
	}

	var qs []model.Question
	if err := query.Where("id IN ?", ids).Find(&qs).Error; err != nil {
		return nil, util.ClassifyReadError("get questions by ids", err)
	}
	return qs, nil
}
