package repository

import (
	"context"

	"quiz_engine/internal/model"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	DB *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

func (r *AuditLogRepository) ListByResult(ctx context.Context, resultID string) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.DB.WithContext(ctx).Where("result_id = ?", resultID).Order("created_at asc").Find(&logs).Error
	return logs, err
}
