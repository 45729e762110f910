package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// AssistRecordRepository 协助记录数据访问接口（只读）
type AssistRecordRepository interface {
	// ListApprovedByAssistant 查询协助人在 [from, to) 内有重叠的已审批协助记录
	ListApprovedByAssistant(ctx context.Context, userID string, from, to time.Time) ([]model.AssistRecord, error)
}

type assistRecordRepo struct {
	db *gorm.DB
}

// NewAssistRecordRepo 创建 AssistRecordRepository 实例
func NewAssistRecordRepo(db *gorm.DB) AssistRecordRepository {
	return &assistRecordRepo{db: db}
}

func (r *assistRecordRepo) ListApprovedByAssistant(ctx context.Context, userID string, from, to time.Time) ([]model.AssistRecord, error) {
	var records []model.AssistRecord
	err := r.db.WithContext(ctx).
		Where("assistant_user_id = ? AND approval_status = ?", userID, model.ApprovalApproved).
		Where("start_time < ? AND end_time > ?", to, from).
		Order("start_time ASC").
		Find(&records).Error
	return records, err
}
