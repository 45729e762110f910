package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// ExceptionReportRepository 异常上报数据访问接口（只读）
type ExceptionReportRepository interface {
	// ListApprovedByPhase 查询某用户在某任务阶段上已审批的异常
	ListApprovedByPhase(ctx context.Context, taskID, phaseKey, userID string) ([]model.ExceptionReport, error)
}

type exceptionReportRepo struct {
	db *gorm.DB
}

// NewExceptionReportRepo 创建 ExceptionReportRepository 实例
func NewExceptionReportRepo(db *gorm.DB) ExceptionReportRepository {
	return &exceptionReportRepo{db: db}
}

func (r *exceptionReportRepo) ListApprovedByPhase(ctx context.Context, taskID, phaseKey, userID string) ([]model.ExceptionReport, error) {
	var reports []model.ExceptionReport
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND phase_key = ? AND user_id = ?", taskID, phaseKey, userID).
		Where("approval_status = ?", model.ApprovalApproved).
		Order("start_time ASC").
		Find(&reports).Error
	return reports, err
}
