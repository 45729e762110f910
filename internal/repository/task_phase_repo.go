package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// TaskPhaseRepository 任务阶段数据访问接口（只读）
type TaskPhaseRepository interface {
	Get(ctx context.Context, taskID, phaseKey string) (*model.TaskPhase, error)
	// ListComputable 列出开始/结束时间均已产生的阶段；taskIDs 为空时不限任务
	ListComputable(ctx context.Context, taskIDs []string) ([]model.TaskPhase, error)
	// ListEndedBefore 列出结束时间早于 cutoff 的阶段
	ListEndedBefore(ctx context.Context, cutoff time.Time) ([]model.TaskPhase, error)
}

type taskPhaseRepo struct {
	db *gorm.DB
}

// NewTaskPhaseRepo 创建 TaskPhaseRepository 实例
func NewTaskPhaseRepo(db *gorm.DB) TaskPhaseRepository {
	return &taskPhaseRepo{db: db}
}

func (r *taskPhaseRepo) Get(ctx context.Context, taskID, phaseKey string) (*model.TaskPhase, error) {
	var phase model.TaskPhase
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND phase_key = ?", taskID, phaseKey).
		First(&phase).Error
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

func (r *taskPhaseRepo) ListComputable(ctx context.Context, taskIDs []string) ([]model.TaskPhase, error) {
	var phases []model.TaskPhase
	query := r.db.WithContext(ctx).
		Where("start_time IS NOT NULL AND end_time IS NOT NULL")
	if len(taskIDs) > 0 {
		query = query.Where("task_id IN ?", taskIDs)
	}
	err := query.Order("task_id ASC, phase_key ASC").Find(&phases).Error
	return phases, err
}

func (r *taskPhaseRepo) ListEndedBefore(ctx context.Context, cutoff time.Time) ([]model.TaskPhase, error) {
	var phases []model.TaskPhase
	err := r.db.WithContext(ctx).
		Where("start_time IS NOT NULL AND end_time IS NOT NULL AND end_time < ?", cutoff).
		Order("end_time ASC").
		Find(&phases).Error
	return phases, err
}
