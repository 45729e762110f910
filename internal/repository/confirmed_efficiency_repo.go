package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// ConfirmedEfficiencyRepository 已锁定效率快照数据访问接口
//
// 以 (task_id, phase_key) 为键；重复写入同一键不会覆盖已有快照
type ConfirmedEfficiencyRepository interface {
	Get(ctx context.Context, taskID, phaseKey string) (*model.ConfirmedEfficiency, error)
	List(ctx context.Context) ([]model.ConfirmedEfficiency, error)
	Save(ctx context.Context, entry *model.ConfirmedEfficiency) error
	DeleteAll(ctx context.Context) (int64, error)
}

type confirmedEfficiencyRepo struct {
	db *gorm.DB
}

// NewConfirmedEfficiencyRepo 创建 ConfirmedEfficiencyRepository 实例
func NewConfirmedEfficiencyRepo(db *gorm.DB) ConfirmedEfficiencyRepository {
	return &confirmedEfficiencyRepo{db: db}
}

func (r *confirmedEfficiencyRepo) Get(ctx context.Context, taskID, phaseKey string) (*model.ConfirmedEfficiency, error) {
	var entry model.ConfirmedEfficiency
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND phase_key = ?", taskID, phaseKey).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *confirmedEfficiencyRepo) List(ctx context.Context) ([]model.ConfirmedEfficiency, error) {
	var entries []model.ConfirmedEfficiency
	err := r.db.WithContext(ctx).
		Order("task_id ASC, phase_key ASC").
		Find(&entries).Error
	return entries, err
}

func (r *confirmedEfficiencyRepo) Save(ctx context.Context, entry *model.ConfirmedEfficiency) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *confirmedEfficiencyRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.ConfirmedEfficiency{})
	return result.RowsAffected, result.Error
}
