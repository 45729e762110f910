package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// ShiftScheduleRepository 班次配置数据访问接口
type ShiftScheduleRepository interface {
	Get(ctx context.Context) (*model.ShiftSchedule, error)
	Save(ctx context.Context, sched *model.ShiftSchedule) error
}

type shiftScheduleRepo struct {
	db *gorm.DB
}

// NewShiftScheduleRepo 创建 ShiftScheduleRepository 实例
func NewShiftScheduleRepo(db *gorm.DB) ShiftScheduleRepository {
	return &shiftScheduleRepo{db: db}
}

func (r *shiftScheduleRepo) Get(ctx context.Context) (*model.ShiftSchedule, error) {
	var sched model.ShiftSchedule
	err := r.db.WithContext(ctx).First(&sched).Error
	if err != nil {
		return nil, err
	}
	return &sched, nil
}

func (r *shiftScheduleRepo) Save(ctx context.Context, sched *model.ShiftSchedule) error {
	sched.Singleton = true
	return r.db.WithContext(ctx).Save(sched).Error
}
