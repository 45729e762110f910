package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// HolidayRepository 内部节假日表数据访问接口
type HolidayRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error)
}

type holidayRepo struct {
	db *gorm.DB
}

// NewHolidayRepo 创建 HolidayRepository 实例
func NewHolidayRepo(db *gorm.DB) HolidayRepository {
	return &holidayRepo{db: db}
}

func (r *holidayRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	var holidays []model.Holiday
	err := r.db.WithContext(ctx).
		Where("holiday_date BETWEEN ? AND ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("holiday_date ASC").
		Find(&holidays).Error
	return holidays, err
}
