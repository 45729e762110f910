package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
)

// AttendanceRepository 考勤数据访问接口（只读）
type AttendanceRepository interface {
	// ListConfirmed 查询用户在 [from, to] 日期范围内已确认的考勤
	ListConfirmed(ctx context.Context, userID string, from, to time.Time) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) ListConfirmed(ctx context.Context, userID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var rows []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_confirmed = ?", userID, true).
		Where("work_date BETWEEN ? AND ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("work_date ASC").
		Find(&rows).Error
	return rows, err
}
