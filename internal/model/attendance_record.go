package model

import "time"

// AttendanceRecord 每日考勤表 — 对应 attendance_records
// actual_hours = standard_hours + overtime_hours - leave_hours，由考勤子系统维护
type AttendanceRecord struct {
	AttendanceID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	UserID        string     `gorm:"type:uuid;not null;index:idx_attendance_user_date" json:"user_id"`
	WorkDate      time.Time  `gorm:"type:date;not null;index:idx_attendance_user_date" json:"work_date"`
	StandardHours float64    `gorm:"type:numeric(6,2);not null;default:0"           json:"standard_hours"`
	OvertimeHours float64    `gorm:"type:numeric(6,2);not null;default:0"           json:"overtime_hours"`
	OvertimeStart *time.Time `json:"overtime_start,omitempty"`
	OvertimeEnd   *time.Time `json:"overtime_end,omitempty"`
	LeaveHours    float64    `gorm:"type:numeric(6,2);not null;default:0"           json:"leave_hours"`
	LeaveStart    *time.Time `json:"leave_start,omitempty"`
	LeaveEnd      *time.Time `json:"leave_end,omitempty"`
	ActualHours   float64    `gorm:"type:numeric(6,2);not null;default:0"           json:"actual_hours"`
	IsConfirmed   bool       `gorm:"not null;default:false"                         json:"is_confirmed"`
	BaseModel
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
