package model

import "time"

// ExceptionReport 异常上报表 — 对应 exception_reports
type ExceptionReport struct {
	ReportID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"report_id"`
	TaskID         string    `gorm:"type:varchar(64);not null"                      json:"task_id"`
	PhaseKey       string    `gorm:"type:varchar(32);not null"                      json:"phase_key"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"user_id"`
	StartTime      time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime        time.Time `gorm:"not null"                                       json:"end_time"`
	Reason         string    `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	ApprovalStatus string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"approval_status"` // pending | approved | rejected
	BaseModel
}

// TableName 指定表名
func (ExceptionReport) TableName() string { return "exception_reports" }
