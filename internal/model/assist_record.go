package model

import "time"

// AssistRecord 协助记录表 — 对应 assist_records
// 协助人在宿主任务/阶段上花费的时间
type AssistRecord struct {
	AssistID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assist_id"`
	AssistantUserID string    `gorm:"type:uuid;not null"                             json:"assistant_user_id"`
	HostTaskID      string    `gorm:"type:varchar(64);not null"                      json:"host_task_id"`
	HostPhaseKey    string    `gorm:"type:varchar(32);not null"                      json:"host_phase_key"`
	StartTime       time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime         time.Time `gorm:"not null"                                       json:"end_time"`
	ApprovalStatus  string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"approval_status"`
	BaseModel
}

// TableName 指定表名
func (AssistRecord) TableName() string { return "assist_records" }
