package model

import "time"

// TaskPhase 任务阶段表 — 对应 task_phases
// 开始/结束时间由外部任务状态机写入；任一为空说明阶段尚不可核算
type TaskPhase struct {
	TaskID        string     `gorm:"type:varchar(64);primaryKey"          json:"task_id"`
	PhaseKey      string     `gorm:"type:varchar(32);primaryKey"          json:"phase_key"` // machining | electrical | pre_assembly | post_assembly | debugging
	AssigneeID    string     `gorm:"type:uuid;not null"                   json:"assignee_id"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	StandardHours float64    `gorm:"type:numeric(8,2);not null;default:0" json:"standard_hours"` // 阶段标准工时（任务配置）
	BaseModel
}

// TableName 指定表名
func (TaskPhase) TableName() string { return "task_phases" }

// Computable 开始与结束时间均已产生
func (p *TaskPhase) Computable() bool {
	return p.StartTime != nil && p.EndTime != nil
}
