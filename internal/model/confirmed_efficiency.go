package model

import "time"

// ConfirmedEfficiency 已锁定效率快照表 — 对应 confirmed_efficiencies
// 快照写入后不再修改，只能通过管理操作整体清空
type ConfirmedEfficiency struct {
	TaskID      string    `gorm:"type:varchar(64);primaryKey" json:"task_id"`
	PhaseKey    string    `gorm:"type:varchar(32);primaryKey" json:"phase_key"`
	Snapshot    string    `gorm:"type:jsonb;not null"         json:"snapshot"`
	ConfirmedAt time.Time `gorm:"not null"                    json:"confirmed_at"`
}

// TableName 指定表名
func (ConfirmedEfficiency) TableName() string { return "confirmed_efficiencies" }
