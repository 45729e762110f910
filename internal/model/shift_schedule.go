package model

// ShiftSchedule 班次配置表 — 对应 shift_schedules（单行强类型）
type ShiftSchedule struct {
	Singleton       bool    `gorm:"primaryKey;default:true"  json:"-"`
	ShiftStart      string  `gorm:"type:time;not null"       json:"shift_start"`
	ShiftEnd        string  `gorm:"type:time;not null"       json:"shift_end"`
	LunchStart      string  `gorm:"type:time;not null"       json:"lunch_start"`
	LunchEnd        string  `gorm:"type:time;not null"       json:"lunch_end"`
	ExtraBreakStart *string `gorm:"type:time"                json:"extra_break_start,omitempty"`
	ExtraBreakEnd   *string `gorm:"type:time"                json:"extra_break_end,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ShiftSchedule) TableName() string { return "shift_schedules" }
