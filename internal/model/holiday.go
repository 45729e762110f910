package model

import "time"

// Holiday 内部节假日表 — 对应 holidays（外部日历不可用时的兜底）
type Holiday struct {
	HolidayDate time.Time `gorm:"type:date;primaryKey"       json:"holiday_date"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	BaseModel
}

// TableName 指定表名
func (Holiday) TableName() string { return "holidays" }
