package dto

// ── 班次配置模块 DTO ──

// UpdateShiftScheduleRequest 更新班次配置请求
// 时间格式 "HH:MM"；首次创建时四个必填时间点都必须提供
type UpdateShiftScheduleRequest struct {
	ShiftStart      *string `json:"shift_start"`
	ShiftEnd        *string `json:"shift_end"`
	LunchStart      *string `json:"lunch_start"`
	LunchEnd        *string `json:"lunch_end"`
	ExtraBreakStart *string `json:"extra_break_start"`
	ExtraBreakEnd   *string `json:"extra_break_end"`
	ClearExtraBreak bool    `json:"clear_extra_break"` // 为 true 时删除额外休息时段
}

// ShiftScheduleResponse 班次配置响应
type ShiftScheduleResponse struct {
	ShiftStart      string  `json:"shift_start"`
	ShiftEnd        string  `json:"shift_end"`
	LunchStart      string  `json:"lunch_start"`
	LunchEnd        string  `json:"lunch_end"`
	ExtraBreakStart *string `json:"extra_break_start,omitempty"`
	ExtraBreakEnd   *string `json:"extra_break_end,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}
