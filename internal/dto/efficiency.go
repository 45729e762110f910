package dto

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/longbo188/workshop-sub000/internal/worktime"
)

// ── 效率核算模块 DTO ──

// RunEfficiencyRequest 批量核算请求；task_ids 为空时核算全部可核算阶段
type RunEfficiencyRequest struct {
	TaskIDs []string `json:"task_ids" binding:"omitempty,max=500,dive,required,max=64"`
}

// DayBreakdownResponse 每日明细
type DayBreakdownResponse struct {
	Date           string          `json:"date"`
	HasAttendance  bool            `json:"has_attendance"`
	WindowOverlap  decimal.Decimal `json:"window_overlap"`
	EffectiveHours decimal.Decimal `json:"effective_hours"`
	ExceptionHours decimal.Decimal `json:"exception_hours"`
}

// EfficiencyResponse 单个 (任务, 阶段) 的效率结果
// 工时保留 2 位小数，效率保留 1 位小数
type EfficiencyResponse struct {
	TaskID          string                 `json:"task_id"`
	PhaseKey        string                 `json:"phase_key"`
	UserID          string                 `json:"user_id"`
	StandardHours   decimal.Decimal        `json:"standard_hours"`
	ActualWorkHours decimal.Decimal        `json:"actual_work_hours"`
	ExceptionHours  decimal.Decimal        `json:"exception_hours"`
	AssistHours     decimal.Decimal        `json:"assist_hours"`
	EffectiveHours  decimal.Decimal        `json:"effective_hours"`
	Efficiency      decimal.Decimal        `json:"efficiency"`
	Confirmed       bool                   `json:"confirmed"`
	ConfirmedAt     string                 `json:"confirmed_at,omitempty"`
	PerDayBreakdown []DayBreakdownResponse `json:"per_day_breakdown"`
}

// PairFailureResponse 批量核算中的失败项
type PairFailureResponse struct {
	TaskID   string `json:"task_id"`
	PhaseKey string `json:"phase_key"`
	Error    string `json:"error"`
}

// RunEfficiencyResponse 批量核算响应
type RunEfficiencyResponse struct {
	Results        []EfficiencyResponse  `json:"results"`
	Failures       []PairFailureResponse `json:"failures"`
	NewlyConfirmed int                   `json:"newly_confirmed"`
}

// ConfirmResponse 锁定任务响应
type ConfirmResponse struct {
	Confirmed int `json:"confirmed"`
}

// ClearConfirmationsResponse 清空锁定响应
type ClearConfirmationsResponse struct {
	Cleared int64 `json:"cleared"`
}

// NewEfficiencyResponse 由核算结果构造响应
func NewEfficiencyResponse(res *worktime.Result, confirmed bool, confirmedAt *time.Time) EfficiencyResponse {
	resp := EfficiencyResponse{
		TaskID:          res.TaskID,
		PhaseKey:        res.PhaseKey,
		UserID:          res.UserID,
		StandardHours:   Hours(res.StandardHours),
		ActualWorkHours: Hours(res.ActualWorkHours),
		ExceptionHours:  Hours(res.ExceptionHours),
		AssistHours:     Hours(res.AssistHours),
		EffectiveHours:  Hours(res.EffectiveHours),
		Efficiency:      Percent(res.Efficiency),
		Confirmed:       confirmed,
		PerDayBreakdown: make([]DayBreakdownResponse, 0, len(res.Days)),
	}
	if confirmedAt != nil {
		resp.ConfirmedAt = confirmedAt.Format(time.RFC3339)
	}
	for _, d := range res.Days {
		resp.PerDayBreakdown = append(resp.PerDayBreakdown, DayBreakdownResponse{
			Date:           d.Date,
			HasAttendance:  d.HasAttendance,
			WindowOverlap:  Hours(d.WindowOverlap),
			EffectiveHours: Hours(d.EffectiveHours),
			ExceptionHours: Hours(d.ExceptionHours),
		})
	}
	return resp
}

// Hours 工时保留 2 位小数
func Hours(v float64) decimal.Decimal {
	return round(v, 2)
}

// Percent 效率保留 1 位小数
func Percent(v float64) decimal.Decimal {
	return round(v, 1)
}

func round(v float64, places int32) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(places)
}
