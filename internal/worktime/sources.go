package worktime

import (
	"time"

	"go.uber.org/zap"
)

// ApprovalApproved 审批通过状态
const ApprovalApproved = "approved"

// Attendance 某用户某日已确认的考勤
//
// 加班、请假只有在显式记录了开始与结束时间时才参与区间运算；
// 仅有时长没有区间的记录视为数据质量问题，不会推算区间。
type Attendance struct {
	UserID        string
	Date          time.Time
	StandardHours float64
	OvertimeHours float64
	OvertimeStart *time.Time
	OvertimeEnd   *time.Time
	LeaveHours    float64
	LeaveStart    *time.Time
	LeaveEnd      *time.Time
	ActualHours   float64
	Confirmed     bool
}

// Incident 已审批的异常时段（归属于某任务的某阶段）
type Incident struct {
	TaskID         string
	PhaseKey       string
	UserID         string
	Start          time.Time
	End            time.Time
	ApprovalStatus string
}

// Interval 返回异常时段
func (i Incident) Interval() Interval { return Interval{Start: i.Start, End: i.End} }

// Assist 已审批的协助记录：协助人在 Host 任务/阶段上花费的时间
type Assist struct {
	AssistantUserID string
	HostTaskID      string
	HostPhaseKey    string
	Start           time.Time
	End             time.Time
	ApprovalStatus  string
}

// Interval 返回协助时段
func (a Assist) Interval() Interval { return Interval{Start: a.Start, End: a.End} }

// explicitWindow 仅当开始与结束都存在时构造区间
func explicitWindow(start, end *time.Time) (Interval, bool) {
	if start == nil || end == nil {
		return Interval{}, false
	}
	iv := Interval{Start: *start, End: *end}
	return iv, iv.Valid()
}

// OvertimeWindow 提取当日加班区间
func OvertimeWindow(att *Attendance, logger *zap.Logger) (Interval, bool) {
	if att == nil {
		return Interval{}, false
	}
	iv, ok := explicitWindow(att.OvertimeStart, att.OvertimeEnd)
	if !ok && att.OvertimeHours > 0 {
		logger.Warn("加班仅有时长无显式区间，已忽略",
			zap.String("user_id", att.UserID),
			zap.String("date", DateKey(att.Date)),
			zap.Float64("overtime_hours", att.OvertimeHours),
		)
	}
	return iv, ok
}

// LeaveWindow 提取当日请假区间
func LeaveWindow(att *Attendance, logger *zap.Logger) (Interval, bool) {
	if att == nil {
		return Interval{}, false
	}
	iv, ok := explicitWindow(att.LeaveStart, att.LeaveEnd)
	if !ok && att.LeaveHours > 0 {
		logger.Warn("请假仅有时长无显式区间，已忽略",
			zap.String("user_id", att.UserID),
			zap.String("date", DateKey(att.Date)),
			zap.Float64("leave_hours", att.LeaveHours),
		)
	}
	return iv, ok
}

// IncidentsWithin 返回已审批异常落在 windows 内的部分，结果已合并
//
// 跨零点的异常按各自落入的时段拆分，不以开始日期归属
func IncidentsWithin(incidents []Incident, windows []Interval) []Interval {
	approved := make([]Interval, 0, len(incidents))
	for _, inc := range incidents {
		if inc.ApprovalStatus == ApprovalApproved {
			approved = append(approved, inc.Interval())
		}
	}

	approved = Merge(approved)
	var out []Interval
	for _, w := range Merge(windows) {
		out = append(out, Clip(approved, w)...)
	}
	return Merge(out)
}
