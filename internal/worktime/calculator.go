package worktime

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Phase 一个工人在某任务某阶段上的分配及其开放窗口
type Phase struct {
	TaskID        string
	PhaseKey      string
	UserID        string
	Window        Interval
	StandardHours float64
}

// Input 单个 (任务, 阶段) 的核算输入
type Input struct {
	Phase      Phase
	Attendance []Attendance
	Incidents  []Incident
	Assists    []Assist
}

// DayBreakdown 每日明细
type DayBreakdown struct {
	Date           string  `json:"date"`
	HasAttendance  bool    `json:"has_attendance"`
	WindowOverlap  float64 `json:"window_overlap"`
	EffectiveHours float64 `json:"effective_hours"`
	ExceptionHours float64 `json:"exception_hours"`
}

// Result 效率核算结果；被锁定时整体序列化为快照
type Result struct {
	TaskID          string         `json:"task_id"`
	PhaseKey        string         `json:"phase_key"`
	UserID          string         `json:"user_id"`
	StandardHours   float64        `json:"standard_hours"`
	ActualWorkHours float64        `json:"actual_work_hours"`
	ExceptionHours  float64        `json:"exception_hours"`
	AssistHours     float64        `json:"assist_hours"`
	EffectiveHours  float64        `json:"effective_hours"`
	Efficiency      float64        `json:"efficiency"`
	Days            []DayBreakdown `json:"per_day_breakdown"`
}

// Calculator 工时核算器，绑定一份已加载的班次配置
type Calculator struct {
	schedule *ShiftSchedule
	loc      *time.Location
	logger   *zap.Logger
}

// NewCalculator 创建核算器；班次配置缺失或不合法时直接失败
func NewCalculator(schedule *ShiftSchedule, loc *time.Location, logger *zap.Logger) (*Calculator, error) {
	if schedule == nil {
		return nil, ErrShiftScheduleNotLoaded
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{schedule: schedule, loc: loc, logger: logger}, nil
}

// dayResult 单日累计的中间结果
type dayResult struct {
	breakdown DayBreakdown
	worked    []Interval // 当日 (班次 ∪ 加班) ∩ 阶段窗口
}

// Compute 核算单个 (任务, 阶段)
func (c *Calculator) Compute(in Input) (*Result, error) {
	p := in.Phase
	res := &Result{
		TaskID:        p.TaskID,
		PhaseKey:      p.PhaseKey,
		UserID:        p.UserID,
		StandardHours: p.StandardHours,
		Days:          []DayBreakdown{},
	}

	window := Interval{Start: p.Window.Start.In(c.loc), End: p.Window.End.In(c.loc)}
	if !window.Valid() {
		c.logger.Warn("阶段窗口无效，按零时长处理",
			zap.String("task_id", p.TaskID),
			zap.String("phase_key", p.PhaseKey),
			zap.Time("start", window.Start),
			zap.Time("end", window.End),
		)
		return res, nil
	}

	attendance := c.indexAttendance(in.Attendance)
	incidents := c.phaseIncidents(p, in.Incidents)

	var worked []Interval
	lastDay := EndOfDay(window.End)
	for d := StartOfDay(window.Start); !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		dr, err := c.accumulateDay(d, window, attendance, incidents, worked)
		if err != nil {
			return nil, err
		}
		res.Days = append(res.Days, dr.breakdown)
		res.ActualWorkHours += dr.breakdown.EffectiveHours
		res.ExceptionHours += dr.breakdown.ExceptionHours
		worked = Merge(append(worked, dr.worked...))
	}

	res.AssistHours = c.reconcileAssists(p, in.Assists, worked, incidents)
	c.aggregate(res)
	return res, nil
}

// indexAttendance 仅保留已确认考勤，按本地日期索引
func (c *Calculator) indexAttendance(rows []Attendance) map[string]*Attendance {
	idx := make(map[string]*Attendance, len(rows))
	for i := range rows {
		if !rows[i].Confirmed {
			continue
		}
		idx[DateKey(rows[i].Date.In(c.loc))] = &rows[i]
	}
	return idx
}

// phaseIncidents 仅保留属于本 (任务, 阶段, 用户) 且已审批的异常
func (c *Calculator) phaseIncidents(p Phase, rows []Incident) []Incident {
	out := make([]Incident, 0, len(rows))
	for _, inc := range rows {
		if inc.ApprovalStatus != ApprovalApproved {
			continue
		}
		if inc.TaskID != p.TaskID || inc.PhaseKey != p.PhaseKey {
			continue
		}
		if inc.UserID != "" && p.UserID != "" && inc.UserID != p.UserID {
			continue
		}
		inc.Start = inc.Start.In(c.loc)
		inc.End = inc.End.In(c.loc)
		out = append(out, inc)
	}
	return out
}

// accumulateDay 单日累计
//
//  1. 无已确认考勤 → 当日计 0
//  2. 班次时段 ∩ 阶段窗口 → workOverlap
//  3. 加班区间 ∩ 阶段窗口 → overtimeOverlap；raw = 两者之和
//  4. 请假与 (班次 ∩ 阶段窗口) 的重叠从 raw 中扣除，下限 0
//  5. 异常与 (班次 ∪ 加班) ∩ 阶段窗口 的重叠单独记录，不从 raw 扣除；
//     跨零点的异常在其覆盖的每一天各计一段，前几天已计入的时段不重复计
//  6. 当日有效工时 = min(raw, 考勤实际工时)
//
// claimed 为此前各天已累计的工作时段（已合并）
func (c *Calculator) accumulateDay(day time.Time, window Interval, attendance map[string]*Attendance, incidents []Incident, claimed []Interval) (dayResult, error) {
	key := DateKey(day)
	dr := dayResult{breakdown: DayBreakdown{Date: key}}

	att, ok := attendance[key]
	if !ok {
		c.logger.Debug("当日无已确认考勤，计 0 工时", zap.String("date", key))
		return dr, nil
	}
	dr.breakdown.HasAttendance = true

	shifts, err := BuildShiftWindows(c.schedule, day)
	if err != nil {
		return dr, err
	}
	workOverlap := SumOverlap(window, shifts)

	var overtimeOverlap float64
	windows := append([]Interval{}, shifts...)
	if ot, ok := OvertimeWindow(att, c.logger); ok {
		overtimeOverlap = window.Overlap(ot)
		windows = append(windows, ot)
	}
	raw := workOverlap + overtimeOverlap

	if leave, ok := LeaveWindow(att, c.logger); ok {
		var leaveDeduction float64
		for _, s := range shifts {
			if ps, ok := s.Intersect(window); ok {
				leaveDeduction += leave.Overlap(ps)
			}
		}
		raw = math.Max(0, raw-leaveDeduction)
	}

	dr.worked = Merge(Clip(windows, window))
	for _, iv := range IncidentsWithin(incidents, Subtract(dr.worked, claimed)) {
		dr.breakdown.ExceptionHours += iv.Hours()
	}

	effective := raw
	if att.ActualHours < effective {
		effective = math.Max(0, att.ActualHours)
	}

	dr.breakdown.WindowOverlap = raw
	dr.breakdown.EffectiveHours = effective
	return dr, nil
}

// reconcileAssists 汇总在其他任务/阶段上的有效协助时长
//
// 每条协助只按其落在 (班次 ∪ 加班) ∩ 阶段窗口 内的部分计算，
// 并扣除其中已被本阶段已审批异常覆盖的部分。
func (c *Calculator) reconcileAssists(p Phase, assists []Assist, worked []Interval, incidents []Incident) float64 {
	incIntervals := make([]Interval, 0, len(incidents))
	for _, inc := range incidents {
		incIntervals = append(incIntervals, inc.Interval())
	}
	incIntervals = Merge(incIntervals)

	var total float64
	for _, a := range assists {
		if a.ApprovalStatus != ApprovalApproved {
			continue
		}
		if a.HostTaskID == p.TaskID && a.HostPhaseKey == p.PhaseKey {
			continue
		}
		if a.AssistantUserID != "" && p.UserID != "" && a.AssistantUserID != p.UserID {
			continue
		}

		iv := a.Interval()
		var effective float64
		for _, w := range worked {
			part, ok := iv.Intersect(w)
			if !ok {
				continue
			}
			effective += part.Hours() - SumOverlap(part, incIntervals)
		}
		if effective > 0 {
			total += effective
		}
	}
	return total
}

// aggregate 计算有效工时与效率
func (c *Calculator) aggregate(res *Result) {
	res.EffectiveHours = res.ActualWorkHours - res.ExceptionHours - res.AssistHours
	eff := Efficiency(res.StandardHours, res.EffectiveHours)
	if math.IsNaN(eff) || math.IsInf(eff, 0) {
		c.logger.Error("效率计算异常，已置 0",
			zap.String("task_id", res.TaskID),
			zap.String("phase_key", res.PhaseKey),
			zap.Float64("standard_hours", res.StandardHours),
			zap.Float64("effective_hours", res.EffectiveHours),
		)
		eff = 0
	}
	res.Efficiency = eff
}

// Efficiency 效率(%) = 标准工时 / 有效工时 × 100；有效工时 <= 0 时为 0
func Efficiency(standardHours, effectiveHours float64) float64 {
	if !(effectiveHours > 0) {
		return 0
	}
	return standardHours / effectiveHours * 100
}
