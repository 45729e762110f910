package service

import (
	"fmt"
	"time"

	"github.com/longbo188/workshop-sub000/internal/model"
	"github.com/longbo188/workshop-sub000/internal/worktime"
)

// ── model → worktime 转换 ──

// toShiftSchedule 将持久化的班次配置转为核算用结构并校验
func toShiftSchedule(m *model.ShiftSchedule) (*worktime.ShiftSchedule, error) {
	if m == nil {
		return nil, worktime.ErrShiftScheduleNotLoaded
	}
	parse := func(field, v string) (worktime.ClockTime, error) {
		c, err := worktime.ParseClock(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", field, err)
		}
		return c, nil
	}

	var (
		sched worktime.ShiftSchedule
		err   error
	)
	if sched.ShiftStart, err = parse("shift_start", m.ShiftStart); err != nil {
		return nil, err
	}
	if sched.ShiftEnd, err = parse("shift_end", m.ShiftEnd); err != nil {
		return nil, err
	}
	if sched.LunchStart, err = parse("lunch_start", m.LunchStart); err != nil {
		return nil, err
	}
	if sched.LunchEnd, err = parse("lunch_end", m.LunchEnd); err != nil {
		return nil, err
	}
	if m.ExtraBreakStart != nil && *m.ExtraBreakStart != "" {
		c, err := parse("extra_break_start", *m.ExtraBreakStart)
		if err != nil {
			return nil, err
		}
		sched.ExtraBreakStart = &c
	}
	if m.ExtraBreakEnd != nil && *m.ExtraBreakEnd != "" {
		c, err := parse("extra_break_end", *m.ExtraBreakEnd)
		if err != nil {
			return nil, err
		}
		sched.ExtraBreakEnd = &c
	}

	if err := sched.Validate(); err != nil {
		return nil, err
	}
	return &sched, nil
}

// toPhase 构造核算阶段；调用方需保证 Computable()
func toPhase(p *model.TaskPhase) worktime.Phase {
	return worktime.Phase{
		TaskID:        p.TaskID,
		PhaseKey:      p.PhaseKey,
		UserID:        p.AssigneeID,
		Window:        worktime.Interval{Start: *p.StartTime, End: *p.EndTime},
		StandardHours: p.StandardHours,
	}
}

// calendarDate 将 DATE 列的值按日历日期重建到 loc 的零点
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func toAttendance(rows []model.AttendanceRecord, loc *time.Location) []worktime.Attendance {
	out := make([]worktime.Attendance, 0, len(rows))
	for _, r := range rows {
		out = append(out, worktime.Attendance{
			UserID:        r.UserID,
			Date:          calendarDate(r.WorkDate, loc),
			StandardHours: r.StandardHours,
			OvertimeHours: r.OvertimeHours,
			OvertimeStart: r.OvertimeStart,
			OvertimeEnd:   r.OvertimeEnd,
			LeaveHours:    r.LeaveHours,
			LeaveStart:    r.LeaveStart,
			LeaveEnd:      r.LeaveEnd,
			ActualHours:   r.ActualHours,
			Confirmed:     r.IsConfirmed,
		})
	}
	return out
}

func toIncidents(rows []model.ExceptionReport) []worktime.Incident {
	out := make([]worktime.Incident, 0, len(rows))
	for _, r := range rows {
		out = append(out, worktime.Incident{
			TaskID:         r.TaskID,
			PhaseKey:       r.PhaseKey,
			UserID:         r.UserID,
			Start:          r.StartTime,
			End:            r.EndTime,
			ApprovalStatus: r.ApprovalStatus,
		})
	}
	return out
}

func toAssists(rows []model.AssistRecord) []worktime.Assist {
	out := make([]worktime.Assist, 0, len(rows))
	for _, r := range rows {
		out = append(out, worktime.Assist{
			AssistantUserID: r.AssistantUserID,
			HostTaskID:      r.HostTaskID,
			HostPhaseKey:    r.HostPhaseKey,
			Start:           r.StartTime,
			End:             r.EndTime,
			ApprovalStatus:  r.ApprovalStatus,
		})
	}
	return out
}
