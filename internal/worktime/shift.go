package worktime

import (
	"errors"
	"fmt"
	"time"
)

// ErrShiftScheduleNotLoaded 班次配置未加载：硬性失败，绝不使用默认班次
var ErrShiftScheduleNotLoaded = errors.New("班次配置未加载")

// ErrInvalidShiftSchedule 班次配置不合法
var ErrInvalidShiftSchedule = errors.New("班次配置不合法")

// ClockTime 一天内的钟点（时:分）
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"
func ParseClock(s string) (ClockTime, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("%w: 无法解析时间 %q", ErrInvalidShiftSchedule, s)
}

// On 将钟点落到指定日期（沿用 day 的时区）
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// String 格式化为 "HH:MM"
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ShiftSchedule 班次配置：上下班时间、午休，以及一个可选的额外休息
type ShiftSchedule struct {
	ShiftStart      ClockTime
	ShiftEnd        ClockTime
	LunchStart      ClockTime
	LunchEnd        ClockTime
	ExtraBreakStart *ClockTime
	ExtraBreakEnd   *ClockTime
}

// Validate 校验钟点顺序：上班 < 午休开始 <= 午休结束 < 下班；额外休息需成对且位于班次内
func (s *ShiftSchedule) Validate() error {
	if s == nil {
		return ErrShiftScheduleNotLoaded
	}
	if !(s.ShiftStart.minutes() < s.LunchStart.minutes() &&
		s.LunchStart.minutes() <= s.LunchEnd.minutes() &&
		s.LunchEnd.minutes() < s.ShiftEnd.minutes()) {
		return fmt.Errorf("%w: 上班/午休/下班时间顺序错误", ErrInvalidShiftSchedule)
	}
	if (s.ExtraBreakStart == nil) != (s.ExtraBreakEnd == nil) {
		return fmt.Errorf("%w: 额外休息的开始与结束必须同时配置", ErrInvalidShiftSchedule)
	}
	if s.ExtraBreakStart != nil {
		bs, be := s.ExtraBreakStart.minutes(), s.ExtraBreakEnd.minutes()
		if bs >= be || bs < s.ShiftStart.minutes() || be > s.ShiftEnd.minutes() {
			return fmt.Errorf("%w: 额外休息必须位于班次内且开始早于结束", ErrInvalidShiftSchedule)
		}
	}
	return nil
}

// BuildShiftWindows 生成指定日期扣除休息后的工作时段，按时间升序
//
// 先以午休拆为 [上班,午休开始] 与 [午休结束,下班] 两段，
// 若配置了额外休息，再将与其重叠的段拆为左右两个余段，丢弃空段。
func BuildShiftWindows(sched *ShiftSchedule, day time.Time) ([]Interval, error) {
	if sched == nil {
		return nil, ErrShiftScheduleNotLoaded
	}

	segments := []Interval{
		{Start: sched.ShiftStart.On(day), End: sched.LunchStart.On(day)},
		{Start: sched.LunchEnd.On(day), End: sched.ShiftEnd.On(day)},
	}

	if sched.ExtraBreakStart != nil && sched.ExtraBreakEnd != nil {
		brk := Interval{Start: sched.ExtraBreakStart.On(day), End: sched.ExtraBreakEnd.On(day)}
		if brk.Valid() {
			split := make([]Interval, 0, len(segments)+1)
			for _, seg := range segments {
				if seg.Overlap(brk) == 0 {
					split = append(split, seg)
					continue
				}
				split = append(split,
					Interval{Start: seg.Start, End: brk.Start},
					Interval{Start: brk.End, End: seg.End},
				)
			}
			segments = split
		}
	}

	out := segments[:0]
	for _, seg := range segments {
		if seg.Valid() {
			out = append(out, seg)
		}
	}
	return out, nil
}
