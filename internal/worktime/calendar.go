package worktime

import "time"

// HolidaySet 非工作日集合，键为 "2006-01-02"
type HolidaySet map[string]struct{}

// NewHolidaySet 由日期列表构造
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add 加入一个日期
func (h HolidaySet) Add(d time.Time) {
	h[DateKey(d)] = struct{}{}
}

// Contains 是否为节假日
func (h HolidaySet) Contains(d time.Time) bool {
	_, ok := h[DateKey(d)]
	return ok
}

// IsWorkingDay 非周末且不在节假日集合中
func IsWorkingDay(d time.Time, holidays HolidaySet) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays.Contains(d)
}

// WorkingDayCutoff 返回 today 之前第 n 个工作日的零点
// 结束时间早于该时刻的阶段视为已关闭，结果需要锁定
func WorkingDayCutoff(today time.Time, n int, holidays HolidaySet) time.Time {
	d := StartOfDay(today)
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, -1)
		if IsWorkingDay(d, holidays) {
			counted++
		}
	}
	return d
}

// ShouldConfirm 阶段结束时间是否早于锁定阈值
func ShouldConfirm(phaseEnd, today time.Time, n int, holidays HolidaySet) bool {
	return phaseEnd.Before(WorkingDayCutoff(today, n, holidays))
}
