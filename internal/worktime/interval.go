// Package worktime 实现工时核算引擎：区间运算、班次窗口、每日数据源提取、
// 每日累计、异常与协助扣减以及效率汇总。
//
// 本包不做任何 I/O，所有输入由 service 层从仓储加载后传入。
package worktime

import (
	"sort"
	"time"
)

// Interval 左闭右开的时间区间 [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid 区间长度大于 0
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Hours 区间时长（小时），无效区间为 0
func (iv Interval) Hours() float64 {
	if !iv.Valid() {
		return 0
	}
	return iv.End.Sub(iv.Start).Hours()
}

// Intersect 返回两个区间的交集；无交集时 ok=false
func (iv Interval) Intersect(o Interval) (Interval, bool) {
	start := iv.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := iv.End
	if o.End.Before(end) {
		end = o.End
	}
	out := Interval{Start: start, End: end}
	return out, out.Valid()
}

// Overlap 两个区间重叠的小时数
func (iv Interval) Overlap(o Interval) float64 {
	return OverlapHours(iv.Start, iv.End, o.Start, o.End)
}

// OverlapHours 计算 [aStart,aEnd) 与 [bStart,bEnd) 的重叠小时数
// 不相交或任一区间倒置时返回 0，永不为负
func OverlapHours(aStart, aEnd, bStart, bEnd time.Time) float64 {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// SameDay 按 a 所在时区比较两个时间的日历日期
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay 返回当日 00:00:00（t 所在时区）
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay 返回当日 23:59:59.999（t 所在时区），用于按天遍历时包含最后一天
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DateKey 日期键 "2006-01-02"
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Merge 合并重叠或相邻的区间，结果按开始时间升序；无效区间被丢弃
func Merge(ivs []Interval) []Interval {
	valid := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Valid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Clip 将区间集合裁剪到 bound 范围内
func Clip(ivs []Interval, bound Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if x, ok := iv.Intersect(bound); ok {
			out = append(out, x)
		}
	}
	return out
}

// SumOverlap 区间 iv 与集合 set 中各区间重叠小时数之和
func SumOverlap(iv Interval, set []Interval) float64 {
	var total float64
	for _, s := range set {
		total += iv.Overlap(s)
	}
	return total
}

// Subtract 从区间集合 ivs 中去掉 cut 覆盖的部分，结果已合并
func Subtract(ivs, cut []Interval) []Interval {
	cut = Merge(cut)
	var out []Interval
	for _, iv := range Merge(ivs) {
		rest := iv
		for _, c := range cut {
			if !c.End.After(rest.Start) {
				continue
			}
			if !c.Start.Before(rest.End) {
				break
			}
			if c.Start.After(rest.Start) {
				out = append(out, Interval{Start: rest.Start, End: c.Start})
			}
			rest.Start = c.End
			if !rest.Valid() {
				break
			}
		}
		if rest.Valid() {
			out = append(out, rest)
		}
	}
	return out
}
