package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── 节假日 ICS 解析器 ──────────────────────────────────────
//
// 职责：将公共节假日日历 (RFC 5545) 解析为节假日日期列表。
//
// 约定：
//   - 仅识别全天事件；DTEND 为开区间，缺省时按单日处理
//   - 标题含「补班」「上班」的事件是调休工作日，跳过
//   - 同一日期出现多次只保留第一条
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize      = 5 * 1024 * 1024 // 5MB
	icsDefaultTimeout   = 10 * time.Second
	icsMaxEventSpanDays = 31
)

// holidayEntry ICS 解析结果
type holidayEntry struct {
	Date time.Time
	Name string
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}
	if timeout <= 0 {
		timeout = icsDefaultTimeout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("构造 ICS 请求失败: %w", err)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseHolidayICS 解析 ICS 内容，返回按出现顺序去重后的节假日
func ParseHolidayICS(reader io.Reader, loc *time.Location) ([]holidayEntry, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[string]bool)
	var result []holidayEntry
	for _, evt := range cal.Events() {
		for _, h := range parseHolidayEvent(evt, loc) {
			key := h.Date.Format("2006-01-02")
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, h)
		}
	}
	return result, nil
}

// parseHolidayEvent 将单个全天事件展开为逐日条目
func parseHolidayEvent(evt *ics.VEvent, loc *time.Location) []holidayEntry {
	var name string
	if summary := evt.GetProperty(ics.ComponentPropertySummary); summary != nil {
		name = strings.TrimSpace(summary.Value)
	}
	if strings.Contains(name, "补班") || strings.Contains(name, "上班") {
		return nil
	}

	start, err := parseICSDate(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil
	}
	end, err := parseICSDate(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil || !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}

	var out []holidayEntry
	for d, n := start, 0; d.Before(end) && n < icsMaxEventSpanDays; d, n = d.AddDate(0, 0, 1), n+1 {
		out = append(out, holidayEntry{Date: d, Name: name})
	}
	return out
}

// parseICSDate 解析日期属性并归一到 loc 的零点
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	formats := []string{
		"20060102",
		"20060102T150405Z",
		"20060102T150405",
	}
	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			t = t.In(loc)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
