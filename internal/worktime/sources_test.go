package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOvertimeWindow_ExplicitOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	day := "2025-03-03"

	att := confirmed(day, 10)
	att.OvertimeHours = 2
	_, ok := OvertimeWindow(&att, logger)
	assert.False(t, ok)
	assert.Equal(t, 1, logs.Len(), "仅有时长的加班应记录数据质量告警")

	att.OvertimeStart = ptr(at(day, "18:00"))
	att.OvertimeEnd = ptr(at(day, "20:00"))
	iv, ok := OvertimeWindow(&att, logger)
	require.True(t, ok)
	assert.InDelta(t, 2, iv.Hours(), 1e-9)

	_, ok = OvertimeWindow(nil, logger)
	assert.False(t, ok)
}

func TestLeaveWindow_InvertedIgnored(t *testing.T) {
	day := "2025-03-03"
	att := confirmed(day, 8)
	att.LeaveStart = ptr(at(day, "12:00"))
	att.LeaveEnd = ptr(at(day, "09:00"))

	_, ok := LeaveWindow(&att, zap.NewNop())
	assert.False(t, ok)
}

func TestIncidentsWithin(t *testing.T) {
	incidents := []Incident{
		{Start: at("2025-03-03", "09:00"), End: at("2025-03-03", "10:00"), ApprovalStatus: ApprovalApproved},
		{Start: at("2025-03-03", "17:00"), End: at("2025-03-04", "10:00"), ApprovalStatus: ApprovalApproved},
		{Start: at("2025-03-03", "13:00"), End: at("2025-03-03", "14:00"), ApprovalStatus: "pending"},
	}
	windows := []Interval{
		{Start: at("2025-03-03", "08:30"), End: at("2025-03-03", "17:50")},
		{Start: at("2025-03-04", "08:30"), End: at("2025-03-04", "17:50")},
	}

	got := IncidentsWithin(incidents, windows)
	require.Len(t, got, 3)
	assert.Equal(t, Interval{Start: at("2025-03-03", "17:00"), End: at("2025-03-03", "17:50")}, got[1])
	assert.Equal(t, Interval{Start: at("2025-03-04", "08:30"), End: at("2025-03-04", "10:00")}, got[2])
}
