package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/internal/dto"
)

// ── 测试辅助 ──

func setupTestShiftScheduleService() (ShiftScheduleService, *mockShiftScheduleRepo) {
	repo, mocks := newTestRepos()
	return NewShiftScheduleService(repo, zap.NewNop()), mocks.schedule
}

func strPtr(s string) *string { return &s }

// ── Get 测试 ──

func TestShiftScheduleService_Get_Success(t *testing.T) {
	svc, _ := setupTestShiftScheduleService()

	result, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get 应成功: %v", err)
	}
	if result.ShiftStart != "08:30" || result.LunchEnd != "13:20" {
		t.Errorf("时间应统一为 HH:MM，实际 %s / %s", result.ShiftStart, result.LunchEnd)
	}
	if result.ExtraBreakStart != nil {
		t.Error("未配置额外休息时不应返回")
	}
}

func TestShiftScheduleService_Get_NotConfigured(t *testing.T) {
	svc, schedRepo := setupTestShiftScheduleService()
	schedRepo.sched = nil

	_, err := svc.Get(context.Background())
	if !errors.Is(err, ErrShiftScheduleNotConfigured) {
		t.Errorf("期望 ErrShiftScheduleNotConfigured，实际: %v", err)
	}
}

// ── Update 测试 ──

func TestShiftScheduleService_Update_Partial(t *testing.T) {
	svc, schedRepo := setupTestShiftScheduleService()

	req := &dto.UpdateShiftScheduleRequest{ExtraBreakStart: strPtr("15:30"), ExtraBreakEnd: strPtr("15:45")}
	result, err := svc.Update(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.ExtraBreakStart == nil || *result.ExtraBreakStart != "15:30" {
		t.Error("额外休息开始时间应为 15:30")
	}
	if result.ShiftStart != "08:30" {
		t.Errorf("未修改字段应保持不变，实际 %s", result.ShiftStart)
	}
	if schedRepo.sched.UpdatedBy == nil || *schedRepo.sched.UpdatedBy != "admin-1" {
		t.Error("应记录操作人")
	}
}

func TestShiftScheduleService_Update_ClearExtraBreak(t *testing.T) {
	svc, schedRepo := setupTestShiftScheduleService()
	schedRepo.sched.ExtraBreakStart = strPtr("15:30:00")
	schedRepo.sched.ExtraBreakEnd = strPtr("15:45:00")

	req := &dto.UpdateShiftScheduleRequest{ClearExtraBreak: true}
	result, err := svc.Update(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.ExtraBreakStart != nil || schedRepo.sched.ExtraBreakStart != nil {
		t.Error("额外休息应被清除")
	}
}

func TestShiftScheduleService_Update_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  dto.UpdateShiftScheduleRequest
	}{
		{"午休早于上班", dto.UpdateShiftScheduleRequest{LunchStart: strPtr("07:00")}},
		{"格式错误", dto.UpdateShiftScheduleRequest{ShiftEnd: strPtr("下午六点")}},
		{"额外休息只给一端", dto.UpdateShiftScheduleRequest{ExtraBreakStart: strPtr("15:00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, schedRepo := setupTestShiftScheduleService()
			_, err := svc.Update(context.Background(), &tt.req, "admin-1")
			if !errors.Is(err, ErrInvalidShiftSchedule) {
				t.Errorf("期望 ErrInvalidShiftSchedule，实际: %v", err)
			}
			if schedRepo.sched.ShiftStart != "08:30:00" {
				t.Error("校验失败时不应保存")
			}
		})
	}
}

func TestShiftScheduleService_Update_CreatesWhenMissing(t *testing.T) {
	svc, schedRepo := setupTestShiftScheduleService()
	schedRepo.sched = nil

	_, err := svc.Update(context.Background(), &dto.UpdateShiftScheduleRequest{ShiftStart: strPtr("08:00")}, "admin-1")
	if !errors.Is(err, ErrInvalidShiftSchedule) {
		t.Errorf("缺少必填时间点时应校验失败，实际: %v", err)
	}

	req := &dto.UpdateShiftScheduleRequest{
		ShiftStart: strPtr("08:00"),
		ShiftEnd:   strPtr("17:00"),
		LunchStart: strPtr("12:00"),
		LunchEnd:   strPtr("13:00"),
	}
	result, err := svc.Update(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	if result.ShiftEnd != "17:00" || schedRepo.sched == nil {
		t.Error("应创建班次配置")
	}
}
