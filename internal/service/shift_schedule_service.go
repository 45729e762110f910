package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/dto"
	"github.com/longbo188/workshop-sub000/internal/model"
	"github.com/longbo188/workshop-sub000/internal/repository"
	"github.com/longbo188/workshop-sub000/internal/worktime"
)

// ── 班次配置模块业务错误 ──

var (
	ErrInvalidShiftSchedule = worktime.ErrInvalidShiftSchedule
)

// ShiftScheduleService 班次配置业务接口
type ShiftScheduleService interface {
	Get(ctx context.Context) (*dto.ShiftScheduleResponse, error)
	Update(ctx context.Context, req *dto.UpdateShiftScheduleRequest, callerID string) (*dto.ShiftScheduleResponse, error)
}

type shiftScheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShiftScheduleService 创建 ShiftScheduleService 实例
func NewShiftScheduleService(repo *repository.Repository, logger *zap.Logger) ShiftScheduleService {
	return &shiftScheduleService{repo: repo, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *shiftScheduleService) Get(ctx context.Context) (*dto.ShiftScheduleResponse, error) {
	sched, err := s.repo.ShiftSchedule.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftScheduleNotConfigured
		}
		s.logger.Error("查询班次配置失败", zap.Error(err))
		return nil, err
	}
	return toShiftScheduleResponse(sched), nil
}

// ────────────────────── Update ──────────────────────

// Update 部分更新；配置不存在时按请求创建
//
// 已锁定的效率快照不受班次变更影响。
func (s *shiftScheduleService) Update(ctx context.Context, req *dto.UpdateShiftScheduleRequest, callerID string) (*dto.ShiftScheduleResponse, error) {
	sched, err := s.repo.ShiftSchedule.Get(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询班次配置失败", zap.Error(err))
			return nil, err
		}
		sched = &model.ShiftSchedule{}
	}

	if req.ShiftStart != nil {
		sched.ShiftStart = *req.ShiftStart
	}
	if req.ShiftEnd != nil {
		sched.ShiftEnd = *req.ShiftEnd
	}
	if req.LunchStart != nil {
		sched.LunchStart = *req.LunchStart
	}
	if req.LunchEnd != nil {
		sched.LunchEnd = *req.LunchEnd
	}
	if req.ClearExtraBreak {
		sched.ExtraBreakStart = nil
		sched.ExtraBreakEnd = nil
	} else {
		if req.ExtraBreakStart != nil {
			sched.ExtraBreakStart = req.ExtraBreakStart
		}
		if req.ExtraBreakEnd != nil {
			sched.ExtraBreakEnd = req.ExtraBreakEnd
		}
	}

	// 校验并统一为 "HH:MM"
	parsed, err := toShiftSchedule(sched)
	if err != nil {
		if errors.Is(err, worktime.ErrInvalidShiftSchedule) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidShiftSchedule, err)
	}
	normalizeShiftSchedule(sched, parsed)

	if callerID != "" {
		sched.UpdatedBy = &callerID
	}
	if err := s.repo.ShiftSchedule.Save(ctx, sched); err != nil {
		s.logger.Error("保存班次配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("班次配置已更新",
		zap.String("shift", sched.ShiftStart+"-"+sched.ShiftEnd),
		zap.String("lunch", sched.LunchStart+"-"+sched.LunchEnd),
		zap.String("operator", callerID),
	)
	return toShiftScheduleResponse(sched), nil
}

func normalizeShiftSchedule(m *model.ShiftSchedule, parsed *worktime.ShiftSchedule) {
	m.ShiftStart = parsed.ShiftStart.String()
	m.ShiftEnd = parsed.ShiftEnd.String()
	m.LunchStart = parsed.LunchStart.String()
	m.LunchEnd = parsed.LunchEnd.String()
	m.ExtraBreakStart, m.ExtraBreakEnd = nil, nil
	if parsed.ExtraBreakStart != nil && parsed.ExtraBreakEnd != nil {
		start, end := parsed.ExtraBreakStart.String(), parsed.ExtraBreakEnd.String()
		m.ExtraBreakStart, m.ExtraBreakEnd = &start, &end
	}
}

func toShiftScheduleResponse(m *model.ShiftSchedule) *dto.ShiftScheduleResponse {
	resp := &dto.ShiftScheduleResponse{
		ShiftStart: trimSeconds(m.ShiftStart),
		ShiftEnd:   trimSeconds(m.ShiftEnd),
		LunchStart: trimSeconds(m.LunchStart),
		LunchEnd:   trimSeconds(m.LunchEnd),
	}
	if m.ExtraBreakStart != nil && m.ExtraBreakEnd != nil {
		start, end := trimSeconds(*m.ExtraBreakStart), trimSeconds(*m.ExtraBreakEnd)
		resp.ExtraBreakStart, resp.ExtraBreakEnd = &start, &end
	}
	if !m.UpdatedAt.IsZero() {
		resp.UpdatedAt = m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// trimSeconds TIME 列读出为 "HH:MM:SS"，响应统一为 "HH:MM"
func trimSeconds(v string) string {
	if c, err := worktime.ParseClock(v); err == nil {
		return c.String()
	}
	return v
}
