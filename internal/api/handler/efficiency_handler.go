package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/longbo188/workshop-sub000/internal/dto"
	"github.com/longbo188/workshop-sub000/internal/service"
	"github.com/longbo188/workshop-sub000/internal/worktime"
	apperrors "github.com/longbo188/workshop-sub000/pkg/errors"
	"github.com/longbo188/workshop-sub000/pkg/response"
)

// EfficiencyHandler 效率核算模块 HTTP 处理器
type EfficiencyHandler struct {
	effSvc service.EfficiencyService
}

// NewEfficiencyHandler 创建 EfficiencyHandler
func NewEfficiencyHandler(effSvc service.EfficiencyService) *EfficiencyHandler {
	return &EfficiencyHandler{effSvc: effSvc}
}

// GetPhaseEfficiency 查询单个 (任务, 阶段) 的效率
// GET /api/v1/efficiency/tasks/:task_id/phases/:phase_key
func (h *EfficiencyHandler) GetPhaseEfficiency(c *gin.Context) {
	taskID, phaseKey := c.Param("task_id"), c.Param("phase_key")
	if taskID == "" || phaseKey == "" || len(taskID) > 64 || len(phaseKey) > 32 {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	out, err := h.effSvc.ComputeEfficiency(c.Request.Context(), taskID, phaseKey)
	if err != nil {
		h.handleEfficiencyError(c, err)
		return
	}

	response.OK(c, out.ToResponse())
}

// RunEfficiency 批量核算
// POST /api/v1/efficiency/runs
func (h *EfficiencyHandler) RunEfficiency(c *gin.Context) {
	var req dto.RunEfficiencyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.effSvc.Run(c.Request.Context(), req.TaskIDs)
	if err != nil {
		h.handleEfficiencyError(c, err)
		return
	}

	response.OK(c, report.ToResponse())
}

// ConfirmOldPhases 锁定超过阈值的阶段
// POST /api/v1/efficiency/confirmations
func (h *EfficiencyHandler) ConfirmOldPhases(c *gin.Context) {
	n, err := h.effSvc.ConfirmOldPhases(c.Request.Context())
	if err != nil {
		h.handleEfficiencyError(c, err)
		return
	}

	response.OK(c, dto.ConfirmResponse{Confirmed: n})
}

// ClearConfirmations 清空全部锁定快照
// DELETE /api/v1/efficiency/confirmations
func (h *EfficiencyHandler) ClearConfirmations(c *gin.Context) {
	n, err := h.effSvc.ClearConfirmations(c.Request.Context())
	if err != nil {
		h.handleEfficiencyError(c, err)
		return
	}

	response.OK(c, dto.ClearConfirmationsResponse{Cleared: n})
}

// handleEfficiencyError 统一处理效率核算模块业务错误
func (h *EfficiencyHandler) handleEfficiencyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPhaseNotFound):
		response.NotFound(c, 20001, "任务阶段不存在")
	case errors.Is(err, service.ErrPhaseNotComputable):
		response.UnprocessableEntity(c, 20002, "阶段尚未开始或结束，无法核算")
	case errors.Is(err, service.ErrShiftScheduleNotConfigured):
		response.ServiceUnavailable(c, 20003, "班次配置未初始化", err.Error())
	case errors.Is(err, worktime.ErrInvalidShiftSchedule):
		response.ServiceUnavailable(c, 20003, "班次配置不合法", err.Error())
	case errors.Is(err, service.ErrSnapshotCacheStale):
		response.ServiceUnavailable(c, 20005, "快照缓存失效失败，请重试", err.Error())
	case errors.Is(err, apperrors.ErrRunInProgress):
		response.Conflict(c, 20004, "已有锁定任务在执行，请稍后重试")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
