package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/longbo188/workshop-sub000/internal/dto"
	"github.com/longbo188/workshop-sub000/internal/service"
	"github.com/longbo188/workshop-sub000/pkg/response"
)

// ShiftScheduleHandler 班次配置模块 HTTP 处理器
type ShiftScheduleHandler struct {
	schedSvc service.ShiftScheduleService
}

// NewShiftScheduleHandler 创建 ShiftScheduleHandler
func NewShiftScheduleHandler(schedSvc service.ShiftScheduleService) *ShiftScheduleHandler {
	return &ShiftScheduleHandler{schedSvc: schedSvc}
}

// GetSchedule 获取班次配置
// GET /api/v1/shift-schedule
func (h *ShiftScheduleHandler) GetSchedule(c *gin.Context) {
	sched, err := h.schedSvc.Get(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, sched)
}

// UpdateSchedule 更新班次配置
// PUT /api/v1/shift-schedule
func (h *ShiftScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateShiftScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sched, err := h.schedSvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, sched)
}

// handleScheduleError 统一处理班次配置模块业务错误
func (h *ShiftScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShiftScheduleNotConfigured):
		response.NotFound(c, 20003, "班次配置未初始化")
	case errors.Is(err, service.ErrInvalidShiftSchedule):
		response.ErrorWithDetails(c, 400, 10001, "班次配置不合法", err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
