package handler

import "github.com/longbo188/workshop-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Efficiency    *EfficiencyHandler
	ShiftSchedule *ShiftScheduleHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Efficiency:    NewEfficiencyHandler(svc.Efficiency),
		ShiftSchedule: NewShiftScheduleHandler(svc.ShiftSchedule),
	}
}
