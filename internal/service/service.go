package service

import (
	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/repository"
	"github.com/longbo188/workshop-sub000/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Efficiency    EfficiencyService
	Holiday       HolidayService
	ShiftSchedule ShiftScheduleService
}

// NewService 创建 Service 聚合
// rdb 可为 nil（Redis 不可用时降级运行）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	loc := cfg.Efficiency.Location()
	holidays := NewHolidayService(repo, &cfg.Holiday, loc, logger)

	var (
		cache  SnapshotCache
		locker RunLocker
	)
	if rdb != nil {
		cache, locker = rdb, rdb
	}

	return &Service{
		Efficiency:    NewEfficiencyService(&cfg.Efficiency, repo, holidays, cache, locker, logger),
		Holiday:       holidays,
		ShiftSchedule: NewShiftScheduleService(repo, logger),
	}
}
