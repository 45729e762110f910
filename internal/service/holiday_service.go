package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/repository"
	"github.com/longbo188/workshop-sub000/internal/worktime"
)

// HolidayService 节假日查询接口
type HolidayService interface {
	// HolidaySet 返回 [from, to] 内的节假日集合
	HolidaySet(ctx context.Context, from, to time.Time) (worktime.HolidaySet, error)
}

// icsFetcher 获取 ICS 内容；测试中可替换
type icsFetcher func(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error)

type holidayService struct {
	repo   *repository.Repository
	cfg    *config.HolidayConfig
	loc    *time.Location
	fetch  icsFetcher
	logger *zap.Logger
}

// NewHolidayService 创建 HolidayService 实例
//
// 配置了 ics_url 时优先使用外部日历；拉取或解析失败回退到内部 holidays 表。
func NewHolidayService(repo *repository.Repository, cfg *config.HolidayConfig, loc *time.Location, logger *zap.Logger) HolidayService {
	return &holidayService{
		repo:   repo,
		cfg:    cfg,
		loc:    loc,
		fetch:  FetchICSContent,
		logger: logger,
	}
}

func (s *holidayService) HolidaySet(ctx context.Context, from, to time.Time) (worktime.HolidaySet, error) {
	from = worktime.StartOfDay(from.In(s.loc))
	to = worktime.EndOfDay(to.In(s.loc))

	if s.cfg != nil && s.cfg.ICSURL != "" {
		set, err := s.fromICS(ctx, from, to)
		if err == nil {
			return set, nil
		}
		s.logger.Warn("节假日日历不可用，回退到内部节假日表",
			zap.String("url", s.cfg.ICSURL),
			zap.Error(err),
		)
	}
	return s.fromTable(ctx, from, to)
}

func (s *holidayService) fromICS(ctx context.Context, from, to time.Time) (worktime.HolidaySet, error) {
	body, err := s.fetch(ctx, s.cfg.ICSURL, s.cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	entries, err := ParseHolidayICS(body, s.loc)
	if err != nil {
		return nil, err
	}

	set := worktime.NewHolidaySet()
	for _, h := range entries {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		set.Add(h.Date)
	}
	s.logger.Debug("已加载外部节假日", zap.Int("count", len(set)))
	return set, nil
}

func (s *holidayService) fromTable(ctx context.Context, from, to time.Time) (worktime.HolidaySet, error) {
	rows, err := s.repo.Holiday.ListBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("查询节假日失败", zap.Error(err))
		return nil, err
	}

	set := worktime.NewHolidaySet()
	for _, h := range rows {
		// DATE 列按 UTC 零点扫描，按日历日期重建到核算时区
		y, m, d := h.HolidayDate.Date()
		set.Add(time.Date(y, m, d, 0, 0, 0, 0, s.loc))
	}
	return set, nil
}
