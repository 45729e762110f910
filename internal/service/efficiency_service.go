package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/model"
	"github.com/longbo188/workshop-sub000/internal/repository"
	"github.com/longbo188/workshop-sub000/internal/worktime"
	apperrors "github.com/longbo188/workshop-sub000/pkg/errors"
	"github.com/longbo188/workshop-sub000/pkg/logger"
)

// ── 效率核算模块业务错误 ──

var (
	ErrPhaseNotFound              = errors.New("任务阶段不存在")
	ErrPhaseNotComputable         = errors.New("阶段尚未开始或结束，无法核算")
	ErrShiftScheduleNotConfigured = errors.New("班次配置未初始化")
	ErrSnapshotCorrupted          = errors.New("锁定快照无法解析")
	ErrSnapshotCacheStale         = errors.New("锁定快照已删除，但缓存失效失败，请重试")
)

// confirmRunLockKey 锁定任务的分布式互斥键
const confirmRunLockKey = "efficiency:lock:confirm-run"

// SnapshotCache 已锁定快照的读穿缓存（*redis.Client 实现）
//
// 缓存按快照代数分区：读库前先取代数，回填时写入同一代数，
// 清空锁定会递增代数，清空前读到的结果因此不会回填到新代数下。
type SnapshotCache interface {
	SnapshotGeneration(ctx context.Context) (int64, error)
	GetSnapshot(ctx context.Context, gen int64, taskID, phaseKey string) (string, bool, error)
	SetSnapshot(ctx context.Context, gen int64, taskID, phaseKey, snapshot string) error
	InvalidateSnapshots(ctx context.Context) error
}

// RunLocker 跨实例互斥（*redis.Client 实现）
type RunLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EfficiencyOutcome 单个 (任务, 阶段) 的核算结果
// Confirmed 为 true 时 Result 来自锁定快照
type EfficiencyOutcome struct {
	Result      *worktime.Result
	Confirmed   bool
	ConfirmedAt *time.Time
}

// PairFailure 批量核算中单个 (任务, 阶段) 的失败
type PairFailure struct {
	TaskID   string
	PhaseKey string
	Err      error
}

// RunReport 批量核算报告
type RunReport struct {
	Results        []EfficiencyOutcome
	Failures       []PairFailure
	NewlyConfirmed int
}

// EfficiencyService 效率核算业务接口
type EfficiencyService interface {
	ComputeEfficiency(ctx context.Context, taskID, phaseKey string) (*EfficiencyOutcome, error)
	Run(ctx context.Context, taskIDs []string) (*RunReport, error)
	ConfirmOldPhases(ctx context.Context) (int, error)
	ClearConfirmations(ctx context.Context) (int64, error)
}

type efficiencyService struct {
	cfg      *config.EfficiencyConfig
	repo     *repository.Repository
	holidays HolidayService
	cache    SnapshotCache
	locker   RunLocker
	loc      *time.Location
	now      func() time.Time
	localRun sync.Mutex
	logger   *zap.Logger
}

// NewEfficiencyService 创建 EfficiencyService 实例
//
// cache 与 locker 可为 nil：此时快照只读数据库，锁定任务仅在进程内互斥。
func NewEfficiencyService(
	cfg *config.EfficiencyConfig,
	repo *repository.Repository,
	holidays HolidayService,
	cache SnapshotCache,
	locker RunLocker,
	logger *zap.Logger,
) EfficiencyService {
	return &efficiencyService{
		cfg:      cfg,
		repo:     repo,
		holidays: holidays,
		cache:    cache,
		locker:   locker,
		loc:      cfg.Location(),
		now:      time.Now,
		logger:   logger,
	}
}

// runEnv 一次核算共享的上下文
type runEnv struct {
	calc       *worktime.Calculator
	calcErr    error
	cutoff     time.Time
	cutoffErr  error
	canConfirm bool
}

// snapshotLookup 查找 (任务, 阶段) 的锁定快照
type snapshotLookup func(ctx context.Context, taskID, phaseKey string) (*EfficiencyOutcome, bool, error)

// ────────────────────── ComputeEfficiency ──────────────────────

func (s *efficiencyService) ComputeEfficiency(ctx context.Context, taskID, phaseKey string) (*EfficiencyOutcome, error) {
	if out, ok, err := s.lookupSnapshot(ctx, taskID, phaseKey); err != nil {
		return nil, err
	} else if ok {
		return out, nil
	}

	phase, err := s.repo.TaskPhase.Get(ctx, taskID, phaseKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhaseNotFound
		}
		s.logger.Error("查询任务阶段失败", append(logger.PairFields(taskID, phaseKey), zap.Error(err))...)
		return nil, err
	}
	if !phase.Computable() {
		return nil, ErrPhaseNotComputable
	}

	env := s.prepare(ctx)
	out, _, err := s.processPhase(ctx, phase, noSnapshot, env)
	return out, err
}

// ────────────────────── Run ──────────────────────

func (s *efficiencyService) Run(ctx context.Context, taskIDs []string) (*RunReport, error) {
	phases, err := s.repo.TaskPhase.ListComputable(ctx, taskIDs)
	if err != nil {
		s.logger.Error("查询可核算阶段失败", zap.Error(err))
		return nil, err
	}
	lookup, err := s.preloadSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	report := s.runPhases(ctx, phases, lookup, s.prepare(ctx))

	s.logger.Info("效率批量核算完成",
		zap.Int("pairs", len(phases)),
		zap.Int("failed", len(report.Failures)),
		zap.Int("newly_confirmed", report.NewlyConfirmed),
	)
	return report, nil
}

// ────────────────────── ConfirmOldPhases ──────────────────────

func (s *efficiencyService) ConfirmOldPhases(ctx context.Context) (int, error) {
	release, err := s.acquireRunLock(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	env := s.prepare(ctx)
	if !env.canConfirm {
		return 0, fmt.Errorf("无法确定锁定阈值: %w", env.cutoffErr)
	}

	phases, err := s.repo.TaskPhase.ListEndedBefore(ctx, env.cutoff)
	if err != nil {
		s.logger.Error("查询待锁定阶段失败", zap.Error(err))
		return 0, err
	}
	lookup, err := s.preloadSnapshots(ctx)
	if err != nil {
		return 0, err
	}

	// 已锁定的阶段不再处理
	pending := phases[:0]
	for _, p := range phases {
		if _, ok, _ := lookup(ctx, p.TaskID, p.PhaseKey); !ok {
			pending = append(pending, p)
		}
	}
	if len(pending) > 0 && env.calcErr != nil {
		return 0, env.calcErr
	}

	report := s.runPhases(ctx, pending, lookup, env)
	for _, f := range report.Failures {
		s.logger.Warn("阶段锁定失败",
			append(logger.PairFields(f.TaskID, f.PhaseKey), zap.Error(f.Err))...)
	}
	s.logger.Info("锁定任务完成",
		zap.Time("cutoff", env.cutoff),
		zap.Int("candidates", len(pending)),
		zap.Int("confirmed", report.NewlyConfirmed),
	)
	return report.NewlyConfirmed, nil
}

// ────────────────────── ClearConfirmations ──────────────────────

func (s *efficiencyService) ClearConfirmations(ctx context.Context) (int64, error) {
	// 与锁定任务互斥，避免进行中的任务在清空后写回旧快照
	release, err := s.acquireRunLock(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := s.repo.ConfirmedEfficiency.DeleteAll(ctx)
	if err != nil {
		s.logger.Error("清空锁定快照失败", zap.Error(err))
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateSnapshots(ctx); err != nil {
			s.logger.Error("快照缓存失效失败", zap.Int64("deleted", n), zap.Error(err))
			return n, fmt.Errorf("%w: %v", ErrSnapshotCacheStale, err)
		}
	}
	s.logger.Warn("已清空全部锁定快照", zap.Int64("deleted", n))
	return n, nil
}

// ────────────────────── 内部流程 ──────────────────────

// prepare 加载班次配置与锁定阈值；失败记录在 env 中，由各阶段自行处理
func (s *efficiencyService) prepare(ctx context.Context) *runEnv {
	env := &runEnv{}
	env.calc, env.calcErr = s.loadCalculator(ctx)

	cutoff, err := s.cutoff(ctx)
	if err != nil {
		s.logger.Warn("节假日不可用，本次不锁定任何阶段", zap.Error(err))
		env.cutoffErr = err
		return env
	}
	env.cutoff = cutoff
	env.canConfirm = true
	return env
}

func (s *efficiencyService) loadCalculator(ctx context.Context) (*worktime.Calculator, error) {
	m, err := s.repo.ShiftSchedule.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftScheduleNotConfigured
		}
		s.logger.Error("查询班次配置失败", zap.Error(err))
		return nil, err
	}
	sched, err := toShiftSchedule(m)
	if err != nil {
		s.logger.Error("班次配置不合法", zap.Error(err))
		return nil, err
	}
	return worktime.NewCalculator(sched, s.loc, s.logger)
}

// cutoff 今天往前第 N 个工作日的零点
func (s *efficiencyService) cutoff(ctx context.Context) (time.Time, error) {
	today := s.now().In(s.loc)
	n := s.cfg.LockWorkingDays
	holidays, err := s.holidays.HolidaySet(ctx, today.AddDate(0, 0, -(n*2+30)), today)
	if err != nil {
		return time.Time{}, err
	}
	return worktime.WorkingDayCutoff(today, n, holidays), nil
}

// runPhases 按 batch_size 分批并发处理；单个阶段失败不影响其他阶段
func (s *efficiencyService) runPhases(ctx context.Context, phases []model.TaskPhase, lookup snapshotLookup, env *runEnv) *RunReport {
	type slot struct {
		out   *EfficiencyOutcome
		fresh bool
		err   error
	}
	slots := make([]slot, len(phases))

	batch := s.cfg.BatchSize
	if batch < 1 {
		batch = 1
	}
	for start := 0; start < len(phases); start += batch {
		end := start + batch
		if end > len(phases) {
			end = len(phases)
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				out, fresh, err := s.processPhase(ctx, &phases[i], lookup, env)
				slots[i] = slot{out: out, fresh: fresh, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	report := &RunReport{Results: []EfficiencyOutcome{}, Failures: []PairFailure{}}
	for i, sl := range slots {
		if sl.err != nil {
			report.Failures = append(report.Failures, PairFailure{
				TaskID:   phases[i].TaskID,
				PhaseKey: phases[i].PhaseKey,
				Err:      sl.err,
			})
			continue
		}
		report.Results = append(report.Results, *sl.out)
		if sl.fresh {
			report.NewlyConfirmed++
		}
	}
	return report
}

// processPhase 处理单个阶段：有快照用快照，否则实时核算，跨过阈值则写入快照
// 第二个返回值表示本次新锁定
func (s *efficiencyService) processPhase(ctx context.Context, phase *model.TaskPhase, lookup snapshotLookup, env *runEnv) (*EfficiencyOutcome, bool, error) {
	if out, ok, err := lookup(ctx, phase.TaskID, phase.PhaseKey); err != nil {
		return nil, false, err
	} else if ok {
		return out, false, nil
	}
	if !phase.Computable() {
		return nil, false, ErrPhaseNotComputable
	}
	if env.calcErr != nil {
		return nil, false, env.calcErr
	}

	res, err := s.computePhase(ctx, env.calc, phase)
	if err != nil {
		return nil, false, err
	}

	if env.canConfirm && phase.EndTime.Before(env.cutoff) {
		out, err := s.confirm(ctx, phase, res)
		if err != nil {
			s.logger.Error("写入锁定快照失败，返回实时结果",
				append(logger.PairFields(phase.TaskID, phase.PhaseKey), zap.Error(err))...)
			return &EfficiencyOutcome{Result: res}, false, nil
		}
		return out, true, nil
	}
	return &EfficiencyOutcome{Result: res}, false, nil
}

// computePhase 加载三类数据源并调用核算器
func (s *efficiencyService) computePhase(ctx context.Context, calc *worktime.Calculator, phase *model.TaskPhase) (*worktime.Result, error) {
	p := toPhase(phase)
	from := worktime.StartOfDay(p.Window.Start.In(s.loc))
	to := worktime.EndOfDay(p.Window.End.In(s.loc))

	att, err := s.repo.Attendance.ListConfirmed(ctx, p.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("查询考勤失败: %w", err)
	}
	incidents, err := s.repo.ExceptionReport.ListApprovedByPhase(ctx, p.TaskID, p.PhaseKey, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询异常上报失败: %w", err)
	}
	assists, err := s.repo.AssistRecord.ListApprovedByAssistant(ctx, p.UserID, p.Window.Start, p.Window.End)
	if err != nil {
		return nil, fmt.Errorf("查询协助记录失败: %w", err)
	}

	return calc.Compute(worktime.Input{
		Phase:      p,
		Attendance: toAttendance(att, s.loc),
		Incidents:  toIncidents(incidents),
		Assists:    toAssists(assists),
	})
}

// confirm 写入快照并回读；并发写入时以先写入者为准
func (s *efficiencyService) confirm(ctx context.Context, phase *model.TaskPhase, res *worktime.Result) (*EfficiencyOutcome, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	gen, cacheable := s.snapshotGeneration(ctx)
	entry := &model.ConfirmedEfficiency{
		TaskID:      phase.TaskID,
		PhaseKey:    phase.PhaseKey,
		Snapshot:    string(raw),
		ConfirmedAt: s.now(),
	}
	if err := s.repo.ConfirmedEfficiency.Save(ctx, entry); err != nil {
		return nil, err
	}

	stored, err := s.repo.ConfirmedEfficiency.Get(ctx, phase.TaskID, phase.PhaseKey)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cacheSnapshot(ctx, gen, stored)
	}
	s.logger.Info("阶段效率已锁定", logger.PairFields(phase.TaskID, phase.PhaseKey)...)
	return decodeSnapshot(stored)
}

// lookupSnapshot 先查缓存再查数据库
func (s *efficiencyService) lookupSnapshot(ctx context.Context, taskID, phaseKey string) (*EfficiencyOutcome, bool, error) {
	gen, cacheable := s.snapshotGeneration(ctx)
	if cacheable {
		raw, ok, err := s.cache.GetSnapshot(ctx, gen, taskID, phaseKey)
		if err != nil {
			s.logger.Warn("读取快照缓存失败", append(logger.PairFields(taskID, phaseKey), zap.Error(err))...)
		} else if ok {
			var entry model.ConfirmedEfficiency
			if err := json.Unmarshal([]byte(raw), &entry); err == nil {
				out, err := decodeSnapshot(&entry)
				if err == nil {
					return out, true, nil
				}
			}
			s.logger.Warn("快照缓存内容无效，改查数据库", logger.PairFields(taskID, phaseKey)...)
		}
	}

	entry, err := s.repo.ConfirmedEfficiency.Get(ctx, taskID, phaseKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		s.logger.Error("查询锁定快照失败", append(logger.PairFields(taskID, phaseKey), zap.Error(err))...)
		return nil, false, err
	}
	if cacheable {
		s.cacheSnapshot(ctx, gen, entry)
	}
	out, err := decodeSnapshot(entry)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// preloadSnapshots 批量场景下一次性读取全部快照
func (s *efficiencyService) preloadSnapshots(ctx context.Context) (snapshotLookup, error) {
	entries, err := s.repo.ConfirmedEfficiency.List(ctx)
	if err != nil {
		s.logger.Error("查询锁定快照失败", zap.Error(err))
		return nil, err
	}
	byKey := make(map[string]*model.ConfirmedEfficiency, len(entries))
	for i := range entries {
		byKey[entries[i].TaskID+"\x00"+entries[i].PhaseKey] = &entries[i]
	}
	return func(_ context.Context, taskID, phaseKey string) (*EfficiencyOutcome, bool, error) {
		entry, ok := byKey[taskID+"\x00"+phaseKey]
		if !ok {
			return nil, false, nil
		}
		out, err := decodeSnapshot(entry)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}, nil
}

func noSnapshot(context.Context, string, string) (*EfficiencyOutcome, bool, error) {
	return nil, false, nil
}

// snapshotGeneration 读取快照代数；未配置缓存或读取失败时本次不使用缓存
func (s *efficiencyService) snapshotGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.SnapshotGeneration(ctx)
	if err != nil {
		s.logger.Warn("读取快照代数失败，跳过缓存", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *efficiencyService) cacheSnapshot(ctx context.Context, gen int64, entry *model.ConfirmedEfficiency) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.cache.SetSnapshot(ctx, gen, entry.TaskID, entry.PhaseKey, string(raw)); err != nil {
		s.logger.Warn("写入快照缓存失败", append(logger.PairFields(entry.TaskID, entry.PhaseKey), zap.Error(err))...)
	}
}

func decodeSnapshot(entry *model.ConfirmedEfficiency) (*EfficiencyOutcome, error) {
	var res worktime.Result
	if err := json.Unmarshal([]byte(entry.Snapshot), &res); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrSnapshotCorrupted, entry.TaskID, entry.PhaseKey, err)
	}
	if res.Days == nil {
		res.Days = []worktime.DayBreakdown{}
	}
	confirmedAt := entry.ConfirmedAt
	return &EfficiencyOutcome{Result: &res, Confirmed: true, ConfirmedAt: &confirmedAt}, nil
}

// acquireRunLock 获取锁定任务互斥；未配置 Redis 时退化为进程内互斥
func (s *efficiencyService) acquireRunLock(ctx context.Context) (func(), error) {
	if s.locker == nil {
		if !s.localRun.TryLock() {
			return nil, apperrors.ErrRunInProgress
		}
		return s.localRun.Unlock, nil
	}

	ttl := s.cfg.RunLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	token, ok, err := s.locker.AcquireLock(ctx, confirmRunLockKey, ttl)
	if err != nil {
		s.logger.Error("获取锁定任务互斥失败", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrRunInProgress
	}
	return func() {
		// 请求上下文可能已取消，释放锁使用独立上下文
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, confirmRunLockKey, token); err != nil {
			s.logger.Warn("释放锁定任务互斥失败", zap.Error(err))
		}
	}, nil
}
