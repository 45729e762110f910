package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/model"
	"github.com/longbo188/workshop-sub000/internal/repository"
	apperrors "github.com/longbo188/workshop-sub000/pkg/errors"
)

// ── 测试辅助 ──

var cst = time.FixedZone("CST", 8*3600)

// at 东八区时刻
func at(day, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, cst)
	if err != nil {
		panic(err)
	}
	return t
}

// dbDate 模拟 DATE 列扫描出的 UTC 零点
func dbDate(day string) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return t
}

// 今天：2025-03-14（周五）；7 个工作日阈值 → 2025-03-05 00:00
var testToday = at("2025-03-14", "10:00")

type effFixture struct {
	svc    *efficiencyService
	mocks  *testRepos
	cache  *mockCache
	locker *mockLocker
}

func setupTestEfficiencyService(withRedis bool) *effFixture {
	repo, mocks := newTestRepos()
	return newEffFixture(repo, mocks, withRedis)
}

func newEffFixture(repo *repository.Repository, mocks *testRepos, withRedis bool) *effFixture {
	cfg := &config.EfficiencyConfig{Timezone: "UTC", LockWorkingDays: 7, BatchSize: 2, RunLockTTL: time.Minute}
	holidays := NewHolidayService(repo, &config.HolidayConfig{}, cst, zap.NewNop())

	f := &effFixture{mocks: mocks}
	var (
		cache  SnapshotCache
		locker RunLocker
	)
	if withRedis {
		f.cache = newMockCache()
		f.locker = &mockLocker{}
		cache, locker = f.cache, f.locker
	}
	f.svc = NewEfficiencyService(cfg, repo, holidays, cache, locker, zap.NewNop()).(*efficiencyService)
	f.svc.loc = cst
	f.svc.now = func() time.Time { return testToday }
	return f
}

// addPhase 单日阶段：day 全天开放，标准工时 std
func (f *effFixture) addPhase(taskID, phaseKey, day string, std float64) {
	start, end := at(day, "00:00"), at(day, "23:59")
	f.mocks.phases.add(&model.TaskPhase{
		TaskID:        taskID,
		PhaseKey:      phaseKey,
		AssigneeID:    "u-1",
		StartTime:     &start,
		EndTime:       &end,
		StandardHours: std,
	})
}

func (f *effFixture) addAttendance(day string, actual float64) {
	f.mocks.attendance.rows = append(f.mocks.attendance.rows, model.AttendanceRecord{
		UserID:        "u-1",
		WorkDate:      dbDate(day),
		StandardHours: actual,
		ActualHours:   actual,
		IsConfirmed:   true,
	})
}

// ── ComputeEfficiency 测试 ──

func TestEfficiencyService_Compute_LiveResult(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-10", 8)
	f.addAttendance("2025-03-10", 8)

	out, err := f.svc.ComputeEfficiency(context.Background(), "T-001", "machining")
	if err != nil {
		t.Fatalf("ComputeEfficiency 应成功: %v", err)
	}
	if out.Confirmed {
		t.Error("近期阶段不应被锁定")
	}
	// 班次 08:30–17:50 扣午休 1.5h → 7.8333h
	if math.Abs(out.Result.ActualWorkHours-7.8333) > 0.001 {
		t.Errorf("期望 actual≈7.8333，实际=%f", out.Result.ActualWorkHours)
	}
	if math.Abs(out.Result.Efficiency-102.13) > 0.01 {
		t.Errorf("期望 efficiency≈102.13，实际=%f", out.Result.Efficiency)
	}
	if f.mocks.confirmed.saves != 0 {
		t.Errorf("不应写入快照，实际写入 %d 次", f.mocks.confirmed.saves)
	}
}

func TestEfficiencyService_Compute_ConfirmsOldPhase(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)

	out, err := f.svc.ComputeEfficiency(context.Background(), "T-001", "machining")
	if err != nil {
		t.Fatalf("ComputeEfficiency 应成功: %v", err)
	}
	if !out.Confirmed || out.ConfirmedAt == nil {
		t.Fatal("超过 7 个工作日的阶段应被锁定")
	}
	if _, err := f.mocks.confirmed.Get(context.Background(), "T-001", "machining"); err != nil {
		t.Errorf("快照应已持久化: %v", err)
	}
	if _, ok, _ := f.cache.GetSnapshot(context.Background(), f.cache.gen, "T-001", "machining"); !ok {
		t.Error("快照应已写入缓存")
	}
}

func TestEfficiencyService_ConfirmedSnapshotIsImmutable(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	first, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("首次核算失败: %v", err)
	}

	// 锁定后修改班次与考勤
	f.mocks.schedule.sched.LunchStart = "11:00:00"
	f.addAttendance("2025-03-03", 3)
	f.mocks.attendance.rows = f.mocks.attendance.rows[1:]

	fromCache, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("缓存命中核算失败: %v", err)
	}
	f.cache.data = make(map[string]string)
	fromDB, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("数据库命中核算失败: %v", err)
	}

	if !reflect.DeepEqual(first.Result, fromCache.Result) {
		t.Errorf("缓存快照应与锁定时一致\n期望 %+v\n实际 %+v", first.Result, fromCache.Result)
	}
	if !reflect.DeepEqual(first.Result, fromDB.Result) {
		t.Errorf("数据库快照应与锁定时一致\n期望 %+v\n实际 %+v", first.Result, fromDB.Result)
	}
	if f.mocks.confirmed.saves != 1 {
		t.Errorf("快照只应写入一次，实际 %d 次", f.mocks.confirmed.saves)
	}
}

func TestEfficiencyService_Compute_CacheErrorFallsBackToDB(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	if _, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining"); err != nil {
		t.Fatalf("首次核算失败: %v", err)
	}
	f.cache.failGet = true

	out, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("缓存不可用时应回退数据库: %v", err)
	}
	if !out.Confirmed {
		t.Error("应返回数据库中的锁定快照")
	}
}

func TestEfficiencyService_Compute_PhaseErrors(t *testing.T) {
	f := setupTestEfficiencyService(false)
	start := at("2025-03-10", "08:00")
	f.mocks.phases.add(&model.TaskPhase{TaskID: "T-002", PhaseKey: "debugging", AssigneeID: "u-1", StartTime: &start})

	_, err := f.svc.ComputeEfficiency(context.Background(), "T-404", "machining")
	if !errors.Is(err, ErrPhaseNotFound) {
		t.Errorf("期望 ErrPhaseNotFound，实际: %v", err)
	}

	_, err = f.svc.ComputeEfficiency(context.Background(), "T-002", "debugging")
	if !errors.Is(err, ErrPhaseNotComputable) {
		t.Errorf("期望 ErrPhaseNotComputable，实际: %v", err)
	}
}

func TestEfficiencyService_Compute_MissingSchedule(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-10", 8)
	f.mocks.schedule.sched = nil

	_, err := f.svc.ComputeEfficiency(context.Background(), "T-001", "machining")
	if !errors.Is(err, ErrShiftScheduleNotConfigured) {
		t.Errorf("期望 ErrShiftScheduleNotConfigured，实际: %v", err)
	}
}

func TestEfficiencyService_HolidayShiftsCutoff(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-04", 8)
	f.addAttendance("2025-03-04", 8)

	// 03-11 放假 → 阈值前移到 03-04 00:00，03-04 结束的阶段不再锁定
	f.mocks.holidays.rows = []model.Holiday{{HolidayDate: dbDate("2025-03-11"), Name: "厂休"}}

	out, err := f.svc.ComputeEfficiency(context.Background(), "T-001", "machining")
	if err != nil {
		t.Fatalf("ComputeEfficiency 应成功: %v", err)
	}
	if out.Confirmed {
		t.Error("节假日顺延后阶段不应被锁定")
	}
}

// ── Run 测试 ──

func TestEfficiencyService_Run_FailureIsolation(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-10", 8)
	f.addPhase("T-002", "machining", "2025-03-10", 8)
	f.addPhase("T-003", "machining", "2025-03-10", 8)
	f.addAttendance("2025-03-10", 8)
	f.mocks.exceptions.failTask = "T-002"

	report, err := f.svc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run 不应整体失败: %v", err)
	}
	if len(report.Results) != 2 {
		t.Errorf("期望 2 个成功结果，实际 %d", len(report.Results))
	}
	if len(report.Failures) != 1 || report.Failures[0].TaskID != "T-002" {
		t.Errorf("期望 T-002 单独失败，实际 %+v", report.Failures)
	}
	if report.Results[0].Result.TaskID != "T-001" || report.Results[1].Result.TaskID != "T-003" {
		t.Error("结果应保持阶段顺序")
	}
}

func TestEfficiencyService_Run_MissingScheduleKeepsConfirmed(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addPhase("T-002", "machining", "2025-03-10", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	if _, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining"); err != nil {
		t.Fatalf("锁定 T-001 失败: %v", err)
	}
	f.mocks.schedule.sched = nil

	report, err := f.svc.Run(ctx, []string{"T-001", "T-002"})
	if err != nil {
		t.Fatalf("Run 不应整体失败: %v", err)
	}
	if len(report.Results) != 1 || !report.Results[0].Confirmed {
		t.Errorf("已锁定阶段应照常返回快照，实际 %+v", report.Results)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0].Err, ErrShiftScheduleNotConfigured) {
		t.Errorf("未锁定阶段应报告班次缺失，实际 %+v", report.Failures)
	}
}

func TestEfficiencyService_Run_FiltersByTask(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-10", 8)
	f.addPhase("T-001", "debugging", "2025-03-11", 4)
	f.addPhase("T-002", "machining", "2025-03-10", 8)

	report, err := f.svc.Run(context.Background(), []string{"T-001"})
	if err != nil {
		t.Fatalf("Run 应成功: %v", err)
	}
	if len(report.Results) != 2 {
		t.Errorf("期望 T-001 的 2 个阶段，实际 %d", len(report.Results))
	}
	for _, r := range report.Results {
		if r.Result.TaskID != "T-001" {
			t.Errorf("不应包含其他任务: %s", r.Result.TaskID)
		}
		if r.Result.Efficiency != 0 {
			t.Errorf("无考勤时效率应为 0，实际 %f", r.Result.Efficiency)
		}
	}
}

// ── ConfirmOldPhases 测试 ──

func TestEfficiencyService_ConfirmOldPhases(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addPhase("T-002", "electrical", "2025-03-04", 6)
	f.addPhase("T-003", "debugging", "2025-03-12", 4)
	f.addAttendance("2025-03-03", 8)
	f.addAttendance("2025-03-04", 8)
	ctx := context.Background()

	n, err := f.svc.ConfirmOldPhases(ctx)
	if err != nil {
		t.Fatalf("ConfirmOldPhases 应成功: %v", err)
	}
	if n != 2 {
		t.Errorf("期望锁定 2 个阶段，实际 %d", n)
	}
	if f.locker.released != 1 {
		t.Errorf("互斥锁应释放一次，实际 %d", f.locker.released)
	}

	n, err = f.svc.ConfirmOldPhases(ctx)
	if err != nil {
		t.Fatalf("再次执行应成功: %v", err)
	}
	if n != 0 {
		t.Errorf("已锁定阶段不应重复计数，实际 %d", n)
	}
}

func TestEfficiencyService_ConfirmOldPhases_RunInProgress(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.locker.held = true

	_, err := f.svc.ConfirmOldPhases(context.Background())
	if !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Errorf("期望 ErrRunInProgress，实际: %v", err)
	}
}

func TestEfficiencyService_ConfirmOldPhases_LocalLockWithoutRedis(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.svc.localRun.Lock()

	_, err := f.svc.ConfirmOldPhases(context.Background())
	if !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Errorf("期望 ErrRunInProgress，实际: %v", err)
	}
	f.svc.localRun.Unlock()

	if _, err := f.svc.ConfirmOldPhases(context.Background()); err != nil {
		t.Errorf("释放后应可执行: %v", err)
	}
}

func TestEfficiencyService_ConfirmOldPhases_MissingSchedule(t *testing.T) {
	f := setupTestEfficiencyService(false)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.mocks.schedule.sched = nil

	_, err := f.svc.ConfirmOldPhases(context.Background())
	if !errors.Is(err, ErrShiftScheduleNotConfigured) {
		t.Errorf("期望 ErrShiftScheduleNotConfigured，实际: %v", err)
	}
}

// ── ClearConfirmations 测试 ──

func TestEfficiencyService_ClearConfirmations(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	before, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("锁定失败: %v", err)
	}

	n, err := f.svc.ClearConfirmations(ctx)
	if err != nil {
		t.Fatalf("ClearConfirmations 应成功: %v", err)
	}
	if n != 1 {
		t.Errorf("期望删除 1 条，实际 %d", n)
	}
	if f.cache.invalidated != 1 {
		t.Error("应使快照缓存失效")
	}

	// 清空后按当前班次重新核算（午休提前 → 实际工时变化）
	f.mocks.schedule.sched.LunchStart = "11:20:00"
	after, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("重新核算失败: %v", err)
	}
	if after.Result.ActualWorkHours == before.Result.ActualWorkHours {
		t.Error("清空锁定后应按新班次重新核算")
	}
}

func TestEfficiencyService_ClearConfirmations_CacheInvalidateFailure(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	before, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("锁定失败: %v", err)
	}

	f.cache.failInvalidate = true
	n, err := f.svc.ClearConfirmations(ctx)
	if !errors.Is(err, ErrSnapshotCacheStale) {
		t.Fatalf("缓存失效失败应返回 ErrSnapshotCacheStale，实际: %v", err)
	}
	if n != 1 {
		t.Errorf("数据库快照应已删除，实际 %d 条", n)
	}
	if f.locker.held {
		t.Error("失败后应释放互斥锁")
	}

	// 重试成功后按当前班次重新核算
	f.cache.failInvalidate = false
	if _, err := f.svc.ClearConfirmations(ctx); err != nil {
		t.Fatalf("重试清空应成功: %v", err)
	}
	f.mocks.schedule.sched.LunchStart = "11:20:00"
	after, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("重新核算失败: %v", err)
	}
	if after.Result.ActualWorkHours == before.Result.ActualWorkHours {
		t.Error("缓存失效后不应再返回旧快照")
	}
	if f.mocks.confirmed.saves != 2 {
		t.Errorf("应重新核算并再次锁定，实际写入 %d 次", f.mocks.confirmed.saves)
	}
}

func TestEfficiencyService_ClearConfirmations_LateCacheFillIgnored(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	before, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("锁定失败: %v", err)
	}
	stale, ok, _ := f.cache.GetSnapshot(ctx, f.cache.gen, "T-001", "machining")
	if !ok {
		t.Fatal("快照应已写入缓存")
	}
	oldGen := f.cache.gen

	if _, err := f.svc.ClearConfirmations(ctx); err != nil {
		t.Fatalf("ClearConfirmations 应成功: %v", err)
	}
	// 清空前读库的请求在清空之后才回填缓存
	if err := f.cache.SetSnapshot(ctx, oldGen, "T-001", "machining", stale); err != nil {
		t.Fatal(err)
	}

	f.mocks.schedule.sched.LunchStart = "11:20:00"
	after, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining")
	if err != nil {
		t.Fatalf("重新核算失败: %v", err)
	}
	if after.Result.ActualWorkHours == before.Result.ActualWorkHours {
		t.Error("旧代数下回填的缓存不应被读取")
	}
}

func TestEfficiencyService_ClearConfirmations_RunInProgress(t *testing.T) {
	f := setupTestEfficiencyService(true)
	f.addPhase("T-001", "machining", "2025-03-03", 8)
	f.addAttendance("2025-03-03", 8)
	ctx := context.Background()

	if _, err := f.svc.ComputeEfficiency(ctx, "T-001", "machining"); err != nil {
		t.Fatalf("锁定失败: %v", err)
	}
	f.locker.held = true

	if _, err := f.svc.ClearConfirmations(ctx); !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Fatalf("锁定任务进行中应返回 ErrRunInProgress，实际: %v", err)
	}
	if _, err := f.mocks.confirmed.Get(ctx, "T-001", "machining"); err != nil {
		t.Error("未获得互斥锁时不应删除快照")
	}
	if f.cache.invalidated != 0 {
		t.Error("未获得互斥锁时不应使缓存失效")
	}
}
