package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/internal/model"
	"github.com/longbo188/workshop-sub000/internal/repository"
)

// ── Mock TaskPhaseRepository ──

type mockTaskPhaseRepo struct {
	phases map[string]*model.TaskPhase
}

func newMockTaskPhaseRepo() *mockTaskPhaseRepo {
	return &mockTaskPhaseRepo{phases: make(map[string]*model.TaskPhase)}
}

func pairKey(taskID, phaseKey string) string { return taskID + "/" + phaseKey }

func (m *mockTaskPhaseRepo) add(p *model.TaskPhase) {
	m.phases[pairKey(p.TaskID, p.PhaseKey)] = p
}

func (m *mockTaskPhaseRepo) sorted() []model.TaskPhase {
	var out []model.TaskPhase
	for _, p := range m.phases {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return pairKey(out[i].TaskID, out[i].PhaseKey) < pairKey(out[j].TaskID, out[j].PhaseKey)
	})
	return out
}

func (m *mockTaskPhaseRepo) Get(_ context.Context, taskID, phaseKey string) (*model.TaskPhase, error) {
	if p, ok := m.phases[pairKey(taskID, phaseKey)]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskPhaseRepo) ListComputable(_ context.Context, taskIDs []string) ([]model.TaskPhase, error) {
	want := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}
	var out []model.TaskPhase
	for _, p := range m.sorted() {
		if !p.Computable() {
			continue
		}
		if len(want) > 0 && !want[p.TaskID] {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockTaskPhaseRepo) ListEndedBefore(_ context.Context, cutoff time.Time) ([]model.TaskPhase, error) {
	var out []model.TaskPhase
	for _, p := range m.sorted() {
		if p.Computable() && p.EndTime.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ── Mock ShiftScheduleRepository ──

type mockShiftScheduleRepo struct {
	sched *model.ShiftSchedule
}

func newMockShiftScheduleRepo() *mockShiftScheduleRepo {
	return &mockShiftScheduleRepo{sched: &model.ShiftSchedule{
		Singleton:  true,
		ShiftStart: "08:30:00",
		ShiftEnd:   "17:50:00",
		LunchStart: "11:50:00",
		LunchEnd:   "13:20:00",
	}}
}

func (m *mockShiftScheduleRepo) Get(_ context.Context) (*model.ShiftSchedule, error) {
	if m.sched == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.sched
	return &cp, nil
}

func (m *mockShiftScheduleRepo) Save(_ context.Context, sched *model.ShiftSchedule) error {
	sched.Singleton = true
	sched.UpdatedAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	cp := *sched
	m.sched = &cp
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	rows []model.AttendanceRecord
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{}
}

func (m *mockAttendanceRepo) ListConfirmed(_ context.Context, userID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")
	var out []model.AttendanceRecord
	for _, r := range m.rows {
		d := r.WorkDate.Format("2006-01-02")
		if r.UserID == userID && r.IsConfirmed && d >= lo && d <= hi {
			out = append(out, r)
		}
	}
	return out, nil
}

// ── Mock ExceptionReportRepository ──

type mockExceptionReportRepo struct {
	rows     []model.ExceptionReport
	failTask string // 查询该任务时返回错误
}

func newMockExceptionReportRepo() *mockExceptionReportRepo {
	return &mockExceptionReportRepo{}
}

func (m *mockExceptionReportRepo) ListApprovedByPhase(_ context.Context, taskID, phaseKey, userID string) ([]model.ExceptionReport, error) {
	if m.failTask != "" && taskID == m.failTask {
		return nil, errors.New("pq: connection reset by peer")
	}
	var out []model.ExceptionReport
	for _, r := range m.rows {
		if r.TaskID == taskID && r.PhaseKey == phaseKey && r.UserID == userID && r.ApprovalStatus == model.ApprovalApproved {
			out = append(out, r)
		}
	}
	return out, nil
}

// ── Mock AssistRecordRepository ──

type mockAssistRecordRepo struct {
	rows []model.AssistRecord
}

func newMockAssistRecordRepo() *mockAssistRecordRepo {
	return &mockAssistRecordRepo{}
}

func (m *mockAssistRecordRepo) ListApprovedByAssistant(_ context.Context, userID string, from, to time.Time) ([]model.AssistRecord, error) {
	var out []model.AssistRecord
	for _, r := range m.rows {
		if r.AssistantUserID == userID && r.ApprovalStatus == model.ApprovalApproved &&
			r.StartTime.Before(to) && r.EndTime.After(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ── Mock HolidayRepository ──

type mockHolidayRepo struct {
	rows []model.Holiday
}

func newMockHolidayRepo() *mockHolidayRepo {
	return &mockHolidayRepo{}
}

func (m *mockHolidayRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Holiday, error) {
	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")
	var out []model.Holiday
	for _, h := range m.rows {
		d := h.HolidayDate.Format("2006-01-02")
		if d >= lo && d <= hi {
			out = append(out, h)
		}
	}
	return out, nil
}

// ── Mock ConfirmedEfficiencyRepository ──

type mockConfirmedRepo struct {
	mu      sync.Mutex
	entries map[string]model.ConfirmedEfficiency
	saves   int
}

func newMockConfirmedRepo() *mockConfirmedRepo {
	return &mockConfirmedRepo{entries: make(map[string]model.ConfirmedEfficiency)}
}

func (m *mockConfirmedRepo) Get(_ context.Context, taskID, phaseKey string) (*model.ConfirmedEfficiency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[pairKey(taskID, phaseKey)]; ok {
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConfirmedRepo) List(_ context.Context) ([]model.ConfirmedEfficiency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ConfirmedEfficiency
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockConfirmedRepo) Save(_ context.Context, entry *model.ConfirmedEfficiency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	k := pairKey(entry.TaskID, entry.PhaseKey)
	if _, ok := m.entries[k]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	m.entries[k] = *entry
	return nil
}

func (m *mockConfirmedRepo) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries))
	m.entries = make(map[string]model.ConfirmedEfficiency)
	return n, nil
}

// ── Mock SnapshotCache / RunLocker ──

type mockCache struct {
	mu             sync.Mutex
	gen            int64
	data           map[string]string
	invalidated    int
	failGet        bool
	failInvalidate bool
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func genKey(gen int64, taskID, phaseKey string) string {
	return fmt.Sprintf("%d/%s", gen, pairKey(taskID, phaseKey))
}

func (m *mockCache) SnapshotGeneration(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *mockCache) GetSnapshot(_ context.Context, gen int64, taskID, phaseKey string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errors.New("redis: connection refused")
	}
	v, ok := m.data[genKey(gen, taskID, phaseKey)]
	return v, ok, nil
}

func (m *mockCache) SetSnapshot(_ context.Context, gen int64, taskID, phaseKey, snapshot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := genKey(gen, taskID, phaseKey)
	if _, ok := m.data[k]; !ok {
		m.data[k] = snapshot
	}
	return nil
}

func (m *mockCache) InvalidateSnapshots(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInvalidate {
		return errors.New("redis: i/o timeout")
	}
	m.gen++
	m.invalidated++
	return nil
}

type mockLocker struct {
	held     bool
	released int
}

func (m *mockLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	if m.held {
		return "", false, nil
	}
	m.held = true
	return "token-1", true, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, _, token string) error {
	if token == "token-1" {
		m.held = false
		m.released++
	}
	return nil
}

// ── 测试夹具 ──

type testRepos struct {
	phases     *mockTaskPhaseRepo
	schedule   *mockShiftScheduleRepo
	attendance *mockAttendanceRepo
	exceptions *mockExceptionReportRepo
	assists    *mockAssistRecordRepo
	holidays   *mockHolidayRepo
	confirmed  *mockConfirmedRepo
}

func newTestRepos() (*repository.Repository, *testRepos) {
	m := &testRepos{
		phases:     newMockTaskPhaseRepo(),
		schedule:   newMockShiftScheduleRepo(),
		attendance: newMockAttendanceRepo(),
		exceptions: newMockExceptionReportRepo(),
		assists:    newMockAssistRecordRepo(),
		holidays:   newMockHolidayRepo(),
		confirmed:  newMockConfirmedRepo(),
	}
	repo := &repository.Repository{
		TaskPhase:           m.phases,
		ShiftSchedule:       m.schedule,
		Attendance:          m.attendance,
		ExceptionReport:     m.exceptions,
		AssistRecord:        m.assists,
		Holiday:             m.holidays,
		ConfirmedEfficiency: m.confirmed,
	}
	return repo, m
}
