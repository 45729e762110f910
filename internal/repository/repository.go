package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	TaskPhase           TaskPhaseRepository
	ShiftSchedule       ShiftScheduleRepository
	Attendance          AttendanceRepository
	ExceptionReport     ExceptionReportRepository
	AssistRecord        AssistRecordRepository
	Holiday             HolidayRepository
	ConfirmedEfficiency ConfirmedEfficiencyRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		TaskPhase:           NewTaskPhaseRepo(db),
		ShiftSchedule:       NewShiftScheduleRepo(db),
		Attendance:          NewAttendanceRepo(db),
		ExceptionReport:     NewExceptionReportRepo(db),
		AssistRecord:        NewAssistRecordRepo(db),
		Holiday:             NewHolidayRepo(db),
		ConfirmedEfficiency: NewConfirmedEfficiencyRepo(db),
	}
}
