package service

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/sse"
)

// TimeLogService is the timer engine. Per (user, task) the states are
// Idle -> Running -> Paused -> Running -> Idle; an open interval row in
// time_logs is the Running/Paused state, its absence is Idle.
type TimeLogService struct {
	db  *gorm.DB
	hub *sse.Hub
}

func NewTimeLogService(db *gorm.DB, hub *sse.Hub) *TimeLogService {
	return &TimeLogService{db: db, hub: hub}
}

// StartTimer opens an interval for (user, task). The open-interval check
// and the insert are a single conditional statement, so two concurrent
// starts cannot both create an open interval.
func (s *TimeLogService) StartTimer(userID, taskID uint) (*model.TimeLog, error) {
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}

	now := time.Now().UTC()
	result := s.db.Exec(
		`INSERT INTO time_logs (task_id, user_id, source, start_time, paused_seconds, hours, created_at, updated_at)
		 SELECT ?, ?, ?, ?, 0, 0, ?, ?
		 FROM (SELECT 1) AS one
		 WHERE NOT EXISTS (
		   SELECT 1 FROM time_logs
		   WHERE user_id = ? AND task_id = ? AND source = ? AND end_time IS NULL
		 )`,
		taskID, userID, model.TimeLogSourceTimer, now, now, now,
		userID, taskID, model.TimeLogSourceTimer,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("40901:该任务已有运行中的计时器")
	}

	log, err := s.openLog(userID, taskID)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(task.ProjectID, sse.Event{
		Type: sse.EventTimerStarted,
		Data: map[string]interface{}{"task_id": taskID, "user_id": userID, "time_log_id": log.ID},
	})
	return log, nil
}

func (s *TimeLogService) PauseTimer(userID, taskID uint) (*model.TimeLog, error) {
	log, err := s.openLog(userID, taskID)
	if err != nil {
		return nil, err
	}
	if log.PausedAt != nil {
		return nil, fmt.Errorf("40905:计时器已暂停")
	}
	now := time.Now().UTC()
	log.PausedAt = &now
	if err := s.db.Save(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

func (s *TimeLogService) ResumeTimer(userID, taskID uint) (*model.TimeLog, error) {
	log, err := s.openLog(userID, taskID)
	if err != nil {
		return nil, err
	}
	if log.PausedAt == nil {
		return nil, fmt.Errorf("40906:计时器未暂停")
	}
	now := time.Now().UTC()
	log.PausedSeconds += int64(now.Sub(*log.PausedAt).Seconds())
	log.PausedAt = nil
	if err := s.db.Save(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

// StopTimer closes the interval and stores the worked hours net of paused
// time. Stopping while paused ends the pause at the stop instant.
func (s *TimeLogService) StopTimer(userID, taskID uint) (*model.TimeLog, error) {
	log, err := s.openLog(userID, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if log.PausedAt != nil {
		log.PausedSeconds += int64(now.Sub(*log.PausedAt).Seconds())
		log.PausedAt = nil
	}
	log.EndTime = &now

	worked := now.Sub(*log.StartTime) - time.Duration(log.PausedSeconds)*time.Second
	if worked < 0 {
		worked = 0
	}
	log.Hours = worked.Hours()

	logDate := time.Date(log.StartTime.Year(), log.StartTime.Month(), log.StartTime.Day(), 0, 0, 0, 0, time.UTC)
	log.LogDate = &logDate

	if err := s.db.Save(log).Error; err != nil {
		return nil, err
	}

	var task model.Task
	if err := s.db.First(&task, taskID).Error; err == nil {
		s.hub.Broadcast(task.ProjectID, sse.Event{
			Type: sse.EventTimerStopped,
			Data: map[string]interface{}{"task_id": taskID, "user_id": userID, "hours": log.Hours},
		})
	}
	return log, nil
}

// ActiveTimers lists the user's open intervals across all tasks.
func (s *TimeLogService) ActiveTimers(userID uint) ([]model.TimeLog, error) {
	var logs []model.TimeLog
	err := s.db.Preload("Task").
		Where("user_id = ? AND source = ? AND end_time IS NULL", userID, model.TimeLogSourceTimer).
		Find(&logs).Error
	return logs, err
}

// CreateManualEntry records a duration directly, bypassing the state
// machine. Always closed; never conflicts with a running timer.
func (s *TimeLogService) CreateManualEntry(userID, taskID uint, hours float64, date time.Time, note string) (*model.TimeLog, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("40002:时长必须大于 0")
	}
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}

	logDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	log := &model.TimeLog{
		TaskID:  taskID,
		UserID:  userID,
		Source:  model.TimeLogSourceManual,
		Hours:   hours,
		LogDate: &logDate,
		Note:    note,
	}
	if err := s.db.Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

// UpdateEntry edits a log owned by the caller. Setting end_time on an
// open interval closes it the same way StopTimer does.
func (s *TimeLogService) UpdateEntry(userID, logID uint, endTime *time.Time, hours *float64, logDate *time.Time, note *string) (*model.TimeLog, error) {
	log, err := s.ownedLog(userID, logID)
	if err != nil {
		return nil, err
	}

	if endTime != nil {
		if !log.Open() {
			return nil, fmt.Errorf("40002:只有运行中的计时可以设置结束时间")
		}
		end := endTime.UTC()
		if !end.After(*log.StartTime) {
			return nil, fmt.Errorf("40002:结束时间必须晚于开始时间")
		}
		if log.PausedAt != nil {
			log.PausedSeconds += int64(end.Sub(*log.PausedAt).Seconds())
			log.PausedAt = nil
		}
		log.EndTime = &end
		worked := end.Sub(*log.StartTime) - time.Duration(log.PausedSeconds)*time.Second
		if worked < 0 {
			worked = 0
		}
		log.Hours = worked.Hours()
		d := time.Date(log.StartTime.Year(), log.StartTime.Month(), log.StartTime.Day(), 0, 0, 0, 0, time.UTC)
		log.LogDate = &d
	}
	if hours != nil {
		if log.Source != model.TimeLogSourceManual {
			return nil, fmt.Errorf("40002:只有手动记录可以直接修改时长")
		}
		if *hours <= 0 {
			return nil, fmt.Errorf("40002:时长必须大于 0")
		}
		log.Hours = *hours
	}
	if logDate != nil {
		if log.Source != model.TimeLogSourceManual {
			return nil, fmt.Errorf("40002:只有手动记录可以修改日期")
		}
		d := time.Date(logDate.Year(), logDate.Month(), logDate.Day(), 0, 0, 0, 0, time.UTC)
		log.LogDate = &d
	}
	if note != nil {
		log.Note = *note
	}

	if err := s.db.Save(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

func (s *TimeLogService) DeleteEntry(userID, logID uint) error {
	log, err := s.ownedLog(userID, logID)
	if err != nil {
		return err
	}
	return s.db.Delete(log).Error
}

func (s *TimeLogService) ListForTask(taskID uint, page, pageSize int) ([]model.TimeLog, int64, error) {
	query := s.db.Model(&model.TimeLog{}).Where("task_id = ?", taskID)

	var total int64
	query.Count(&total)

	var logs []model.TimeLog
	if err := query.Preload("User").Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// --- aggregation ---

// WeeklyReport buckets a user's hours by calendar day, Sunday through
// Saturday, in the given timezone. Only closed intervals and manual
// entries count; an open timer contributes nothing until it stops.
type WeeklyReport struct {
	WeekStart time.Time  `json:"week_start"`
	Days      [7]float64 `json:"days"`
	Total     float64    `json:"total"`
}

func (s *TimeLogService) WeeklyTotals(userID uint, anyDay time.Time, loc *time.Location) (*WeeklyReport, error) {
	day := anyDay.In(loc)
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	weekStart := midnight.AddDate(0, 0, -int(midnight.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)

	report := &WeeklyReport{WeekStart: weekStart}

	logs, err := s.logsBetween(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	for _, log := range logs {
		idx := s.bucketIndex(&log, weekStart, loc)
		if idx < 0 || idx > 6 {
			continue
		}
		report.Days[idx] += log.Hours
		report.Total += log.Hours
	}
	return report, nil
}

// DayTotal sums a user's hours for one calendar day in the given timezone.
func (s *TimeLogService) DayTotal(userID uint, day time.Time, loc *time.Location) (float64, error) {
	d := day.In(loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	logs, err := s.logsBetween(userID, from, to)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, log := range logs {
		total += log.Hours
	}
	return total, nil
}

// ProjectTotal sums all recorded hours across a project's tasks.
func (s *TimeLogService) ProjectTotal(projectID uint) float64 {
	var total float64
	s.db.Model(&model.TimeLog{}).
		Joins("JOIN tasks ON time_logs.task_id = tasks.id").
		Where("tasks.project_id = ? AND (time_logs.end_time IS NOT NULL OR time_logs.source = ?)", projectID, model.TimeLogSourceManual).
		Select("COALESCE(SUM(time_logs.hours), 0)").Scan(&total)
	return total
}

// logsBetween loads closed timer intervals whose start falls in the
// window and manual entries whose civil date falls on a window day.
// Timestamps are stored UTC; manual dates are civil dates at UTC midnight.
func (s *TimeLogService) logsBetween(userID uint, from, to time.Time) ([]model.TimeLog, error) {
	dateFrom := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	dateTo := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	var logs []model.TimeLog
	err := s.db.Where("user_id = ?", userID).
		Where("(source = ? AND end_time IS NOT NULL AND start_time >= ? AND start_time < ?) OR (source = ? AND log_date >= ? AND log_date < ?)",
			model.TimeLogSourceTimer, from.UTC(), to.UTC(),
			model.TimeLogSourceManual, dateFrom, dateTo).
		Find(&logs).Error
	return logs, err
}

func (s *TimeLogService) bucketIndex(log *model.TimeLog, weekStart time.Time, loc *time.Location) int {
	if log.Source == model.TimeLogSourceManual {
		if log.LogDate == nil {
			return -1
		}
		// manual dates are civil dates, compared date-to-date
		d := log.LogDate
		civil := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		return dayIndex(weekStart, civil)
	}
	if log.StartTime == nil {
		return -1
	}
	st := log.StartTime.In(loc)
	civil := time.Date(st.Year(), st.Month(), st.Day(), 0, 0, 0, 0, loc)
	return dayIndex(weekStart, civil)
}

// dayIndex counts calendar days from weekStart to civil. Rounding absorbs
// the off-by-an-hour days around DST transitions.
func dayIndex(weekStart, civil time.Time) int {
	return int(math.Round(civil.Sub(weekStart).Hours() / 24))
}

func (s *TimeLogService) openLog(userID, taskID uint) (*model.TimeLog, error) {
	var log model.TimeLog
	err := s.db.Where("user_id = ? AND task_id = ? AND source = ? AND end_time IS NULL",
		userID, taskID, model.TimeLogSourceTimer).First(&log).Error
	if err != nil {
		return nil, fmt.Errorf("40904:没有运行中的计时器")
	}
	return &log, nil
}

func (s *TimeLogService) ownedLog(userID, logID uint) (*model.TimeLog, error) {
	var log model.TimeLog
	if err := s.db.First(&log, logID).Error; err != nil {
		return nil, fmt.Errorf("40405:时间记录不存在")
	}
	if log.UserID != userID {
		return nil, fmt.Errorf("40301:只能修改自己的时间记录")
	}
	return &log, nil
}
