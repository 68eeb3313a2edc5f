package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
)

func newTimerFixture(t *testing.T) (*TimeLogService, *TaskService, *gorm.DB, *model.User, *model.Task) {
	t.Helper()
	db := newTestDB(t)
	hub := newTestHub(t)
	owner := seedUser(t, db, "worker")
	project := seedProject(t, db, owner, nil)
	tasks := NewTaskService(db, NewProjectService(db), hub)
	task, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "tracked", CreatorID: owner.ID})
	require.NoError(t, err)
	return NewTimeLogService(db, hub), tasks, db, owner, task
}

// seedClosedTimer inserts a finished timer interval directly, bypassing
// the state machine, so aggregation tests control the clock.
func seedClosedTimer(t *testing.T, db *gorm.DB, userID, taskID uint, start time.Time, hours float64) {
	t.Helper()
	end := start.Add(time.Duration(hours * float64(time.Hour)))
	logDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.TimeLog{
		TaskID:    taskID,
		UserID:    userID,
		Source:    model.TimeLogSourceTimer,
		StartTime: &start,
		EndTime:   &end,
		Hours:     hours,
		LogDate:   &logDate,
	}).Error)
}

func TestStartTimerRejectsSecondStart(t *testing.T) {
	timelogs, _, _, owner, task := newTimerFixture(t)

	first, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, first.Open())

	_, err = timelogs.StartTimer(owner.ID, task.ID)
	assert.Equal(t, 40901, errCode(t, err))

	// still exactly one open interval
	var open int64
	timelogs.db.Model(&model.TimeLog{}).
		Where("user_id = ? AND task_id = ? AND end_time IS NULL", owner.ID, task.ID).
		Count(&open)
	assert.EqualValues(t, 1, open)
}

func TestStopThenStartAgain(t *testing.T) {
	timelogs, _, _, owner, task := newTimerFixture(t)

	_, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)

	stopped, err := timelogs.StopTimer(owner.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stopped.EndTime)
	require.NotNil(t, stopped.LogDate)

	// a fresh interval may open now
	second, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	assert.NotEqual(t, stopped.ID, second.ID)
}

func TestTimerScopedPerUserAndTask(t *testing.T) {
	timelogs, tasks, db, owner, task := newTimerFixture(t)

	_, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)

	// same user, another task
	other, err := tasks.Create(CreateTaskInput{ProjectID: task.ProjectID, Title: "parallel", CreatorID: owner.ID})
	require.NoError(t, err)
	_, err = timelogs.StartTimer(owner.ID, other.ID)
	require.NoError(t, err)

	// another user, same task
	mate := seedUser(t, db, "mate")
	_, err = timelogs.StartTimer(mate.ID, task.ID)
	require.NoError(t, err)

	active, err := timelogs.ActiveTimers(owner.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestPauseResumeStop(t *testing.T) {
	timelogs, _, _, owner, task := newTimerFixture(t)

	_, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)

	_, err = timelogs.ResumeTimer(owner.ID, task.ID)
	assert.Equal(t, 40906, errCode(t, err))

	paused, err := timelogs.PauseTimer(owner.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, paused.PausedAt)

	_, err = timelogs.PauseTimer(owner.ID, task.ID)
	assert.Equal(t, 40905, errCode(t, err))

	resumed, err := timelogs.ResumeTimer(owner.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, resumed.PausedAt)
	assert.GreaterOrEqual(t, resumed.PausedSeconds, int64(0))

	stopped, err := timelogs.StopTimer(owner.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, stopped.Open())

	_, err = timelogs.StopTimer(owner.ID, task.ID)
	assert.Equal(t, 40904, errCode(t, err))
}

func TestStopWhilePausedClosesInterval(t *testing.T) {
	timelogs, _, _, owner, task := newTimerFixture(t)

	_, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	_, err = timelogs.PauseTimer(owner.ID, task.ID)
	require.NoError(t, err)

	stopped, err := timelogs.StopTimer(owner.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stopped.PausedAt)
	require.NotNil(t, stopped.EndTime)
	assert.GreaterOrEqual(t, stopped.Hours, 0.0)
}

func TestManualEntryValidationAndCoexistence(t *testing.T) {
	timelogs, _, _, owner, task := newTimerFixture(t)

	_, err := timelogs.CreateManualEntry(owner.ID, task.ID, 0, time.Now(), "")
	assert.Equal(t, 40002, errCode(t, err))

	_, err = timelogs.CreateManualEntry(owner.ID, task.ID, -1, time.Now(), "")
	assert.Equal(t, 40002, errCode(t, err))

	// a manual entry never blocks (or is blocked by) a running timer
	_, err = timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	entry, err := timelogs.CreateManualEntry(owner.ID, task.ID, 1.5, time.Now(), "offline work")
	require.NoError(t, err)
	assert.Equal(t, model.TimeLogSourceManual, entry.Source)
	assert.Equal(t, 1.5, entry.Hours)
}

func TestUpdateEntryOwnershipAndRules(t *testing.T) {
	timelogs, _, db, owner, task := newTimerFixture(t)

	entry, err := timelogs.CreateManualEntry(owner.ID, task.ID, 2, time.Now(), "")
	require.NoError(t, err)

	stranger := seedUser(t, db, "stranger")
	_, err = timelogs.UpdateEntry(stranger.ID, entry.ID, nil, nil, nil, nil)
	assert.Equal(t, 40301, errCode(t, err))

	newHours := 3.25
	updated, err := timelogs.UpdateEntry(owner.ID, entry.ID, nil, &newHours, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.25, updated.Hours)

	// timer intervals cannot have hours written directly
	started, err := timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	_, err = timelogs.UpdateEntry(owner.ID, started.ID, nil, &newHours, nil, nil)
	assert.Equal(t, 40002, errCode(t, err))

	// but an explicit end_time closes them
	end := time.Now().UTC().Add(time.Hour)
	closed, err := timelogs.UpdateEntry(owner.ID, started.ID, &end, nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, closed.Open())
	assert.InDelta(t, 1.0, closed.Hours, 0.01)

	require.NoError(t, timelogs.DeleteEntry(owner.ID, entry.ID))
	_, err = timelogs.UpdateEntry(owner.ID, entry.ID, nil, nil, nil, nil)
	assert.Equal(t, 40405, errCode(t, err))
}

func TestWeeklyTotalsSundayThroughSaturday(t *testing.T) {
	timelogs, _, db, owner, task := newTimerFixture(t)

	// week of Sunday 2026-01-04 .. Saturday 2026-01-10, UTC
	mon := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	sat := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := timelogs.CreateManualEntry(owner.ID, task.ID, 1.5, mon, "")
	require.NoError(t, err)
	_, err = timelogs.CreateManualEntry(owner.ID, task.ID, 1.0, sat, "")
	require.NoError(t, err)

	// closed timer interval on Tuesday counts too
	seedClosedTimer(t, db, owner.ID, task.ID, time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC), 2)

	// outside the window: previous Saturday and next Sunday
	_, err = timelogs.CreateManualEntry(owner.ID, task.ID, 8, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	_, err = timelogs.CreateManualEntry(owner.ID, task.ID, 8, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)

	// open timers contribute nothing
	_, err = timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)

	wednesday := time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC)
	report, err := timelogs.WeeklyTotals(owner.ID, wednesday, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), report.WeekStart)
	assert.Equal(t, time.Sunday, report.WeekStart.Weekday())
	assert.InDelta(t, 4.5, report.Total, 0.001)
	assert.InDelta(t, 1.5, report.Days[1], 0.001) // Monday
	assert.InDelta(t, 2.0, report.Days[2], 0.001) // Tuesday
	assert.InDelta(t, 1.0, report.Days[6], 0.001) // Saturday
	assert.Zero(t, report.Days[0])
}

func TestWeeklyTotalsRespectsTimezone(t *testing.T) {
	timelogs, _, db, owner, task := newTimerFixture(t)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:00 UTC on Wednesday Jan 7 is still Tuesday evening in New York
	seedClosedTimer(t, db, owner.ID, task.ID, time.Date(2026, 1, 7, 3, 0, 0, 0, time.UTC), 1.25)

	anchor := time.Date(2026, 1, 7, 12, 0, 0, 0, ny)
	report, err := timelogs.WeeklyTotals(owner.ID, anchor, ny)
	require.NoError(t, err)

	assert.InDelta(t, 1.25, report.Total, 0.001)
	assert.InDelta(t, 1.25, report.Days[2], 0.001) // Tuesday in New York
	assert.Zero(t, report.Days[3])

	utcReport, err := timelogs.WeeklyTotals(owner.ID, anchor.In(time.UTC), time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, utcReport.Days[3], 0.001) // Wednesday in UTC
}

func TestDayTotal(t *testing.T) {
	timelogs, _, db, owner, task := newTimerFixture(t)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := timelogs.CreateManualEntry(owner.ID, task.ID, 2, day, "")
	require.NoError(t, err)
	seedClosedTimer(t, db, owner.ID, task.ID, day.Add(14*time.Hour), 0.5)
	_, err = timelogs.CreateManualEntry(owner.ID, task.ID, 4, day.AddDate(0, 0, 1), "")
	require.NoError(t, err)

	total, err := timelogs.DayTotal(owner.ID, day, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, total, 0.001)
}
