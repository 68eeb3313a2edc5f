package model

import "time"

// TimeLog sources.
const (
	TimeLogSourceTimer  = "timer"
	TimeLogSourceManual = "manual"
)

// TimeLog is either an interval recorded by the timer (open while running,
// closed on stop) or a manually entered duration. An open interval is a row
// with a start time and a NULL end time; at most one may exist per
// (user, task), enforced by a conditional insert in the timelog service.
type TimeLog struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TaskID        uint       `gorm:"not null;index:idx_time_logs_task_id" json:"task_id"`
	UserID        uint       `gorm:"not null;index:idx_time_logs_user_id" json:"user_id"`
	Source        string     `gorm:"type:varchar(10);not null;default:timer" json:"source"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	PausedAt      *time.Time `json:"paused_at"`
	PausedSeconds int64      `gorm:"default:0" json:"paused_seconds"`
	Hours         float64    `gorm:"default:0" json:"hours"`
	LogDate       *time.Time `gorm:"type:date" json:"log_date"`
	Note          string     `gorm:"type:varchar(512)" json:"note"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TimeLog) TableName() string { return "time_logs" }

// Open reports whether the log is a running timer interval.
func (t *TimeLog) Open() bool {
	return t.Source == TimeLogSourceTimer && t.StartTime != nil && t.EndTime == nil
}
