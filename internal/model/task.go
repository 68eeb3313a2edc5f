package model

import (
	"time"

	"gorm.io/gorm"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProjectID   uint           `gorm:"not null;index:idx_tasks_project_id" json:"project_id"`
	Title       string         `gorm:"type:varchar(256);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"type:varchar(64);not null;index:idx_tasks_status" json:"status"`
	Priority    string         `gorm:"type:varchar(10);default:medium" json:"priority"`
	CreatorID   uint           `gorm:"not null;index:idx_tasks_creator_id" json:"creator_id"`
	AssigneeID  *uint          `gorm:"index:idx_tasks_assignee_id" json:"assignee_id"`
	DueDate     *time.Time     `json:"due_date"`
	RemindedAt  *time.Time     `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Project  *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Creator  *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee *User     `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Subtasks []Subtask `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// Subtask lives and dies with its parent task (cascade on task delete).
type Subtask struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index:idx_subtasks_task_id" json:"task_id"`
	Title     string    `gorm:"type:varchar(256);not null" json:"title"`
	Completed bool      `gorm:"default:false" json:"completed"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subtask) TableName() string { return "subtasks" }
