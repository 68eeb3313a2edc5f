package notify

import "time"

// TaskAssignedEvent is sent when a task is assigned (or reassigned).
type TaskAssignedEvent struct {
	TaskID       uint       `json:"task_id"`
	Title        string     `json:"title"`
	ProjectName  string     `json:"project_name"`
	Priority     string     `json:"priority"`
	AssignerName string     `json:"assigner_name"`
	AssigneeID   uint       `json:"assignee_id"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// TaskDueSoonEvent is sent by the reminder scanner for tasks approaching
// their due date that are not yet in the terminal status.
type TaskDueSoonEvent struct {
	TaskID      uint      `json:"task_id"`
	Title       string    `json:"title"`
	ProjectName string    `json:"project_name"`
	AssigneeID  uint      `json:"assignee_id"`
	DueDate     time.Time `json:"due_date"`
}
