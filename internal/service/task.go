package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/logger"
	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/notify"
	"github.com/worklane/backend/internal/sse"
	"github.com/worklane/backend/internal/workflow"
)

type TaskService struct {
	db       *gorm.DB
	projects *ProjectService
	hub      *sse.Hub
	notifier notify.Notifier
}

func NewTaskService(db *gorm.DB, projects *ProjectService, hub *sse.Hub) *TaskService {
	return &TaskService{db: db, projects: projects, hub: hub, notifier: notify.NoopNotifier{}}
}

func (s *TaskService) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

type CreateTaskInput struct {
	ProjectID   uint
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *uint
	DueDate     *time.Time
	CreatorID   uint
}

func (s *TaskService) Create(in CreateTaskInput) (*model.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("40001:任务标题不能为空")
	}
	var project model.Project
	if err := s.db.First(&project, in.ProjectID).Error; err != nil {
		return nil, fmt.Errorf("40402:项目不存在")
	}

	steps := s.projects.ResolveWorkflow(in.ProjectID)
	status := in.Status
	if status == "" {
		status = steps[0]
	} else if !workflow.Contains(steps, status) {
		return nil, fmt.Errorf("40006:状态 %s 不在项目工作流中", status)
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	} else if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("40002:无效的优先级: %s", priority)
	}

	if in.AssigneeID != nil {
		if err := s.validateAssignee(in.ProjectID, *in.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		CreatorID:   in.CreatorID,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	s.hub.Broadcast(task.ProjectID, sse.Event{Type: sse.EventTaskCreated, Data: task})
	if task.AssigneeID != nil {
		s.notifyAssigned(task, &project, in.CreatorID)
	}
	return s.GetByID(task.ID)
}

func (s *TaskService) GetByID(id uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.Preload("Creator").Preload("Assignee").Preload("Project").
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) List(projectID uint, status, priority, keyword string, assigneeID *uint, page, pageSize int, sortBy, order string) ([]model.Task, int64, error) {
	query := s.db.Model(&model.Task{}).Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if keyword != "" {
		query = query.Where("title LIKE ?", "%"+keyword+"%")
	}
	if assigneeID != nil {
		query = query.Where("assignee_id = ?", *assigneeID)
	}

	var total int64
	query.Count(&total)

	if sortBy == "" {
		sortBy = "created_at"
	}
	if order == "" {
		order = "desc"
	}
	query = query.Order(sortBy + " " + order)

	var tasks []model.Task
	if err := query.Preload("Assignee").Preload("Creator").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update applies title/description/due-date edits. Status and priority
// have their own operations with their own checks.
func (s *TaskService) Update(id uint, updates map[string]interface{}) (*model.Task, error) {
	if title, ok := updates["title"]; ok {
		if t, _ := title.(string); t == "" {
			return nil, fmt.Errorf("40001:任务标题不能为空")
		}
	}
	task, err := s.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.hub.Broadcast(task.ProjectID, sse.Event{Type: sse.EventTaskUpdated, Data: map[string]interface{}{"task_id": id}})
	return s.GetByID(id)
}

// UpdateStatus moves the task to another workflow step. A status outside
// the project's workflow is rejected and the stored status is untouched.
func (s *TaskService) UpdateStatus(id uint, status string) (*model.Task, error) {
	task, err := s.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	steps := s.projects.ResolveWorkflow(task.ProjectID)
	if !workflow.Contains(steps, status) {
		return nil, fmt.Errorf("40006:状态 %s 不在项目工作流中", status)
	}
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return nil, err
	}
	s.hub.Broadcast(task.ProjectID, sse.Event{
		Type: sse.EventTaskUpdated,
		Data: map[string]interface{}{"task_id": id, "status": status},
	})
	return s.GetByID(id)
}

func (s *TaskService) UpdatePriority(id uint, priority string) (*model.Task, error) {
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("40002:无效的优先级: %s", priority)
	}
	if _, err := s.GetByID(id); err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Update("priority", priority).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Assign sets the single assignee; assigning an already-assigned task
// overwrites, no history kept.
func (s *TaskService) Assign(id, userID, assignerID uint) (*model.Task, error) {
	task, err := s.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	if err := s.validateAssignee(task.ProjectID, userID); err != nil {
		return nil, err
	}
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Update("assignee_id", userID).Error; err != nil {
		return nil, err
	}
	task, _ = s.GetByID(id)
	s.notifyAssigned(task, task.Project, assignerID)
	return task, nil
}

func (s *TaskService) Unassign(id uint) (*model.Task, error) {
	if _, err := s.GetByID(id); err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Update("assignee_id", nil).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes the task together with its subtasks and time logs as one
// transaction: either everything goes or nothing does.
func (s *TaskService) Delete(id uint) error {
	task, err := s.GetByID(id)
	if err != nil {
		return fmt.Errorf("40403:任务不存在")
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Subtask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.TimeLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, id).Error
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(task.ProjectID, sse.Event{Type: sse.EventTaskDeleted, Data: map[string]interface{}{"task_id": id}})
	return nil
}

// --- subtasks ---

func (s *TaskService) AddSubtask(taskID uint, title string) (*model.Subtask, error) {
	if title == "" {
		return nil, fmt.Errorf("40001:子任务标题不能为空")
	}
	if _, err := s.GetByID(taskID); err != nil {
		return nil, fmt.Errorf("40403:任务不存在")
	}
	var maxPos int
	s.db.Model(&model.Subtask{}).Where("task_id = ?", taskID).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos)

	sub := &model.Subtask{TaskID: taskID, Title: title, Position: maxPos + 1}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *TaskService) ToggleSubtask(subtaskID uint, completed bool) (*model.Subtask, error) {
	var sub model.Subtask
	if err := s.db.First(&sub, subtaskID).Error; err != nil {
		return nil, fmt.Errorf("40403:子任务不存在")
	}
	sub.Completed = completed
	if err := s.db.Save(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *TaskService) DeleteSubtask(subtaskID uint) error {
	result := s.db.Delete(&model.Subtask{}, subtaskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40403:子任务不存在")
	}
	return nil
}

// --- derived read views ---

type KanbanColumn struct {
	Status string       `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

// KanbanView groups tasks by status, columns in workflow order. Tasks
// whose status fell out of the workflow land in a trailing column so they
// stay visible rather than silently disappearing.
func (s *TaskService) KanbanView(projectID uint) ([]KanbanColumn, error) {
	steps := s.projects.ResolveWorkflow(projectID)

	var tasks []model.Task
	if err := s.db.Preload("Assignee").Where("project_id = ?", projectID).
		Order("created_at asc").Find(&tasks).Error; err != nil {
		return nil, err
	}

	byStatus := make(map[string][]model.Task)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	columns := make([]KanbanColumn, 0, len(steps)+1)
	for _, st := range steps {
		tasksFor := byStatus[st]
		if tasksFor == nil {
			tasksFor = []model.Task{}
		}
		columns = append(columns, KanbanColumn{Status: st, Tasks: tasksFor})
		delete(byStatus, st)
	}
	for st, orphaned := range byStatus {
		columns = append(columns, KanbanColumn{Status: st, Tasks: orphaned})
	}
	return columns, nil
}

type AssigneeGroup struct {
	Assignee *model.UserBrief `json:"assignee"` // nil for the unassigned bucket
	Tasks    []model.Task     `json:"tasks"`
}

// ByAssigneeView groups tasks by assignee with the unassigned bucket last.
func (s *TaskService) ByAssigneeView(projectID uint) ([]AssigneeGroup, error) {
	var tasks []model.Task
	if err := s.db.Preload("Assignee").Where("project_id = ?", projectID).
		Order("created_at asc").Find(&tasks).Error; err != nil {
		return nil, err
	}

	var order []uint
	byUser := make(map[uint][]model.Task)
	briefs := make(map[uint]model.UserBrief)
	var unassigned []model.Task

	for _, t := range tasks {
		if t.AssigneeID == nil {
			unassigned = append(unassigned, t)
			continue
		}
		uid := *t.AssigneeID
		if _, seen := byUser[uid]; !seen {
			order = append(order, uid)
			if t.Assignee != nil {
				briefs[uid] = t.Assignee.Brief()
			} else {
				briefs[uid] = model.UserBrief{ID: uid}
			}
		}
		byUser[uid] = append(byUser[uid], t)
	}

	groups := make([]AssigneeGroup, 0, len(order)+1)
	for _, uid := range order {
		brief := briefs[uid]
		groups = append(groups, AssigneeGroup{Assignee: &brief, Tasks: byUser[uid]})
	}
	if len(unassigned) > 0 {
		groups = append(groups, AssigneeGroup{Assignee: nil, Tasks: unassigned})
	}
	return groups, nil
}

func (s *TaskService) validateAssignee(projectID, assigneeID uint) error {
	var count int64
	s.db.Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, assigneeID).
		Count(&count)
	if count == 0 {
		return fmt.Errorf("40002:assignee 必须是项目成员")
	}
	return nil
}

func (s *TaskService) notifyAssigned(task *model.Task, project *model.Project, assignerID uint) {
	if task.AssigneeID == nil {
		return
	}
	var assigner model.User
	s.db.First(&assigner, assignerID)

	projectName := ""
	if project != nil {
		projectName = project.Name
	}
	err := s.notifier.NotifyTaskAssigned(context.Background(), notify.TaskAssignedEvent{
		TaskID:       task.ID,
		Title:        task.Title,
		ProjectName:  projectName,
		Priority:     task.Priority,
		AssignerName: assigner.Name,
		AssigneeID:   *task.AssigneeID,
		DueDate:      task.DueDate,
	})
	if err != nil {
		logger.L.Warnw("task assignment notification failed", "task_id", task.ID, "error", err)
	}
}
