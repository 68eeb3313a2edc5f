package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/service"
)

type TaskHandler struct {
	taskService    *service.TaskService
	projectService *service.ProjectService
	authService    *service.AuthService
}

func NewTaskHandler(taskService *service.TaskService, projectService *service.ProjectService, authService *service.AuthService) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		projectService: projectService,
		authService:    authService,
	}
}

// memberGuard rejects callers who are neither site admins nor members of
// the task's project.
func (h *TaskHandler) memberGuard(c *gin.Context, projectID uint) bool {
	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && !h.projectService.IsMember(projectID, userID) {
		Forbidden(c, 40302, "非项目成员，无权操作")
		return false
	}
	return true
}

// POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	var req struct {
		Title       string     `json:"title" binding:"required,max=256"`
		Description string     `json:"description" binding:"max=10000"`
		Status      string     `json:"status" binding:"omitempty,max=64"`
		Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
		AssigneeID  *uint      `json:"assignee_id"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.memberGuard(c, projectID) {
		return
	}

	task, err := h.taskService.Create(service.CreateTaskInput{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		CreatorID:   middleware.GetCurrentUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "create", "task", task.ID, map[string]interface{}{"title": task.Title, "project_id": projectID})
	Success(c, task)
}

// GET /projects/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.memberGuard(c, projectID) {
		return
	}

	page, pageSize := parsePage(c)
	status := c.Query("status")
	priority := c.Query("priority")
	keyword := c.Query("keyword")
	sortBy := c.DefaultQuery("sort_by", "updated_at")
	order := c.DefaultQuery("order", "desc")

	var assigneeID *uint
	if s := c.Query("assignee_id"); s != "" {
		v := parseID(s)
		assigneeID = &v
	}

	tasks, total, err := h.taskService.List(projectID, status, priority, keyword, assigneeID, page, pageSize, sortBy, order)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessPaged(c, tasks, total, page, pageSize)
}

// GET /projects/:id/tasks/kanban
func (h *TaskHandler) Kanban(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.memberGuard(c, projectID) {
		return
	}

	columns, err := h.taskService.KanbanView(projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"columns": columns})
}

// GET /projects/:id/tasks/by-assignee
func (h *TaskHandler) ByAssignee(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	if !h.memberGuard(c, projectID) {
		return
	}

	groups, err := h.taskService.ByAssigneeView(projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

// GET /tasks/:id
func (h *TaskHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}
	Success(c, task)
}

// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Title       *string    `json:"title" binding:"omitempty,max=256"`
		Description *string    `json:"description" binding:"omitempty,max=10000"`
		DueDate     *time.Time `json:"due_date"`
		ClearDue    bool       `json:"clear_due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	} else if req.ClearDue {
		updates["due_date"] = nil
	}

	updated, err := h.taskService.Update(id, updates)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "update", "task", id, updates)
	Success(c, updated)
}

// PUT /tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Status string `json:"status" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	updated, err := h.taskService.UpdateStatus(id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "update_status", "task", id, map[string]interface{}{"status": req.Status})
	Success(c, updated)
}

// PUT /tasks/:id/priority
func (h *TaskHandler) UpdatePriority(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Priority string `json:"priority" binding:"required,oneof=low medium high urgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	updated, err := h.taskService.UpdatePriority(id, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, updated)
}

// PUT /tasks/:id/assignee
func (h *TaskHandler) Assign(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		UserID *uint `json:"user_id"` // null means unassign
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	var updated = task
	if req.UserID == nil {
		updated, err = h.taskService.Unassign(id)
	} else {
		updated, err = h.taskService.Assign(id, *req.UserID, middleware.GetCurrentUserID(c))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "assign", "task", id, map[string]interface{}{"user_id": req.UserID})
	Success(c, updated)
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	if err := h.taskService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "delete", "task", id, map[string]interface{}{"title": task.Title})
	Success(c, nil)
}

// POST /tasks/:id/subtasks
func (h *TaskHandler) AddSubtask(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Title string `json:"title" binding:"required,max=256"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	subtask, err := h.taskService.AddSubtask(id, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, subtask)
}

// PUT /tasks/:id/subtasks/:subtask_id
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	id := parseID(c.Param("id"))
	subtaskID := parseID(c.Param("subtask_id"))
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	subtask, err := h.taskService.ToggleSubtask(subtaskID, req.Completed)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, subtask)
}

// DELETE /tasks/:id/subtasks/:subtask_id
func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	id := parseID(c.Param("id"))
	subtaskID := parseID(c.Param("subtask_id"))

	task, err := h.taskService.GetByID(id)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !h.memberGuard(c, task.ProjectID) {
		return
	}

	if err := h.taskService.DeleteSubtask(subtaskID); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}
