package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/permission"
	"github.com/worklane/backend/internal/service"
	"github.com/worklane/backend/internal/sse"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	timeLogService *service.TimeLogService
	teamService    *service.TeamService
	authService    *service.AuthService
	hub            *sse.Hub
}

func NewProjectHandler(projectService *service.ProjectService, timeLogService *service.TimeLogService, teamService *service.TeamService, authService *service.AuthService, hub *sse.Hub) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		timeLogService: timeLogService,
		teamService:    teamService,
		authService:    authService,
		hub:            hub,
	}
}

// canManage reports whether the user may change the project itself:
// its owner, a project_manager/organization_admin member, or a site admin.
func (h *ProjectHandler) canManage(project *model.Project, userID uint, isAdmin bool) bool {
	if isAdmin || project.OwnerID == userID {
		return true
	}
	for _, m := range project.Members {
		if m.UserID == userID {
			return m.Role == "project_manager" || m.Role == "organization_admin"
		}
	}
	return false
}

// POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required,max=128"`
		Description string   `json:"description" binding:"max=5000"`
		OrgID       *uint    `json:"org_id"`
		TeamID      *uint    `json:"team_id"`
		Workflow    []string `json:"workflow"`
		MemberIDs   []uint   `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)

	// Attaching a project to a team requires the add-projects capability
	// on that team; a member flag set to false overrides the role default.
	if req.TeamID != nil && !middleware.GetCurrentUserIsAdmin(c) {
		m := h.teamService.MembershipFor(*req.TeamID, userID)
		if !permission.Allowed(m, permission.CapAddProject) {
			Forbidden(c, 40301, "无权在该团队下创建项目")
			return
		}
	}

	project, err := h.projectService.Create(req.Name, req.Description, userID, req.OrgID, req.TeamID, req.Workflow, req.MemberIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "create", "project", project.ID, map[string]interface{}{"name": project.Name})

	data := gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"org_id":      project.OrgID,
		"team_id":     project.TeamID,
		"workflow":    project.Workflow,
		"status":      project.Status,
		"created_at":  project.CreatedAt,
	}
	if project.Owner != nil {
		data["owner"] = project.Owner.Brief()
	}
	Success(c, data)
}

// GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	userID := middleware.GetCurrentUserID(c)
	isAdmin := middleware.GetCurrentUserIsAdmin(c)
	keyword := c.Query("keyword")
	status := c.Query("status")
	sortBy := c.DefaultQuery("sort_by", "updated_at")
	order := c.DefaultQuery("order", "desc")

	var ownerID *uint
	if s := c.Query("owner_id"); s != "" {
		v := parseID(s)
		ownerID = &v
	}

	projects, total, err := h.projectService.List(userID, isAdmin, keyword, status, ownerID, page, pageSize, sortBy, order)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		item := gin.H{
			"id":           p.ID,
			"name":         p.Name,
			"description":  p.Description,
			"status":       p.Status,
			"workflow":     p.Workflow,
			"member_count": h.projectService.GetMemberCount(p.ID),
			"task_count":   h.projectService.GetTaskCount(p.ID),
			"progress":     h.projectService.Progress(p.ID),
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		}
		if p.Owner != nil {
			item["owner"] = p.Owner.Brief()
		}
		list = append(list, item)
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /projects/:id
func (h *ProjectHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}

	if !middleware.GetCurrentUserIsAdmin(c) && !h.projectService.IsMember(id, userID) {
		Forbidden(c, 40302, "非项目成员，无权查看")
		return
	}

	members := make([]gin.H, 0, len(project.Members))
	for _, m := range project.Members {
		item := gin.H{
			"id":        m.UserID,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		}
		if m.User != nil {
			item["name"] = m.User.Name
			item["avatar"] = m.User.Avatar
			item["email"] = m.User.Email
		}
		members = append(members, item)
	}

	data := gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"org_id":      project.OrgID,
		"team_id":     project.TeamID,
		"workflow":    h.projectService.ResolveWorkflow(project.ID),
		"status":      project.Status,
		"members":     members,
		"stats":       h.projectService.GetProjectStats(project.ID),
		"progress":    h.projectService.Progress(project.ID),
		"total_hours": h.timeLogService.ProjectTotal(project.ID),
		"created_at":  project.CreatedAt,
		"updated_at":  project.UpdatedAt,
	}
	if project.Owner != nil {
		data["owner"] = project.Owner.Brief()
	}
	if project.Team != nil {
		data["team"] = gin.H{"id": project.Team.ID, "name": project.Team.Name}
	}
	Success(c, data)
}

// PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=128"`
		Description *string `json:"description" binding:"omitempty,max=5000"`
		Status      *string `json:"status" binding:"omitempty,oneof=active archived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}
	if !h.canManage(project, middleware.GetCurrentUserID(c), middleware.GetCurrentUserIsAdmin(c)) {
		Forbidden(c, 40301, "权限不足")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if req.Status != nil && *req.Status == "archived" && project.Status != "archived" {
		if err := h.projectService.Archive(id); err != nil {
			respondError(c, err)
			return
		}
	} else if req.Status != nil {
		updates["status"] = *req.Status
	}

	updated, err := h.projectService.Update(id, updates)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "update", "project", id, updates)
	Success(c, gin.H{
		"id":          updated.ID,
		"name":        updated.Name,
		"description": updated.Description,
		"status":      updated.Status,
		"updated_at":  updated.UpdatedAt,
	})
}

// DELETE /projects/:id
//
// Site admins and the owner may always delete. For a team project a
// member with the remove-projects capability may too.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	allowed := middleware.GetCurrentUserIsAdmin(c) || project.OwnerID == userID
	if !allowed && project.TeamID != nil {
		m := h.teamService.MembershipFor(*project.TeamID, userID)
		allowed = permission.Allowed(m, permission.CapRemoveProject)
	}
	if !allowed {
		Forbidden(c, 40301, "无权删除该项目")
		return
	}

	if err := h.projectService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "delete", "project", id, map[string]interface{}{"name": project.Name})
	Success(c, nil)
}

// GET /teams/:id/projects
//
// Gated by middleware.RequireCapability(CapViewAllProjects) in the router.
func (h *ProjectHandler) ListForTeam(c *gin.Context) {
	teamID := parseID(c.Param("id"))
	projects, err := h.projectService.ListByTeam(teamID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		item := gin.H{
			"id":         p.ID,
			"name":       p.Name,
			"status":     p.Status,
			"progress":   h.projectService.Progress(p.ID),
			"updated_at": p.UpdatedAt,
		}
		if p.Owner != nil {
			item["owner"] = p.Owner.Brief()
		}
		list = append(list, item)
	}
	Success(c, gin.H{"projects": list})
}

// POST /projects/:id/members
func (h *ProjectHandler) AddMembers(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
		Role    string `json:"role" binding:"omitempty,oneof=organization_admin project_manager member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}

	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}
	if !h.canManage(project, middleware.GetCurrentUserID(c), middleware.GetCurrentUserIsAdmin(c)) {
		Forbidden(c, 40301, "权限不足")
		return
	}

	added, skipped, err := h.projectService.AddMembers(id, req.UserIDs, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "add_members", "project", id, map[string]interface{}{"user_ids": req.UserIDs})
	Success(c, gin.H{
		"added":   added,
		"skipped": skipped,
	})
}

// DELETE /projects/:id/members/:user_id
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	memberID := parseID(c.Param("user_id"))

	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}
	if !h.canManage(project, middleware.GetCurrentUserID(c), middleware.GetCurrentUserIsAdmin(c)) {
		Forbidden(c, 40301, "权限不足")
		return
	}

	if err := h.projectService.RemoveMember(id, memberID); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "remove_member", "project", id, map[string]interface{}{"user_id": memberID})
	Success(c, nil)
}

// GET /projects/:id/workflow
func (h *ProjectHandler) GetWorkflow(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if _, err := h.projectService.GetByID(id); err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}
	if !middleware.GetCurrentUserIsAdmin(c) && !h.projectService.IsMember(id, userID) {
		Forbidden(c, 40302, "非项目成员，无权查看")
		return
	}
	Success(c, gin.H{"workflow": h.projectService.ResolveWorkflow(id)})
}

// workflowGuard loads the project and enforces manage rights for workflow edits.
func (h *ProjectHandler) workflowGuard(c *gin.Context, id uint) bool {
	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return false
	}
	if !h.canManage(project, middleware.GetCurrentUserID(c), middleware.GetCurrentUserIsAdmin(c)) {
		Forbidden(c, 40301, "权限不足，仅项目管理者可修改工作流")
		return false
	}
	return true
}

func (h *ProjectHandler) broadcastWorkflow(projectID uint, steps []string) {
	h.hub.Broadcast(projectID, sse.Event{
		Type: sse.EventWorkflowEdited,
		Data: map[string]interface{}{"workflow": steps},
	})
}

// POST /projects/:id/workflow/steps
func (h *ProjectHandler) AddWorkflowStep(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Name string `json:"name" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.workflowGuard(c, id) {
		return
	}

	steps, err := h.projectService.AddWorkflowStep(id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "workflow_add_step", "project", id, map[string]interface{}{"step": req.Name})
	h.broadcastWorkflow(id, steps)
	Success(c, gin.H{"workflow": steps})
}

// DELETE /projects/:id/workflow/steps/:name
func (h *ProjectHandler) RemoveWorkflowStep(c *gin.Context) {
	id := parseID(c.Param("id"))
	name := c.Param("name")
	remapTo := c.Query("remap_to")
	if !h.workflowGuard(c, id) {
		return
	}

	steps, err := h.projectService.RemoveWorkflowStep(id, name, remapTo)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "workflow_remove_step", "project", id, map[string]interface{}{"step": name, "remap_to": remapTo})
	h.broadcastWorkflow(id, steps)
	Success(c, gin.H{"workflow": steps})
}

// PUT /projects/:id/workflow/steps/:name/position
func (h *ProjectHandler) ReorderWorkflowStep(c *gin.Context) {
	id := parseID(c.Param("id"))
	name := c.Param("name")
	var req struct {
		Direction string `json:"direction" binding:"required,oneof=up down"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.workflowGuard(c, id) {
		return
	}

	steps, err := h.projectService.ReorderWorkflowStep(id, name, req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}
	h.broadcastWorkflow(id, steps)
	Success(c, gin.H{"workflow": steps})
}

// PUT /projects/:id/workflow
func (h *ProjectHandler) ReplaceWorkflow(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Steps []string `json:"steps" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.workflowGuard(c, id) {
		return
	}

	steps, err := h.projectService.ReplaceWorkflow(id, req.Steps)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "workflow_replace", "project", id, map[string]interface{}{"steps": req.Steps})
	h.broadcastWorkflow(id, steps)
	Success(c, gin.H{"workflow": steps})
}

// GET /projects/:id/events
//
// Server-sent events for one project: task changes, timer activity and
// workflow edits. Replays missed history when the client reconnects with
// Last-Event-ID.
func (h *ProjectHandler) Stream(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if _, err := h.projectService.GetByID(id); err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}
	if !middleware.GetCurrentUserIsAdmin(c) && !h.projectService.IsMember(id, userID) {
		Forbidden(c, 40302, "非项目成员，无权订阅")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		InternalError(c, "streaming not supported")
		return
	}

	lastEventID := sse.ParseLastEventID(c.GetHeader("Last-Event-ID"))

	// Replay history
	history, _ := h.hub.ReplayFrom(id, lastEventID)
	eventID := lastEventID
	for _, ev := range history {
		data, _ := json.Marshal(ev.Data)
		fmt.Fprintf(c.Writer, "id: %d\nevent: %s\ndata: %s\n\n", eventID, ev.Type, string(data))
		eventID++
		flusher.Flush()
	}

	ch, unsub := h.hub.Subscribe(id)
	defer unsub()

	ctx := c.Request.Context()
	heartbeat := make(chan struct{})

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case heartbeat <- struct{}{}:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			data, _ := json.Marshal(ev.Data)
			fmt.Fprintf(c.Writer, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, string(data))
			flusher.Flush()
		case <-heartbeat:
			fmt.Fprintf(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
