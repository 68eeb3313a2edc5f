package handler

import (
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/service"
	"github.com/worklane/backend/internal/workflow"
)

type DashboardHandler struct {
	db             *gorm.DB
	projectService *service.ProjectService
	timeLogService *service.TimeLogService
	settingService *service.SettingService
}

func NewDashboardHandler(db *gorm.DB, projectService *service.ProjectService, timeLogService *service.TimeLogService, settingService *service.SettingService) *DashboardHandler {
	return &DashboardHandler{
		db:             db,
		projectService: projectService,
		timeLogService: timeLogService,
		settingService: settingService,
	}
}

// memberProjectIDs returns the ids of projects the user belongs to.
func (h *DashboardHandler) memberProjectIDs(userID uint) []uint {
	var ids []uint
	h.db.Model(&model.ProjectMember{}).Where("user_id = ?", userID).Pluck("project_id", &ids)
	return ids
}

// overdueCount counts the user's assigned tasks past their due date that
// have not reached the terminal step of their project's workflow.
func (h *DashboardHandler) overdueCount(userID uint, projectIDs []uint) int64 {
	now := time.Now().UTC()
	var total int64
	for _, pid := range projectIDs {
		steps := h.projectService.ResolveWorkflow(pid)
		terminal := workflow.Terminal(steps)
		var n int64
		h.db.Model(&model.Task{}).
			Where("project_id = ? AND assignee_id = ? AND due_date IS NOT NULL AND due_date < ? AND status != ?", pid, userID, now, terminal).
			Count(&n)
		total += n
	}
	return total
}

// GET /dashboard/overview
func (h *DashboardHandler) Overview(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	projectIDs := h.memberProjectIDs(userID)

	var myOpenTasks int64
	if len(projectIDs) > 0 {
		h.db.Model(&model.Task{}).
			Where("assignee_id = ? AND project_id IN ?", userID, projectIDs).
			Count(&myOpenTasks)
	}

	var runningTimers int64
	h.db.Model(&model.TimeLog{}).
		Where("user_id = ? AND source = ? AND end_time IS NULL", userID, model.TimeLogSourceTimer).
		Count(&runningTimers)

	loc := h.settingService.Timezone(userID)
	week, err := h.timeLogService.WeeklyTotals(userID, time.Now().In(loc), loc)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	today, _ := h.timeLogService.DayTotal(userID, time.Now().In(loc), loc)

	Success(c, gin.H{
		"my_projects":    len(projectIDs),
		"my_tasks":       myOpenTasks,
		"overdue_tasks":  h.overdueCount(userID, projectIDs),
		"running_timers": runningTimers,
		"hours_today":    today,
		"hours_week":     week.Total,
		"week_days":      week.Days,
		"week_start":     week.WeekStart,
	})
}

// GET /dashboard/projects
//
// Top projects by completion for the current user, at most five.
func (h *DashboardHandler) TopProjects(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	projectIDs := h.memberProjectIDs(userID)

	var projects []model.Project
	if len(projectIDs) > 0 {
		h.db.Where("id IN ? AND status = ?", projectIDs, "active").Find(&projects)
	}

	type entry struct {
		project  model.Project
		progress float64
	}
	entries := make([]entry, 0, len(projects))
	for _, p := range projects {
		entries = append(entries, entry{project: p, progress: h.projectService.Progress(p.ID)})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].progress > entries[j].progress })
	if len(entries) > 5 {
		entries = entries[:5]
	}

	list := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		list = append(list, gin.H{
			"id":          e.project.ID,
			"name":        e.project.Name,
			"progress":    e.progress,
			"task_count":  h.projectService.GetTaskCount(e.project.ID),
			"total_hours": h.timeLogService.ProjectTotal(e.project.ID),
		})
	}
	Success(c, list)
}

// GET /dashboard/teams
func (h *DashboardHandler) TeamStats(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var teamIDs []uint
	h.db.Model(&model.TeamMember{}).Where("user_id = ?", userID).Pluck("team_id", &teamIDs)

	list := make([]gin.H, 0, len(teamIDs))
	for _, tid := range teamIDs {
		var team model.Team
		if err := h.db.First(&team, tid).Error; err != nil {
			continue
		}

		var memberCount, projectCount int64
		h.db.Model(&model.TeamMember{}).Where("team_id = ?", tid).Count(&memberCount)
		h.db.Model(&model.Project{}).Where("team_id = ?", tid).Count(&projectCount)

		var openTasks int64
		h.db.Model(&model.Task{}).
			Where("project_id IN (SELECT id FROM projects WHERE team_id = ? AND deleted_at IS NULL)", tid).
			Count(&openTasks)

		list = append(list, gin.H{
			"id":            team.ID,
			"name":          team.Name,
			"member_count":  memberCount,
			"max_members":   team.MaxMembers,
			"project_count": projectCount,
			"task_count":    openTasks,
		})
	}
	Success(c, list)
}

// GET /dashboard/activity
//
// Recent operations across the user's projects (last 20).
func (h *DashboardHandler) RecentActivity(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	projectIDs := h.memberProjectIDs(userID)

	var logs []model.OperationLog
	query := h.db.Preload("User").Order("created_at desc").Limit(20)
	if len(projectIDs) > 0 {
		query = query.Where(
			"(resource_type = ? AND resource_id IN ?) OR (resource_type = ? AND resource_id IN (SELECT id FROM tasks WHERE project_id IN ?)) OR user_id = ?",
			"project", projectIDs, "task", projectIDs, userID,
		)
	} else {
		query = query.Where("user_id = ?", userID)
	}
	query.Find(&logs)

	list := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		item := gin.H{
			"action":        log.Action,
			"resource_type": log.ResourceType,
			"resource_id":   log.ResourceID,
			"detail":        log.Detail,
			"time":          log.CreatedAt,
		}
		if log.User != nil {
			item["user"] = gin.H{"id": log.User.ID, "name": log.User.Name}
		}
		list = append(list, item)
	}
	Success(c, list)
}
