package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/service"
)

type TimeLogHandler struct {
	timeLogService *service.TimeLogService
	taskService    *service.TaskService
	projectService *service.ProjectService
	settingService *service.SettingService
}

func NewTimeLogHandler(timeLogService *service.TimeLogService, taskService *service.TaskService, projectService *service.ProjectService, settingService *service.SettingService) *TimeLogHandler {
	return &TimeLogHandler{
		timeLogService: timeLogService,
		taskService:    taskService,
		projectService: projectService,
		settingService: settingService,
	}
}

// taskGuard resolves the task and checks project membership for the caller.
func (h *TimeLogHandler) taskGuard(c *gin.Context, taskID uint) bool {
	task, err := h.taskService.GetByID(taskID)
	if err != nil {
		NotFound(c, 40403, "任务不存在")
		return false
	}
	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && !h.projectService.IsMember(task.ProjectID, userID) {
		Forbidden(c, 40302, "非项目成员，无权操作")
		return false
	}
	return true
}

// POST /tasks/:id/timer/start
func (h *TimeLogHandler) StartTimer(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	if !h.taskGuard(c, taskID) {
		return
	}

	log, err := h.timeLogService.StartTimer(middleware.GetCurrentUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// POST /tasks/:id/timer/pause
func (h *TimeLogHandler) PauseTimer(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	if !h.taskGuard(c, taskID) {
		return
	}

	log, err := h.timeLogService.PauseTimer(middleware.GetCurrentUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// POST /tasks/:id/timer/resume
func (h *TimeLogHandler) ResumeTimer(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	if !h.taskGuard(c, taskID) {
		return
	}

	log, err := h.timeLogService.ResumeTimer(middleware.GetCurrentUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// POST /tasks/:id/timer/stop
func (h *TimeLogHandler) StopTimer(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	if !h.taskGuard(c, taskID) {
		return
	}

	log, err := h.timeLogService.StopTimer(middleware.GetCurrentUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// GET /timelogs/active
func (h *TimeLogHandler) ActiveTimers(c *gin.Context) {
	logs, err := h.timeLogService.ActiveTimers(middleware.GetCurrentUserID(c))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, logs)
}

// POST /tasks/:id/timelogs
func (h *TimeLogHandler) CreateManualEntry(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	var req struct {
		Hours float64 `json:"hours" binding:"required"`
		Date  string  `json:"date" binding:"required,datetime=2006-01-02"`
		Note  string  `json:"note" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.taskGuard(c, taskID) {
		return
	}

	date, _ := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	log, err := h.timeLogService.CreateManualEntry(middleware.GetCurrentUserID(c), taskID, req.Hours, date, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// GET /tasks/:id/timelogs
func (h *TimeLogHandler) ListForTask(c *gin.Context) {
	taskID := parseID(c.Param("id"))
	if !h.taskGuard(c, taskID) {
		return
	}

	page, pageSize := parsePage(c)
	logs, total, err := h.timeLogService.ListForTask(taskID, page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessPaged(c, logs, total, page, pageSize)
}

// PUT /timelogs/:id
func (h *TimeLogHandler) UpdateEntry(c *gin.Context) {
	logID := parseID(c.Param("id"))
	var req struct {
		EndTime *time.Time `json:"end_time"`
		Hours   *float64   `json:"hours"`
		Date    *string    `json:"date" binding:"omitempty,datetime=2006-01-02"`
		Note    *string    `json:"note" binding:"omitempty,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	var logDate *time.Time
	if req.Date != nil {
		d, _ := time.ParseInLocation("2006-01-02", *req.Date, time.UTC)
		logDate = &d
	}

	log, err := h.timeLogService.UpdateEntry(middleware.GetCurrentUserID(c), logID, req.EndTime, req.Hours, logDate, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, log)
}

// DELETE /timelogs/:id
func (h *TimeLogHandler) DeleteEntry(c *gin.Context) {
	logID := parseID(c.Param("id"))
	if err := h.timeLogService.DeleteEntry(middleware.GetCurrentUserID(c), logID); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}

// GET /timelogs/weekly?date=2026-08-24
//
// Weekly totals for the current user, Sunday through Saturday in the
// user's configured timezone.
func (h *TimeLogHandler) WeeklyReport(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	loc := h.settingService.Timezone(userID)

	day := time.Now().In(loc)
	if s := c.Query("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			BadRequest(c, 40002, "date 格式应为 YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.timeLogService.WeeklyTotals(userID, day, loc)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, report)
}

// GET /timelogs/daily?date=2026-08-24
func (h *TimeLogHandler) DailyReport(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	loc := h.settingService.Timezone(userID)

	day := time.Now().In(loc)
	if s := c.Query("date"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			BadRequest(c, 40002, "date 格式应为 YYYY-MM-DD")
			return
		}
		day = parsed
	}

	total, err := h.timeLogService.DayTotal(userID, day, loc)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{
		"date":  day.Format("2006-01-02"),
		"total": total,
	})
}
