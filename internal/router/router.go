package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/worklane/backend/internal/handler"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/permission"
	"github.com/worklane/backend/internal/service"
)

type Deps struct {
	DB               *gorm.DB
	JWTSecret        string
	TeamService      *service.TeamService
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	OrgHandler       *handler.OrgHandler
	TeamHandler      *handler.TeamHandler
	ProjectHandler   *handler.ProjectHandler
	TaskHandler      *handler.TaskHandler
	TimeLogHandler   *handler.TimeLogHandler
	DashboardHandler *handler.DashboardHandler
	SettingHandler   *handler.SettingHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api/v1")

	// Public routes (no auth)
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
	}

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		// Auth
		authed.GET("/auth/me", deps.AuthHandler.GetMe)
		authed.POST("/auth/refresh", deps.AuthHandler.RefreshToken)

		// User search (all authenticated users)
		authed.GET("/users/search", deps.UserHandler.SearchUsers)

		// Admin routes
		admin := authed.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/users", deps.UserHandler.ListUsers)
			admin.PUT("/users/:id/role", deps.UserHandler.UpdateUserRole)
			admin.PUT("/users/:id/admin", deps.UserHandler.ToggleUserAdmin)
			admin.PUT("/users/:id/status", deps.UserHandler.UpdateUserStatus)
			admin.GET("/operation-logs", deps.UserHandler.GetOperationLogs)
		}

		// Organizations
		orgs := authed.Group("/orgs")
		{
			orgs.POST("", deps.OrgHandler.Create)
			orgs.GET("", deps.OrgHandler.List)
			orgs.GET("/:id", deps.OrgHandler.GetDetail)
			orgs.POST("/:id/members", deps.OrgHandler.AddMember)
			orgs.PUT("/:id/members/:user_id/role", deps.OrgHandler.UpdateMemberRole)
			orgs.DELETE("/:id/members/:user_id", deps.OrgHandler.RemoveMember)

			// Teams under organizations
			orgs.POST("/:id/teams", deps.TeamHandler.Create)
			orgs.GET("/:id/teams", deps.TeamHandler.List)
		}

		// Teams (standalone)
		teams := authed.Group("/teams")
		{
			teams.GET("/:id", deps.TeamHandler.GetDetail)
			teams.PUT("/:id", deps.TeamHandler.Update)
			teams.DELETE("/:id", deps.TeamHandler.Delete)
			teams.POST("/:id/members", deps.TeamHandler.AddMember)
			teams.DELETE("/:id/members/:user_id", deps.TeamHandler.RemoveMember)
			teams.PUT("/:id/members/:user_id/role", deps.TeamHandler.UpdateMemberRole)
			teams.PUT("/:id/members/:user_id/permissions", deps.TeamHandler.UpdateMemberPermissions)
			teams.GET("/:id/projects",
				middleware.RequireCapability(deps.TeamService, permission.CapViewAllProjects),
				deps.ProjectHandler.ListForTeam)
		}

		// Projects
		projects := authed.Group("/projects")
		{
			projects.POST("", middleware.RequireTier(permission.TierMember), deps.ProjectHandler.Create)
			projects.GET("", deps.ProjectHandler.List)
			projects.GET("/:id", deps.ProjectHandler.GetDetail)
			projects.PUT("/:id", deps.ProjectHandler.Update)
			projects.DELETE("/:id", deps.ProjectHandler.Delete)
			projects.POST("/:id/members", deps.ProjectHandler.AddMembers)
			projects.DELETE("/:id/members/:user_id", deps.ProjectHandler.RemoveMember)

			// Workflow configuration
			projects.GET("/:id/workflow", deps.ProjectHandler.GetWorkflow)
			projects.PUT("/:id/workflow", deps.ProjectHandler.ReplaceWorkflow)
			projects.POST("/:id/workflow/steps", deps.ProjectHandler.AddWorkflowStep)
			projects.DELETE("/:id/workflow/steps/:name", deps.ProjectHandler.RemoveWorkflowStep)
			projects.PUT("/:id/workflow/steps/:name/position", deps.ProjectHandler.ReorderWorkflowStep)

			// Tasks under projects
			projects.POST("/:id/tasks", deps.TaskHandler.Create)
			projects.GET("/:id/tasks", deps.TaskHandler.List)
			projects.GET("/:id/tasks/kanban", deps.TaskHandler.Kanban)
			projects.GET("/:id/tasks/by-assignee", deps.TaskHandler.ByAssignee)

			// Live events
			projects.GET("/:id/events", deps.ProjectHandler.Stream)
		}

		// Tasks (standalone)
		tasks := authed.Group("/tasks")
		{
			tasks.GET("/:id", deps.TaskHandler.GetDetail)
			tasks.PUT("/:id", deps.TaskHandler.Update)
			tasks.DELETE("/:id", deps.TaskHandler.Delete)
			tasks.PUT("/:id/status", deps.TaskHandler.UpdateStatus)
			tasks.PUT("/:id/priority", deps.TaskHandler.UpdatePriority)
			tasks.PUT("/:id/assignee", deps.TaskHandler.Assign)

			// Subtasks
			tasks.POST("/:id/subtasks", deps.TaskHandler.AddSubtask)
			tasks.PUT("/:id/subtasks/:subtask_id", deps.TaskHandler.ToggleSubtask)
			tasks.DELETE("/:id/subtasks/:subtask_id", deps.TaskHandler.DeleteSubtask)

			// Timer
			tasks.POST("/:id/timer/start", deps.TimeLogHandler.StartTimer)
			tasks.POST("/:id/timer/pause", deps.TimeLogHandler.PauseTimer)
			tasks.POST("/:id/timer/resume", deps.TimeLogHandler.ResumeTimer)
			tasks.POST("/:id/timer/stop", deps.TimeLogHandler.StopTimer)

			// Manual time entries
			tasks.POST("/:id/timelogs", deps.TimeLogHandler.CreateManualEntry)
			tasks.GET("/:id/timelogs", deps.TimeLogHandler.ListForTask)
		}

		// Time logs (standalone)
		timelogs := authed.Group("/timelogs")
		{
			timelogs.GET("/active", deps.TimeLogHandler.ActiveTimers)
			timelogs.PUT("/:id", deps.TimeLogHandler.UpdateEntry)
			timelogs.DELETE("/:id", deps.TimeLogHandler.DeleteEntry)
			timelogs.GET("/daily", deps.TimeLogHandler.DailyReport)
			timelogs.GET("/weekly", deps.TimeLogHandler.WeeklyReport)
		}

		// Settings
		settings := authed.Group("/settings")
		{
			settings.GET("", deps.SettingHandler.GetSettings)
			settings.PUT("", deps.SettingHandler.UpdateSettings)
		}

		// Dashboard
		dashboard := authed.Group("/dashboard")
		{
			dashboard.GET("/overview", deps.DashboardHandler.Overview)
			dashboard.GET("/projects", deps.DashboardHandler.TopProjects)
			dashboard.GET("/teams", deps.DashboardHandler.TeamStats)
			dashboard.GET("/activity", deps.DashboardHandler.RecentActivity)
		}
	}
}
