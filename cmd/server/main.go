package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/worklane/backend/internal/config"
	"github.com/worklane/backend/internal/handler"
	"github.com/worklane/backend/internal/logger"
	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/notify"
	"github.com/worklane/backend/internal/reminder"
	"github.com/worklane/backend/internal/router"
	"github.com/worklane/backend/internal/service"
	"github.com/worklane/backend/internal/sse"
	"github.com/worklane/backend/internal/worker"
	"github.com/worklane/backend/pkg/webhook"
)

func main() {
	// .env is optional, real deployments use config.yaml + environment
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Server.Mode)
	defer logger.Sync()

	// Database
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.L.Fatalf("connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.OrgMember{},
		&model.Team{},
		&model.TeamMember{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Task{},
		&model.Subtask{},
		&model.TimeLog{},
		&model.UserSetting{},
		&model.OperationLog{},
	); err != nil {
		logger.L.Fatalf("auto migrate: %v", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Core components
	hub := sse.NewHub(rdb)
	pool := worker.NewPool(cfg.Reminder.MaxWorkers)
	defer pool.Shutdown()

	// Services
	authService := service.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.ExpireHours)
	settingService := service.NewSettingService(db, cfg.Encrypt.AESKey)
	orgService := service.NewOrgService(db)
	teamService := service.NewTeamService(db)
	projectService := service.NewProjectService(db)
	taskService := service.NewTaskService(db, projectService, hub)
	timeLogService := service.NewTimeLogService(db, hub)

	// Notifier: webhook deliveries keyed off each user's settings
	notifier := notify.NewWebhookNotifier(settingService, webhook.NewClient())
	taskService.SetNotifier(notifier)

	// Due-date reminder scanner
	scanner := reminder.NewScanner(db, pool, notifier,
		time.Duration(cfg.Reminder.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Reminder.WindowHours)*time.Hour)
	scanner.Start()
	defer scanner.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
	orgHandler := handler.NewOrgHandler(orgService, authService)
	teamHandler := handler.NewTeamHandler(teamService, orgService, authService)
	projectHandler := handler.NewProjectHandler(projectService, timeLogService, teamService, authService, hub)
	taskHandler := handler.NewTaskHandler(taskService, projectService, authService)
	timeLogHandler := handler.NewTimeLogHandler(timeLogService, taskService, projectService, settingService)
	dashboardHandler := handler.NewDashboardHandler(db, projectService, timeLogService, settingService)
	settingHandler := handler.NewSettingHandler(settingService)

	// Gin engine
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	router.Setup(r, router.Deps{
		DB:               db,
		JWTSecret:        cfg.JWT.Secret,
		TeamService:      teamService,
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		OrgHandler:       orgHandler,
		TeamHandler:      teamHandler,
		ProjectHandler:   projectHandler,
		TaskHandler:      taskHandler,
		TimeLogHandler:   timeLogHandler,
		DashboardHandler: dashboardHandler,
		SettingHandler:   settingHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.L.Infof("server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.L.Fatalf("server run: %v", err)
	}
}
