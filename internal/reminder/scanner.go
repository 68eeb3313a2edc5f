// Package reminder periodically scans for assigned tasks approaching
// their due date and dispatches due-soon notifications.
package reminder

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/logger"
	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/notify"
	"github.com/worklane/backend/internal/worker"
	"github.com/worklane/backend/internal/workflow"
)

type Scanner struct {
	db       *gorm.DB
	pool     *worker.Pool
	notifier notify.Notifier
	interval time.Duration
	window   time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewScanner(db *gorm.DB, pool *worker.Pool, notifier notify.Notifier, interval, window time.Duration) *Scanner {
	return &Scanner{
		db:       db,
		pool:     pool,
		notifier: notifier,
		interval: interval,
		window:   window,
		done:     make(chan struct{}),
	}
}

// Start runs one scan immediately, then on every tick until Stop.
func (s *Scanner) Start() {
	logger.L.Infow("starting reminder scanner", "interval", s.interval, "window", s.window)

	s.scan()

	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.scan()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Scanner) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

// scan picks assigned, not-yet-reminded tasks due inside the window and
// hands each notification to the pool. Tasks already in their project's
// terminal status are done work and are skipped.
func (s *Scanner) scan() {
	now := time.Now().UTC()
	deadline := now.Add(s.window)

	var tasks []model.Task
	err := s.db.Preload("Project").
		Where("assignee_id IS NOT NULL AND reminded_at IS NULL AND due_date IS NOT NULL AND due_date <= ?", deadline).
		Find(&tasks).Error
	if err != nil {
		logger.L.Errorw("reminder scan failed", "error", err)
		return
	}

	sent := 0
	for _, t := range tasks {
		steps := workflow.Default()
		projectName := ""
		if t.Project != nil {
			projectName = t.Project.Name
			if len(t.Project.Workflow) > 0 {
				steps = []string(t.Project.Workflow)
			}
		}
		if t.Status == workflow.Terminal(steps) {
			continue
		}

		if err := s.db.Model(&model.Task{}).Where("id = ?", t.ID).
			Update("reminded_at", now).Error; err != nil {
			logger.L.Errorw("mark reminded failed", "task_id", t.ID, "error", err)
			continue
		}

		event := notify.TaskDueSoonEvent{
			TaskID:      t.ID,
			Title:       t.Title,
			ProjectName: projectName,
			AssigneeID:  *t.AssigneeID,
			DueDate:     *t.DueDate,
		}
		accepted := s.pool.Submit(func() {
			if err := s.notifier.NotifyTaskDueSoon(context.Background(), event); err != nil {
				logger.L.Warnw("due-soon notification failed", "task_id", event.TaskID, "error", err)
			}
		})
		if !accepted {
			// Queue full: unmark so the next scan picks the task up again.
			logger.L.Warnw("notification queue full, deferring reminder", "task_id", t.ID)
			s.db.Model(&model.Task{}).Where("id = ?", t.ID).Update("reminded_at", nil)
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.L.Infow("reminder scan dispatched", "count", sent)
	}
}
