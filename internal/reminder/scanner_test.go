package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/notify"
	"github.com/worklane/backend/internal/worker"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.TaskDueSoonEvent
	fired  chan struct{}
}

func (r *recordingNotifier) NotifyTaskAssigned(context.Context, notify.TaskAssignedEvent) error {
	return nil
}

func (r *recordingNotifier) NotifyTaskDueSoon(_ context.Context, e notify.TaskDueSoonEvent) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func newScannerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Project{}, &model.Task{}))
	return db
}

func seedTask(t *testing.T, db *gorm.DB, projectID uint, status string, assignee *uint, due time.Time) *model.Task {
	t.Helper()
	task := &model.Task{
		ProjectID:  projectID,
		Title:      "task",
		Status:     status,
		Priority:   model.PriorityMedium,
		CreatorID:  1,
		AssigneeID: assignee,
		DueDate:    &due,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestScanDispatchesDueSoonOnce(t *testing.T) {
	db := newScannerDB(t)
	project := &model.Project{Name: "p", OwnerID: 1, Workflow: model.Workflow{"todo", "done"}, Status: "active"}
	require.NoError(t, db.Create(project).Error)

	assignee := uint(9)
	soon := time.Now().UTC().Add(2 * time.Hour)
	task := seedTask(t, db, project.ID, "todo", &assignee, soon)

	// out of scope: unassigned, already terminal, due too far out
	seedTask(t, db, project.ID, "todo", nil, soon)
	seedTask(t, db, project.ID, "done", &assignee, soon)
	seedTask(t, db, project.ID, "todo", &assignee, time.Now().UTC().Add(72*time.Hour))

	rec := &recordingNotifier{fired: make(chan struct{}, 10)}
	pool := worker.NewPool(1)
	defer pool.Shutdown()

	scanner := NewScanner(db, pool, rec, time.Hour, 24*time.Hour)
	scanner.scan()

	select {
	case <-rec.fired:
	case <-time.After(time.Second):
		t.Fatal("notification was not dispatched")
	}

	rec.mu.Lock()
	require.Len(t, rec.events, 1)
	assert.Equal(t, task.ID, rec.events[0].TaskID)
	assert.Equal(t, assignee, rec.events[0].AssigneeID)
	assert.Equal(t, "p", rec.events[0].ProjectName)
	rec.mu.Unlock()

	// the task is marked and a second scan stays quiet
	var reloaded model.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	assert.NotNil(t, reloaded.RemindedAt)

	scanner.scan()
	select {
	case <-rec.fired:
		t.Fatal("task reminded twice")
	case <-time.After(100 * time.Millisecond):
	}
}
