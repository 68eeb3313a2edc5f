package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/backend/internal/model"
)

func newTaskFixture(t *testing.T) (*TaskService, *TimeLogService, *model.User, *model.Project) {
	t.Helper()
	db := newTestDB(t)
	hub := newTestHub(t)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, []string{"Backlog", "Doing", "Blocked"})
	projects := NewProjectService(db)
	return NewTaskService(db, projects, hub), NewTimeLogService(db, hub), owner, project
}

func TestCreateTaskDefaultsToFirstStep(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	task, err := tasks.Create(CreateTaskInput{
		ProjectID: project.ID,
		Title:     "set up repo",
		CreatorID: owner.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Backlog", task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
}

func TestCreateTaskRejectsStatusOutsideWorkflow(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	_, err := tasks.Create(CreateTaskInput{
		ProjectID: project.ID,
		Title:     "bad status",
		Status:    "done", // not a step in this project's workflow
		CreatorID: owner.ID,
	})
	assert.Equal(t, 40006, errCode(t, err))

	task, err := tasks.Create(CreateTaskInput{
		ProjectID: project.ID,
		Title:     "good status",
		Status:    "Blocked",
		CreatorID: owner.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Blocked", task.Status)
}

func TestCreateTaskValidation(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	_, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, CreatorID: owner.ID})
	assert.Equal(t, 40001, errCode(t, err))

	_, err = tasks.Create(CreateTaskInput{
		ProjectID: project.ID,
		Title:     "t",
		Priority:  "critical",
		CreatorID: owner.ID,
	})
	assert.Equal(t, 40002, errCode(t, err))

	_, err = tasks.Create(CreateTaskInput{ProjectID: 9999, Title: "t", CreatorID: owner.ID})
	assert.Equal(t, 40402, errCode(t, err))
}

func TestUpdateStatusRejectsStatusOutsideWorkflow(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	task, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "t", CreatorID: owner.ID})
	require.NoError(t, err)

	_, err = tasks.UpdateStatus(task.ID, "review")
	assert.Equal(t, 40006, errCode(t, err))

	// stored status untouched after the rejection
	reloaded, err := tasks.GetByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backlog", reloaded.Status)

	updated, err := tasks.UpdateStatus(task.ID, "Doing")
	require.NoError(t, err)
	assert.Equal(t, "Doing", updated.Status)
}

func TestAssignRequiresProjectMember(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)
	db := tasks.db

	task, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "t", CreatorID: owner.ID})
	require.NoError(t, err)

	outsider := seedUser(t, db, "outsider")
	_, err = tasks.Assign(task.ID, outsider.ID, owner.ID)
	assert.Equal(t, 40002, errCode(t, err))

	// once a member, assignment succeeds and overwrites silently
	require.NoError(t, db.Create(&model.ProjectMember{ProjectID: project.ID, UserID: outsider.ID, Role: "member"}).Error)
	assigned, err := tasks.Assign(task.ID, outsider.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, outsider.ID, *assigned.AssigneeID)

	reassigned, err := tasks.Assign(task.ID, owner.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, *reassigned.AssigneeID)

	unassigned, err := tasks.Unassign(task.ID)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssigneeID)
}

func TestDeleteCascadesSubtasksAndTimeLogs(t *testing.T) {
	tasks, timelogs, owner, project := newTaskFixture(t)
	db := tasks.db

	task, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "doomed", CreatorID: owner.ID})
	require.NoError(t, err)

	_, err = tasks.AddSubtask(task.ID, "step one")
	require.NoError(t, err)
	_, err = tasks.AddSubtask(task.ID, "step two")
	require.NoError(t, err)

	_, err = timelogs.StartTimer(owner.ID, task.ID)
	require.NoError(t, err)
	_, err = timelogs.StopTimer(owner.ID, task.ID)
	require.NoError(t, err)

	require.NoError(t, tasks.Delete(task.ID))

	_, err = tasks.GetByID(task.ID)
	assert.Error(t, err)

	var subtaskCount, logCount int64
	db.Model(&model.Subtask{}).Where("task_id = ?", task.ID).Count(&subtaskCount)
	db.Model(&model.TimeLog{}).Where("task_id = ?", task.ID).Count(&logCount)
	assert.Zero(t, subtaskCount)
	assert.Zero(t, logCount)
}

func TestSubtaskOrderingAndToggle(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	task, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "t", CreatorID: owner.ID})
	require.NoError(t, err)

	first, err := tasks.AddSubtask(task.ID, "first")
	require.NoError(t, err)
	second, err := tasks.AddSubtask(task.ID, "second")
	require.NoError(t, err)
	assert.Less(t, first.Position, second.Position)

	toggled, err := tasks.ToggleSubtask(first.ID, true)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	reloaded, err := tasks.GetByID(task.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Subtasks, 2)
	assert.Equal(t, "first", reloaded.Subtasks[0].Title)

	require.NoError(t, tasks.DeleteSubtask(second.ID))
	assert.Equal(t, 40403, errCode(t, tasks.DeleteSubtask(second.ID)))
}

func TestKanbanViewFollowsWorkflowOrder(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	for _, tc := range []struct{ title, status string }{
		{"a", "Backlog"},
		{"b", "Doing"},
		{"c", "Doing"},
	} {
		_, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: tc.title, Status: tc.status, CreatorID: owner.ID})
		require.NoError(t, err)
	}

	columns, err := tasks.KanbanView(project.ID)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "Backlog", columns[0].Status)
	assert.Equal(t, "Doing", columns[1].Status)
	assert.Equal(t, "Blocked", columns[2].Status)
	assert.Len(t, columns[0].Tasks, 1)
	assert.Len(t, columns[1].Tasks, 2)
	assert.Empty(t, columns[2].Tasks)
}

func TestByAssigneeViewUnassignedLast(t *testing.T) {
	tasks, _, owner, project := newTaskFixture(t)

	ownerID := owner.ID
	_, err := tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "mine", AssigneeID: &ownerID, CreatorID: owner.ID})
	require.NoError(t, err)
	_, err = tasks.Create(CreateTaskInput{ProjectID: project.ID, Title: "nobody's", CreatorID: owner.ID})
	require.NoError(t, err)

	groups, err := tasks.ByAssigneeView(project.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.NotNil(t, groups[0].Assignee)
	assert.Equal(t, owner.ID, groups[0].Assignee.ID)
	assert.Nil(t, groups[1].Assignee)
	assert.Len(t, groups[1].Tasks, 1)
}
