package service

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/workflow"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) Create(name, description string, ownerID uint, orgID, teamID *uint, steps []string, memberIDs []uint) (*model.Project, error) {
	var count int64
	s.db.Model(&model.Project{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:项目名称已存在")
	}

	if len(steps) == 0 {
		steps = workflow.Default()
	} else {
		validated, err := workflow.Replace(steps)
		if err != nil {
			return nil, err
		}
		steps = validated
	}

	project := &model.Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		OrgID:       orgID,
		TeamID:      teamID,
		Workflow:    model.Workflow(steps),
		Status:      "active",
	}
	// Project and its memberships land together or not at all; a project
	// without its owner membership would lock the owner out.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		// Owner joins as the first member.
		ownerMember := &model.ProjectMember{
			ProjectID: project.ID,
			UserID:    ownerID,
			Role:      "project_manager",
		}
		if err := tx.Create(ownerMember).Error; err != nil {
			return err
		}

		for _, uid := range memberIDs {
			if uid == ownerID {
				continue
			}
			member := &model.ProjectMember{
				ProjectID: project.ID,
				UserID:    uid,
				Role:      "member",
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Owner").First(project, project.ID)
	return project, nil
}

func (s *ProjectService) List(userID uint, isAdmin bool, keyword, status string, ownerID *uint, page, pageSize int, sortBy, order string) ([]model.Project, int64, error) {
	query := s.db.Model(&model.Project{})

	if !isAdmin {
		query = query.Where("id IN (SELECT project_id FROM project_members WHERE user_id = ?)", userID)
	}
	if keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var total int64
	query.Count(&total)

	if sortBy == "" {
		sortBy = "updated_at"
	}
	if order == "" {
		order = "desc"
	}
	query = query.Order(sortBy + " " + order)

	var projects []model.Project
	if err := query.Preload("Owner").Offset((page-1)*pageSize).Limit(pageSize).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (s *ProjectService) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.Preload("Owner").Preload("Team").Preload("Members.User").First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Update(id uint, updates map[string]interface{}) (*model.Project, error) {
	if name, ok := updates["name"]; ok {
		var count int64
		s.db.Model(&model.Project{}).Where("name = ? AND id != ?", name, id).Count(&count)
		if count > 0 {
			return nil, fmt.Errorf("40005:项目名称已存在")
		}
	}
	if err := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Archive rejects projects with timers still running on their tasks.
func (s *ProjectService) Archive(id uint) error {
	var runningCount int64
	s.db.Model(&model.TimeLog{}).
		Joins("JOIN tasks ON time_logs.task_id = tasks.id").
		Where("tasks.project_id = ? AND time_logs.end_time IS NULL AND time_logs.source = ?", id, model.TimeLogSourceTimer).
		Count(&runningCount)
	if runningCount > 0 {
		return fmt.Errorf("40003:项目存在运行中的计时器，无法归档")
	}
	return s.db.Model(&model.Project{}).Where("id = ?", id).Update("status", "archived").Error
}

func (s *ProjectService) IsMember(projectID, userID uint) bool {
	var count int64
	s.db.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&count)
	return count > 0
}

func (s *ProjectService) AddMembers(projectID uint, userIDs []uint, role string) ([]model.UserBrief, []uint, error) {
	var added []model.UserBrief
	var skipped []uint

	for _, uid := range userIDs {
		var user model.User
		if err := s.db.First(&user, uid).Error; err != nil {
			return nil, nil, fmt.Errorf("40401:用户不存在: id=%d", uid)
		}

		var count int64
		s.db.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, uid).Count(&count)
		if count > 0 {
			skipped = append(skipped, uid)
			continue
		}

		member := &model.ProjectMember{
			ProjectID: projectID,
			UserID:    uid,
			Role:      role,
		}
		s.db.Create(member)
		added = append(added, model.UserBrief{ID: user.ID, Name: user.Name, Role: role})
	}
	return added, skipped, nil
}

func (s *ProjectService) RemoveMember(projectID, userID uint) error {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return err
	}
	if project.OwnerID == userID {
		return fmt.Errorf("40003:不能移除项目所有者")
	}

	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是项目成员")
	}
	return nil
}

// Delete removes the project together with its memberships, tasks, and
// everything hanging off the tasks, in one transaction.
func (s *ProjectService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint
		if err := tx.Model(&model.Task{}).Where("project_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.TimeLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.Subtask{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", id).Delete(&model.Task{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, id).Error
	})
}

// ListByTeam returns every project attached to the team.
func (s *ProjectService) ListByTeam(teamID uint) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Preload("Owner").
		Where("team_id = ?", teamID).
		Order("updated_at desc").
		Find(&projects).Error
	return projects, err
}

func (s *ProjectService) GetMemberCount(projectID uint) int64 {
	var count int64
	s.db.Model(&model.ProjectMember{}).Where("project_id = ?", projectID).Count(&count)
	return count
}

func (s *ProjectService) GetTaskCount(projectID uint) int64 {
	var count int64
	s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&count)
	return count
}

// GetProjectStats counts tasks by workflow step.
func (s *ProjectService) GetProjectStats(projectID uint) map[string]int64 {
	stats := make(map[string]int64)
	for _, st := range s.ResolveWorkflow(projectID) {
		var count int64
		s.db.Model(&model.Task{}).Where("project_id = ? AND status = ?", projectID, st).Count(&count)
		stats[st] = count
	}
	var total int64
	s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&total)
	stats["total_tasks"] = total
	return stats
}

// Progress is the share of tasks sitting in the terminal workflow step.
// A project with no tasks has zero progress.
func (s *ProjectService) Progress(projectID uint) float64 {
	steps := s.ResolveWorkflow(projectID)
	terminal := workflow.Terminal(steps)

	var total, done int64
	s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&total)
	if total == 0 {
		return 0
	}
	s.db.Model(&model.Task{}).Where("project_id = ? AND status = ?", projectID, terminal).Count(&done)
	return float64(done) / float64(total)
}

// ResolveWorkflow returns the project's workflow, or the default list when
// the project is missing or has none configured.
func (s *ProjectService) ResolveWorkflow(projectID uint) []string {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return workflow.Default()
	}
	if len(project.Workflow) == 0 {
		return workflow.Default()
	}
	return []string(project.Workflow)
}

// --- workflow configuration ---

func (s *ProjectService) AddWorkflowStep(projectID uint, name string) ([]string, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, fmt.Errorf("40402:项目不存在")
	}
	steps, err := workflow.Add(s.stepsOf(project), name)
	if err != nil {
		return nil, err
	}
	if err := s.saveWorkflow(s.db, projectID, steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// RemoveWorkflowStep deletes a step. Steps still referenced by tasks may
// only be removed with an explicit remap target, and the remap runs in
// the same transaction as the workflow write.
func (s *ProjectService) RemoveWorkflowStep(projectID uint, name, remapTo string) ([]string, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, fmt.Errorf("40402:项目不存在")
	}
	steps, err := workflow.Remove(s.stepsOf(project), name)
	if err != nil {
		return nil, err
	}

	var inUse int64
	s.db.Model(&model.Task{}).Where("project_id = ? AND status = ?", projectID, name).Count(&inUse)
	if inUse > 0 && remapTo == "" {
		return nil, fmt.Errorf("40903:仍有 %d 个任务处于该步骤，需指定 remap_to", inUse)
	}
	if remapTo != "" && !workflow.Contains(steps, remapTo) {
		return nil, fmt.Errorf("40002:remap_to 必须是保留的工作流步骤")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if remapTo != "" {
			if err := tx.Model(&model.Task{}).
				Where("project_id = ? AND status = ?", projectID, name).
				Update("status", remapTo).Error; err != nil {
				return err
			}
		}
		return s.saveWorkflow(tx, projectID, steps)
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *ProjectService) ReorderWorkflowStep(projectID uint, name, direction string) ([]string, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, fmt.Errorf("40402:项目不存在")
	}
	steps, err := workflow.Reorder(s.stepsOf(project), name, direction)
	if err != nil {
		return nil, err
	}
	if err := s.saveWorkflow(s.db, projectID, steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// ReplaceWorkflow swaps the whole list. Every status currently in use must
// survive the replacement, otherwise existing tasks would be stranded on
// statuses outside the workflow.
func (s *ProjectService) ReplaceWorkflow(projectID uint, steps []string) ([]string, error) {
	if _, err := s.GetByID(projectID); err != nil {
		return nil, fmt.Errorf("40402:项目不存在")
	}
	validated, err := workflow.Replace(steps)
	if err != nil {
		return nil, err
	}

	var inUse []string
	s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Distinct().Pluck("status", &inUse)
	for _, st := range inUse {
		if !workflow.Contains(validated, st) {
			return nil, fmt.Errorf("40903:仍有任务处于步骤 %s，新工作流必须包含它", st)
		}
	}

	if err := s.saveWorkflow(s.db, projectID, validated); err != nil {
		return nil, err
	}
	return validated, nil
}

func (s *ProjectService) stepsOf(project *model.Project) []string {
	if len(project.Workflow) == 0 {
		return workflow.Default()
	}
	return []string(project.Workflow)
}

func (s *ProjectService) saveWorkflow(tx *gorm.DB, projectID uint, steps []string) error {
	return tx.Model(&model.Project{}).Where("id = ?", projectID).
		Update("workflow", model.Workflow(steps)).Error
}
