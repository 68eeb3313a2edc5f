package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/permission"
)

type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

func (s *TeamService) Create(orgID uint, name, description string, maxMembers int, creatorID uint) (*model.Team, error) {
	if maxMembers < 1 {
		return nil, fmt.Errorf("40002:maxMembers 必须大于 0")
	}
	var count int64
	s.db.Model(&model.Team{}).Where("org_id = ? AND name = ?", orgID, name).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:团队名称已存在")
	}

	team := &model.Team{
		OrgID:       orgID,
		Name:        name,
		Description: description,
		MaxMembers:  maxMembers,
	}
	if err := s.db.Create(team).Error; err != nil {
		return nil, err
	}

	member := &model.TeamMember{TeamID: team.ID, UserID: creatorID, Role: "admin"}
	if err := s.db.Create(member).Error; err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) GetByID(id uint) (*model.Team, error) {
	var team model.Team
	if err := s.db.Preload("Members.User").First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) List(orgID uint, page, pageSize int) ([]model.Team, int64, error) {
	query := s.db.Model(&model.Team{}).Where("org_id = ?", orgID)

	var total int64
	query.Count(&total)

	var teams []model.Team
	if err := query.Order("created_at asc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&teams).Error; err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

func (s *TeamService) Update(id uint, updates map[string]interface{}) (*model.Team, error) {
	if v, ok := updates["max_members"]; ok {
		if n, ok := v.(int); ok && n < 1 {
			return nil, fmt.Errorf("40002:maxMembers 必须大于 0")
		}
	}
	if err := s.db.Model(&model.Team{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *TeamService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&model.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Team{}, id).Error
	})
}

// AddMember admits a user as long as the team is below its cap. The count
// check and the insert are one conditional statement so two concurrent
// requests cannot both slip under the cap.
func (s *TeamService) AddMember(teamID, userID uint, role string) (*model.TeamMember, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("40401:用户不存在: id=%d", userID)
	}
	var team model.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		return nil, fmt.Errorf("40404:团队不存在")
	}

	var count int64
	s.db.Model(&model.TeamMember{}).Where("team_id = ? AND user_id = ?", teamID, userID).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:该用户已是团队成员")
	}

	if role == "" {
		role = "member"
	}
	now := time.Now()
	result := s.db.Exec(
		`INSERT INTO team_members (team_id, user_id, role, joined_at)
		 SELECT ?, ?, ?, ?
		 FROM (SELECT 1) AS one
		 WHERE (SELECT COUNT(*) FROM team_members WHERE team_id = ?) <
		       (SELECT max_members FROM teams WHERE id = ?)`,
		teamID, userID, role, now, teamID, teamID,
	)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("40902:团队成员已达上限")
	}

	var member model.TeamMember
	if err := s.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error; err != nil {
		return nil, err
	}
	member.User = &user
	return &member, nil
}

func (s *TeamService) RemoveMember(teamID, userID uint) error {
	result := s.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&model.TeamMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是团队成员")
	}
	return nil
}

func (s *TeamService) UpdateMemberRole(teamID, userID uint, role string) error {
	result := s.db.Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是团队成员")
	}
	return nil
}

// UpdateMemberFlags sets the fine-grained permission flags. A nil flag
// leaves the stored value alone.
func (s *TeamService) UpdateMemberFlags(teamID, userID uint, canAdd, canRemove, canViewAll *bool) error {
	updates := map[string]interface{}{}
	if canAdd != nil {
		updates["can_add_projects"] = *canAdd
	}
	if canRemove != nil {
		updates["can_remove_projects"] = *canRemove
	}
	if canViewAll != nil {
		updates["can_view_all_projects"] = *canViewAll
	}
	if len(updates) == 0 {
		return nil
	}
	result := s.db.Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是团队成员")
	}
	return nil
}

func (s *TeamService) MemberCount(teamID uint) int64 {
	var count int64
	s.db.Model(&model.TeamMember{}).Where("team_id = ?", teamID).Count(&count)
	return count
}

// MembershipFor converts a user's team membership into the resolver's
// input. Absent membership resolves as an empty (deny-all) record.
func (s *TeamService) MembershipFor(teamID, userID uint) permission.Membership {
	var member model.TeamMember
	if err := s.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error; err != nil {
		return permission.Membership{}
	}
	return permission.Membership{
		Role:               member.Role,
		CanAddProjects:     member.CanAddProjects,
		CanRemoveProjects:  member.CanRemoveProjects,
		CanViewAllProjects: member.CanViewAllProjects,
	}
}
