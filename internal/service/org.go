package service

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/internal/permission"
)

type OrgService struct {
	db *gorm.DB
}

func NewOrgService(db *gorm.DB) *OrgService {
	return &OrgService{db: db}
}

func (s *OrgService) Create(name, description string, ownerID uint) (*model.Organization, error) {
	var count int64
	s.db.Model(&model.Organization{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:组织名称已存在")
	}

	org := &model.Organization{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := s.db.Create(org).Error; err != nil {
		return nil, err
	}

	// The creator holds the org admin role.
	member := &model.OrgMember{
		OrgID:  org.ID,
		UserID: ownerID,
		Role:   "organization_admin",
	}
	if err := s.db.Create(member).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrgService) GetByID(id uint) (*model.Organization, error) {
	var org model.Organization
	if err := s.db.Preload("Owner").Preload("Members.User").First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *OrgService) ListForUser(userID uint, page, pageSize int) ([]model.Organization, int64, error) {
	query := s.db.Model(&model.Organization{}).
		Where("id IN (SELECT org_id FROM org_members WHERE user_id = ?)", userID)

	var total int64
	query.Count(&total)

	var orgs []model.Organization
	if err := query.Preload("Owner").Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&orgs).Error; err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

// Membership returns the caller's role assignment in the organization,
// or nil when they are not a member.
func (s *OrgService) Membership(orgID, userID uint) *model.OrgMember {
	var member model.OrgMember
	if err := s.db.Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error; err != nil {
		return nil
	}
	return &member
}

// Tier maps the caller's org role onto the unified capability tier.
func (s *OrgService) Tier(orgID, userID uint) permission.Tier {
	member := s.Membership(orgID, userID)
	if member == nil {
		return permission.TierNone
	}
	return permission.TierFromRole(member.Role)
}

func (s *OrgService) AddMember(orgID, userID uint, role string) (*model.OrgMember, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("40401:用户不存在: id=%d", userID)
	}

	var count int64
	s.db.Model(&model.OrgMember{}).Where("org_id = ? AND user_id = ?", orgID, userID).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40005:该用户已是组织成员")
	}

	member := &model.OrgMember{OrgID: orgID, UserID: userID, Role: role}
	if err := s.db.Create(member).Error; err != nil {
		return nil, err
	}
	member.User = &user
	return member, nil
}

func (s *OrgService) UpdateMemberRole(orgID, userID uint, role string) error {
	result := s.db.Model(&model.OrgMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是组织成员")
	}
	return nil
}

func (s *OrgService) RemoveMember(orgID, userID uint) error {
	var org model.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		return fmt.Errorf("40404:组织不存在")
	}
	if org.OwnerID == userID {
		return fmt.Errorf("40003:不能移除组织所有者")
	}

	result := s.db.Where("org_id = ? AND user_id = ?", orgID, userID).Delete(&model.OrgMember{})
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是组织成员")
	}
	return nil
}
