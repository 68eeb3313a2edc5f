package model

import (
	"time"

	"gorm.io/gorm"
)

type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OrgID       uint           `gorm:"not null;index:idx_teams_org_id" json:"org_id"`
	Name        string         `gorm:"type:varchar(128);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	MaxMembers  int            `gorm:"not null;default:10" json:"max_members"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

func (Team) TableName() string { return "teams" }

// TeamMember carries a coarse role plus optional fine-grained permission
// flags. A nil flag means "fall back to the role default".
type TeamMember struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	TeamID             uint      `gorm:"not null;uniqueIndex:uk_team_members_team_user" json:"team_id"`
	UserID             uint      `gorm:"not null;uniqueIndex:uk_team_members_team_user;index:idx_team_members_user_id" json:"user_id"`
	Role               string    `gorm:"type:varchar(32);not null;default:member" json:"role"`
	CanAddProjects     *bool     `json:"can_add_projects"`
	CanRemoveProjects  *bool     `json:"can_remove_projects"`
	CanViewAllProjects *bool     `json:"can_view_all_projects"`
	JoinedAt           time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TeamMember) TableName() string { return "team_members" }
