package model

import (
	"time"

	"gorm.io/gorm"
)

type Organization struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(128);uniqueIndex:idx_organizations_name;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"not null;index:idx_organizations_owner_id" json:"owner_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Owner   *User       `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members []OrgMember `gorm:"foreignKey:OrgID" json:"members,omitempty"`
}

func (Organization) TableName() string { return "organizations" }

// OrgMember records a user's role within one organization. The same user
// may hold a different role in another organization.
type OrgMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	OrgID    uint      `gorm:"not null;uniqueIndex:uk_org_members_org_user" json:"org_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:uk_org_members_org_user;index:idx_org_members_user_id" json:"user_id"`
	Role     string    `gorm:"type:varchar(32);not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (OrgMember) TableName() string { return "org_members" }
