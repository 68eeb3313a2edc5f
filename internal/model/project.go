package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Workflow is the ordered list of status names tasks in a project may take.
type Workflow []string

func (w Workflow) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	b, err := json.Marshal(w)
	return string(b), err
}

func (w *Workflow) Scan(value interface{}) error {
	if value == nil {
		*w = Workflow{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	}
	return json.Unmarshal(bytes, w)
}

type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(128);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"not null;index:idx_projects_owner_id" json:"owner_id"`
	OrgID       *uint          `gorm:"index:idx_projects_org_id" json:"org_id"`
	TeamID      *uint          `gorm:"index:idx_projects_team_id" json:"team_id"`
	Workflow    Workflow       `gorm:"type:json" json:"workflow"`
	Status      string         `gorm:"type:varchar(10);default:active;index:idx_projects_status" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Owner   *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Team    *Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

func (Project) TableName() string { return "projects" }
