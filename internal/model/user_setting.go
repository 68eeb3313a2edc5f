package model

import (
	"time"

	"gorm.io/gorm"
)

// UserSetting holds per-user preferences. WebhookSecret is stored
// AES-GCM encrypted; the setting service owns encryption.
type UserSetting struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Timezone       string         `gorm:"type:varchar(64);default:UTC" json:"timezone"`
	WebhookURL     string         `gorm:"type:varchar(512)" json:"webhook_url"`
	WebhookSecret  string         `gorm:"type:varchar(512)" json:"-"`
	NotifyOnAssign bool           `gorm:"default:true" json:"notify_on_assign"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UserSetting) TableName() string { return "user_settings" }
