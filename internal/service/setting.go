package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/worklane/backend/internal/model"
	"github.com/worklane/backend/pkg/encrypt"
)

type SettingService struct {
	db     *gorm.DB
	aesKey string
}

func NewSettingService(db *gorm.DB, aesKey string) *SettingService {
	return &SettingService{db: db, aesKey: aesKey}
}

// Get returns the user's settings, creating defaults on first access.
func (s *SettingService) Get(userID uint) (*model.UserSetting, error) {
	var setting model.UserSetting
	err := s.db.Where("user_id = ?", userID).First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		setting = model.UserSetting{UserID: userID, Timezone: "UTC", NotifyOnAssign: true}
		if err := s.db.Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *SettingService) Update(userID uint, timezone, webhookURL, webhookSecret *string, notifyOnAssign *bool) (*model.UserSetting, error) {
	setting, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if timezone != nil {
		if _, err := time.LoadLocation(*timezone); err != nil {
			return nil, fmt.Errorf("40002:无效的时区: %s", *timezone)
		}
		updates["timezone"] = *timezone
	}
	if webhookURL != nil {
		updates["webhook_url"] = *webhookURL
	}
	if webhookSecret != nil {
		enc := ""
		if *webhookSecret != "" {
			enc, err = encrypt.AESEncrypt(s.aesKey, *webhookSecret)
			if err != nil {
				return nil, fmt.Errorf("encrypt secret: %w", err)
			}
		}
		updates["webhook_secret"] = enc
	}
	if notifyOnAssign != nil {
		updates["notify_on_assign"] = *notifyOnAssign
	}

	if len(updates) > 0 {
		if err := s.db.Model(setting).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(userID)
}

// Timezone resolves the user's aggregation timezone, falling back to UTC.
func (s *SettingService) Timezone(userID uint) *time.Location {
	setting, err := s.Get(userID)
	if err != nil || setting.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(setting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WebhookFor implements notify.SettingsSource.
func (s *SettingService) WebhookFor(userID uint) (string, string, bool, error) {
	setting, err := s.Get(userID)
	if err != nil {
		return "", "", false, err
	}
	if setting.WebhookURL == "" || !setting.NotifyOnAssign {
		return "", "", false, nil
	}
	secret := ""
	if setting.WebhookSecret != "" {
		secret, err = encrypt.AESDecrypt(s.aesKey, setting.WebhookSecret)
		if err != nil {
			return "", "", false, fmt.Errorf("decrypt secret: %w", err)
		}
	}
	return setting.WebhookURL, secret, true, nil
}
