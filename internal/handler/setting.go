package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/service"
)

type SettingHandler struct {
	settingService *service.SettingService
}

func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

// GET /settings
func (h *SettingHandler) GetSettings(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	setting, err := h.settingService.Get(userID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	Success(c, gin.H{
		"timezone":         setting.Timezone,
		"webhook_url":      setting.WebhookURL,
		"webhook_secret":   maskSecret(setting.WebhookSecret, "****"),
		"notify_on_assign": setting.NotifyOnAssign,
	})
}

// PUT /settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		Timezone       *string `json:"timezone" binding:"omitempty,max=64"`
		WebhookURL     *string `json:"webhook_url" binding:"omitempty,max=512"`
		WebhookSecret  *string `json:"webhook_secret" binding:"omitempty,max=512"`
		NotifyOnAssign *bool   `json:"notify_on_assign"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	// A masked secret means "keep the stored one"
	if req.WebhookSecret != nil && strings.Contains(*req.WebhookSecret, "****") {
		req.WebhookSecret = nil
	}

	setting, err := h.settingService.Update(userID, req.Timezone, req.WebhookURL, req.WebhookSecret, req.NotifyOnAssign)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"timezone":         setting.Timezone,
		"webhook_url":      setting.WebhookURL,
		"webhook_secret":   maskSecret(setting.WebhookSecret, "****"),
		"notify_on_assign": setting.NotifyOnAssign,
	})
}

func maskSecret(value, prefix string) string {
	if len(value) <= 4 {
		return value
	}
	return prefix + value[len(value)-4:]
}
