package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKey = "0123456789abcdef0123456789abcdef"

func TestSettingsDefaultsOnFirstAccess(t *testing.T) {
	settings := NewSettingService(newTestDB(t), testAESKey)

	s, err := settings.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "UTC", s.Timezone)
	assert.True(t, s.NotifyOnAssign)
	assert.Empty(t, s.WebhookURL)

	assert.Equal(t, time.UTC, settings.Timezone(42))
}

func TestUpdateSettingsValidatesTimezone(t *testing.T) {
	settings := NewSettingService(newTestDB(t), testAESKey)

	bad := "Mars/Olympus"
	_, err := settings.Update(1, &bad, nil, nil, nil)
	assert.Equal(t, 40002, errCode(t, err))

	tz := "Asia/Shanghai"
	updated, err := settings.Update(1, &tz, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, tz, updated.Timezone)
	assert.Equal(t, "Asia/Shanghai", settings.Timezone(1).String())
}

func TestWebhookSecretStoredEncrypted(t *testing.T) {
	settings := NewSettingService(newTestDB(t), testAESKey)

	url := "https://hooks.example.com/worklane"
	secret := "hunter2-hmac-key"
	stored, err := settings.Update(7, nil, &url, &secret, nil)
	require.NoError(t, err)
	assert.NotEqual(t, secret, stored.WebhookSecret)

	gotURL, gotSecret, enabled, err := settings.WebhookFor(7)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, url, gotURL)
	assert.Equal(t, secret, gotSecret)
}

func TestWebhookDisabledWhenUnconfiguredOrOptedOut(t *testing.T) {
	settings := NewSettingService(newTestDB(t), testAESKey)

	// no webhook URL yet
	_, _, enabled, err := settings.WebhookFor(3)
	require.NoError(t, err)
	assert.False(t, enabled)

	url := "https://hooks.example.com/worklane"
	off := false
	_, err = settings.Update(3, nil, &url, nil, &off)
	require.NoError(t, err)

	_, _, enabled, err = settings.WebhookFor(3)
	require.NoError(t, err)
	assert.False(t, enabled)
}
