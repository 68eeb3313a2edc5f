package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	auth := NewAuthService(newTestDB(t), "test-secret", 1)

	user, token, _, err := auth.Register("ada@example.com", "s3cret-pass", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "member", user.Role)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	_, _, _, err = auth.Register("ada@example.com", "other-pass99", "Ada II")
	assert.Equal(t, 40005, errCode(t, err))

	logged, token, _, err := auth.Login("ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, logged.LastLoginAt)

	_, _, _, err = auth.Login("ada@example.com", "wrong")
	assert.Equal(t, 40101, errCode(t, err))

	_, _, _, err = auth.Login("nobody@example.com", "whatever")
	assert.Equal(t, 40101, errCode(t, err))
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	auth := NewAuthService(newTestDB(t), "test-secret", 1)

	user, _, _, err := auth.Register("bob@example.com", "s3cret-pass", "Bob")
	require.NoError(t, err)

	_, err = auth.UpdateUserStatus(user.ID, 0)
	require.NoError(t, err)

	_, _, _, err = auth.Login("bob@example.com", "s3cret-pass")
	assert.Equal(t, 40104, errCode(t, err))
}

func TestUpdateRoleAndAdminFlag(t *testing.T) {
	auth := NewAuthService(newTestDB(t), "test-secret", 1)

	user, _, _, err := auth.Register("eve@example.com", "s3cret-pass", "Eve")
	require.NoError(t, err)

	updated, err := auth.UpdateRole(user.ID, "project_manager")
	require.NoError(t, err)
	assert.Equal(t, "project_manager", updated.Role)

	updated, err = auth.ToggleAdmin(user.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)

	_, err = auth.UpdateRole(9999, "member")
	assert.Error(t, err)
}
