package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/backend/internal/permission"
)

func TestCreateOrgSeedsOwnerAsAdmin(t *testing.T) {
	db := newTestDB(t)
	orgs := NewOrgService(db)
	owner := seedUser(t, db, "founder")

	org, err := orgs.Create("acme", "", owner.ID)
	require.NoError(t, err)

	assert.Equal(t, permission.TierAdmin, orgs.Tier(org.ID, owner.ID))
	assert.Equal(t, permission.TierNone, orgs.Tier(org.ID, 9999))

	_, err = orgs.Create("acme", "", owner.ID)
	assert.Equal(t, 40005, errCode(t, err))
}

func TestOrgMembershipLifecycle(t *testing.T) {
	db := newTestDB(t)
	orgs := NewOrgService(db)
	owner := seedUser(t, db, "founder")
	org, err := orgs.Create("acme", "", owner.ID)
	require.NoError(t, err)

	member := seedUser(t, db, "colleague")
	_, err = orgs.AddMember(org.ID, member.ID, "member")
	require.NoError(t, err)
	assert.Equal(t, permission.TierMember, orgs.Tier(org.ID, member.ID))

	_, err = orgs.AddMember(org.ID, member.ID, "member")
	assert.Equal(t, 40005, errCode(t, err))

	require.NoError(t, orgs.UpdateMemberRole(org.ID, member.ID, "project_manager"))
	assert.Equal(t, permission.TierManager, orgs.Tier(org.ID, member.ID))

	// the owner cannot be removed, other members can
	assert.Equal(t, 40003, errCode(t, orgs.RemoveMember(org.ID, owner.ID)))
	require.NoError(t, orgs.RemoveMember(org.ID, member.ID))
	assert.Equal(t, 40401, errCode(t, orgs.RemoveMember(org.ID, member.ID)))

	list, total, err := orgs.ListForUser(owner.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "acme", list[0].Name)
}
