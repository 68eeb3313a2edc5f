package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestTierFromRole(t *testing.T) {
	cases := []struct {
		role string
		want Tier
	}{
		{"admin", TierAdmin},
		{"Admin", TierAdmin},
		{"organization_admin", TierAdmin},
		{"Editor", TierManager},
		{"project_manager", TierManager},
		{"member", TierMember},
		{"viewer", TierViewer},
		{"Viewer", TierViewer},
		{"", TierNone},
		{"owner", TierNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFromRole(tc.role), "role %q", tc.role)
	}
}

func TestAllowedRoleDefaults(t *testing.T) {
	admin := Membership{Role: "admin"}
	manager := Membership{Role: "project_manager"}
	member := Membership{Role: "member"}
	viewer := Membership{Role: "viewer"}

	// Admin gets everything.
	for _, cap := range []Capability{CapRemoveMember, CapEditWorkflow, CapRemoveProject} {
		assert.True(t, Allowed(admin, cap), "admin should hold %s", cap)
	}

	// Manager gets everything not admin-only.
	assert.True(t, Allowed(manager, CapEditWorkflow))
	assert.True(t, Allowed(manager, CapManageTasks))
	assert.False(t, Allowed(manager, CapAddMember))
	assert.False(t, Allowed(manager, CapRemoveMember))

	// Member gets member-allowed and view capabilities only.
	assert.True(t, Allowed(member, CapManageTasks))
	assert.True(t, Allowed(member, CapAddProject))
	assert.True(t, Allowed(member, CapViewProject))
	assert.False(t, Allowed(member, CapRemoveProject))
	assert.False(t, Allowed(member, CapEditWorkflow))

	// Viewer gets view capabilities only.
	assert.True(t, Allowed(viewer, CapViewProject))
	assert.True(t, Allowed(viewer, CapViewReports))
	assert.False(t, Allowed(viewer, CapManageTasks))
}

func TestAllowedFlagOverridesRole(t *testing.T) {
	// A viewer with can_add_projects=true is allowed despite the tier.
	m := Membership{Role: "viewer", CanAddProjects: boolPtr(true)}
	assert.True(t, Allowed(m, CapAddProject))

	// An admin with can_remove_projects=false is denied: the exact flag wins.
	m = Membership{Role: "admin", CanRemoveProjects: boolPtr(false)}
	assert.False(t, Allowed(m, CapRemoveProject))

	// Unset flag falls through to the role default.
	m = Membership{Role: "member"}
	assert.False(t, Allowed(m, CapRemoveProject))
}

func TestAllowedFailsClosed(t *testing.T) {
	assert.False(t, Allowed(Membership{Role: "admin"}, Capability("no-such-capability")))
	assert.False(t, Allowed(Membership{Role: "intern"}, CapViewProject))
	assert.False(t, Allowed(Membership{}, CapManageTasks))
}
