// Package permission resolves whether a principal may perform a named
// capability in a team or organization context. Decisions are pure: a
// fine-grained flag on the membership record wins, otherwise the role
// tier default applies, otherwise deny.
package permission

// Tier is the unified capability tier. Both legacy role vocabularies
// (Admin/Editor/Viewer and organization_admin/project_manager/member)
// map onto it at the boundary instead of being compared as raw strings.
type Tier int

const (
	TierNone Tier = iota
	TierViewer
	TierMember
	TierManager
	TierAdmin
)

func TierFromRole(role string) Tier {
	switch role {
	case "admin", "Admin", "organization_admin":
		return TierAdmin
	case "Editor", "project_manager":
		return TierManager
	case "member", "Member":
		return TierMember
	case "viewer", "Viewer":
		return TierViewer
	}
	return TierNone
}

type Capability string

const (
	CapViewProject     Capability = "view-project"
	CapViewAllProjects Capability = "view-all-projects"
	CapAddProject      Capability = "add-project"
	CapRemoveProject   Capability = "remove-project"
	CapEditProject     Capability = "edit-project-settings"
	CapEditWorkflow    Capability = "edit-workflow"
	CapManageTasks     Capability = "manage-tasks"
	CapAddMember       Capability = "add-member"
	CapRemoveMember    Capability = "remove-member"
	CapViewReports     Capability = "view-reports"
)

type rule struct {
	adminOnly    bool
	allowMembers bool
	view         bool
	flag         string
}

var rules = map[Capability]rule{
	CapViewProject:     {view: true},
	CapViewAllProjects: {view: true, flag: "can_view_all_projects"},
	CapAddProject:      {allowMembers: true, flag: "can_add_projects"},
	CapRemoveProject:   {flag: "can_remove_projects"},
	CapEditProject:     {},
	CapEditWorkflow:    {},
	CapManageTasks:     {allowMembers: true},
	CapAddMember:       {adminOnly: true},
	CapRemoveMember:    {adminOnly: true},
	CapViewReports:     {view: true},
}

// Membership is the slice of a team/org membership record the resolver
// needs. Nil flags mean the flag was never set for this member.
type Membership struct {
	Role               string
	CanAddProjects     *bool
	CanRemoveProjects  *bool
	CanViewAllProjects *bool
}

func (m Membership) flagFor(name string) *bool {
	switch name {
	case "can_add_projects":
		return m.CanAddProjects
	case "can_remove_projects":
		return m.CanRemoveProjects
	case "can_view_all_projects":
		return m.CanViewAllProjects
	}
	return nil
}

// Allowed reports whether the membership grants the capability.
// Unknown capabilities and unknown roles deny.
func Allowed(m Membership, cap Capability) bool {
	r, ok := rules[cap]
	if !ok {
		return false
	}
	if r.flag != "" {
		if v := m.flagFor(r.flag); v != nil {
			return *v
		}
	}
	switch TierFromRole(m.Role) {
	case TierAdmin:
		return true
	case TierManager:
		return !r.adminOnly
	case TierMember:
		return r.allowMembers || r.view
	case TierViewer:
		return r.view
	}
	return false
}
