package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/permission"
	"github.com/worklane/backend/internal/service"
)

type TeamHandler struct {
	teamService *service.TeamService
	orgService  *service.OrgService
	authService *service.AuthService
}

func NewTeamHandler(teamService *service.TeamService, orgService *service.OrgService, authService *service.AuthService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		orgService:  orgService,
		authService: authService,
	}
}

// manageGuard checks the caller may administer the team: site admin, org
// admin of the team's organization, or an admin member of the team itself.
func (h *TeamHandler) manageGuard(c *gin.Context, teamID uint) bool {
	if middleware.GetCurrentUserIsAdmin(c) {
		return true
	}
	userID := middleware.GetCurrentUserID(c)

	team, err := h.teamService.GetByID(teamID)
	if err != nil {
		NotFound(c, 40406, "团队不存在")
		return false
	}
	if h.orgService.Tier(team.OrgID, userID) >= permission.TierAdmin {
		return true
	}

	m := h.teamService.MembershipFor(teamID, userID)
	if permission.TierFromRole(m.Role) >= permission.TierAdmin {
		return true
	}
	Forbidden(c, 40301, "权限不足，仅团队管理员可操作")
	return false
}

// POST /orgs/:id/teams
func (h *TeamHandler) Create(c *gin.Context) {
	orgID := parseID(c.Param("id"))
	var req struct {
		Name        string `json:"name" binding:"required,max=128"`
		Description string `json:"description" binding:"max=5000"`
		MaxMembers  int    `json:"max_members" binding:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && h.orgService.Tier(orgID, userID) < permission.TierManager {
		Forbidden(c, 40301, "权限不足，无法创建团队")
		return
	}

	team, err := h.teamService.Create(orgID, req.Name, req.Description, req.MaxMembers, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "create", "team", team.ID, map[string]interface{}{"name": team.Name})
	Success(c, team)
}

// GET /orgs/:id/teams
func (h *TeamHandler) List(c *gin.Context) {
	orgID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && h.orgService.Membership(orgID, userID) == nil {
		Forbidden(c, 40302, "非组织成员，无权查看")
		return
	}

	page, pageSize := parsePage(c)
	teams, total, err := h.teamService.List(orgID, page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(teams))
	for _, t := range teams {
		list = append(list, gin.H{
			"id":           t.ID,
			"name":         t.Name,
			"description":  t.Description,
			"max_members":  t.MaxMembers,
			"member_count": h.teamService.MemberCount(t.ID),
			"created_at":   t.CreatedAt,
		})
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /teams/:id
func (h *TeamHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))

	team, err := h.teamService.GetByID(id)
	if err != nil {
		NotFound(c, 40406, "团队不存在")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && h.orgService.Membership(team.OrgID, userID) == nil {
		Forbidden(c, 40302, "非组织成员，无权查看")
		return
	}

	members := make([]gin.H, 0, len(team.Members))
	for _, m := range team.Members {
		item := gin.H{
			"id":                    m.UserID,
			"role":                  m.Role,
			"can_add_projects":      m.CanAddProjects,
			"can_remove_projects":   m.CanRemoveProjects,
			"can_view_all_projects": m.CanViewAllProjects,
			"joined_at":             m.JoinedAt,
		}
		if m.User != nil {
			item["name"] = m.User.Name
			item["avatar"] = m.User.Avatar
		}
		members = append(members, item)
	}

	Success(c, gin.H{
		"id":           team.ID,
		"org_id":       team.OrgID,
		"name":         team.Name,
		"description":  team.Description,
		"max_members":  team.MaxMembers,
		"member_count": h.teamService.MemberCount(id),
		"members":      members,
		"created_at":   team.CreatedAt,
		"updated_at":   team.UpdatedAt,
	})
}

// PUT /teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=128"`
		Description *string `json:"description" binding:"omitempty,max=5000"`
		MaxMembers  *int    `json:"max_members" binding:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.manageGuard(c, id) {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MaxMembers != nil {
		updates["max_members"] = *req.MaxMembers
	}

	team, err := h.teamService.Update(id, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, team)
}

// DELETE /teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	if !h.manageGuard(c, id) {
		return
	}

	if err := h.teamService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "delete", "team", id, nil)
	Success(c, nil)
}

// POST /teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"omitempty,oneof=admin member viewer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}
	if !h.manageGuard(c, id) {
		return
	}

	member, err := h.teamService.AddMember(id, req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "add_member", "team", id, map[string]interface{}{"user_id": req.UserID, "role": req.Role})
	Success(c, member)
}

// DELETE /teams/:id/members/:user_id
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	if !h.manageGuard(c, id) {
		return
	}

	if err := h.teamService.RemoveMember(id, userID); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "remove_member", "team", id, map[string]interface{}{"user_id": userID})
	Success(c, nil)
}

// PUT /teams/:id/members/:user_id/role
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	var req struct {
		Role string `json:"role" binding:"required,oneof=admin member viewer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.manageGuard(c, id) {
		return
	}

	if err := h.teamService.UpdateMemberRole(id, userID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}

// PUT /teams/:id/members/:user_id/permissions
func (h *TeamHandler) UpdateMemberPermissions(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	var req struct {
		CanAddProjects     *bool `json:"can_add_projects"`
		CanRemoveProjects  *bool `json:"can_remove_projects"`
		CanViewAllProjects *bool `json:"can_view_all_projects"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.manageGuard(c, id) {
		return
	}

	if err := h.teamService.UpdateMemberFlags(id, userID, req.CanAddProjects, req.CanRemoveProjects, req.CanViewAllProjects); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}
