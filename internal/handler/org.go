package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/permission"
	"github.com/worklane/backend/internal/service"
)

type OrgHandler struct {
	orgService  *service.OrgService
	authService *service.AuthService
}

func NewOrgHandler(orgService *service.OrgService, authService *service.AuthService) *OrgHandler {
	return &OrgHandler{orgService: orgService, authService: authService}
}

// adminGuard checks the caller is an organization admin (or site admin).
func (h *OrgHandler) adminGuard(c *gin.Context, orgID uint) bool {
	if middleware.GetCurrentUserIsAdmin(c) {
		return true
	}
	if h.orgService.Tier(orgID, middleware.GetCurrentUserID(c)) < permission.TierAdmin {
		Forbidden(c, 40301, "权限不足，仅组织管理员可操作")
		return false
	}
	return true
}

// POST /orgs
func (h *OrgHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=128"`
		Description string `json:"description" binding:"max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	org, err := h.orgService.Create(req.Name, req.Description, middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "create", "organization", org.ID, map[string]interface{}{"name": org.Name})
	Success(c, org)
}

// GET /orgs
func (h *OrgHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	orgs, total, err := h.orgService.ListForUser(middleware.GetCurrentUserID(c), page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessPaged(c, orgs, total, page, pageSize)
}

// GET /orgs/:id
func (h *OrgHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))

	org, err := h.orgService.GetByID(id)
	if err != nil {
		NotFound(c, 40404, "组织不存在")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	if !middleware.GetCurrentUserIsAdmin(c) && h.orgService.Membership(id, userID) == nil {
		Forbidden(c, 40302, "非组织成员，无权查看")
		return
	}

	members := make([]gin.H, 0, len(org.Members))
	for _, m := range org.Members {
		item := gin.H{
			"id":        m.UserID,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		}
		if m.User != nil {
			item["name"] = m.User.Name
			item["avatar"] = m.User.Avatar
			item["email"] = m.User.Email
		}
		members = append(members, item)
	}

	data := gin.H{
		"id":          org.ID,
		"name":        org.Name,
		"description": org.Description,
		"members":     members,
		"created_at":  org.CreatedAt,
		"updated_at":  org.UpdatedAt,
	}
	if org.Owner != nil {
		data["owner"] = org.Owner.Brief()
	}
	Success(c, data)
}

// POST /orgs/:id/members
func (h *OrgHandler) AddMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required,oneof=organization_admin project_manager member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.adminGuard(c, id) {
		return
	}

	member, err := h.orgService.AddMember(id, req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "add_member", "organization", id, map[string]interface{}{"user_id": req.UserID, "role": req.Role})
	Success(c, member)
}

// PUT /orgs/:id/members/:user_id/role
func (h *OrgHandler) UpdateMemberRole(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	var req struct {
		Role string `json:"role" binding:"required,oneof=organization_admin project_manager member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !h.adminGuard(c, id) {
		return
	}

	if err := h.orgService.UpdateMemberRole(id, userID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}

// DELETE /orgs/:id/members/:user_id
func (h *OrgHandler) RemoveMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := parseID(c.Param("user_id"))
	if !h.adminGuard(c, id) {
		return
	}

	if err := h.orgService.RemoveMember(id, userID); err != nil {
		respondError(c, err)
		return
	}

	LogOperation(h.authService, c, "remove_member", "organization", id, map[string]interface{}{"user_id": userID})
	Success(c, nil)
}
