package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/worklane/backend/internal/middleware"
	"github.com/worklane/backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email,max=128"`
		Password string `json:"password" binding:"required,min=8,max=72"`
		Name     string `json:"name" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	user, token, expiresAt, err := h.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user.Brief(),
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	user, token, expiresAt, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user.Brief(),
	})
}

// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		Unauthorized(c, 40103, "用户未认证")
		return
	}
	Success(c, gin.H{
		"id":            user.ID,
		"name":          user.Name,
		"avatar":        user.Avatar,
		"email":         user.Email,
		"role":          user.Role,
		"is_admin":      user.IsAdmin,
		"status":        user.Status,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	token, expiresAt, err := h.authService.RefreshToken(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
