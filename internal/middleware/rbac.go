package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/worklane/backend/internal/permission"
	"github.com/worklane/backend/internal/service"
)

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Admin bypasses all role checks
		if GetCurrentUserIsAdmin(c) {
			c.Next()
			return
		}
		userRole := GetCurrentUserRole(c)
		for _, r := range roles {
			if userRole == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    40301,
			"message": "权限不足",
			"data":    nil,
		})
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCurrentUserIsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    40301,
				"message": "权限不足",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

// RequireCapability gates a team-scoped route (the ":id" param is the
// team ID) by the caller's resolved team capability. Absent membership
// resolves as deny; site admins bypass.
func RequireCapability(teams *service.TeamService, cap permission.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetCurrentUserIsAdmin(c) {
			c.Next()
			return
		}
		teamID, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		m := teams.MembershipFor(uint(teamID), GetCurrentUserID(c))
		if permission.Allowed(m, cap) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    40301,
			"message": "权限不足",
			"data":    nil,
		})
	}
}

// RequireTier gates a route by the caller's site-wide role tier.
// Fine-grained team/org capability checks happen in the handlers where
// the membership record is at hand; this covers the coarse routes.
func RequireTier(min permission.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetCurrentUserIsAdmin(c) {
			c.Next()
			return
		}
		if permission.TierFromRole(GetCurrentUserRole(c)) >= min {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    40301,
			"message": "权限不足",
			"data":    nil,
		})
	}
}
