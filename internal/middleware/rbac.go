package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/response"
)

// RequirePermission checks that the staff JWT carries perm.
func RequirePermission(perm model.Permission) gin.HandlerFunc {
	return RequireAnyPermission(perm)
}

// RequireAnyPermission checks that the staff JWT carries at least one of perms.
func RequireAnyPermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, granted := range claims.Permissions {
			for _, p := range perms {
				if granted == string(p) {
					c.Next()
					return
				}
			}
		}

		response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
	}
}
