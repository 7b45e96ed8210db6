package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active session in Redis.
// A mismatch means the login was reset by staff or replaced, so the request is rejected.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Staff tokens are not bound to a device.
		if claims.TokenType != service.TokenTypeStudent {
			c.Next()
			return
		}

		err := authService.ValidateStudentSession(c.Request.Context(), claims.UserID, claims.ID)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrNoActiveSession), errors.Is(err, service.ErrSessionInvalidated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		default:
			_ = c.Error(err)
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		}
	}
}
