package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

var errTokenMissing = errors.New("authorization header required")

// RequireStudentJWT validates a student JWT from the Authorization header.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireTokenType(authService, service.TokenTypeStudent, response.ErrStudentAccessOnly, bearerToken)
}

// RequireTeacherJWT validates a staff JWT from the Authorization header.
func RequireTeacherJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireTokenType(authService, service.TokenTypeTeacher, response.ErrTeacherAccessOnly, bearerToken)
}

// RequireTeacherWSAuth validates a staff JWT from the query param ?token=...
// Browsers cannot set headers on WebSocket upgrade requests.
func RequireTeacherWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireTokenType(authService, service.TokenTypeTeacher, response.ErrTeacherAccessOnly, queryToken)
}

func requireTokenType(
	authService *service.AuthService,
	want service.TokenType,
	wrongType response.ErrCode,
	extract func(*gin.Context) string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extract(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, wrongType)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func queryToken(c *gin.Context) string {
	return c.Query("token")
}

// ClaimsKey keys per-user limits on the authenticated user, falling back to the client IP.
func ClaimsKey(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return string(claims.TokenType) + ":" + strconv.Itoa(claims.UserID)
	}
	return c.ClientIP()
}
