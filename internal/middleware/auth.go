package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"orderdesk/pkg/utils"
)

const (
	// AuthorizationHeader authentication header name
	AuthorizationHeader = "Authorization"
	// BearerPrefix bearer token prefix
	BearerPrefix = "Bearer "
	// UserKey session user key in the request context
	UserKey = "session_user"
)

// Role const
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// SessionUser authenticated session supplied by the external identity
// provider. Claims are trusted once the signature checks out.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sessionClaims JWT claims shape issued by the identity provider
type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates the bearer token and stores the session user in the
// request context
func Auth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthorizationHeader)
		if header == "" || !strings.HasPrefix(header, BearerPrefix) {
			utils.AppErrorResponse(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, BearerPrefix)

		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer))

		if err != nil || !token.Valid {
			utils.AppErrorResponse(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(UserKey, &SessionUser{
			ID:    claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		})
		c.Next()
	}
}

// RequireRole gates a route group behind a role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			utils.AppErrorResponse(c, utils.ErrUnauthorized)
			c.Abort()
			return
		}
		if user.Role != role {
			utils.AppErrorResponse(c, utils.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated session user, or nil
func CurrentUser(c *gin.Context) *SessionUser {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*SessionUser)
	if !ok {
		return nil
	}
	return user
}
