package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/perkloop/backend/internal/security"
	"github.com/perkloop/backend/internal/server/resp"
)

const (
	HeaderUserToken = "X-User-Token"

	CtxAccountID = "account_id"
	CtxRole      = "role"
)

// RequireAccount validates the access token and puts the account id and role
// on the request context.
func RequireAccount(jwtm *security.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserToken))
		if raw == "" {
			resp.Error(c, http.StatusUnauthorized, "missing X-User-Token")
			c.Abort()
			return
		}
		id, role, err := jwtm.ParseAccess(raw)
		if err != nil || id == uuid.Nil {
			resp.Error(c, http.StatusUnauthorized, "invalid X-User-Token")
			c.Abort()
			return
		}
		c.Set(CtxAccountID, id)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// RequireRole gates a group to one role. Must run after RequireAccount.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got, ok := c.Get(CtxRole); !ok || got != role {
			resp.Error(c, http.StatusForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
